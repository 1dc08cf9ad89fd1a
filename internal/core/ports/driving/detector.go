package driving

import (
	"context"

	"github.com/samjmc/dashchat/internal/core/domain"
)

// ContextDetector produces a best-effort dashboard context snapshot from a
// prioritised cascade of probes. Detect never fails: the worst case is an
// empty snapshot with IsEmbedded reflecting frame nesting.
type ContextDetector interface {
	// Detect runs the probe cascade against the given page environment.
	Detect(ctx context.Context, env *domain.Environment) *domain.DashboardContext
}
