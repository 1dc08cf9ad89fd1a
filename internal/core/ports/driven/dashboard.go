package driven

import (
	"context"

	"github.com/samjmc/dashchat/internal/core/domain"
)

// ExtensionBridge is the structured dashboard-extension capability: the
// highest-fidelity context source. All query methods are bounded by the
// caller's context; a bridge that cannot answer returns
// domain.ErrBridgeUnavailable rather than hanging.
type ExtensionBridge interface {
	// Initialize performs the extension handshake. It must respect ctx
	// cancellation; the detector bounds it to a few seconds.
	Initialize(ctx context.Context) error

	// DashboardName returns the dashboard title.
	DashboardName(ctx context.Context) (string, error)

	// Worksheets lists the worksheet names on the dashboard.
	Worksheets(ctx context.Context) ([]string, error)

	// SummaryData returns the field list, up to maxRows sample rows, and
	// the total row count for one worksheet.
	SummaryData(ctx context.Context, worksheet string, maxRows int) (fields []string, rows []map[string]string, total int, err error)

	// Filters returns the active filters for one worksheet with resolved
	// applied values.
	Filters(ctx context.Context, worksheet string) ([]domain.FilterState, error)

	// Parameters returns the dashboard parameters with current and
	// allowable values.
	Parameters(ctx context.Context) ([]domain.ParameterState, error)

	// Events returns the dashboard mutation event stream. The channel is
	// closed when the bridge closes.
	Events() <-chan domain.DashboardEvent

	// Close releases resources and closes the event stream.
	Close() error
}

// WindowMessenger exchanges typed messages with the hosting window. It is
// the medium-fidelity fallback when no structured extension is available.
type WindowMessenger interface {
	// Request sends a typed request to the parent window and awaits the
	// matching typed response. Absence of a response within ctx's deadline
	// is "no data", surfaced as context.DeadlineExceeded.
	Request(ctx context.Context, msgType string, payload any) ([]byte, error)
}

// Cross-window message kinds exchanged with a hosting frame.
const (
	// MsgRequestTableauStatus asks the parent whether it hosts a dashboard.
	MsgRequestTableauStatus = "request_tableau_status"

	// MsgTableauReady is the parent's affirmative status reply.
	MsgTableauReady = "tableau_ready"

	// MsgRequestDashboardData asks the parent for a context snapshot.
	MsgRequestDashboardData = "request_dashboard_data"

	// MsgTableauDashboardData is the parent's context snapshot reply.
	MsgTableauDashboardData = "tableau_dashboard_data"
)

// DashboardDataPayload is the cross-window context snapshot wire shape.
type DashboardDataPayload struct {
	Title      string                `json:"title,omitempty"`
	Filters    []DashboardDataFilter `json:"filters,omitempty"`
	Worksheets []DashboardDataSheet  `json:"worksheets,omitempty"`
	Parameters []DashboardDataParam  `json:"parameters,omitempty"`
}

// DashboardDataFilter is one filter entry on the wire.
type DashboardDataFilter struct {
	Field         string   `json:"fieldName"`
	AppliedValues []string `json:"appliedValues,omitempty"`
	Worksheet     string   `json:"worksheetName,omitempty"`
}

// DashboardDataSheet is one worksheet entry on the wire.
type DashboardDataSheet struct {
	Name    string   `json:"name"`
	Fields  []string `json:"fields,omitempty"`
	Summary string   `json:"summary,omitempty"`
}

// DashboardDataParam is one parameter entry on the wire.
type DashboardDataParam struct {
	Name         string `json:"name"`
	CurrentValue string `json:"currentValue"`
}

// ContextCache holds the most recent context snapshot pushed by a widget
// session. It backs the cheap passive-probe tier.
type ContextCache interface {
	// Put stores the snapshot for a session key.
	Put(ctx context.Context, key string, snapshot *domain.DashboardContext) error

	// Get returns the stored snapshot, or domain.ErrNotFound.
	Get(ctx context.Context, key string) (*domain.DashboardContext, error)
}
