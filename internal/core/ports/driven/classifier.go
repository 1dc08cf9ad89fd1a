package driven

import "github.com/samjmc/dashchat/internal/core/domain"

// Classifier infers a coarse dashboard classification from page evidence.
// It is the detector's lowest-fidelity structured tier: stronger classifiers
// can be substituted without touching the detector's control flow.
type Classifier interface {
	// Classify inspects the environment and returns a classification, or
	// nil when nothing recognisable was found.
	Classify(env *domain.Environment) *domain.Classification
}
