// Package classifier provides the default keyword-based dashboard classifier.
package classifier

import (
	"strings"

	"github.com/samjmc/dashchat/internal/core/domain"
	"github.com/samjmc/dashchat/internal/core/ports/driven"
)

// Ensure Keyword implements the interface.
var _ driven.Classifier = (*Keyword)(nil)

// DefaultType is returned when page evidence suggests a dashboard but no
// vocabulary term narrows it down.
const DefaultType = "General Financial Dashboard"

// Keyword classifies a dashboard by case-insensitive keyword matches over the
// page title, visible text and referrer. It is deliberately small: a coarse
// type plus plausible category and metric labels, never structured filters
// or parameters.
type Keyword struct{}

// NewKeyword creates the default keyword classifier.
func NewKeyword() *Keyword {
	return &Keyword{}
}

// Classify inspects the environment for domain vocabulary. Returns nil when
// nothing recognisable was found.
func (k *Keyword) Classify(env *domain.Environment) *domain.Classification {
	if env == nil {
		return nil
	}

	text := strings.ToLower(env.PageText)
	title := strings.ToLower(env.PageTitle)
	referrer := strings.ToLower(env.Referrer)

	contains := func(term string) bool {
		return strings.Contains(text, term) || strings.Contains(title, term)
	}

	// Only classify when the page plausibly hosts a dashboard at all.
	dashboardish := env.FrameNested ||
		strings.Contains(referrer, "tableau") ||
		strings.Contains(strings.ToLower(env.URL), "tableau") ||
		contains("dashboard")
	if !dashboardish {
		return nil
	}

	c := &domain.Classification{Type: DefaultType}

	switch {
	case contains("nhs"):
		c.Type = "NHS Healthcare Financial Data"
	case contains("margin"):
		c.Type = "Pharmaceutical Margin Analysis"
	}

	if contains("patient") {
		c.Categories = append(c.Categories, "Patient Data")
	}
	if contains("claimed") {
		c.Categories = append(c.Categories, "Claimed Items")
	}
	if contains("category") {
		c.Categories = append(c.Categories, "Drug Categories")
	}
	if contains("procurement") {
		c.Categories = append(c.Categories, "Procurement Data")
	}

	if contains("margin") {
		c.Metrics = append(c.Metrics, "Margins")
	}
	if contains("revenue") || contains("sales") {
		c.Metrics = append(c.Metrics, "Revenue/Sales")
	}
	if contains("cost") {
		c.Metrics = append(c.Metrics, "Costs")
	}
	if contains("count") {
		c.Metrics = append(c.Metrics, "Counts")
	}

	return c
}
