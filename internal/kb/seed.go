// Package kb manages the retrieval knowledge base: the built-in chart
// literacy corpus and a directory watcher that ingests operator-supplied
// documents.
package kb

import (
	"context"
	"fmt"

	"github.com/samjmc/dashchat/internal/core/ports/driving"
	"github.com/samjmc/dashchat/internal/logger"
)

// seedDocument is one built-in knowledge-base entry.
type seedDocument struct {
	title   string
	content string
}

// seedDocuments is the built-in chart literacy corpus. It gives the
// assistant something to retrieve before any operator documents exist.
var seedDocuments = []seedDocument{
	{
		title:   "Understanding Bar Charts",
		content: "Bar charts display categorical data with rectangular bars. The heights of the bars represent the values. Horizontal bar charts are useful when category labels are long. Look for the tallest/shortest bars to identify max/min values.",
	},
	{
		title:   "Reading Line Charts",
		content: "Line charts display data points connected by straight line segments. They're ideal for showing trends over time. Look for slopes to understand rate of change, peaks/valleys for maximum/minimum values, and intersections for when series cross.",
	},
	{
		title:   "Interpreting Pie Charts",
		content: "Pie charts show the proportion of categories as slices of a circle. The entire circle represents 100% of the data. Each slice's size corresponds to its percentage of the whole. Larger slices represent higher percentages.",
	},
	{
		title:   "Dashboard KPI Analysis",
		content: "Key Performance Indicators (KPIs) are critical metrics that measure success. When analyzing KPIs, compare against targets, look for trends over time, and identify correlations with other metrics. Red typically indicates below target, green above target.",
	},
	{
		title:   "Common Tableau Terms",
		content: "Measures: Numeric values that can be aggregated. Dimensions: Categorical fields used for grouping. Filters: Limit the data shown. Parameters: User inputs that change the visualization. Worksheets: Individual visualizations. Dashboards: Collections of worksheets.",
	},
}

// Seed ingests the built-in corpus when the store is empty. It is
// idempotent across restarts: an already-populated store is left alone.
func Seed(ctx context.Context, docs driving.DocumentService) error {
	existing, err := docs.List(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	if len(existing) > 0 {
		logger.Debug("Knowledge base already populated (%d documents), skipping seed", len(existing))
		return nil
	}

	for _, doc := range seedDocuments {
		if _, err := docs.Add(ctx, doc.title, doc.content, map[string]any{"source": "built-in"}); err != nil {
			return fmt.Errorf("seed %q: %w", doc.title, err)
		}
	}

	logger.Info("Knowledge base seeded with %d documents", len(seedDocuments))
	return nil
}
