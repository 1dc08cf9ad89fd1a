package services

import (
	"fmt"
	"strings"

	"github.com/samjmc/dashchat/internal/core/domain"
)

// maxSampleRowsInPrompt bounds how many sample rows per worksheet reach the
// system prompt.
const maxSampleRowsInPrompt = 3

// baseInstructions is the assistant persona and ground rules.
const baseInstructions = `You are Dashboard Assistant, an intelligent data analyst embedded in a Tableau dashboard.

You analyze whatever dashboard data is currently being viewed and provide contextual insights based on the specific metrics, categories, and time periods shown.

When users ask questions, you should:
1. ANALYZE the current dashboard context and data structure
2. PROVIDE insights specific to the metrics and categories visible
3. REFERENCE the actual data elements, time periods, and values shown
4. GIVE actionable business recommendations based on the current view

Always reference the specific metrics, categories, and time periods visible in the current dashboard rather than assuming any particular data structure.
Use a professional, informative tone. Respond in a structured way with bullet points when appropriate.
If you don't know something, say so rather than making up information.`

// BuildSystemPrompt renders the retrieval-augmented system prompt: the base
// instructions, the dashboard context snapshot and the retrieved document
// snippets. This is the exact content handed to the completion provider.
func BuildSystemPrompt(dctx *domain.DashboardContext, snippets []string) string {
	var b strings.Builder
	b.WriteString(baseInstructions)

	if dctx != nil && !dctx.Empty() {
		b.WriteString("\n\nCURRENT DASHBOARD CONTEXT:\n")
		writeContext(&b, dctx)
		b.WriteString("\nBased on this dashboard context, provide relevant insights and explanations about the data shown.")
	}

	if len(snippets) > 0 {
		b.WriteString("\n\nRELEVANT DOCUMENTATION:\n")
		for i, snippet := range snippets {
			fmt.Fprintf(&b, "Document %d:\n%s\n\n", i+1, snippet)
		}
	}

	b.WriteString("\nBased on all the above information, provide helpful, accurate explanations about the dashboard.")
	return b.String()
}

func writeContext(b *strings.Builder, dctx *domain.DashboardContext) {
	if dctx.Title != "" {
		fmt.Fprintf(b, "Dashboard Title: %s\n", dctx.Title)
	}
	if dctx.ActiveSheet != "" {
		fmt.Fprintf(b, "Current Sheet: %s\n", dctx.ActiveSheet)
	}

	if len(dctx.Filters) > 0 {
		b.WriteString("\nApplied Filters:\n")
		for _, f := range dctx.Filters {
			values := "All values"
			if len(f.AppliedValues) > 0 {
				values = strings.Join(f.AppliedValues, ", ")
			}
			fmt.Fprintf(b, "- %s: %s", f.Field, values)
			if f.Worksheet != "" {
				fmt.Fprintf(b, " (on %s)", f.Worksheet)
			}
			b.WriteString("\n")
		}
	}

	if len(dctx.Parameters) > 0 {
		b.WriteString("\nParameter Settings:\n")
		for _, p := range dctx.Parameters {
			fmt.Fprintf(b, "- %s: %s\n", p.Name, p.CurrentValue)
		}
	}

	if len(dctx.Worksheets) > 0 {
		b.WriteString("\nAvailable Worksheets and Data:\n")
		for _, ws := range dctx.Worksheets {
			fmt.Fprintf(b, "- %s", ws.Name)
			if ws.RowCount > 0 {
				fmt.Fprintf(b, " - %d rows", ws.RowCount)
			}
			if ws.Err {
				b.WriteString(" (data unavailable)")
			}
			b.WriteString("\n")

			if len(ws.Fields) > 0 {
				fmt.Fprintf(b, "  Columns: %s\n", strings.Join(ws.Fields, ", "))
			}
			if len(ws.SampleRows) > 0 {
				b.WriteString("  Sample data preview:\n")
				for i, row := range ws.SampleRows {
					if i >= maxSampleRowsInPrompt {
						break
					}
					fmt.Fprintf(b, "    Row %d: %s\n", i+1, formatRow(row, ws.Fields))
				}
			}
		}
	}

	if dctx.Classification != nil {
		fmt.Fprintf(b, "\nDashboard Type: %s\n", dctx.Classification.Type)
		if len(dctx.Classification.Categories) > 0 {
			fmt.Fprintf(b, "Data Categories: %s\n", strings.Join(dctx.Classification.Categories, ", "))
		}
		if len(dctx.Classification.Metrics) > 0 {
			fmt.Fprintf(b, "Key Metrics: %s\n", strings.Join(dctx.Classification.Metrics, ", "))
		}
	}
}

// formatRow renders one sample row in field order, falling back to map
// iteration order for fields absent from the field list.
func formatRow(row map[string]string, fields []string) string {
	parts := make([]string, 0, len(row))
	seen := make(map[string]bool, len(row))
	for _, f := range fields {
		if v, ok := row[f]; ok {
			parts = append(parts, fmt.Sprintf("%s: %s", f, v))
			seen[f] = true
		}
	}
	for k, v := range row {
		if !seen[k] {
			parts = append(parts, fmt.Sprintf("%s: %s", k, v))
		}
	}
	return strings.Join(parts, ", ")
}
