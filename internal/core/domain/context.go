package domain

// DashboardContext is a best-effort snapshot of what the user is viewing.
// A detection cycle always produces a fresh snapshot; snapshots are never
// mutated in place.
type DashboardContext struct {
	// IsEmbedded reports whether the widget is running inside another frame.
	// It is set from frame nesting alone, independent of whether any probe
	// produced structured data.
	IsEmbedded bool `json:"isEmbedded"`

	// Title is the dashboard title, when a probe could supply one.
	Title string `json:"title,omitempty"`

	// ActiveSheet is the currently active sheet name.
	ActiveSheet string `json:"activeSheet,omitempty"`

	// Filters are the active filters across worksheets.
	Filters []FilterState `json:"filters,omitempty"`

	// Parameters are the dashboard parameters with current values.
	Parameters []ParameterState `json:"parameters,omitempty"`

	// Worksheets describe each worksheet with fields and sample rows.
	Worksheets []WorksheetSummary `json:"worksheets,omitempty"`

	// Classification is the coarse dashboard classification produced by the
	// heuristic tier. It never carries structured filters or parameters.
	Classification *Classification `json:"classification,omitempty"`

	// Source records which probe produced the snapshot (for diagnostics).
	Source string `json:"source,omitempty"`
}

// Empty reports whether the snapshot carries no structured data at all.
func (c *DashboardContext) Empty() bool {
	return c.Title == "" &&
		len(c.Filters) == 0 &&
		len(c.Parameters) == 0 &&
		len(c.Worksheets) == 0 &&
		c.Classification == nil
}

// FilterState describes one applied filter.
type FilterState struct {
	// Field is the filtered field name.
	Field string `json:"field"`

	// AppliedValues are the currently selected values.
	AppliedValues []string `json:"appliedValues"`

	// Worksheet is the worksheet the filter belongs to, when known.
	Worksheet string `json:"worksheet,omitempty"`
}

// ParameterState describes one dashboard parameter.
type ParameterState struct {
	// Name is the parameter name.
	Name string `json:"name"`

	// CurrentValue is the parameter's current value, formatted.
	CurrentValue string `json:"currentValue"`

	// AllowableValues lists the permitted values, when the parameter is a list.
	AllowableValues []string `json:"allowableValues,omitempty"`
}

// WorksheetSummary describes one worksheet and a bounded sample of its data.
type WorksheetSummary struct {
	// Name is the worksheet name.
	Name string `json:"name"`

	// Fields are the column field names, in worksheet order.
	Fields []string `json:"fields,omitempty"`

	// SampleRows holds up to the first rows of summary data, field to
	// formatted value.
	SampleRows []map[string]string `json:"sampleRows,omitempty"`

	// RowCount is the total row count reported by the worksheet, when known.
	RowCount int `json:"rowCount,omitempty"`

	// Err marks a worksheet whose data query failed. Partial data is the
	// norm: one failing worksheet never aborts the others.
	Err bool `json:"error,omitempty"`
}

// Classification is the output of the heuristic content tier: a coarse
// dashboard type plus plausible category and metric labels. It is lower
// fidelity than any structured tier and is only used when those fail.
type Classification struct {
	// Type names the inferred dashboard kind, e.g. "NHS Healthcare Financial Data".
	Type string `json:"type"`

	// Categories are inferred data category labels.
	Categories []string `json:"categories,omitempty"`

	// Metrics are inferred metric labels.
	Metrics []string `json:"metrics,omitempty"`
}

// Environment is the page-side evidence a widget submits for detection:
// everything the detector may inspect without talking to the host dashboard.
type Environment struct {
	// FrameNested reports whether the widget page runs inside another frame.
	FrameNested bool `json:"frameNested"`

	// URL is the widget page URL.
	URL string `json:"url,omitempty"`

	// QueryParams are the page URL query parameters.
	QueryParams map[string]string `json:"queryParams,omitempty"`

	// Referrer is the document referrer.
	Referrer string `json:"referrer,omitempty"`

	// PageTitle is the document title.
	PageTitle string `json:"pageTitle,omitempty"`

	// PageText is the visible text content of the page.
	PageText string `json:"pageText,omitempty"`

	// SessionKey identifies the widget session for cached-context lookup.
	SessionKey string `json:"sessionKey,omitempty"`
}

// DashboardEventKind identifies a dashboard mutation event.
type DashboardEventKind string

// Event kinds surfaced by the extension bridge.
const (
	EventFilterChanged        DashboardEventKind = "filter-changed"
	EventMarkSelectionChanged DashboardEventKind = "mark-selection-changed"
	EventParameterChanged     DashboardEventKind = "parameter-changed"
)

// DashboardEvent is a single dashboard mutation notification.
type DashboardEvent struct {
	// Kind is the event kind.
	Kind DashboardEventKind

	// Worksheet is the originating worksheet, when the event is scoped to one.
	Worksheet string
}
