package tableau

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samjmc/dashchat/internal/core/domain"
	"github.com/samjmc/dashchat/internal/core/ports/driven"
	"github.com/samjmc/dashchat/internal/logger"
)

// Ensure Bridge implements the interface.
var _ driven.ExtensionBridge = (*Bridge)(nil)

// Extension protocol message kinds.
const (
	msgExtensionInit  = "extension_init"
	msgExtensionReady = "extension_ready"
	msgGetDashboard   = "get_dashboard_name"
	msgGetWorksheets  = "get_worksheets"
	msgGetSummaryData = "get_summary_data"
	msgGetFilters     = "get_filters"
	msgGetParameters  = "get_parameters"
	msgDashboardEvent = "dashboard_event"
)

// Dashboard event kinds on the wire.
const (
	wireEventFilterChanged    = "filter-changed"
	wireEventMarkSelection    = "mark-selection-changed"
	wireEventParameterChanged = "parameter-changed"
)

// defaultEventBuffer bounds the unsolicited message queue.
const defaultEventBuffer = 16

// Wire payload shapes for the extension protocol.
type summaryDataRequest struct {
	Worksheet string `json:"worksheet"`
	MaxRows   int    `json:"maxRows"`
}

type summaryDataResponse struct {
	Fields        []string            `json:"fields"`
	Rows          []map[string]string `json:"rows"`
	TotalRowCount int                 `json:"totalRowCount"`
	Error         string              `json:"error,omitempty"`
}

type filtersRequest struct {
	Worksheet string `json:"worksheet"`
}

type filtersResponse struct {
	Filters []struct {
		Field         string   `json:"fieldName"`
		AppliedValues []string `json:"appliedValues"`
		Worksheet     string   `json:"worksheetName"`
	} `json:"filters"`
	Error string `json:"error,omitempty"`
}

type parametersResponse struct {
	Parameters []struct {
		Name            string   `json:"name"`
		CurrentValue    string   `json:"currentValue"`
		AllowableValues []string `json:"allowableValues,omitempty"`
	} `json:"parameters"`
}

type dashboardEventPayload struct {
	Event     string `json:"event"`
	Worksheet string `json:"worksheet,omitempty"`
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithAllowedOrigins sets the inbound origin allow-list. Messages from any
// other origin are dropped. An empty list trusts the transport.
func WithAllowedOrigins(origins []string) Option {
	return func(b *Bridge) {
		b.origins = origins
	}
}

// WithEventBuffer sets the dashboard event channel buffer.
func WithEventBuffer(n int) Option {
	return func(b *Bridge) {
		if n > 0 {
			b.eventBuffer = n
		}
	}
}

// Bridge speaks the extension protocol to a dashboard host over a Transport.
// It is the structured, highest-fidelity context source: every query is a
// correlated request/response pair bounded by the caller's context.
type Bridge struct {
	transport   Transport
	dispatcher  *dispatcher
	origins     []string
	eventBuffer int
	events      chan domain.DashboardEvent
}

// NewBridge creates a bridge over the given transport.
func NewBridge(transport Transport, opts ...Option) *Bridge {
	b := &Bridge{
		transport:   transport,
		eventBuffer: defaultEventBuffer,
	}
	for _, opt := range opts {
		opt(b)
	}

	b.dispatcher = newDispatcher(transport, b.origins, b.eventBuffer)
	b.events = make(chan domain.DashboardEvent, b.eventBuffer)
	go b.pumpEvents()

	return b
}

// pumpEvents converts unsolicited protocol messages into dashboard events.
func (b *Bridge) pumpEvents() {
	defer close(b.events)

	for msg := range b.dispatcher.unsolicited {
		if msg.Type != msgDashboardEvent {
			logger.Debug("Ignoring unsolicited message %q", msg.Type)
			continue
		}

		var payload dashboardEventPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			logger.Warn("Malformed dashboard event: %v", err)
			continue
		}

		kind, ok := eventKind(payload.Event)
		if !ok {
			logger.Debug("Unknown dashboard event %q", payload.Event)
			continue
		}

		select {
		case b.events <- domain.DashboardEvent{Kind: kind, Worksheet: payload.Worksheet}:
		default:
			// Consumers debounce anyway; a dropped event costs nothing.
		}
	}
}

func eventKind(wire string) (domain.DashboardEventKind, bool) {
	switch wire {
	case wireEventFilterChanged:
		return domain.EventFilterChanged, true
	case wireEventMarkSelection:
		return domain.EventMarkSelectionChanged, true
	case wireEventParameterChanged:
		return domain.EventParameterChanged, true
	default:
		return "", false
	}
}

// Initialize performs the extension handshake.
func (b *Bridge) Initialize(ctx context.Context) error {
	resp, err := b.dispatcher.request(ctx, Message{Type: msgExtensionInit})
	if err != nil {
		return err
	}
	if resp.Type != msgExtensionReady {
		return fmt.Errorf("%w: unexpected handshake reply %q", domain.ErrBridgeUnavailable, resp.Type)
	}
	return nil
}

// DashboardName returns the dashboard title.
func (b *Bridge) DashboardName(ctx context.Context) (string, error) {
	resp, err := b.dispatcher.request(ctx, Message{Type: msgGetDashboard})
	if err != nil {
		return "", err
	}

	var payload struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(resp.Payload, &payload); err != nil {
		return "", fmt.Errorf("decode dashboard name: %w", err)
	}
	return payload.Name, nil
}

// Worksheets lists the worksheet names on the dashboard.
func (b *Bridge) Worksheets(ctx context.Context) ([]string, error) {
	resp, err := b.dispatcher.request(ctx, Message{Type: msgGetWorksheets})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Worksheets []string `json:"worksheets"`
	}
	if err := json.Unmarshal(resp.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode worksheets: %w", err)
	}
	return payload.Worksheets, nil
}

// SummaryData returns the field list, sample rows and total row count for
// one worksheet.
func (b *Bridge) SummaryData(
	ctx context.Context, worksheet string, maxRows int,
) (fields []string, rows []map[string]string, total int, err error) {
	body, err := json.Marshal(summaryDataRequest{Worksheet: worksheet, MaxRows: maxRows})
	if err != nil {
		return nil, nil, 0, fmt.Errorf("encode summary request: %w", err)
	}

	resp, err := b.dispatcher.request(ctx, Message{Type: msgGetSummaryData, Payload: body})
	if err != nil {
		return nil, nil, 0, err
	}

	var payload summaryDataResponse
	if err := json.Unmarshal(resp.Payload, &payload); err != nil {
		return nil, nil, 0, fmt.Errorf("decode summary data: %w", err)
	}
	if payload.Error != "" {
		return nil, nil, 0, fmt.Errorf("worksheet %q: %s", worksheet, payload.Error)
	}

	if maxRows > 0 && len(payload.Rows) > maxRows {
		payload.Rows = payload.Rows[:maxRows]
	}
	return payload.Fields, payload.Rows, payload.TotalRowCount, nil
}

// Filters returns the active filters for one worksheet.
func (b *Bridge) Filters(ctx context.Context, worksheet string) ([]domain.FilterState, error) {
	body, err := json.Marshal(filtersRequest{Worksheet: worksheet})
	if err != nil {
		return nil, fmt.Errorf("encode filters request: %w", err)
	}

	resp, err := b.dispatcher.request(ctx, Message{Type: msgGetFilters, Payload: body})
	if err != nil {
		return nil, err
	}

	var payload filtersResponse
	if err := json.Unmarshal(resp.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode filters: %w", err)
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("worksheet %q: %s", worksheet, payload.Error)
	}

	filters := make([]domain.FilterState, 0, len(payload.Filters))
	for _, f := range payload.Filters {
		filters = append(filters, domain.FilterState{
			Field:         f.Field,
			AppliedValues: f.AppliedValues,
			Worksheet:     f.Worksheet,
		})
	}
	return filters, nil
}

// Parameters returns the dashboard parameters.
func (b *Bridge) Parameters(ctx context.Context) ([]domain.ParameterState, error) {
	resp, err := b.dispatcher.request(ctx, Message{Type: msgGetParameters})
	if err != nil {
		return nil, err
	}

	var payload parametersResponse
	if err := json.Unmarshal(resp.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode parameters: %w", err)
	}

	params := make([]domain.ParameterState, 0, len(payload.Parameters))
	for _, p := range payload.Parameters {
		params = append(params, domain.ParameterState{
			Name:            p.Name,
			CurrentValue:    p.CurrentValue,
			AllowableValues: p.AllowableValues,
		})
	}
	return params, nil
}

// Events returns the dashboard mutation event stream.
func (b *Bridge) Events() <-chan domain.DashboardEvent {
	return b.events
}

// Close stops the dispatcher and closes the transport.
func (b *Bridge) Close() error {
	b.dispatcher.close()
	return b.transport.Close()
}
