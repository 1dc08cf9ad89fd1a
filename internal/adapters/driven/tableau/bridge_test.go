package tableau

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samjmc/dashchat/internal/core/domain"
	"github.com/samjmc/dashchat/internal/core/ports/driven"
)

// respond runs a scripted dashboard host: for each outbound request it calls
// handler and feeds the reply back in, echoing the correlation ID.
func respond(t *testing.T, transport *ChannelTransport, handler func(Message) (string, any)) {
	t.Helper()
	go func() {
		for req := range transport.Out {
			replyType, payload := handler(req)
			if replyType == "" {
				continue
			}
			var body json.RawMessage
			if payload != nil {
				encoded, err := json.Marshal(payload)
				if err != nil {
					continue
				}
				body = encoded
			}
			transport.In <- Message{ID: req.ID, Type: replyType, Payload: body}
		}
	}()
}

func TestBridge_InitializeHandshake(t *testing.T) {
	transport := NewChannelTransport(4)
	respond(t, transport, func(req Message) (string, any) {
		require.Equal(t, msgExtensionInit, req.Type)
		require.NotEmpty(t, req.ID)
		return msgExtensionReady, nil
	})

	bridge := NewBridge(transport)
	defer bridge.Close()

	assert.NoError(t, bridge.Initialize(context.Background()))
}

func TestBridge_InitializeTimesOut(t *testing.T) {
	transport := NewChannelTransport(4)
	// No responder: the handshake must give up at the deadline.

	bridge := NewBridge(transport)
	defer bridge.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := bridge.Initialize(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBridge_WorksheetQueries(t *testing.T) {
	transport := NewChannelTransport(4)
	respond(t, transport, func(req Message) (string, any) {
		switch req.Type {
		case msgGetDashboard:
			return req.Type, map[string]any{"name": "Sales"}
		case msgGetWorksheets:
			return req.Type, map[string]any{"worksheets": []string{"Trend", "Breakdown"}}
		case msgGetSummaryData:
			var body summaryDataRequest
			require.NoError(t, json.Unmarshal(req.Payload, &body))
			assert.Equal(t, 15, body.MaxRows)
			return req.Type, summaryDataResponse{
				Fields:        []string{"Month", "Revenue"},
				Rows:          []map[string]string{{"Month": "Jan", "Revenue": "1200"}},
				TotalRowCount: 42,
			}
		case msgGetFilters:
			return req.Type, map[string]any{
				"filters": []map[string]any{
					{"fieldName": "Region", "appliedValues": []string{"North"}, "worksheetName": "Trend"},
				},
			}
		case msgGetParameters:
			return req.Type, map[string]any{
				"parameters": []map[string]any{
					{"name": "Year", "currentValue": "2025", "allowableValues": []string{"2024", "2025"}},
				},
			}
		default:
			return "", nil
		}
	})

	bridge := NewBridge(transport)
	defer bridge.Close()
	ctx := context.Background()

	name, err := bridge.DashboardName(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Sales", name)

	sheets, err := bridge.Worksheets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Trend", "Breakdown"}, sheets)

	fields, rows, total, err := bridge.SummaryData(ctx, "Trend", 15)
	require.NoError(t, err)
	assert.Equal(t, []string{"Month", "Revenue"}, fields)
	require.Len(t, rows, 1)
	assert.Equal(t, "Jan", rows[0]["Month"])
	assert.Equal(t, 42, total)

	filters, err := bridge.Filters(ctx, "Trend")
	require.NoError(t, err)
	require.Len(t, filters, 1)
	assert.Equal(t, "Region", filters[0].Field)

	params, err := bridge.Parameters(ctx)
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, "Year", params[0].Name)
	assert.Equal(t, []string{"2024", "2025"}, params[0].AllowableValues)
}

func TestBridge_SummaryDataWorksheetError(t *testing.T) {
	transport := NewChannelTransport(4)
	respond(t, transport, func(req Message) (string, any) {
		return req.Type, summaryDataResponse{Error: "worksheet not found"}
	})

	bridge := NewBridge(transport)
	defer bridge.Close()

	_, _, _, err := bridge.SummaryData(context.Background(), "Ghost", 15)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worksheet not found")
}

func TestBridge_UntrustedOriginDropped(t *testing.T) {
	transport := NewChannelTransport(4)
	go func() {
		for req := range transport.Out {
			// Reply from a hostile origin; the dispatcher must drop it.
			transport.In <- Message{
				ID:     req.ID,
				Type:   msgExtensionReady,
				Origin: "https://evil.example.com",
			}
		}
	}()

	bridge := NewBridge(transport, WithAllowedOrigins([]string{"https://tableau.example.com"}))
	defer bridge.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := bridge.Initialize(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBridge_AllowedOriginAccepted(t *testing.T) {
	transport := NewChannelTransport(4)
	go func() {
		for req := range transport.Out {
			transport.In <- Message{
				ID:     req.ID,
				Type:   msgExtensionReady,
				Origin: "https://tableau.example.com",
			}
		}
	}()

	bridge := NewBridge(transport, WithAllowedOrigins([]string{"https://tableau.example.com"}))
	defer bridge.Close()

	assert.NoError(t, bridge.Initialize(context.Background()))
}

func TestBridge_EventsForwarded(t *testing.T) {
	transport := NewChannelTransport(4)
	bridge := NewBridge(transport)

	payload, err := json.Marshal(dashboardEventPayload{Event: wireEventFilterChanged, Worksheet: "Trend"})
	require.NoError(t, err)
	transport.In <- Message{Type: msgDashboardEvent, Payload: payload}

	select {
	case ev := <-bridge.Events():
		assert.Equal(t, domain.EventFilterChanged, ev.Kind)
		assert.Equal(t, "Trend", ev.Worksheet)
	case <-time.After(time.Second):
		t.Fatal("expected a dashboard event")
	}

	bridge.Close()
}

func TestBridge_CloseFailsPendingRequests(t *testing.T) {
	transport := NewChannelTransport(4)
	bridge := NewBridge(transport)

	done := make(chan error, 1)
	go func() {
		done <- bridge.Initialize(context.Background())
	}()

	// Let the request register before closing.
	time.Sleep(20 * time.Millisecond)
	bridge.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, domain.ErrBridgeUnavailable)
	case <-time.After(time.Second):
		t.Fatal("pending request must fail on close")
	}
}

func TestMessenger_RequestRoundTrip(t *testing.T) {
	transport := NewChannelTransport(4)
	respond(t, transport, func(req Message) (string, any) {
		require.Equal(t, driven.MsgRequestDashboardData, req.Type)
		return driven.MsgTableauDashboardData, driven.DashboardDataPayload{Title: "Margins"}
	})

	messenger := NewMessenger(transport, nil)
	defer messenger.Close()

	raw, err := messenger.Request(context.Background(), driven.MsgRequestDashboardData, map[string]any{
		"source": "dashchat-widget",
	})
	require.NoError(t, err)

	var payload driven.DashboardDataPayload
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, "Margins", payload.Title)
}

func TestMessenger_TimeoutWithoutReply(t *testing.T) {
	transport := NewChannelTransport(4)
	messenger := NewMessenger(transport, nil)
	defer messenger.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := messenger.Request(ctx, driven.MsgRequestTableauStatus, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
