package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samjmc/dashchat/internal/adapters/driven/storage/memory"
	"github.com/samjmc/dashchat/internal/core/domain"
	"github.com/samjmc/dashchat/internal/core/ports/driven"
	"github.com/samjmc/dashchat/internal/core/services"
)

// canned completion provider for handler tests.
type fakeLLM struct {
	reply string
	err   error
}

func (l *fakeLLM) Chat(context.Context, []driven.ChatMessage, driven.ChatOptions) (string, error) {
	return l.reply, l.err
}

func (l *fakeLLM) ModelName() string          { return "fake" }
func (l *fakeLLM) Ping(context.Context) error { return nil }
func (l *fakeLLM) Close() error               { return nil }

type fakeEmbedder struct{}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (e *fakeEmbedder) Dimensions() int            { return 3 }
func (e *fakeEmbedder) ModelName() string          { return "fake" }
func (e *fakeEmbedder) Ping(context.Context) error { return nil }
func (e *fakeEmbedder) Close() error               { return nil }

func newTestServer(t *testing.T) (*Server, *memory.ContextCache) {
	t.Helper()

	chatStore := memory.NewChatStore()
	docStore := memory.NewDocumentStore()
	cache := memory.NewContextCache(0)

	docs := services.NewDocumentService(docStore, &fakeEmbedder{}, nil)
	chat := services.NewChatService(chatStore, docs, nil, &fakeLLM{reply: "The chart shows revenue."})

	srv, err := NewServer(chat, docs, nil, cache, Config{
		AllowedOrigins: []string{"https://tableau.example.com"},
	})
	require.NoError(t, err)
	return srv, cache
}

func doRequest(srv *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echoContentType, "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

const echoContentType = "Content-Type"

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestChat_Success(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"message": "What does this chart show?", "dashboardContext": {"isEmbedded": true, "title": "Sales"}}`
	rec := doRequest(srv, http.MethodPost, "/api/chat", body, nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "The chart shows revenue.", resp.Content)
	assert.Equal(t, domain.RoleAssistant, resp.Role)
	assert.NotZero(t, resp.ConversationID)
}

func TestChat_EmptyMessageRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/api/chat", `{"message": "  "}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "message must not be empty")
}

func TestChat_ThenHistory(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/api/chat", `{"message": "hello"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	rec = doRequest(srv, http.MethodGet,
		"/api/conversations/"+strconv.Itoa(resp.ConversationID)+"/messages", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var msgs []MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, domain.RoleAssistant, msgs[1].Role)
}

func TestHistory_UnknownConversation(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/conversations/99/messages", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistory_BadID(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/conversations/abc/messages", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocuments_AddAndList(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"title": "Bars", "content": "Bar charts compare categories.", "metadata": {"category": "chart-types"}}`
	rec := doRequest(srv, http.MethodPost, "/api/documents", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var doc DocumentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "Bars", doc.Title)
	assert.True(t, doc.Embedded)

	rec = doRequest(srv, http.MethodGet, "/api/documents", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var docs []DocumentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &docs))
	require.Len(t, docs, 1)
}

func TestDocuments_EmptyContentRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/api/documents", `{"title": "x", "content": "  "}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPushContext_StoresSnapshot(t *testing.T) {
	srv, cache := newTestServer(t)

	body := `{"sessionKey": "session-1", "context": {"isEmbedded": true, "title": "Sales"}}`
	rec := doRequest(srv, http.MethodPost, "/api/context", body, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	snapshot, err := cache.Get(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, "Sales", snapshot.Title)
}

func TestPushContext_UntrustedOriginRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"sessionKey": "session-1", "context": {"title": "Sales"}}`
	rec := doRequest(srv, http.MethodPost, "/api/context", body, map[string]string{
		"Origin": "https://evil.example.com",
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPushContext_AllowedOriginAccepted(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"sessionKey": "session-1", "context": {"title": "Sales"}}`
	rec := doRequest(srv, http.MethodPost, "/api/context", body, map[string]string{
		"Origin": "https://tableau.example.com",
	})

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPushContext_MissingFields(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/api/context", `{"sessionKey": ""}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDetect_NotConfigured(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/api/context/detect", `{"frameNested": true}`, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDetect_RunsCascade(t *testing.T) {
	chatStore := memory.NewChatStore()
	docStore := memory.NewDocumentStore()
	docs := services.NewDocumentService(docStore, &fakeEmbedder{}, nil)
	chat := services.NewChatService(chatStore, docs, nil, &fakeLLM{reply: "ok"})
	detector := services.NewDetectorService(nil, nil, nil, nil, services.DetectorConfig{})

	srv, err := NewServer(chat, docs, detector, nil, Config{})
	require.NoError(t, err)

	rec := doRequest(srv, http.MethodPost, "/api/context/detect", `{"frameNested": true}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot domain.DashboardContext
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.True(t, snapshot.IsEmbedded)
	assert.Empty(t, snapshot.Worksheets)
}
