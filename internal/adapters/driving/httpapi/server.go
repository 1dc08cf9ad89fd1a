// Package httpapi exposes the widget-facing HTTP API.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/samjmc/dashchat/internal/core/domain"
	"github.com/samjmc/dashchat/internal/core/ports/driven"
	"github.com/samjmc/dashchat/internal/core/ports/driving"
	"github.com/samjmc/dashchat/internal/logger"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// AllowedOrigins is the CORS and context-push origin allow-list.
	// Empty means same-origin only; the widget host must be listed
	// explicitly, never wildcarded.
	AllowedOrigins []string
}

// Server provides the HTTP endpoints for the chat widget.
type Server struct {
	echo     *echo.Echo
	chat     driving.ChatService
	docs     driving.DocumentService
	detector driving.ContextDetector
	cache    driven.ContextCache
	config   Config
}

// NewServer creates the widget HTTP server. The detector and cache are
// optional; their endpoints answer 503 when absent.
func NewServer(
	chat driving.ChatService,
	docs driving.DocumentService,
	detector driving.ContextDetector,
	cache driven.ContextCache,
	cfg Config,
) (*Server, error) {
	if chat == nil {
		return nil, fmt.Errorf("chat service is required")
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 5000
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	if len(cfg.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.AllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost},
		}))
	}
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Debug("%s %s -> %d (%s)",
				c.Request().Method,
				c.Request().RequestURI,
				c.Response().Status,
				time.Since(start),
			)
			return err
		}
	})

	s := &Server{
		echo:     e,
		chat:     chat,
		docs:     docs,
		detector: detector,
		cache:    cache,
		config:   cfg,
	}
	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", s.handleHealth)
	api.POST("/chat", s.handleChat)
	api.GET("/conversations/:id/messages", s.handleMessages)
	api.POST("/documents", s.handleAddDocument)
	api.GET("/documents", s.handleListDocuments)
	api.POST("/context", s.handlePushContext)
	api.POST("/context/detect", s.handleDetect)
}

// HealthResponse is the response body for GET /api/health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleChat answers a widget question.
func (s *Server) handleChat(c echo.Context) error {
	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	resp, err := s.chat.Send(c.Request().Context(), &req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		logger.Error("Chat request failed: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to process chat message")
	}

	return c.JSON(http.StatusOK, resp)
}

// MessageResponse is one message in a conversation history reply.
type MessageResponse struct {
	ID        int       `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// handleMessages returns a conversation's history.
func (s *Server) handleMessages(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid conversation id")
	}

	msgs, err := s.chat.History(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
		}
		logger.Error("History lookup failed: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load messages")
	}

	out := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, MessageResponse{
			ID:        m.ID,
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// AddDocumentRequest is the request body for POST /api/documents.
type AddDocumentRequest struct {
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// DocumentResponse is a stored document on the wire. Embeddings stay
// server-side.
type DocumentResponse struct {
	ID        int            `json:"id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Embedded  bool           `json:"embedded"`
	CreatedAt time.Time      `json:"createdAt"`
}

func documentResponse(doc *domain.Document) DocumentResponse {
	return DocumentResponse{
		ID:        doc.ID,
		Title:     doc.Title,
		Content:   doc.Content,
		Metadata:  doc.Metadata,
		Embedded:  doc.Embedding != nil,
		CreatedAt: doc.CreatedAt,
	}
}

// handleAddDocument ingests a knowledge-base document.
func (s *Server) handleAddDocument(c echo.Context) error {
	if s.docs == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "document service not configured")
	}

	var req AddDocumentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	doc, err := s.docs.Add(c.Request().Context(), req.Title, req.Content, req.Metadata)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		logger.Error("Document ingest failed: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store document")
	}

	return c.JSON(http.StatusCreated, documentResponse(doc))
}

// handleListDocuments returns the stored corpus.
func (s *Server) handleListDocuments(c echo.Context) error {
	if s.docs == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "document service not configured")
	}

	docs, err := s.docs.List(c.Request().Context())
	if err != nil {
		logger.Error("Document listing failed: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list documents")
	}

	out := make([]DocumentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, documentResponse(&docs[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// PushContextRequest is the request body for POST /api/context.
type PushContextRequest struct {
	SessionKey string                   `json:"sessionKey"`
	Context    *domain.DashboardContext `json:"context"`
}

// handlePushContext caches a widget-detected context snapshot so later chat
// requests can reuse it. The Origin header must pass the allow-list.
func (s *Server) handlePushContext(c echo.Context) error {
	if s.cache == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "context cache not configured")
	}

	if err := s.checkOrigin(c); err != nil {
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	}

	var req PushContextRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.SessionKey == "" || req.Context == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "sessionKey and context are required")
	}

	if err := s.cache.Put(c.Request().Context(), req.SessionKey, req.Context); err != nil {
		logger.Error("Context cache write failed: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store context")
	}

	return c.NoContent(http.StatusNoContent)
}

// handleDetect runs server-side context detection on a submitted page
// environment.
func (s *Server) handleDetect(c echo.Context) error {
	if s.detector == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "context detector not configured")
	}

	var env domain.Environment
	if err := c.Bind(&env); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	snapshot := s.detector.Detect(c.Request().Context(), &env)
	return c.JSON(http.StatusOK, snapshot)
}

// checkOrigin enforces the context-push origin allow-list. Requests without
// an Origin header (same-origin, curl) pass.
func (s *Server) checkOrigin(c echo.Context) error {
	origin := c.Request().Header.Get("Origin")
	if origin == "" || len(s.config.AllowedOrigins) == 0 {
		return nil
	}
	for _, allowed := range s.config.AllowedOrigins {
		if origin == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrUntrustedOrigin, origin)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	logger.Info("Listening on %s", addr)
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}
