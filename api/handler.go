// Package api provides HTTP handlers for the chatbot backend.
package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adimpact/chatbot/chat"
	"github.com/adimpact/chatbot/domain"
)

// Handler handles HTTP requests.
type Handler struct {
	svc *chat.Service
}

// NewHandler creates a new handler.
func NewHandler(svc *chat.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/chat/message", h.SendMessage)
	e.POST("/api/chat/history", h.GetHistory)
	e.DELETE("/api/chat/session/:session_id", h.DeleteSession)
	e.POST("/api/chat/analyze-with-context", h.AnalyzeWithContext)
	e.GET("/api/chat/stats", h.GetStats)

	e.GET("/health", h.Health)
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type historyRequest struct {
	SessionID string `json:"session_id"`
}

type analyzeRequest struct {
	Comments  []string `json:"comments"`
	Query     string   `json:"query,omitempty"`
	SessionID string   `json:"session_id,omitempty"`
}

// SendMessage relays a chat message.
// POST /api/chat/message
func (h *Handler) SendMessage(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	result, err := h.svc.Chat(c.Request().Context(), c.RealIP(), req.Message, req.SessionID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetHistory returns the conversation history for a session.
// POST /api/chat/history
func (h *Handler) GetHistory(c echo.Context) error {
	var req historyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	result, err := h.svc.History(req.SessionID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// DeleteSession clears a chat session. Deletion is idempotent, so an unknown
// id is reported in the envelope rather than as a transport error.
// DELETE /api/chat/session/:session_id
func (h *Handler) DeleteSession(c echo.Context) error {
	sessionID := c.Param("session_id")

	deleted, err := h.svc.DeleteSession(sessionID)
	if err != nil {
		return writeError(c, err)
	}
	if !deleted {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "not_found",
			"message": "Session " + sessionID + " not found",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Session " + sessionID + " cleared",
	})
}

// AnalyzeWithContext runs batch comment analysis.
// POST /api/chat/analyze-with-context
func (h *Handler) AnalyzeWithContext(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	result, err := h.svc.AnalyzeComments(c.Request().Context(), c.RealIP(), req.Comments, req.Query, req.SessionID)
	if err != nil {
		return writeError(c, err)
	}
	if result.Status == "error" {
		return c.JSON(http.StatusServiceUnavailable, result)
	}
	return c.JSON(http.StatusOK, result)
}

// GetStats returns session store statistics.
// GET /api/chat/stats
func (h *Handler) GetStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Stats())
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// writeError maps an error kind to a transport status code. Outbound-call
// failure detail stays in the logs; callers only see a generic unavailable
// message.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidTurn),
		errors.Is(err, domain.ErrNoValidComments):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrRateLimitExceeded):
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrSessionConflict):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrUpstream):
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "chat service temporarily unavailable"})
	default:
		log.Printf("ERROR: unhandled error: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
