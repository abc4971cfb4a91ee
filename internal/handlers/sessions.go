package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"finchat-ai/internal/contextutil"
	"finchat-ai/internal/service"
)

// SessionsHandler handles HTTP requests for session management.
type SessionsHandler struct {
	chatService service.ChatService
}

// NewSessionsHandler creates a new SessionsHandler.
func NewSessionsHandler(chatService service.ChatService) *SessionsHandler {
	return &SessionsHandler{chatService: chatService}
}

// CreateSessionRequest represents the HTTP request payload for session creation.
type CreateSessionRequest struct {
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// SessionResponse represents a session in HTTP responses.
type SessionResponse struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// UpdateSystemPromptRequest represents the HTTP request payload for prompt updates.
type UpdateSystemPromptRequest struct {
	SystemPrompt string `json:"system_prompt"`
}

// HistoryResponse represents a session's message history.
type HistoryResponse struct {
	SessionID string                `json:"session_id"`
	Messages  []service.ChatMessage `json:"messages"`
}

// Create handles POST /api/sessions. An absent body uses the default
// system prompt.
func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req CreateSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.WarnContext(ctx, "invalid request body", "error", err)
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	session, err := h.chatService.CreateSession(ctx, req.SystemPrompt)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, SessionResponse{
		SessionID: session.ID,
		CreatedAt: session.CreatedAt,
	})
}

// UpdateSystemPrompt handles PUT /api/sessions/{id}/system-prompt.
func (h *SessionsHandler) UpdateSystemPrompt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	sessionID := chi.URLParam(r, "id")

	var req UpdateSystemPromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.chatService.UpdateSystemPrompt(ctx, sessionID, req.SystemPrompt); err != nil {
		handleServiceError(w, ctx, err, "Failed to update system prompt")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// History handles GET /api/sessions/{id}/history.
func (h *SessionsHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "id")

	messages, err := h.chatService.GetHistory(ctx, sessionID)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to get session history")
		return
	}
	if messages == nil {
		messages = []service.ChatMessage{}
	}

	writeJSON(w, http.StatusOK, HistoryResponse{
		SessionID: sessionID,
		Messages:  messages,
	})
}

// Delete handles DELETE /api/sessions/{id}.
func (h *SessionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "id")

	if err := h.chatService.DeleteSession(ctx, sessionID); err != nil {
		handleServiceError(w, ctx, err, "Failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
