package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"conversa-backend/internal/middleware"
	"conversa-backend/internal/models"
)

type chatService interface {
	Send(ctx context.Context, userID uuid.UUID, chatID, message string) (*models.SendMessageResponse, error)
	ListThreads(ctx context.Context, userID uuid.UUID) ([]*models.Chat, error)
	GetThread(ctx context.Context, userID uuid.UUID, chatID string) (*models.Chat, error)
}

type ChatHandler struct {
	chats chatService
}

func NewChatHandler(chats chatService) *ChatHandler {
	return &ChatHandler{chats: chats}
}

// Send handles POST /api/chat/send. The reply waits on the model with no
// upper bound, so the server-wide write deadline is lifted for this route.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	http.NewResponseController(w).SetWriteDeadline(time.Time{})

	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	resp, err := h.chats.Send(r.Context(), middleware.GetUserID(r.Context()), req.ChatID, req.Message)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// History handles GET /api/chat/history.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	chats, err := h.chats.ListThreads(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, chats)
}

// Get handles GET /api/chat/{id}.
func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	chat, err := h.chats.GetThread(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, chat)
}
