package api

import (
	"net/http"

	"github.com/portfolio-dashboard/internal/models"
)

// SendMessageRequest is the body of POST /api/ai/messages
type SendMessageRequest struct {
	Message string `json:"message"`
}

// SendMessageResponse carries the conversation after the exchange
type SendMessageResponse struct {
	Messages []models.ConversationMessage `json:"messages"`
}

// handleGetMessages handles GET /api/ai/messages
func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.assistant.Messages(r.Context(), requestUser(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, msgs)
}

// handleSendMessage handles POST /api/ai/messages
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := parseJSONBody(w, r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}

	msgs, err := s.assistant.Send(r.Context(), requestUser(r), req.Message)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	s.metrics.assistantMessages.Inc()
	respondJSON(w, http.StatusOK, SendMessageResponse{Messages: msgs})
}
