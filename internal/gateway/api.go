// ABOUTME: HTTP API handlers for the messaging operations
// ABOUTME: JSON request/response plumbing over the messaging service

package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/2389/ember/internal/identity"
	"github.com/2389/ember/internal/messaging"
	"github.com/2389/ember/internal/store"
)

// SendMessageRequest is the JSON request body for POST /api/messages.
type SendMessageRequest struct {
	SenderID       string   `json:"sender_id"`
	RecipientID    string   `json:"recipient_id"`
	Content        string   `json:"content"`
	Attachments    []string `json:"attachments,omitempty"`
	ConversationID string   `json:"conversation_id,omitempty"`
}

// MessageResponse is the JSON shape of a message.
type MessageResponse struct {
	ID             string   `json:"id"`
	ConversationID string   `json:"conversation_id"`
	SenderID       string   `json:"sender_id"`
	RecipientID    string   `json:"recipient_id"`
	Content        string   `json:"content"`
	Attachments    []string `json:"attachments,omitempty"`
	Read           bool     `json:"read"`
	CreatedAt      string   `json:"created_at"`
}

// ConversationResponse is the JSON shape of an enriched conversation.
type ConversationResponse struct {
	ID            string                  `json:"id"`
	Participants  []string                `json:"participants"`
	Profiles      []*identity.UserSummary `json:"profiles,omitempty"`
	LastMessage   string                  `json:"last_message"`
	LastMessageAt string                  `json:"last_message_at,omitempty"`
	Unread        map[string]int          `json:"unread"`
	CreatedAt     string                  `json:"created_at"`
	ExpiresAt     string                  `json:"expires_at"`
}

// UnreadResponse is the JSON response for GET /api/unread.
type UnreadResponse struct {
	Count    int               `json:"count"`
	Messages []MessageResponse `json:"messages"`
}

// TypingRequest is the JSON request body for POST /api/typing.
type TypingRequest struct {
	SenderID    string `json:"sender_id"`
	RecipientID string `json:"recipient_id"`
}

func messageToResponse(msg *store.Message) MessageResponse {
	return MessageResponse{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		RecipientID:    msg.RecipientID,
		Content:        msg.Content,
		Attachments:    msg.Attachments,
		Read:           msg.Read,
		CreatedAt:      msg.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func conversationToResponse(view *messaging.ConversationView) ConversationResponse {
	conv := view.Conversation
	resp := ConversationResponse{
		ID:           conv.ID,
		Participants: []string{conv.ParticipantLo, conv.ParticipantHi},
		Profiles:     view.Profiles,
		LastMessage:  conv.LastMessage,
		Unread:       conv.Unread,
		CreatedAt:    conv.CreatedAt.UTC().Format(time.RFC3339Nano),
		ExpiresAt:    conv.ExpiresAt.UTC().Format(time.RFC3339Nano),
	}
	if conv.LastMessageAt != nil {
		resp.LastMessageAt = conv.LastMessageAt.UTC().Format(time.RFC3339Nano)
	}
	return resp
}

// handleConversations handles GET /api/conversations?user_id=X.
func (g *Gateway) handleConversations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		g.sendJSONError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	views, err := g.service.ListConversations(r.Context(), userID)
	if err != nil {
		g.logger.Error("listing conversations failed", "user_id", userID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response := make([]ConversationResponse, 0, len(views))
	for _, view := range views {
		response = append(response, conversationToResponse(view))
	}
	g.sendJSON(w, http.StatusOK, response)
}

// handleConversationRoutes dispatches /api/conversations/{id}[/messages|/clear].
func (g *Gateway) handleConversationRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/conversations/")
	parts := strings.Split(rest, "/")
	if parts[0] == "" {
		g.sendJSONError(w, http.StatusBadRequest, "conversation id is required")
		return
	}
	conversationID := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodDelete:
		if err := g.service.DeleteConversation(r.Context(), conversationID); err != nil {
			g.logger.Error("deleting conversation failed", "conversation_id", conversationID, "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		g.sendJSON(w, http.StatusOK, map[string]bool{"success": true})

	case len(parts) == 2 && parts[1] == "messages" && r.Method == http.MethodGet:
		messages, err := g.service.ListMessages(r.Context(), conversationID)
		if err != nil {
			g.logger.Error("listing messages failed", "conversation_id", conversationID, "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		response := make([]MessageResponse, 0, len(messages))
		for _, msg := range messages {
			response = append(response, messageToResponse(msg))
		}
		g.sendJSON(w, http.StatusOK, response)

	case len(parts) == 2 && parts[1] == "clear" && r.Method == http.MethodPost:
		if err := g.service.ClearConversation(r.Context(), conversationID); err != nil {
			g.logger.Error("clearing conversation failed", "conversation_id", conversationID, "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		g.sendJSON(w, http.StatusOK, map[string]bool{"success": true})

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// handleSendMessage handles POST /api/messages.
func (g *Gateway) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	req, err := parseSendRequest(r.Body)
	if err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := g.service.SendMessage(r.Context(), &messaging.SendRequest{
		SenderID:       req.SenderID,
		RecipientID:    req.RecipientID,
		Content:        req.Content,
		Attachments:    req.Attachments,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		g.sendServiceError(w, err)
		return
	}

	g.sendJSON(w, http.StatusCreated, messageToResponse(msg))
}

// handleMessageRoutes dispatches /api/messages/{id}[/read].
func (g *Gateway) handleMessageRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/messages/")
	parts := strings.Split(rest, "/")
	if parts[0] == "" {
		g.sendJSONError(w, http.StatusBadRequest, "message id is required")
		return
	}
	messageID := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodDelete:
		if err := g.service.DeleteMessage(r.Context(), messageID); err != nil {
			g.logger.Error("deleting message failed", "message_id", messageID, "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		g.sendJSON(w, http.StatusOK, map[string]bool{"success": true})

	case len(parts) == 2 && parts[1] == "read" && r.Method == http.MethodPost:
		msg, err := g.service.MarkMessageRead(r.Context(), messageID)
		if err != nil {
			g.logger.Error("marking message read failed", "message_id", messageID, "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if msg == nil {
			// Soft no-op: the message may have expired
			g.sendJSON(w, http.StatusOK, nil)
			return
		}
		g.sendJSON(w, http.StatusOK, messageToResponse(msg))

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// handleUnread handles GET /api/unread?user_id=X.
func (g *Gateway) handleUnread(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		g.sendJSONError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	report, err := g.service.GetUnread(r.Context(), userID)
	if err != nil {
		g.logger.Error("unread lookup failed", "user_id", userID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response := UnreadResponse{
		Count:    report.Count,
		Messages: make([]MessageResponse, 0, len(report.Messages)),
	}
	for _, msg := range report.Messages {
		response.Messages = append(response.Messages, messageToResponse(msg))
	}
	g.sendJSON(w, http.StatusOK, response)
}

// handleTyping handles POST /api/typing.
func (g *Gateway) handleTyping(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req TypingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SenderID == "" || req.RecipientID == "" {
		g.sendJSONError(w, http.StatusBadRequest, "sender_id and recipient_id are required")
		return
	}

	g.service.Typing(req.SenderID, req.RecipientID)
	w.WriteHeader(http.StatusNoContent)
}

// sendServiceError maps messaging errors onto HTTP statuses.
func (g *Gateway) sendServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, messaging.ErrEmptyContent),
		errors.Is(err, messaging.ErrInvalidParticipants):
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		g.sendJSONError(w, http.StatusNotFound, "not found")
	case errors.Is(err, messaging.ErrConflict):
		g.sendJSONError(w, http.StatusConflict, err.Error())
	default:
		g.logger.Error("request failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

// sendJSON writes a JSON response with the given status.
func (g *Gateway) sendJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		g.logger.Error("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// parseSendRequest parses and validates a SendMessageRequest from the given
// reader. Returns an error if the JSON is invalid or required fields are
// missing.
func parseSendRequest(r io.Reader) (*SendMessageRequest, error) {
	var req SendMessageRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, errors.New("invalid JSON body")
	}

	if req.SenderID == "" {
		return nil, errors.New("sender_id is required")
	}
	if req.RecipientID == "" {
		return nil, errors.New("recipient_id is required")
	}
	if req.Content == "" {
		return nil, errors.New("content is required")
	}

	return &req, nil
}
