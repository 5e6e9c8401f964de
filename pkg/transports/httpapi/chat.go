package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/focusflowhq/focusflow/pkg/llm"
	"github.com/focusflowhq/focusflow/pkg/store"
)

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID uint   `json:"conversation_id,omitempty"`
}

type chatResponse struct {
	ConversationID uint             `json:"conversation_id"`
	Title          string           `json:"title"`
	Response       string           `json:"response"`
	ToolCalls      []llm.ToolResult `json:"tool_calls"`
}

func (t *Transport) handleChat(w http.ResponseWriter, r *http.Request, userID string) {
	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	result, err := t.chat.Send(r.Context(), userID, req.ConversationID, req.Message)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		// The turn failed mid-loop; report the tool calls that already ran
		// so the client can show what changed.
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":      "model request failed",
			"tool_calls": toolCallsOrEmpty(result.ToolCalls),
		})
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{
		ConversationID: result.ConversationID,
		Title:          result.Title,
		Response:       result.Reply,
		ToolCalls:      toolCallsOrEmpty(result.ToolCalls),
	})
}

type conversationResponse struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type messageResponse struct {
	ID        uint             `json:"id"`
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []llm.ToolResult `json:"tool_calls,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

func (t *Transport) handleListConversations(w http.ResponseWriter, r *http.Request, userID string) {
	convs, err := t.chat.Conversations(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not list conversations")
		return
	}
	out := make([]conversationResponse, 0, len(convs))
	for _, c := range convs {
		out = append(out, conversationResponse{ID: c.ID, Title: c.Title, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt})
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": out})
}

func (t *Transport) handleGetConversation(w http.ResponseWriter, r *http.Request, userID string) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	conv, msgs, err := t.chat.History(userID, id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load conversation")
		return
	}
	out := make([]messageResponse, 0, len(msgs))
	for i := range msgs {
		calls, err := msgs[i].DecodeToolCalls()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not decode message history")
			return
		}
		out = append(out, messageResponse{
			ID:        msgs[i].ID,
			Role:      msgs[i].Role,
			Content:   msgs[i].Content,
			ToolCalls: calls,
			CreatedAt: msgs[i].CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversation": conversationResponse{ID: conv.ID, Title: conv.Title, CreatedAt: conv.CreatedAt, UpdatedAt: conv.UpdatedAt},
		"messages":     out,
	})
}

func (t *Transport) handleDeleteConversation(w http.ResponseWriter, r *http.Request, userID string) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	err := t.chat.Delete(userID, id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not delete conversation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func conversationID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conversation id")
		return 0, false
	}
	return uint(id), true
}

// toolCallsOrEmpty keeps the JSON field an array rather than null.
func toolCallsOrEmpty(calls []llm.ToolResult) []llm.ToolResult {
	if calls == nil {
		return []llm.ToolResult{}
	}
	return calls
}
