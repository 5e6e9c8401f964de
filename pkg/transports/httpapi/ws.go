package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/focusflowhq/focusflow/pkg/llm"
	"github.com/focusflowhq/focusflow/pkg/store"
	"github.com/gorilla/websocket"
)

type wsRequest struct {
	Message        string `json:"message"`
	ConversationID uint   `json:"conversation_id,omitempty"`
}

type wsResponse struct {
	ConversationID uint             `json:"conversation_id,omitempty"`
	Title          string           `json:"title,omitempty"`
	Response       string           `json:"response,omitempty"`
	ToolCalls      []llm.ToolResult `json:"tool_calls,omitempty"`
	Error          string           `json:"error,omitempty"`
}

// handleChatWS runs the same chat turns as POST /api/chat over a persistent
// websocket: one JSON request in, one JSON response out, in order. Errors are
// sent as messages so a single bad turn does not drop the socket.
func (t *Transport) handleChatWS(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.log.Warn("ws_upgrade_failed", "error", err)
		return
	}
	defer conn.Close()
	t.log.Info("ws_connected", "user_id", userID)

	for {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.log.Warn("ws_read_failed", "error", err)
			}
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			if err := conn.WriteJSON(wsResponse{Error: "message is required"}); err != nil {
				return
			}
			continue
		}

		result, err := t.chat.Send(r.Context(), userID, req.ConversationID, req.Message)
		if err != nil {
			msg := "model request failed"
			if errors.Is(err, store.ErrNotFound) {
				msg = "conversation not found"
			}
			if werr := conn.WriteJSON(wsResponse{
				ConversationID: result.ConversationID,
				Error:          msg,
				ToolCalls:      toolCallsOrEmpty(result.ToolCalls),
			}); werr != nil {
				return
			}
			continue
		}

		if err := conn.WriteJSON(wsResponse{
			ConversationID: result.ConversationID,
			Title:          result.Title,
			Response:       result.Reply,
			ToolCalls:      toolCallsOrEmpty(result.ToolCalls),
		}); err != nil {
			return
		}
	}
}
