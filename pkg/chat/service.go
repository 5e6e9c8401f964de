package chat

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/focusflowhq/focusflow/pkg/agent"
	"github.com/focusflowhq/focusflow/pkg/llm"
	"github.com/focusflowhq/focusflow/pkg/logging"
	"github.com/focusflowhq/focusflow/pkg/redact"
	"github.com/focusflowhq/focusflow/pkg/store"
)

// titleLimit caps how much of the first message becomes the conversation
// title.
const titleLimit = 50

// Service runs chat turns end to end: conversation bookkeeping in the store
// plus one orchestrator run per incoming message. Turns within a conversation
// are serialized; different conversations proceed concurrently.
type Service struct {
	store *store.Store
	orc   *agent.Orchestrator
	locks *keyedMutex
	log   *slog.Logger
}

func NewService(st *store.Store, orc *agent.Orchestrator) *Service {
	return &Service{
		store: st,
		orc:   orc,
		locks: newKeyedMutex(),
		log:   logging.NewComponentLogger("chat"),
	}
}

// SendResult is the outcome of one chat turn.
type SendResult struct {
	ConversationID uint             `json:"conversation_id"`
	Title          string           `json:"title"`
	Reply          string           `json:"response"`
	ToolCalls      []llm.ToolResult `json:"tool_calls"`
	StopReason     string           `json:"-"`
}

// Send handles one user message. A zero conversationID starts a new
// conversation titled after the message. On a model transport error the user
// message is already persisted and the returned SendResult carries the tool
// calls that ran before the failure; no assistant message is stored.
func (s *Service) Send(ctx context.Context, userID string, conversationID uint, message string) (SendResult, error) {
	if _, err := s.store.UserByID(userID); err != nil {
		return SendResult{}, err
	}

	var conv *store.Conversation
	var err error
	if conversationID == 0 {
		conv, err = s.store.CreateConversation(userID, Title(message))
	} else {
		conv, err = s.store.Conversation(conversationID, userID)
	}
	if err != nil {
		return SendResult{}, err
	}

	unlock := s.locks.lock(strconv.FormatUint(uint64(conv.ID), 10))
	defer unlock()

	s.log.Debug("chat_turn_started",
		"conversation_id", conv.ID,
		"message", redact.Text(message),
	)

	history, err := s.history(conv.ID)
	if err != nil {
		return SendResult{}, err
	}

	if _, err := s.store.AppendMessage(conv.ID, userID, llm.RoleUser, message, nil); err != nil {
		return SendResult{}, err
	}

	result := SendResult{ConversationID: conv.ID, Title: conv.Title}
	turn, err := s.orc.Run(ctx, userID, message, history)
	result.ToolCalls = turn.ToolCalls
	result.StopReason = turn.StopReason
	if err != nil {
		s.log.Error("chat_turn_failed", "conversation_id", conv.ID, "error", err)
		return result, err
	}

	if _, err := s.store.AppendMessage(conv.ID, userID, llm.RoleAssistant, turn.ResponseText, turn.ToolCalls); err != nil {
		return result, err
	}
	result.Reply = turn.ResponseText
	return result, nil
}

// History returns a conversation's messages for display, newest last.
func (s *Service) History(userID string, conversationID uint) (*store.Conversation, []store.Message, error) {
	conv, err := s.store.Conversation(conversationID, userID)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.store.Messages(conversationID)
	if err != nil {
		return nil, nil, err
	}
	return conv, msgs, nil
}

func (s *Service) Conversations(userID string) ([]store.Conversation, error) {
	return s.store.Conversations(userID)
}

func (s *Service) Delete(userID string, conversationID uint) error {
	return s.store.DeleteConversation(conversationID, userID)
}

// history converts stored messages into model context. Only the text
// exchange is replayed; tool call audit trails stay in the store.
func (s *Service) history(conversationID uint) ([]llm.Message, error) {
	msgs, err := s.store.Messages(conversationID)
	if err != nil {
		return nil, err
	}
	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Content == "" {
			continue
		}
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return out, nil
}

// Title derives a conversation title from its opening message.
func Title(message string) string {
	runes := []rune(message)
	if len(runes) <= titleLimit {
		return message
	}
	return string(runes[:titleLimit]) + "..."
}
