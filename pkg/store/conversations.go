package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/focusflowhq/focusflow/pkg/llm"
)

func (s *Store) CreateConversation(userID, title string) (*Conversation, error) {
	conv := &Conversation{UserID: userID, Title: title}
	if err := s.db.Create(conv).Error; err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// Conversation loads a conversation scoped to its owner. A conversation that
// exists but belongs to another user is reported as ErrNotFound, never as a
// distinct forbidden signal.
func (s *Store) Conversation(id uint, userID string) (*Conversation, error) {
	var conv Conversation
	err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	return &conv, nil
}

// Conversations lists a user's conversations, most recently updated first.
func (s *Store) Conversations(userID string) ([]Conversation, error) {
	var convs []Conversation
	err := s.db.Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return convs, nil
}

// AppendMessage writes one transcript row and bumps the conversation's
// updated_at in the same transaction. Ownership is checked first so a forged
// conversation id cannot attach messages to another user's transcript.
func (s *Store) AppendMessage(conversationID uint, userID, role, content string, toolCalls []llm.ToolResult) (*Message, error) {
	if _, err := s.Conversation(conversationID, userID); err != nil {
		return nil, err
	}
	msg := &Message{
		UserID:         userID,
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
	}
	if len(toolCalls) > 0 {
		raw, err := json.Marshal(toolCalls)
		if err != nil {
			return nil, fmt.Errorf("encode tool calls: %w", err)
		}
		msg.ToolCalls = raw
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&Conversation{}).
			Where("id = ?", conversationID).
			Update("updated_at", time.Now()).Error
	})
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	return msg, nil
}

// Messages returns a conversation's transcript in insertion order.
func (s *Store) Messages(conversationID uint) ([]Message, error) {
	var msgs []Message
	err := s.db.Where("conversation_id = ?", conversationID).
		Order("created_at, id").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// DeleteConversation removes a conversation and all of its messages.
func (s *Store) DeleteConversation(id uint, userID string) error {
	if _, err := s.Conversation(id, userID); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Conversation{}, id).Error
	})
}
