package store

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/focusflowhq/focusflow/pkg/llm"
)

type User struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Name         string
	CreatedAt    time.Time
}

func (User) TableName() string { return "users" }

type Todo struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      string `gorm:"index;not null"`
	Title       string `gorm:"not null"`
	Description string
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Todo) TableName() string { return "todos" }

type Conversation struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"index;not null"`
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Conversation) TableName() string { return "conversations" }

// Message rows are append-only; they are deleted only when their conversation
// is deleted. ToolCalls serializes the turn's audit trail and must round-trip
// losslessly for transcript replay.
type Message struct {
	ID             uint   `gorm:"primaryKey"`
	UserID         string `gorm:"not null"`
	ConversationID uint   `gorm:"index:idx_conversation_created;not null"`
	Role           string `gorm:"not null"`
	Content        string `gorm:"type:text"`
	ToolCalls      datatypes.JSON
	CreatedAt      time.Time `gorm:"index:idx_conversation_created"`
}

func (Message) TableName() string { return "messages" }

// DecodeToolCalls deserializes the persisted audit trail. A message without
// tool calls yields nil.
func (m *Message) DecodeToolCalls() ([]llm.ToolResult, error) {
	if len(m.ToolCalls) == 0 {
		return nil, nil
	}
	var out []llm.ToolResult
	if err := json.Unmarshal(m.ToolCalls, &out); err != nil {
		return nil, err
	}
	return out, nil
}
