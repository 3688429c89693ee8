package entities

import (
	"time"

	"gorm.io/datatypes"

	"brainstorm-api/internal/domain/conversation"
)

// Message is the persisted conversation message row.
type Message struct {
	ID         string         `gorm:"primaryKey;size:32"`
	ProjectID  string         `gorm:"size:128;index:idx_messages_project_created,priority:1"`
	Role       string         `gorm:"size:16"`
	Content    string         `gorm:"type:text"`
	AgentLabel *string        `gorm:"size:64"`
	Metadata   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"index:idx_messages_project_created,priority:2"`
}

// TableName pins the table name.
func (Message) TableName() string { return "messages" }

// NewSchemaMessage converts a domain message to its row.
func NewSchemaMessage(m *conversation.Message) (*Message, error) {
	metadata, err := marshalJSON(m.Metadata)
	if err != nil {
		return nil, err
	}
	return &Message{
		ID:         m.ID,
		ProjectID:  m.ProjectID,
		Role:       string(m.Role),
		Content:    m.Content,
		AgentLabel: optionalString(m.AgentLabel),
		Metadata:   metadata,
		CreatedAt:  m.CreatedAt,
	}, nil
}

// EtoD converts the row to a domain message.
func (e *Message) EtoD() (conversation.Message, error) {
	m := conversation.Message{
		ID:         e.ID,
		ProjectID:  e.ProjectID,
		Role:       conversation.Role(e.Role),
		Content:    e.Content,
		AgentLabel: derefString(e.AgentLabel),
		CreatedAt:  e.CreatedAt,
	}
	if err := unmarshalJSON(e.Metadata, &m.Metadata); err != nil {
		return m, err
	}
	return m, nil
}
