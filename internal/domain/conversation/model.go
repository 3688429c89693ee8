package conversation

import (
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
)

// Role indicates who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Metadata keys written by the service.
const (
	MetadataItemRecorded = "itemRecorded"
	MetadataRunID        = "runId"
	MetadataIntent       = "intent"
	MetadataWebhookURL   = "webhook_url"
)

// AgentLabelRecorder marks system messages written after items were recorded.
const AgentLabelRecorder = "recorder"

// Message is one immutable entry of a project conversation.
type Message struct {
	ID         string                 `json:"id"`
	ProjectID  string                 `json:"projectId"`
	Role       Role                   `json:"role"`
	Content    string                 `json:"content"`
	AgentLabel string                 `json:"agentLabel,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
}

// NewMessage builds a message with a time-sortable id.
func NewMessage(projectID string, role Role, content string, now time.Time) Message {
	return Message{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		ProjectID: projectID,
		Role:      role,
		Content:   content,
		CreatedAt: now,
	}
}

// ItemRecorded reports whether the message carries metadata.itemRecorded == true.
func (m Message) ItemRecorded() bool {
	if m.Metadata == nil {
		return false
	}
	v, ok := m.Metadata[MetadataItemRecorded].(bool)
	return ok && v
}

// SortByCreation orders messages by createdAt, breaking ties by id.
func SortByCreation(messages []Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
}

// Last returns the most recent message, if any.
func Last(messages []Message) (Message, bool) {
	if len(messages) == 0 {
		return Message{}, false
	}
	return messages[len(messages)-1], true
}

// ListOptions pages through a project's history.
type ListOptions struct {
	Limit  int
	Offset int
}
