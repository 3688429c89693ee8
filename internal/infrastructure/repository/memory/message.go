package memory

import (
	"context"
	"sync"

	"brainstorm-api/internal/domain/conversation"
)

// MessageRepository is an in-memory conversation.Repository.
type MessageRepository struct {
	mu       sync.RWMutex
	messages map[string][]conversation.Message
}

// NewMessageRepository creates an empty repository.
func NewMessageRepository() *MessageRepository {
	return &MessageRepository{messages: make(map[string][]conversation.Message)}
}

// Append adds a message to its project's history.
func (r *MessageRepository) Append(_ context.Context, msg *conversation.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *msg
	stored.Metadata = cloneMetadata(msg.Metadata)
	history := append(r.messages[msg.ProjectID], stored)
	conversation.SortByCreation(history)
	r.messages[msg.ProjectID] = history
	return nil
}

// List returns messages in creation order, paging from the newest end.
func (r *MessageRepository) List(_ context.Context, projectID string, opts conversation.ListOptions) ([]conversation.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	history := r.messages[projectID]

	end := len(history)
	if opts.Offset > 0 {
		end -= opts.Offset
		if end < 0 {
			end = 0
		}
	}
	start := 0
	if opts.Limit > 0 && end-opts.Limit > 0 {
		start = end - opts.Limit
	}

	out := make([]conversation.Message, 0, end-start)
	for _, msg := range history[start:end] {
		msg.Metadata = cloneMetadata(msg.Metadata)
		out = append(out, msg)
	}
	return out, nil
}
