package conversation

import "context"

// Repository persists project messages. List returns messages in creation order; when Limit is set
// it returns the most recent Limit messages after skipping Offset from the newest end.
type Repository interface {
	Append(ctx context.Context, msg *Message) error
	List(ctx context.Context, projectID string, opts ListOptions) ([]Message, error)
}
