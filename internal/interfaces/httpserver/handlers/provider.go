package handlers

import (
	"context"

	"github.com/rs/zerolog"

	"brainstorm-api/internal/domain/conversation"
	"brainstorm-api/internal/domain/coordination"
	"brainstorm-api/internal/domain/project"
	"brainstorm-api/internal/domain/updates"
)

// ConversationService is the slice of the coordination service the handlers use.
type ConversationService interface {
	ProcessMessage(ctx context.Context, req coordination.Request) (*coordination.Reply, error)
	GetRun(ctx context.Context, runID string) (*coordination.Run, error)
	GetProject(ctx context.Context, projectID string) (*project.Project, error)
	ListMessages(ctx context.Context, projectID string, opts conversation.ListOptions) ([]conversation.Message, error)
}

// UpdateFeed exposes pending and live project updates.
type UpdateFeed interface {
	Drain(projectID string) []updates.Update
	Subscribe(projectID string) *updates.Subscription
}

var (
	_ ConversationService = (*coordination.Service)(nil)
	_ UpdateFeed          = (*updates.Broker)(nil)
)

// Provider wires all HTTP handlers for dependency injection.
type Provider struct {
	Conversation *ConversationHandler
	Project      *ProjectHandler
	Run          *RunHandler
}

// NewProvider constructs the handler provider with domain services.
func NewProvider(service ConversationService, feed UpdateFeed, log zerolog.Logger) *Provider {
	return &Provider{
		Conversation: NewConversationHandler(service, log),
		Project:      NewProjectHandler(service, feed, log),
		Run:          NewRunHandler(service, log),
	}
}
