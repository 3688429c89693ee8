// Package coordination runs the two phases of a conversation turn: the synchronous reply and the
// deferred workflow that classifies, dispatches and reconciles.
package coordination

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"brainstorm-api/internal/domain/capability"
	"brainstorm-api/internal/domain/conversation"
	"brainstorm-api/internal/domain/intent"
	"brainstorm-api/internal/domain/project"
	"brainstorm-api/internal/domain/pruner"
	"brainstorm-api/internal/domain/reconcile"
	"brainstorm-api/internal/domain/updates"
	"brainstorm-api/internal/domain/workflow"
	"brainstorm-api/internal/utils/platformerrors"
)

// DefaultHistoryLimit caps how many recent messages each phase loads.
const DefaultHistoryLimit = 200

// Request is one incoming user message.
type Request struct {
	ProjectID string
	UserID    string
	Message   string
	Metadata  map[string]interface{}
}

// Reply is the phase-1 result returned to the caller.
type Reply struct {
	ImmediateReply      string      `json:"immediateReply"`
	WorkflowIntentLabel intent.Type `json:"workflowIntentLabel,omitempty"`
	RunID               string      `json:"runId"`
	ProjectID           string      `json:"projectId"`
}

// Service coordinates conversation turns.
type Service struct {
	projects     project.Repository
	messages     conversation.Repository
	runs         RunRepository
	queue        Queue
	registry     capability.Registry
	classifier   *intent.Classifier
	table        *workflow.Table
	executor     StepExecutor
	reconciler   *reconcile.Reconciler
	publisher    updates.Publisher
	locker       ProjectLocker
	notifier     Notifier
	historyLimit int
	replyTimeout time.Duration
	now          func() time.Time
	log          zerolog.Logger
}

// Dependencies groups the collaborators of a Service.
type Dependencies struct {
	Projects   project.Repository
	Messages   conversation.Repository
	Runs       RunRepository
	Queue      Queue
	Registry   capability.Registry
	Classifier *intent.Classifier
	Table      *workflow.Table
	Executor   StepExecutor
	Reconciler *reconcile.Reconciler
	Publisher  updates.Publisher
	Locker     ProjectLocker
	Notifier   Notifier
}

// Option configures a Service.
type Option func(*Service)

// WithHistoryLimit sets how many recent messages are loaded per phase.
func WithHistoryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithReplyTimeout bounds the conversational reply in phase 1.
func WithReplyTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.replyTimeout = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires dependencies. Locker and Notifier are optional.
func NewService(deps Dependencies, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		projects:     deps.Projects,
		messages:     deps.Messages,
		runs:         deps.Runs,
		queue:        deps.Queue,
		registry:     deps.Registry,
		classifier:   deps.Classifier,
		table:        deps.Table,
		executor:     deps.Executor,
		reconciler:   deps.Reconciler,
		publisher:    deps.Publisher,
		locker:       deps.Locker,
		notifier:     deps.Notifier,
		historyLimit: DefaultHistoryLimit,
		replyTimeout: workflow.DefaultCapabilityTimeout,
		now:          time.Now,
		log:          log.With().Str("component", "coordination-service").Logger(),
	}
	if s.locker == nil {
		s.locker = NopLocker{}
	}
	if s.table == nil {
		s.table = workflow.DefaultTable()
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.classifier == nil && s.registry != nil {
		model, _ := s.registry.Get(capability.IntentClassification)
		s.classifier = intent.NewClassifier(model, log, intent.WithTimeout(s.replyTimeout))
	}
	return s
}

// ProcessMessage stores the user message, answers it conversationally and queues the deferred
// workflow. Only phase-1 failures are returned.
func (s *Service) ProcessMessage(ctx context.Context, req Request) (*Reply, error) {
	req.ProjectID = strings.TrimSpace(req.ProjectID)
	req.UserID = strings.TrimSpace(req.UserID)
	if req.ProjectID == "" || req.UserID == "" || strings.TrimSpace(req.Message) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"projectId, userId and message are required", nil, "3f0d8c52-5a8e-4f57-9b1c-0b7e0c1f2a41")
	}

	var (
		p       *project.Project
		history []conversation.Message
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		p, err = s.getOrCreateProject(gctx, req.ProjectID, req.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = s.messages.List(gctx, req.ProjectID, conversation.ListOptions{Limit: s.historyLimit})
		if err != nil {
			return platformerrors.AsError(gctx, platformerrors.LayerDomain, err, "load history")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	userMsg := conversation.NewMessage(req.ProjectID, conversation.RoleUser, req.Message, s.now())
	userMsg.Metadata = req.Metadata
	if err := s.messages.Append(ctx, &userMsg); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "store user message")
	}

	reply, err := s.converse(ctx, req.Message, history, p)
	if err != nil {
		return nil, err
	}

	run := NewRun(req.ProjectID, req.UserID, userMsg.ID, req.Message, req.Metadata, s.now())

	assistantMsg := conversation.NewMessage(req.ProjectID, conversation.RoleAssistant, reply, s.now())
	assistantMsg.AgentLabel = string(capability.Conversation)
	assistantMsg.Metadata = map[string]interface{}{conversation.MetadataRunID: run.ID}
	if err := s.messages.Append(ctx, &assistantMsg); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "store assistant reply")
	}

	out := &Reply{ImmediateReply: reply, RunID: run.ID, ProjectID: req.ProjectID}
	if cls, ok := intent.ShortCircuit(req.Message, history); ok {
		out.WorkflowIntentLabel = cls.Type
	}

	if err := s.runs.Create(ctx, run); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "create run")
	}
	if err := s.queue.Enqueue(ctx, run); err != nil {
		// The reply is already stored; the missed workflow is recorded on the run instead.
		s.log.Error().Err(err).Str("run_id", run.ID).Str("project_id", run.ProjectID).Msg("enqueue run failed")
		if ferr := run.Fail(StageEnqueue, err, s.now()); ferr == nil {
			if uerr := s.runs.Update(ctx, run); uerr != nil {
				s.log.Error().Err(uerr).Str("run_id", run.ID).Msg("record enqueue failure")
			}
		}
	}

	s.log.Info().
		Str("project_id", req.ProjectID).
		Str("run_id", run.ID).
		Str("intent_label", string(out.WorkflowIntentLabel)).
		Msg("message processed")
	return out, nil
}

func (s *Service) getOrCreateProject(ctx context.Context, projectID, userID string) (*project.Project, error) {
	p, err := s.projects.Get(ctx, projectID)
	if err == nil {
		if p.UserID != "" && p.UserID != userID {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden,
				"project belongs to another user", nil, "b6a2f0de-1f65-4c1f-8d7e-6c2b9e3a7d10")
		}
		return p, nil
	}
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "load project")
	}

	now := s.now()
	p = &project.Project{ID: projectID, UserID: userID, Items: []project.Item{}, CreatedAt: now, UpdatedAt: now}
	if err := s.projects.Create(ctx, p); err != nil {
		if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "create project")
		}
		// Another request created it first.
		return s.projects.Get(ctx, projectID)
	}
	s.log.Info().Str("project_id", projectID).Str("user_id", userID).Msg("project created")
	return p, nil
}

func (s *Service) converse(ctx context.Context, message string, history []conversation.Message, p *project.Project) (string, error) {
	conv, ok := s.registry.Get(capability.Conversation)
	if !ok {
		return "", platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"conversation capability is not registered", nil, "e0c4b7a9-2d31-4f7e-a5c8-91d3f6b2e854")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.replyTimeout)
	defer cancel()

	res, err := conv.Invoke(callCtx, capability.Input{
		Message: message,
		History: pruner.Prune(capability.Conversation, history, p),
		Project: p,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeTimeout,
				"conversational reply timed out", err, "6d1e9f3b-7c24-4a8e-b0d5-2f8a1c7e9b63")
		}
		return "", platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal,
			"conversational reply failed", err, "9a7c3e15-4b8d-4f2a-8e6c-d1b5f0a3c972")
	}

	reply := strings.TrimSpace(res.Reply())
	if reply == "" {
		return "", platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal,
			"conversational reply was empty", nil, "c2f8a6d4-0e3b-4c71-9f5a-7b1d8e2c4a06")
	}
	return reply, nil
}

// GetRun returns a run by id.
func (s *Service) GetRun(ctx context.Context, runID string) (*Run, error) {
	run, err := s.runs.Get(ctx, runID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "get run")
	}
	return run, nil
}

// GetProject returns a project with its items.
func (s *Service) GetProject(ctx context.Context, projectID string) (*project.Project, error) {
	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "get project")
	}
	return p, nil
}

// ListMessages returns a page of the project conversation in creation order.
func (s *Service) ListMessages(ctx context.Context, projectID string, opts conversation.ListOptions) ([]conversation.Message, error) {
	msgs, err := s.messages.List(ctx, projectID, opts)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "list messages")
	}
	return msgs, nil
}
