package coordination_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brainstorm-api/internal/domain/capability"
	"brainstorm-api/internal/domain/conversation"
	"brainstorm-api/internal/domain/coordination"
	"brainstorm-api/internal/domain/intent"
	"brainstorm-api/internal/domain/project"
	"brainstorm-api/internal/domain/reconcile"
	"brainstorm-api/internal/domain/status"
	"brainstorm-api/internal/domain/updates"
	"brainstorm-api/internal/domain/workflow"
	"brainstorm-api/internal/infrastructure/repository/memory"
	"brainstorm-api/internal/utils/platformerrors"
)

type fakeQueue struct {
	mu   sync.Mutex
	runs []string
	err  error
}

func (q *fakeQueue) Enqueue(_ context.Context, run *coordination.Run) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.runs = append(q.runs, run.ID)
	return nil
}

type notifierFunc func(ctx context.Context, run *coordination.Run, u updates.Update) error

func (f notifierFunc) Notify(ctx context.Context, run *coordination.Run, u updates.Update) error {
	return f(ctx, run, u)
}

type failingSaves struct {
	*memory.ProjectRepository
}

func (failingSaves) SaveItems(context.Context, string, []project.Item) error {
	return errors.New("connection reset")
}

func parsed(name capability.Name, raw string) capability.Capability {
	return capability.Func{CapabilityName: name, Fn: func(context.Context, capability.Input) (capability.Result, error) {
		res, _ := capability.Parse(name, raw)
		return res, nil
	}}
}

type harness struct {
	svc      *coordination.Service
	projects project.Repository
	messages *memory.MessageRepository
	runs     *memory.RunRepository
	queue    *fakeQueue
	broker   *updates.Broker
	registry *capability.DefaultRegistry
	notified []updates.Update
}

func newHarness(t *testing.T, projects project.Repository, caps ...capability.Capability) *harness {
	t.Helper()
	h := &harness{
		projects: projects,
		messages: memory.NewMessageRepository(),
		runs:     memory.NewRunRepository(),
		queue:    &fakeQueue{},
		broker:   updates.NewBroker(8, time.Minute, zerolog.Nop()),
		registry: capability.NewRegistry(),
	}
	if h.projects == nil {
		h.projects = memory.NewProjectRepository()
	}
	for _, c := range caps {
		require.NoError(t, h.registry.Register(c))
	}
	h.svc = coordination.NewService(coordination.Dependencies{
		Projects:   h.projects,
		Messages:   h.messages,
		Runs:       h.runs,
		Queue:      h.queue,
		Registry:   h.registry,
		Executor:   workflow.NewDispatcher(h.registry, nil, zerolog.Nop()),
		Reconciler: reconcile.NewReconciler(h.projects, zerolog.Nop()),
		Publisher:  h.broker,
		Notifier: notifierFunc(func(_ context.Context, _ *coordination.Run, u updates.Update) error {
			h.notified = append(h.notified, u)
			return nil
		}),
	}, zerolog.Nop())
	return h
}

func replying(text string) capability.Capability {
	return parsed(capability.Conversation, text)
}

func TestProcessMessage_RepliesAndQueuesRun(t *testing.T) {
	h := newHarness(t, nil, replying("Tell me more about the audience."))
	ctx := context.Background()

	reply, err := h.svc.ProcessMessage(ctx, coordination.Request{
		ProjectID: "proj-1",
		UserID:    "user-1",
		Message:   "I want to start a newsletter",
	})
	require.NoError(t, err)
	assert.Equal(t, "Tell me more about the audience.", reply.ImmediateReply)
	assert.Empty(t, reply.WorkflowIntentLabel)
	assert.Equal(t, "proj-1", reply.ProjectID)
	require.NotEmpty(t, reply.RunID)

	p, err := h.projects.Get(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)

	msgs, err := h.messages.List(ctx, "proj-1", conversation.ListOptions{})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, conversation.RoleUser, msgs[0].Role)
	assert.Equal(t, conversation.RoleAssistant, msgs[1].Role)
	assert.Equal(t, reply.RunID, msgs[1].Metadata[conversation.MetadataRunID])

	run, err := h.runs.Get(ctx, reply.RunID)
	require.NoError(t, err)
	assert.Equal(t, status.StatusQueued, run.Status)
	assert.Equal(t, msgs[0].ID, run.MessageID)
	assert.Equal(t, []string{reply.RunID}, h.queue.runs)
}

func TestProcessMessage_Validation(t *testing.T) {
	h := newHarness(t, nil, replying("ok"))

	tests := []struct {
		name string
		req  coordination.Request
	}{
		{"missing project", coordination.Request{UserID: "u", Message: "hi"}},
		{"blank user", coordination.Request{ProjectID: "p", UserID: "  ", Message: "hi"}},
		{"blank message", coordination.Request{ProjectID: "p", UserID: "u", Message: " \n "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.ProcessMessage(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
		})
	}
	assert.Empty(t, h.queue.runs)
}

func TestProcessMessage_ShortCircuitLabels(t *testing.T) {
	h := newHarness(t, nil, replying("Sounds good."))
	ctx := context.Background()
	req := coordination.Request{ProjectID: "proj-1", UserID: "user-1"}

	req.Message = "Should we launch weekly?"
	first, err := h.svc.ProcessMessage(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, first.WorkflowIntentLabel)

	req.Message = "yes"
	second, err := h.svc.ProcessMessage(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, intent.Deciding, second.WorkflowIntentLabel)

	req.Message = "review conversation"
	third, err := h.svc.ProcessMessage(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, intent.Reviewing, third.WorkflowIntentLabel)
}

func TestProcessMessage_ConversationFailure(t *testing.T) {
	failing := capability.Func{CapabilityName: capability.Conversation, Fn: func(context.Context, capability.Input) (capability.Result, error) {
		return capability.Result{}, errors.New("provider unavailable")
	}}
	h := newHarness(t, nil, failing)

	_, err := h.svc.ProcessMessage(context.Background(), coordination.Request{ProjectID: "p", UserID: "u", Message: "hello"})
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeExternal))
	assert.Empty(t, h.queue.runs)
}

func TestProcessMessage_ConversationSeesPriorHistoryOnly(t *testing.T) {
	var seen []conversation.Message
	conv := capability.Func{CapabilityName: capability.Conversation, Fn: func(_ context.Context, in capability.Input) (capability.Result, error) {
		seen = in.History
		return capability.Parse(capability.Conversation, "noted")
	}}
	h := newHarness(t, nil, conv)
	ctx := context.Background()
	req := coordination.Request{ProjectID: "p", UserID: "u", Message: "first"}

	_, err := h.svc.ProcessMessage(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, seen)

	req.Message = "second"
	_, err = h.svc.ProcessMessage(ctx, req)
	require.NoError(t, err)
	require.Len(t, seen, 2)
	assert.Equal(t, "first", seen[0].Content)
	assert.Equal(t, "noted", seen[1].Content)
}

func TestProcessMessage_ForbiddenForOtherUser(t *testing.T) {
	h := newHarness(t, nil, replying("ok"))
	ctx := context.Background()
	_, err := h.svc.ProcessMessage(ctx, coordination.Request{ProjectID: "p", UserID: "owner", Message: "hi"})
	require.NoError(t, err)

	_, err = h.svc.ProcessMessage(ctx, coordination.Request{ProjectID: "p", UserID: "intruder", Message: "hi"})
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden))
}

func TestProcessMessage_EnqueueFailureStillReplies(t *testing.T) {
	h := newHarness(t, nil, replying("ok"))
	h.queue.err = errors.New("queue down")

	reply, err := h.svc.ProcessMessage(context.Background(), coordination.Request{ProjectID: "p", UserID: "u", Message: "hi"})
	require.NoError(t, err)

	run, err := h.runs.Get(context.Background(), reply.RunID)
	require.NoError(t, err)
	assert.Equal(t, status.StatusFailed, run.Status)
	require.NotNil(t, run.Error)
	assert.Equal(t, coordination.StageEnqueue, run.Error.Stage)
}

const decidingMessage = "Let's go with a weekly cadence for the newsletter"

func decidingCapabilities() []capability.Capability {
	return []capability.Capability{
		replying("Great, weekly it is."),
		parsed(capability.IntentClassification, `{"type":"deciding","confidence":92,"reasoning":"explicit choice"}`),
		parsed(capability.Recording, `{"proposals":[{"changeType":"create","text":"Weekly newsletter cadence","state":"decided","confidence":90,"approved":true,"citation":{"userQuote":"weekly cadence for the newsletter"}}]}`),
		parsed(capability.Verification, `{"approved":true,"confidence":95}`),
		parsed(capability.ConsistencyCheck, `{"consistent":true,"conflicts":[]}`),
	}
}

func TestExecuteBackground_RecordsDecidedItem(t *testing.T) {
	h := newHarness(t, nil, decidingCapabilities()...)
	ctx := context.Background()

	reply, err := h.svc.ProcessMessage(ctx, coordination.Request{ProjectID: "proj-1", UserID: "user-1", Message: decidingMessage})
	require.NoError(t, err)

	require.NoError(t, h.svc.ExecuteBackground(ctx, reply.RunID))

	p, err := h.projects.Get(ctx, "proj-1")
	require.NoError(t, err)
	require.Len(t, p.Items, 1)
	item := p.Items[0]
	assert.Equal(t, "Weekly newsletter cadence", item.Text)
	assert.Equal(t, project.StateDecided, item.State)
	assert.Equal(t, 1, item.CurrentVersion())
	assert.Equal(t, "weekly cadence for the newsletter", item.Citation.UserQuote)

	msgs, err := h.messages.List(ctx, "proj-1", conversation.ListOptions{})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	recorder := msgs[2]
	assert.Equal(t, conversation.RoleSystem, recorder.Role)
	assert.Equal(t, conversation.AgentLabelRecorder, recorder.AgentLabel)
	assert.True(t, recorder.ItemRecorded())

	run, err := h.runs.Get(ctx, reply.RunID)
	require.NoError(t, err)
	assert.Equal(t, status.StatusCompleted, run.Status)
	assert.Equal(t, string(intent.Deciding), run.Intent)
	assert.Equal(t, 1, run.Accepted)
	assert.NotNil(t, run.CompletedAt)

	pending := h.broker.Drain("proj-1")
	require.Len(t, pending, 1)
	assert.Equal(t, updates.EventRunCompleted, pending[0].Event)
	assert.Len(t, pending[0].Accepted, 1)
	require.Len(t, h.notified, 1)
	assert.Equal(t, reply.RunID, h.notified[0].RunID)
}

func TestExecuteBackground_LowConfidenceRunsGeneralWorkflow(t *testing.T) {
	recordingCalled := false
	caps := []capability.Capability{
		replying("ok"),
		parsed(capability.IntentClassification, `{"type":"deciding","confidence":40}`),
		capability.Func{CapabilityName: capability.Recording, Fn: func(context.Context, capability.Input) (capability.Result, error) {
			recordingCalled = true
			return capability.Result{}, nil
		}},
	}
	h := newHarness(t, nil, caps...)
	ctx := context.Background()

	reply, err := h.svc.ProcessMessage(ctx, coordination.Request{ProjectID: "p", UserID: "u", Message: "maybe something"})
	require.NoError(t, err)
	require.NoError(t, h.svc.ExecuteBackground(ctx, reply.RunID))

	run, err := h.runs.Get(ctx, reply.RunID)
	require.NoError(t, err)
	assert.Equal(t, string(intent.General), run.Intent)
	assert.Equal(t, status.StatusCompleted, run.Status)
	assert.False(t, recordingCalled)
}

func TestExecuteBackground_StepFailureIsRecordedNotFatal(t *testing.T) {
	caps := decidingCapabilities()
	caps[4] = capability.Func{CapabilityName: capability.ConsistencyCheck, Fn: func(context.Context, capability.Input) (capability.Result, error) {
		return capability.Result{}, errors.New("model overloaded")
	}}
	h := newHarness(t, nil, caps...)
	ctx := context.Background()

	reply, err := h.svc.ProcessMessage(ctx, coordination.Request{ProjectID: "p", UserID: "u", Message: decidingMessage})
	require.NoError(t, err)
	require.NoError(t, h.svc.ExecuteBackground(ctx, reply.RunID))

	run, err := h.runs.Get(ctx, reply.RunID)
	require.NoError(t, err)
	assert.Equal(t, status.StatusCompleted, run.Status)
	assert.Equal(t, []string{string(capability.ConsistencyCheck)}, run.FailedSteps)
}

func TestExecuteBackground_SaveFailureFailsRun(t *testing.T) {
	h := newHarness(t, failingSaves{memory.NewProjectRepository()}, decidingCapabilities()...)
	ctx := context.Background()

	reply, err := h.svc.ProcessMessage(ctx, coordination.Request{ProjectID: "p", UserID: "u", Message: decidingMessage})
	require.NoError(t, err)

	err = h.svc.ExecuteBackground(ctx, reply.RunID)
	require.Error(t, err)

	run, err := h.runs.Get(ctx, reply.RunID)
	require.NoError(t, err)
	assert.Equal(t, status.StatusFailed, run.Status)
	require.NotNil(t, run.Error)
	assert.Equal(t, coordination.StageReconcile, run.Error.Stage)
	assert.Equal(t, string(intent.Deciding), run.Intent)

	pending := h.broker.Drain("p")
	require.Len(t, pending, 1)
	assert.Equal(t, updates.EventRunFailed, pending[0].Event)

	msgs, err := h.messages.List(ctx, "p", conversation.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, msgs, 2, "no recorder message after a failed save")
}

func TestExecuteBackground_FinishedRunIsNoop(t *testing.T) {
	h := newHarness(t, nil, decidingCapabilities()...)
	ctx := context.Background()

	reply, err := h.svc.ProcessMessage(ctx, coordination.Request{ProjectID: "p", UserID: "u", Message: decidingMessage})
	require.NoError(t, err)
	require.NoError(t, h.svc.ExecuteBackground(ctx, reply.RunID))
	require.NoError(t, h.svc.ExecuteBackground(ctx, reply.RunID))

	p, err := h.projects.Get(ctx, "p")
	require.NoError(t, err)
	assert.Len(t, p.Items, 1)
	assert.Len(t, h.broker.Drain("p"), 1)
}

func TestExecuteBackground_UnknownRun(t *testing.T) {
	h := newHarness(t, nil)
	err := h.svc.ExecuteBackground(context.Background(), "run_missing")
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestExecuteBackground_AffirmativeUsesHistoryBeforeMessage(t *testing.T) {
	classifierCalled := false
	caps := decidingCapabilities()
	caps[1] = capability.Func{CapabilityName: capability.IntentClassification, Fn: func(context.Context, capability.Input) (capability.Result, error) {
		classifierCalled = true
		return capability.Parse(capability.IntentClassification, `{"type":"general","confidence":99}`)
	}}
	h := newHarness(t, nil, caps...)
	ctx := context.Background()
	req := coordination.Request{ProjectID: "p", UserID: "u"}

	req.Message = "Should the cadence be weekly?"
	_, err := h.svc.ProcessMessage(ctx, req)
	require.NoError(t, err)

	req.Message = "yes"
	reply, err := h.svc.ProcessMessage(ctx, req)
	require.NoError(t, err)
	require.NoError(t, h.svc.ExecuteBackground(ctx, reply.RunID))

	run, err := h.runs.Get(ctx, reply.RunID)
	require.NoError(t, err)
	assert.Equal(t, string(intent.Deciding), run.Intent)
	assert.Equal(t, 95, run.Confidence)
	assert.False(t, classifierCalled)
}
