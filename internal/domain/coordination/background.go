package coordination

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"brainstorm-api/internal/domain/conversation"
	"brainstorm-api/internal/domain/project"
	"brainstorm-api/internal/domain/reconcile"
	"brainstorm-api/internal/domain/updates"
)

// ExecuteBackground runs the deferred workflow of a queued run: classify, dispatch, reconcile,
// record, publish. Failures are recorded on the run and published; the returned error is for the
// worker's logs only.
func (s *Service) ExecuteBackground(ctx context.Context, runID string) error {
	run, err := s.runs.Get(ctx, runID)
	if err != nil {
		return fmt.Errorf("load run %s: %w", runID, err)
	}
	if run.Status.IsTerminal() {
		s.log.Debug().Str("run_id", runID).Str("status", run.Status.String()).Msg("run already finished")
		return nil
	}
	if err := run.Start(s.now()); err != nil {
		return fmt.Errorf("start run %s: %w", runID, err)
	}
	if err := s.runs.Update(ctx, run); err != nil {
		return fmt.Errorf("mark run %s in progress: %w", runID, err)
	}

	log := s.log.With().Str("run_id", run.ID).Str("project_id", run.ProjectID).Logger()

	var (
		p       *project.Project
		history []conversation.Message
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		p, err = s.projects.Get(gctx, run.ProjectID)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = s.messages.List(gctx, run.ProjectID, conversation.ListOptions{Limit: s.historyLimit})
		return err
	})
	if err := g.Wait(); err != nil {
		return s.fail(ctx, run, StageLoad, "", err)
	}

	before, through, userMsg := splitHistory(history, run.MessageID)

	cls := s.classifier.Classify(ctx, run.Message, before)
	workflowType := cls.WorkflowType()
	run.Intent = string(workflowType)
	run.Confidence = cls.Confidence
	def := s.table.Lookup(workflowType)

	log.Info().
		Str("intent", run.Intent).
		Int("confidence", cls.Confidence).
		Str("source", string(cls.Source)).
		Int("steps", len(def.Steps)).
		Msg("workflow selected")

	results := s.executor.Execute(ctx, def.Steps, run.Message, p, through)
	for _, res := range results {
		if !res.Failed() {
			continue
		}
		run.FailedSteps = append(run.FailedSteps, string(res.Capability))
		log.Error().
			Str("intent", run.Intent).
			Str("step", string(res.Capability)).
			Str("code", res.Error.Code).
			Msg(res.Error.Message)
	}

	if err := ctx.Err(); err != nil {
		return s.fail(ctx, run, StageTimeout, "", err)
	}

	msgTime := s.now()
	if userMsg != nil {
		msgTime = userMsg.CreatedAt
	}

	var outcome *reconcile.Outcome
	err = s.locker.WithLock(ctx, run.ProjectID, func(lctx context.Context) error {
		// Re-read under the lock so serialized runs see each other's items.
		fresh, err := s.projects.Get(lctx, run.ProjectID)
		if err != nil {
			return err
		}
		outcome, err = s.reconciler.Reconcile(lctx, results, fresh, reconcile.Options{
			Mode:        def.Mode,
			MessageText: run.Message,
			MessageTime: msgTime,
		})
		return err
	})
	if err != nil {
		return s.fail(ctx, run, StageReconcile, lastFailedStep(run), err)
	}

	run.Accepted = len(outcome.Accepted)
	run.Rejected = len(outcome.Rejected)

	if len(outcome.Accepted) > 0 {
		if err := s.appendRecorderMessage(ctx, run, outcome.Accepted); err != nil {
			return s.fail(ctx, run, StageRecord, "", err)
		}
	}

	update := updates.Update{
		ProjectID: run.ProjectID,
		RunID:     run.ID,
		Event:     updates.EventRunCompleted,
		Intent:    run.Intent,
		Accepted:  outcome.Accepted,
		Rejected:  outcome.Rejected,
		Results:   results,
		CreatedAt: s.now(),
	}
	if err := run.Complete(s.now()); err != nil {
		return fmt.Errorf("complete run %s: %w", run.ID, err)
	}
	if err := s.runs.Update(ctx, run); err != nil {
		log.Error().Err(err).Msg("persist completed run")
	}
	s.deliver(ctx, run, update)

	log.Info().
		Str("intent", run.Intent).
		Int("accepted", run.Accepted).
		Int("rejected", run.Rejected).
		Strs("failed_steps", run.FailedSteps).
		Msg("run completed")
	return nil
}

func (s *Service) appendRecorderMessage(ctx context.Context, run *Run, accepted []project.Item) error {
	parts := make([]string, 0, len(accepted))
	for _, item := range accepted {
		parts = append(parts, fmt.Sprintf("%s (%s)", item.Text, item.State))
	}
	msg := conversation.NewMessage(run.ProjectID, conversation.RoleSystem,
		fmt.Sprintf("Recorded %d item(s): %s", len(accepted), strings.Join(parts, "; ")), s.now())
	msg.AgentLabel = conversation.AgentLabelRecorder
	msg.Metadata = map[string]interface{}{
		conversation.MetadataItemRecorded: true,
		conversation.MetadataRunID:        run.ID,
		conversation.MetadataIntent:       run.Intent,
	}
	return s.messages.Append(ctx, &msg)
}

// fail records the failure on the run and publishes it. It returns the original error.
func (s *Service) fail(ctx context.Context, run *Run, stage, step string, cause error) error {
	// The run context may already be done; recording the failure must still happen.
	recordCtx := context.WithoutCancel(ctx)

	if errors.Is(cause, context.DeadlineExceeded) {
		stage = StageTimeout
	}
	s.log.Error().
		Err(cause).
		Str("run_id", run.ID).
		Str("project_id", run.ProjectID).
		Str("intent", run.Intent).
		Str("step", step).
		Str("stage", stage).
		Msg("background run failed")

	if err := run.Fail(stage, cause, s.now()); err != nil {
		return fmt.Errorf("%s: %w", stage, cause)
	}
	if err := s.runs.Update(recordCtx, run); err != nil {
		s.log.Error().Err(err).Str("run_id", run.ID).Msg("persist failed run")
	}
	s.deliver(recordCtx, run, updates.Update{
		ProjectID: run.ProjectID,
		RunID:     run.ID,
		Event:     updates.EventRunFailed,
		Intent:    run.Intent,
		Error:     run.Error.Message,
		CreatedAt: s.now(),
	})
	return fmt.Errorf("%s: %w", stage, cause)
}

func (s *Service) deliver(ctx context.Context, run *Run, update updates.Update) {
	if s.publisher != nil {
		s.publisher.Publish(ctx, update)
	}
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, run, update); err != nil {
			s.log.Warn().Err(err).Str("run_id", run.ID).Msg("webhook delivery failed")
		}
	}
}

// splitHistory returns the messages before the run's user message, the messages through it, and
// the user message itself. A missing message leaves the whole history in both slices.
func splitHistory(history []conversation.Message, messageID string) ([]conversation.Message, []conversation.Message, *conversation.Message) {
	for idx := range history {
		if history[idx].ID == messageID {
			msg := history[idx]
			return history[:idx], history[:idx+1], &msg
		}
	}
	return history, history, nil
}

func lastFailedStep(run *Run) string {
	if len(run.FailedSteps) == 0 {
		return ""
	}
	return run.FailedSteps[len(run.FailedSteps)-1]
}
