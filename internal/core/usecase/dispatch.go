package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/okolin/scribe/internal/core/domain"
	"github.com/okolin/scribe/internal/core/ports"
)

// Dispatcher ties one user turn together: classify, extract, resolve
// deictic references, and drive (or enqueue) a pipeline run.
//
// Failures before acceptance degrade to chat with a visible diagnostic;
// failures after acceptance surface as stage-tagged reports, never as chat.
type Dispatcher struct {
	classifier *Classifier
	extractor  *Extractor
	registries *RegistryManager
	pipeline   *Pipeline
	runs       ports.RunStore
	queue      ports.RunQueue
}

func NewDispatcher(
	classifier *Classifier,
	extractor *Extractor,
	registries *RegistryManager,
	pipeline *Pipeline,
	runs ports.RunStore,
	queue ports.RunQueue,
) *Dispatcher {
	return &Dispatcher{
		classifier: classifier,
		extractor:  extractor,
		registries: registries,
		pipeline:   pipeline,
		runs:       runs,
		queue:      queue,
	}
}

// Dispatch executes one turn synchronously and returns the caller-facing
// result: a receipt, a stage-tagged failure, or a chat fallback.
func (d *Dispatcher) Dispatch(ctx context.Context, req domain.ChatRequest) (domain.DispatchResult, error) {
	run, result, accepted := d.accept(ctx, req)
	if !accepted {
		return result, nil
	}

	receipt, err := d.pipeline.Execute(ctx, run)
	if err != nil {
		var pipelineErr *PipelineError
		if errors.As(err, &pipelineErr) {
			result.Failure = pipelineErr.Report()
			return result, nil
		}
		return domain.DispatchResult{}, fmt.Errorf("execute pipeline: %w", err)
	}
	result.Receipt = &receipt
	return result, nil
}

// DispatchAsync accepts the turn, stores the run, and hands its ID to the
// worker queue. The caller polls the run for the terminal state.
func (d *Dispatcher) DispatchAsync(ctx context.Context, req domain.ChatRequest) (domain.DispatchResult, error) {
	run, result, accepted := d.accept(ctx, req)
	if !accepted {
		return result, nil
	}

	if err := d.queue.PublishRunRequested(ctx, run.ID); err != nil {
		return domain.DispatchResult{}, fmt.Errorf("publish run request: %w", err)
	}
	return result, nil
}

// ExecuteRun is the worker entry point: load a stored run and drive it to a
// terminal state. A pipeline failure is already recorded on the run, so the
// worker only propagates unexpected errors.
func (d *Dispatcher) ExecuteRun(ctx context.Context, runID string) error {
	run, err := d.runs.GetByID(ctx, runID)
	if err != nil {
		return fmt.Errorf("load run: %w", err)
	}
	if run.State.Terminal() {
		return nil
	}

	if _, err := d.pipeline.Execute(ctx, run); err != nil {
		var pipelineErr *PipelineError
		if errors.As(err, &pipelineErr) {
			slog.Warn("run_failed",
				"run_id", run.ID,
				"stage", pipelineErr.Stage,
				"reason", pipelineErr.Reason,
			)
			return nil
		}
		return fmt.Errorf("execute run %s: %w", runID, err)
	}
	return nil
}

// EndSession drops the session's registry; deictic references no longer
// resolve after teardown.
func (d *Dispatcher) EndSession(sessionID string) {
	d.registries.EndSession(sessionID)
}

// accept runs classification and extraction. It returns accepted=false with
// a populated chat-fallback result when no generation task is detected or
// parameters cannot be resolved.
func (d *Dispatcher) accept(ctx context.Context, req domain.ChatRequest) (*domain.PipelineRun, domain.DispatchResult, bool) {
	intent := d.classifier.Classify(req.Text)
	if intent.Action == domain.ActionChat {
		return nil, domain.DispatchResult{
			Action:     domain.ActionChat,
			ChatText:   req.Text,
			Diagnostic: "no task detected",
		}, false
	}

	desc, err := d.extractor.Extract(req.Text, intent.Action)
	if err != nil {
		slog.Info("extraction_fallback",
			"session_id", req.SessionID,
			"action", intent.Action,
			"error", err,
		)
		return nil, domain.DispatchResult{
			Action:     domain.ActionChat,
			ChatText:   req.Text,
			Diagnostic: "no topic resolved",
		}, false
	}

	if intent.Action == domain.ActionInsertMedia {
		prior, err := d.registries.ForSession(req.SessionID).ResolveReference(domain.KindImage)
		if err != nil {
			return nil, domain.DispatchResult{
				Action:     domain.ActionInsertMedia,
				ChatText:   req.Text,
				Diagnostic: "no prior image to insert; generate an image first",
			}, false
		}
		desc.AttachedImage = prior.Path
		desc.Media.IncludeImage = false
	}

	now := time.Now().UTC()
	run := &domain.PipelineRun{
		ID:         uuid.NewString(),
		SessionID:  req.SessionID,
		State:      domain.StateDrafting,
		Descriptor: desc,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := d.runs.Create(ctx, run); err != nil {
		// Acceptance already happened; a storage hiccup is a visible
		// failure, not a silent chat downgrade.
		return nil, domain.DispatchResult{
			Action:  intent.Action,
			Failure: &domain.FailureReport{Stage: domain.StateDrafting, Reason: reasonIOError},
		}, false
	}

	return run, domain.DispatchResult{Action: intent.Action, RunID: run.ID}, true
}
