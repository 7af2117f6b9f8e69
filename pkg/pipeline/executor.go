package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/systemstart/shipline/pkg/config"
)

// DefaultStageTimeout bounds stages that do not declare their own timeout.
const DefaultStageTimeout = 10 * time.Minute

// Executor runs a plan's stages strictly in order within one run. Separate
// runs are fully isolated and may execute concurrently.
type Executor struct {
	// DefaultTimeout applies to stages without a Timeout of their own.
	// Zero means DefaultStageTimeout.
	DefaultTimeout time.Duration
}

// Run executes the plan against one effective configuration and returns the
// complete result. Stage failures are recorded in the result, never
// returned as an error: a fatal failure skips all remaining stages, an
// advisory failure is noted and the run continues. Cancelling ctx stops the
// run before the next stage begins and finalizes it as cancelled.
func (e *Executor) Run(ctx context.Context, plan *Plan, cfg *config.Effective) *Result {
	result := &Result{
		RunID:       uuid.NewString(),
		Service:     cfg.String("service.name"),
		Environment: cfg.Environment(),
		Status:      StatusRunning,
		Started:     time.Now(),
	}

	log := slog.Default().With("run", result.RunID, "service", result.Service, "environment", result.Environment)
	shared := NewContext()

	var fatalFailed, advisoryFailed, cancelled bool

	for _, stage := range plan.stages {
		if !cancelled && ctx.Err() != nil {
			cancelled = true
		}

		skip := StageOutcome{Name: stage.Name, Status: StageSkipped, Policy: stage.Policy}
		switch {
		case cancelled:
			skip.Message = "run cancelled"
			result.Stages = append(result.Stages, skip)
			continue
		case fatalFailed:
			skip.Message = "earlier stage failed"
			result.Stages = append(result.Stages, skip)
			continue
		}

		if stage.Enabled != nil && !stage.Enabled(cfg) {
			log.Info("stage disabled", "stage", stage.Name)
			skip.Message = "disabled by configuration"
			result.Stages = append(result.Stages, skip)
			continue
		}

		// A need can be missing even though the plan validated: the
		// producing stage may have been disabled or failed advisorily.
		if missing := missingNeed(stage, shared); missing != "" {
			log.Info("stage skipped", "stage", stage.Name, "missing", missing)
			skip.Message = fmt.Sprintf("input %q not produced", missing)
			result.Stages = append(result.Stages, skip)
			continue
		}

		outcome := e.runStage(ctx, stage, cfg, shared, result.RunID, log)
		result.Stages = append(result.Stages, outcome)

		if outcome.Status != StageFailed {
			continue
		}
		if ctx.Err() != nil {
			// The failure came from run cancellation, not the stage itself.
			cancelled = true
			continue
		}
		if stage.Policy == Advisory {
			advisoryFailed = true
			log.Warn("advisory stage failed", "stage", stage.Name, "error", outcome.Message)
		} else {
			fatalFailed = true
			log.Error("stage failed", "stage", stage.Name, "error", outcome.Message)
		}
	}

	switch {
	case cancelled:
		result.Status = StatusCancelled
	case fatalFailed:
		result.Status = StatusFailed
	case advisoryFailed:
		result.Status = StatusFailedAdvisory
	default:
		result.Status = StatusSuccess
	}
	result.Finished = time.Now()

	log.Info("run finished", "status", result.Status, "duration", result.Finished.Sub(result.Started))
	return result
}

func (e *Executor) runStage(ctx context.Context, stage Stage, cfg *config.Effective, shared *Context, runID string, log *slog.Logger) StageOutcome {
	timeout := stage.Timeout
	if timeout <= 0 {
		timeout = e.DefaultTimeout
	}
	if timeout <= 0 {
		timeout = DefaultStageTimeout
	}

	log.Info("running stage", "stage", stage.Name, "timeout", timeout)
	started := time.Now()

	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	outputs, err := stage.Run(stageCtx, StageContext{
		RunID:   runID,
		Config:  cfg,
		Context: shared,
		Log:     log.With("stage", stage.Name),
	})
	cancel()

	outcome := StageOutcome{Name: stage.Name, Policy: stage.Policy, Duration: time.Since(started)}
	if err != nil {
		outcome.Status = StageFailed
		outcome.Message = err.Error()
		return outcome
	}

	if err := record(stage, outputs, shared); err != nil {
		outcome.Status = StageFailed
		outcome.Message = err.Error()
		return outcome
	}

	outcome.Status = StageSucceeded
	log.Info("stage succeeded", "stage", stage.Name, "duration", outcome.Duration)
	return outcome
}

// missingNeed returns the first declared need absent from the context, or
// "" when all are present.
func missingNeed(stage Stage, shared *Context) string {
	for _, key := range stage.Needs {
		if _, ok := shared.Get(key); !ok {
			return key
		}
	}
	return ""
}

// record checks the stage's output contract and publishes the values: every
// declared key must be produced, nothing undeclared may be, and no key is
// ever written twice.
func record(stage Stage, outputs Outputs, shared *Context) error {
	declared := make(map[string]bool, len(stage.Provides))
	for _, key := range stage.Provides {
		declared[key] = true
	}
	for key := range outputs {
		if !declared[key] {
			return fmt.Errorf("stage %q produced undeclared output %q", stage.Name, key)
		}
	}
	for _, key := range stage.Provides {
		value, ok := outputs[key]
		if !ok {
			return fmt.Errorf("stage %q did not produce declared output %q", stage.Name, key)
		}
		if err := shared.set(key, value); err != nil {
			return err
		}
	}
	return nil
}
