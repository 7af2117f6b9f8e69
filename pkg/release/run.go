package release

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/systemstart/shipline/pkg/api"
	"github.com/systemstart/shipline/pkg/config"
	"github.com/systemstart/shipline/pkg/logging"
	"github.com/systemstart/shipline/pkg/pipeline"
	"github.com/systemstart/shipline/pkg/stages"
)

// Options configures one pipeline run.
type Options struct {
	// SpecFile is the path to the ship.yaml file.
	SpecFile string
	// Environment selects the target environment; must be one the spec
	// declares.
	Environment string
	// Version is the release version being shipped; must parse as semver.
	Version string
	// Branch is the source branch, made available to config as `branch`.
	Branch string
	// Ref is the source revision, made available to config as `ref`.
	Ref string
	// Params are extra runtime parameters in dotted `key=value` form,
	// highest merge precedence.
	Params map[string]string
	// StageTimeout overrides the executor's default per-stage timeout.
	StageTimeout time.Duration
	// Deps overrides stage adapters, mainly for tests.
	Deps stages.Deps
}

// Run executes the full pipeline for one service in one environment. The
// environment and configuration are validated before any stage does work.
// Stage failures land in the Result; returned errors mean the run could not
// start or was misconfigured.
func Run(ctx context.Context, opts Options) (*pipeline.Result, error) {
	if opts.Version == "" {
		return nil, errors.New("version is required")
	}
	if _, err := semver.NewVersion(opts.Version); err != nil {
		return nil, fmt.Errorf("invalid version %q: %w", opts.Version, err)
	}

	spec, err := api.LoadSpec(opts.SpecFile)
	if err != nil {
		return nil, err
	}
	cfg, err := resolve(spec, opts)
	if err != nil {
		return nil, err
	}

	plan, err := pipeline.NewPlan(stages.Chain(cfg, spec, opts.Deps))
	if err != nil {
		return nil, err
	}

	executor := &pipeline.Executor{DefaultTimeout: opts.StageTimeout}
	result := executor.Run(ctx, plan, cfg)

	logSummary(result)
	return result, nil
}

// resolve turns the spec and run options into one effective configuration.
// The environment name is checked first so an unknown environment fails
// before anything else happens.
func resolve(spec *api.Spec, opts Options) (*config.Effective, error) {
	base, err := spec.BaseTree()
	if err != nil {
		return nil, err
	}

	params := make(map[string]string, len(opts.Params)+3)
	maps.Copy(params, opts.Params)
	// Reserved run parameters win over -set values of the same name.
	if opts.Version != "" {
		params["version"] = opts.Version
	}
	if opts.Branch != "" {
		params["branch"] = opts.Branch
	}
	if opts.Ref != "" {
		params["ref"] = opts.Ref
	}

	return config.Resolve(base, spec.Environments, opts.Environment, params)
}

func logSummary(result *pipeline.Result) {
	log := logging.ForRun(result.RunID, result.Service, result.Environment)

	for _, outcome := range result.Stages {
		switch outcome.Status {
		case pipeline.StageFailed:
			log.Error("stage summary", "stage", outcome.Name, "status", outcome.Status, "policy", outcome.Policy, "duration", outcome.Duration, "error", outcome.Message)
		case pipeline.StageSkipped:
			log.Info("stage summary", "stage", outcome.Name, "status", outcome.Status, "reason", outcome.Message)
		default:
			log.Info("stage summary", "stage", outcome.Name, "status", outcome.Status, "duration", outcome.Duration)
		}
	}

	duration := result.Finished.Sub(result.Started)
	switch {
	case result.Failed():
		log.Error("release failed", "status", result.Status, "duration", duration)
	case result.Status == pipeline.StatusFailedAdvisory:
		log.Warn("release finished with advisory failures", "duration", duration)
	default:
		log.Info("release succeeded", "duration", duration)
	}
}
