package release

import (
	"time"

	"github.com/systemstart/shipline/pkg/api"
	"github.com/systemstart/shipline/pkg/pipeline"
	"github.com/systemstart/shipline/pkg/stages"
)

// StagePlan describes one assembled stage without executing it.
type StagePlan struct {
	Name    string
	Policy  pipeline.FailurePolicy
	Enabled bool
	Timeout time.Duration
}

// Describe resolves the configuration and reports the stage list a run
// would execute: names, policies, enablement, timeouts. Nothing runs; a
// version is not required.
func Describe(opts Options) ([]StagePlan, error) {
	spec, err := api.LoadSpec(opts.SpecFile)
	if err != nil {
		return nil, err
	}
	cfg, err := resolve(spec, opts)
	if err != nil {
		return nil, err
	}

	chain := stages.Chain(cfg, spec, opts.Deps)
	if _, err := pipeline.NewPlan(chain); err != nil {
		return nil, err
	}

	plans := make([]StagePlan, 0, len(chain))
	for _, stage := range chain {
		plans = append(plans, StagePlan{
			Name:    stage.Name,
			Policy:  stage.Policy,
			Enabled: stage.Enabled == nil || stage.Enabled(cfg),
			Timeout: stage.Timeout,
		})
	}
	return plans, nil
}
