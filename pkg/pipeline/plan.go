package pipeline

import (
	"fmt"
	"slices"
)

// Plan is a validated, ordered list of stages. Plans are built through
// NewPlan only, so executing one cannot trip over wiring mistakes.
type Plan struct {
	stages []Stage
}

// NewPlan validates stage wiring at assembly time: stage names are unique,
// no two stages declare the same output key, and every needed key is
// provided by an earlier stage. An empty failure policy defaults to Fatal.
func NewPlan(stages []Stage) (*Plan, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("plan has no stages")
	}

	stages = slices.Clone(stages)
	names := make(map[string]int)
	providers := make(map[string]string)

	for i, stage := range stages {
		if stage.Policy == "" {
			stages[i].Policy = Fatal
		}
		if stage.Name == "" {
			return nil, fmt.Errorf("stage %d: name is required", i)
		}
		if prev, exists := names[stage.Name]; exists {
			return nil, fmt.Errorf("stage %d: duplicate stage name %q (first defined at stage %d)", i, stage.Name, prev)
		}
		names[stage.Name] = i

		if stage.Run == nil {
			return nil, fmt.Errorf("stage %q: run function is required", stage.Name)
		}

		for _, need := range stage.Needs {
			if _, ok := providers[need]; !ok {
				return nil, fmt.Errorf("stage %q: needs %q, which no earlier stage provides", stage.Name, need)
			}
		}
		for _, key := range stage.Provides {
			if owner, exists := providers[key]; exists {
				return nil, fmt.Errorf("stage %q: output key %q already provided by stage %q", stage.Name, key, owner)
			}
			providers[key] = stage.Name
		}
	}

	return &Plan{stages: stages}, nil
}

// Stages returns the planned stages in execution order.
func (p *Plan) Stages() []Stage {
	return slices.Clone(p.stages)
}
