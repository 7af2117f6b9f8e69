package pipeline

import "time"

// Status is the overall outcome of a run.
type Status string

const (
	StatusRunning        Status = "running"
	StatusSuccess        Status = "success"
	StatusFailed         Status = "failed"
	StatusFailedAdvisory Status = "failed-advisory"
	StatusCancelled      Status = "cancelled"
)

// StageStatus is the recorded outcome of a single stage.
type StageStatus string

const (
	StageSucceeded StageStatus = "succeeded"
	StageFailed    StageStatus = "failed"
	StageSkipped   StageStatus = "skipped"
)

// StageOutcome records how one stage ended.
type StageOutcome struct {
	Name     string
	Status   StageStatus
	Policy   FailurePolicy
	Duration time.Duration
	Message  string // failure diagnostic or skip reason
}

// Result is the full record of one run: every stage's outcome in execution
// order, so where and why a run stopped can be reconstructed without log
// inspection. The executor does not modify it after returning it.
type Result struct {
	RunID       string
	Service     string
	Environment string
	Status      Status
	Stages      []StageOutcome
	Started     time.Time
	Finished    time.Time
}

// Failed reports whether the run stopped short of completing its stages.
// Advisory failures do not count: the run finished, degraded.
func (r *Result) Failed() bool {
	return r.Status == StatusFailed || r.Status == StatusCancelled
}

// Outcome returns the recorded outcome for a stage name.
func (r *Result) Outcome(name string) (StageOutcome, bool) {
	for _, outcome := range r.Stages {
		if outcome.Name == name {
			return outcome, true
		}
	}
	return StageOutcome{}, false
}
