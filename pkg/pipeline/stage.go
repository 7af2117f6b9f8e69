package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/systemstart/shipline/pkg/config"
)

// FailurePolicy controls whether a stage failure aborts the run.
type FailurePolicy string

const (
	// Fatal failures abort the run; remaining stages are skipped.
	Fatal FailurePolicy = "fatal"
	// Advisory failures are recorded and the run continues.
	Advisory FailurePolicy = "advisory"
)

// Outputs holds the context values a stage produced, keyed by its declared
// output names.
type Outputs map[string]any

// StageContext provides the runtime context for a stage: the run identity,
// the effective configuration, the shared key context holding earlier
// outputs, and a run-scoped logger.
type StageContext struct {
	RunID   string
	Config  *config.Effective
	Context *Context
	Log     *slog.Logger
}

// RunFunc does the work of one stage.
type RunFunc func(ctx context.Context, sc StageContext) (Outputs, error)

// Stage describes one unit of pipeline work.
type Stage struct {
	Name     string
	Needs    []string // context keys read by Run, produced by earlier stages
	Provides []string // context keys Run must produce on success
	Policy   FailurePolicy
	Timeout  time.Duration                // 0 means the executor default
	Enabled  func(*config.Effective) bool // nil means always enabled
	Run      RunFunc
}
