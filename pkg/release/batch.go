package release

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/systemstart/shipline/pkg/api"
)

// RunBatch executes every spec/environment combination in a targets file as
// fully isolated sequential runs. Relative spec paths are resolved against
// the targets file's directory. Failures are collected; the batch keeps
// going so one broken target does not shadow the rest.
func RunBatch(ctx context.Context, batchFile string, opts Options) error {
	batch, err := api.LoadBatch(batchFile)
	if err != nil {
		return err
	}
	baseDir := filepath.Dir(batchFile)

	var failed []string
	for _, target := range batch.Targets {
		specFile := target.Spec
		if !filepath.IsAbs(specFile) {
			specFile = filepath.Join(baseDir, specFile)
		}

		for _, environment := range target.Environments {
			name := fmt.Sprintf("%s:%s", target.Spec, environment)
			if ctx.Err() != nil {
				failed = append(failed, name)
				continue
			}

			slog.Info("processing batch target", "spec", target.Spec, "environment", environment)

			runOpts := opts
			runOpts.SpecFile = specFile
			runOpts.Environment = environment

			result, err := Run(ctx, runOpts)
			if err != nil {
				slog.Error("batch target failed", "spec", target.Spec, "environment", environment, "error", err)
				failed = append(failed, name)
				continue
			}
			if result.Failed() {
				failed = append(failed, name)
			}
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d run(s) failed: %v", len(failed), failed)
	}
	return nil
}
