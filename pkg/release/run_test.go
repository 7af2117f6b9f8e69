package release

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/systemstart/shipline/pkg/config"
	"github.com/systemstart/shipline/pkg/pipeline"
	"github.com/systemstart/shipline/pkg/secrets"
	"github.com/systemstart/shipline/pkg/stages"
)

// writeSpecFile writes a ship.yaml into a fresh directory and returns its
// path.
func writeSpecFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ship.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalSpec = `service:
  name: billing
  repo: git@example.com:team/billing.git
  namespace: team-a
defaults:
  build:
    command: "printf data > app.bin"
    artifact: app.bin
  test:
    command: "echo 12 passed"
environments:
  dev: {}
  prod:
    test:
      advisory: true
`

func TestRun_Success(t *testing.T) {
	specFile := writeSpecFile(t, minimalSpec)

	result, err := Run(context.Background(), Options{
		SpecFile:    specFile,
		Environment: "dev",
		Version:     "1.2.0",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != pipeline.StatusSuccess {
		t.Fatalf("expected success, got %s: %+v", result.Status, result.Stages)
	}
	if result.RunID == "" {
		t.Error("result has no run ID")
	}

	for _, name := range []string{"build", "test"} {
		outcome, ok := result.Outcome(name)
		if !ok || outcome.Status != pipeline.StageSucceeded {
			t.Errorf("expected %s to succeed, got %+v", name, outcome)
		}
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(specFile), "app.bin")); err != nil {
		t.Errorf("expected build artifact in spec directory: %v", err)
	}
}

func TestRun_UnknownEnvironmentFailsBeforeStages(t *testing.T) {
	specFile := writeSpecFile(t, minimalSpec)

	_, err := Run(context.Background(), Options{
		SpecFile:    specFile,
		Environment: "staging",
		Version:     "1.2.0",
	})
	if !errors.Is(err, config.ErrUnknownEnvironment) {
		t.Fatalf("expected ErrUnknownEnvironment, got %v", err)
	}

	// The build command never ran.
	if _, err := os.Stat(filepath.Join(filepath.Dir(specFile), "app.bin")); !errors.Is(err, os.ErrNotExist) {
		t.Error("build ran despite the unknown environment")
	}
}

func TestRun_RequiresValidVersion(t *testing.T) {
	specFile := writeSpecFile(t, minimalSpec)

	_, err := Run(context.Background(), Options{SpecFile: specFile, Environment: "dev"})
	if err == nil || !strings.Contains(err.Error(), "version is required") {
		t.Errorf("expected missing version error, got %v", err)
	}

	_, err = Run(context.Background(), Options{
		SpecFile:    specFile,
		Environment: "dev",
		Version:     "not-a-version",
	})
	if err == nil || !strings.Contains(err.Error(), "invalid version") {
		t.Errorf("expected invalid version error, got %v", err)
	}
}

func TestRun_AdvisoryThenFatalScenario(t *testing.T) {
	specFile := writeSpecFile(t, `service:
  name: billing
  repo: git@example.com:team/billing.git
  namespace: team-a
defaults:
  build:
    command: "printf data > app.bin"
    artifact: app.bin
  test:
    command: "echo 3 tests failed >&2; exit 1"
    advisory: true
  scan:
    command: "echo critical finding >&2; exit 2"
  secrets:
    enabled: true
    store: mem
    path: billing/dev
  deploy:
    chart: chart
stores:
  - name: mem
    type: memory
    options:
      data:
        billing/dev:
          DB_PASSWORD: hunter2
environments:
  dev: {}
`)

	target := secrets.NewMemoryTarget()
	result, err := Run(context.Background(), Options{
		SpecFile:    specFile,
		Environment: "dev",
		Version:     "1.2.0",
		Deps:        stages.Deps{SecretTarget: target},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != pipeline.StatusFailed {
		t.Fatalf("expected failed, got %s: %+v", result.Status, result.Stages)
	}

	wantStatuses := map[string]pipeline.StageStatus{
		"build":   pipeline.StageSucceeded,
		"test":    pipeline.StageFailed,
		"scan":    pipeline.StageFailed,
		"secrets": pipeline.StageSkipped,
		"deploy":  pipeline.StageSkipped,
	}
	for name, want := range wantStatuses {
		outcome, ok := result.Outcome(name)
		if !ok {
			t.Fatalf("stage %s missing from result", name)
		}
		if outcome.Status != want {
			t.Errorf("stage %s status = %q, want %q", name, outcome.Status, want)
		}
	}

	if outcome, _ := result.Outcome("test"); outcome.Policy != pipeline.Advisory {
		t.Errorf("test policy = %q, want advisory", outcome.Policy)
	}
	if outcome, _ := result.Outcome("secrets"); outcome.Message != "earlier stage failed" {
		t.Errorf("secrets skip message = %q", outcome.Message)
	}
	if target.Creates != 0 || target.Replaces != 0 {
		t.Error("secrets were reconciled despite the fatal scan failure")
	}
}

func TestRun_AdvisoryFailureAlone(t *testing.T) {
	specFile := writeSpecFile(t, `service:
  name: billing
  repo: git@example.com:team/billing.git
  namespace: team-a
defaults:
  build:
    command: "printf data > app.bin"
    artifact: app.bin
  test:
    command: "exit 1"
    advisory: true
  scan:
    command: "echo clean"
environments:
  dev: {}
`)

	result, err := Run(context.Background(), Options{
		SpecFile:    specFile,
		Environment: "dev",
		Version:     "1.2.0",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != pipeline.StatusFailedAdvisory {
		t.Fatalf("expected failed-advisory, got %s", result.Status)
	}
	if result.Failed() {
		t.Error("advisory-only failure should not count as a failed run")
	}
	if outcome, _ := result.Outcome("scan"); outcome.Status != pipeline.StageSucceeded {
		t.Errorf("scan should still run after an advisory failure, got %+v", outcome)
	}
}

func TestRun_ParamsOverrideConfig(t *testing.T) {
	specFile := writeSpecFile(t, `service:
  name: billing
  repo: git@example.com:team/billing.git
  namespace: team-a
defaults:
  test:
    command: "exit 1"
environments:
  dev: {}
`)

	result, err := Run(context.Background(), Options{
		SpecFile:    specFile,
		Environment: "dev",
		Version:     "1.2.0",
		Params:      map[string]string{"test.command": "true"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != pipeline.StatusSuccess {
		t.Fatalf("expected success after param override, got %s: %+v", result.Status, result.Stages)
	}
}

func TestRun_BranchParamInterpolates(t *testing.T) {
	specFile := writeSpecFile(t, `service:
  name: billing
  repo: git@example.com:team/billing.git
  namespace: team-a
defaults:
  build:
    command: "printf data > app.bin"
    artifact: app.bin
  upload:
    command: "test \"$SHIPLINE_DESTINATION\" = s3://artifacts/main/app.bin"
    destination: "s3://artifacts/{{ .branch }}/app.bin"
environments:
  dev: {}
`)

	result, err := Run(context.Background(), Options{
		SpecFile:    specFile,
		Environment: "dev",
		Version:     "1.2.0",
		Branch:      "main",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != pipeline.StatusSuccess {
		t.Fatalf("expected success, got %s: %+v", result.Status, result.Stages)
	}
	if outcome, _ := result.Outcome("upload"); outcome.Status != pipeline.StageSucceeded {
		t.Errorf("expected upload to succeed with interpolated destination, got %+v", outcome)
	}
}

func TestRun_ConcurrentRunsAreIsolated(t *testing.T) {
	specA := writeSpecFile(t, strings.Replace(minimalSpec, "printf data", "printf A", 1))
	specB := writeSpecFile(t, strings.Replace(minimalSpec, "printf data", "printf B", 1))

	var wg sync.WaitGroup
	results := make([]*pipeline.Result, 2)
	errs := make([]error, 2)

	for i, specFile := range []string{specA, specB} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = Run(context.Background(), Options{
				SpecFile:    specFile,
				Environment: "dev",
				Version:     "1.2.0",
			})
		}()
	}
	wg.Wait()

	for i := range results {
		if errs[i] != nil {
			t.Fatalf("run %d: unexpected error: %v", i, errs[i])
		}
		if results[i].Status != pipeline.StatusSuccess {
			t.Fatalf("run %d: expected success, got %s", i, results[i].Status)
		}
	}
	if results[0].RunID == results[1].RunID {
		t.Error("concurrent runs share a run ID")
	}

	a, err := os.ReadFile(filepath.Join(filepath.Dir(specA), "app.bin"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(filepath.Join(filepath.Dir(specB), "app.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != "A" || string(b) != "B" {
		t.Errorf("runs interfered with each other: %q, %q", a, b)
	}
}
