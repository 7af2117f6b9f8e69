package stages

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/systemstart/shipline/pkg/api"
	"github.com/systemstart/shipline/pkg/config"
	"github.com/systemstart/shipline/pkg/pipeline"
	"github.com/systemstart/shipline/pkg/secrets"
	"github.com/systemstart/shipline/pkg/values"
)

// Deps supplies the stage adapters. Nil fields fall back to the
// command-based implementations configured from the effective config.
type Deps struct {
	Builder      Builder
	Tester       Tester
	Scanner      Scanner
	Uploader     Uploader
	ImageBuilder ImageBuilder
	ImageScanner ImageScanner
	Pusher       Pusher
	Deployer     Deployer
	SecretTarget secrets.Target
	Reconciler   *secrets.Reconciler
}

// Chain assembles the default stage list for one resolved run: build, test,
// scan, upload, image, imagescan, push, secrets, deploy. Command stages are
// enabled when `<stage>.command` is configured unless `<stage>.enabled`
// says otherwise; secrets default to disabled, deploy to whether
// `deploy.chart` is set. Policies and timeouts come from the same config.
func Chain(cfg *config.Effective, spec *api.Spec, deps Deps) []pipeline.Stage {
	runner := &Runner{Dir: spec.Dir}
	tag := imageTag(cfg.String("version"))

	if deps.Builder == nil {
		deps.Builder = &CommandBuilder{
			Runner:   runner,
			Command:  cfg.String("build.command"),
			Artifact: cfg.String("build.artifact"),
		}
	}
	if deps.Tester == nil {
		deps.Tester = &CommandTester{Runner: runner, Command: cfg.String("test.command")}
	}
	if deps.Scanner == nil {
		deps.Scanner = &CommandScanner{Runner: runner, Command: cfg.String("scan.command")}
	}
	if deps.Uploader == nil {
		deps.Uploader = &CommandUploader{
			Runner:      runner,
			Command:     cfg.String("upload.command"),
			Destination: cfg.String("upload.destination"),
		}
	}
	if deps.ImageBuilder == nil {
		deps.ImageBuilder = &CommandImageBuilder{
			Runner:     runner,
			Command:    cfg.String("image.command"),
			Repository: cfg.String("image.repository"),
		}
	}
	if deps.ImageScanner == nil {
		deps.ImageScanner = &CommandImageScanner{Runner: runner, Command: cfg.String("imagescan.command")}
	}
	if deps.Pusher == nil {
		deps.Pusher = &CommandPusher{Runner: runner, Command: cfg.String("push.command")}
	}
	if deps.Deployer == nil {
		deps.Deployer = &HelmDeployer{
			Release:    cfg.String("service.name"),
			Dir:        spec.Dir,
			Kubeconfig: cfg.String("deploy.kubeconfig"),
			Wait:       cfg.BoolOr("deploy.wait", true),
			Timeout:    cfg.DurationOr("deploy.timeout", 0),
		}
	}
	if deps.Reconciler == nil {
		target := deps.SecretTarget
		if target == nil {
			target = &secrets.KubectlTarget{
				Kubeconfig: cfg.String("deploy.kubeconfig"),
				Context:    cfg.String("deploy.context"),
			}
		}
		deps.Reconciler = secrets.NewReconciler(spec.Stores, target)
	}

	testPolicy := pipeline.Fatal
	if cfg.BoolOr("test.advisory", false) {
		testPolicy = pipeline.Advisory
	}
	scanPolicy := pipeline.Fatal
	if !cfg.BoolOr("scan.blocking", true) {
		scanPolicy = pipeline.Advisory
	}
	imageScanPolicy := pipeline.Fatal
	if !cfg.BoolOr("imagescan.blocking", true) {
		imageScanPolicy = pipeline.Advisory
	}

	return []pipeline.Stage{
		{
			Name:     "build",
			Provides: []string{"build.artifact"},
			Policy:   pipeline.Fatal,
			Timeout:  cfg.DurationOr("build.timeout", 0),
			Enabled:  commandEnabled("build"),
			Run: func(ctx context.Context, sc pipeline.StageContext) (pipeline.Outputs, error) {
				artifact, err := deps.Builder.Build(ctx)
				if err != nil {
					return nil, err
				}
				sc.Log.Info("artifact built", "artifact", artifact)
				return pipeline.Outputs{"build.artifact": artifact}, nil
			},
		},
		{
			Name:     "test",
			Provides: []string{"test.passed"},
			Policy:   testPolicy,
			Timeout:  cfg.DurationOr("test.timeout", 0),
			Enabled:  commandEnabled("test"),
			Run: func(ctx context.Context, sc pipeline.StageContext) (pipeline.Outputs, error) {
				report, err := deps.Tester.Test(ctx)
				if err != nil {
					return nil, err
				}
				if report.Summary != "" {
					sc.Log.Info("tests passed", "summary", report.Summary)
				}
				return pipeline.Outputs{"test.passed": report.Passed}, nil
			},
		},
		{
			Name:     "scan",
			Provides: []string{"scan.passed"},
			Policy:   scanPolicy,
			Timeout:  cfg.DurationOr("scan.timeout", 0),
			Enabled:  commandEnabled("scan"),
			Run: func(ctx context.Context, sc pipeline.StageContext) (pipeline.Outputs, error) {
				report, err := deps.Scanner.Scan(ctx)
				if err != nil {
					return nil, err
				}
				if report.Summary != "" {
					sc.Log.Info("scan passed", "summary", report.Summary)
				}
				return pipeline.Outputs{"scan.passed": report.Passed}, nil
			},
		},
		{
			Name:     "upload",
			Needs:    []string{"build.artifact"},
			Provides: []string{"upload.location"},
			Policy:   pipeline.Fatal,
			Timeout:  cfg.DurationOr("upload.timeout", 0),
			Enabled:  commandEnabled("upload"),
			Run: func(ctx context.Context, sc pipeline.StageContext) (pipeline.Outputs, error) {
				location, err := deps.Uploader.Upload(ctx, sc.Context.String("build.artifact"))
				if err != nil {
					return nil, err
				}
				sc.Log.Info("artifact uploaded", "location", location)
				return pipeline.Outputs{"upload.location": location}, nil
			},
		},
		{
			Name:     "image",
			Provides: []string{"image.ref"},
			Policy:   pipeline.Fatal,
			Timeout:  cfg.DurationOr("image.timeout", 0),
			Enabled:  commandEnabled("image"),
			Run: func(ctx context.Context, sc pipeline.StageContext) (pipeline.Outputs, error) {
				ref, err := deps.ImageBuilder.BuildImage(ctx, tag)
				if err != nil {
					return nil, err
				}
				sc.Log.Info("image built", "ref", ref)
				return pipeline.Outputs{"image.ref": ref}, nil
			},
		},
		{
			Name:     "imagescan",
			Needs:    []string{"image.ref"},
			Provides: []string{"imagescan.passed"},
			Policy:   imageScanPolicy,
			Timeout:  cfg.DurationOr("imagescan.timeout", 0),
			Enabled:  commandEnabled("imagescan"),
			Run: func(ctx context.Context, sc pipeline.StageContext) (pipeline.Outputs, error) {
				report, err := deps.ImageScanner.ScanImage(ctx, sc.Context.String("image.ref"))
				if err != nil {
					return nil, err
				}
				if report.Summary != "" {
					sc.Log.Info("image scan passed", "summary", report.Summary)
				}
				return pipeline.Outputs{"imagescan.passed": report.Passed}, nil
			},
		},
		{
			Name:     "push",
			Needs:    []string{"image.ref"},
			Provides: []string{"push.ref"},
			Policy:   pipeline.Fatal,
			Timeout:  cfg.DurationOr("push.timeout", 0),
			Enabled:  commandEnabled("push"),
			Run: func(ctx context.Context, sc pipeline.StageContext) (pipeline.Outputs, error) {
				ref, err := deps.Pusher.Push(ctx, sc.Context.String("image.ref"))
				if err != nil {
					return nil, err
				}
				sc.Log.Info("image pushed", "ref", ref)
				return pipeline.Outputs{"push.ref": ref}, nil
			},
		},
		{
			Name:     "secrets",
			Provides: []string{"secrets.outcome"},
			Policy:   pipeline.Fatal,
			Timeout:  cfg.DurationOr("secrets.timeout", 0),
			Enabled: func(cfg *config.Effective) bool {
				return cfg.BoolOr("secrets.enabled", false)
			},
			Run: func(ctx context.Context, sc pipeline.StageContext) (pipeline.Outputs, error) {
				// Copy so the run-scoped logger never leaks across runs.
				rec := *deps.Reconciler
				rec.Log = sc.Log
				result, err := rec.Reconcile(ctx, secrets.Spec{
					Store: sc.Config.String("secrets.store"),
					Path:  sc.Config.String("secrets.path"),
					Target: secrets.Ref{
						Namespace: sc.Config.String("service.namespace"),
						Name:      sc.Config.StringOr("secrets.target", sc.Config.String("service.name")+"-secrets"),
					},
					Enabled: sc.Config.BoolOr("secrets.enabled", false),
				})
				if err != nil {
					return nil, err
				}
				return pipeline.Outputs{"secrets.outcome": string(result.Outcome)}, nil
			},
		},
		{
			Name:     "deploy",
			Provides: []string{"deploy.status"},
			Policy:   pipeline.Fatal,
			Timeout:  cfg.DurationOr("deploy.timeout", 0),
			Enabled: func(cfg *config.Effective) bool {
				return cfg.BoolOr("deploy.enabled", cfg.Has("deploy.chart"))
			},
			Run: func(ctx context.Context, sc pipeline.StageContext) (pipeline.Outputs, error) {
				status, err := runDeploy(ctx, sc, deps.Deployer, spec.Dir, tag)
				if err != nil {
					return nil, err
				}
				return pipeline.Outputs{"deploy.status": status}, nil
			},
		},
	}
}

func runDeploy(ctx context.Context, sc pipeline.StageContext, deployer Deployer, workdir, tag string) (string, error) {
	chart := sc.Config.String("deploy.chart")
	if chart == "" {
		return "", errors.New("deploy.chart is not configured")
	}
	if !filepath.IsAbs(chart) {
		chart = filepath.Join(workdir, chart)
	}

	defaults, err := values.LoadChartDefaults(chart)
	if err != nil {
		return "", err
	}
	merged, err := values.Compose(defaults, sc.Config.Sub("values"), deployFacts(sc, tag))
	if err != nil {
		return "", err
	}

	valuesFile := filepath.Join(workdir, ".shipline", fmt.Sprintf("values-%s.yaml", sc.Config.Environment()))
	if err := merged.WriteFile(valuesFile); err != nil {
		return "", err
	}

	namespace := sc.Config.String("service.namespace")
	if sc.Config.BoolOr("deploy.preview", false) {
		previewer, ok := deployer.(Previewer)
		if ok {
			infos, err := previewer.Preview(ctx, chart, valuesFile, namespace)
			if err != nil {
				return "", err
			}
			for _, info := range infos {
				sc.Log.Info("would apply", "manifest", info.String())
			}
		}
	}

	return deployer.Deploy(ctx, chart, valuesFile, namespace)
}

// deployFacts assembles the dynamic values for one rollout. Image
// coordinates are included only when an image is in play, so a chart's own
// defaults are never clobbered with empty strings.
func deployFacts(sc pipeline.StageContext, tag string) map[string]any {
	facts := map[string]any{
		"build": map[string]any{"id": sc.RunID},
	}

	repository := sc.Config.String("image.repository")
	ref := sc.Context.String("image.ref")
	if ref == "" && repository != "" && tag != "" {
		ref = repository + ":" + tag
	}
	if ref != "" {
		facts["image"] = map[string]any{
			"repository": repository,
			"tag":        tag,
			"ref":        ref,
		}
	}
	if sc.Config.Has("deploy.replicas") {
		facts["replicas"] = sc.Config.IntOr("deploy.replicas", 1)
	}
	return facts
}

// commandEnabled returns the default enablement rule for command stages:
// on when the stage's command is configured, overridable with
// `<stage>.enabled`.
func commandEnabled(name string) func(*config.Effective) bool {
	enabledKey := name + ".enabled"
	commandKey := name + ".command"
	return func(cfg *config.Effective) bool {
		return cfg.BoolOr(enabledKey, cfg.Has(commandKey))
	}
}

// imageTag derives the image tag from the release version. `+` is not a
// legal tag character, so semver build metadata is folded into `-`.
func imageTag(version string) string {
	return strings.ReplaceAll(version, "+", "-")
}
