package stages

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// HelmDeployer rolls the release out with `helm upgrade --install` and can
// preview what a deploy would apply with `helm template`.
type HelmDeployer struct {
	// Release names the helm release, normally the service name.
	Release string
	// Dir is the working directory helm runs from.
	Dir        string
	Kubeconfig string
	// Wait blocks until the rollout completes.
	Wait bool
	// Timeout is passed to helm as --timeout when set.
	Timeout time.Duration
}

func (d *HelmDeployer) Deploy(ctx context.Context, chart, valuesFile, namespace string) (string, error) {
	if d.Release == "" {
		return "", errors.New("release name is empty")
	}

	args := []string{"upgrade", "--install", d.Release, chart}
	if namespace != "" {
		args = append(args, "--namespace", namespace)
	}
	if valuesFile != "" {
		args = append(args, "--values", valuesFile)
	}
	if d.Kubeconfig != "" {
		args = append(args, "--kubeconfig", d.Kubeconfig)
	}
	if d.Wait {
		args = append(args, "--wait")
	}
	if d.Timeout > 0 {
		args = append(args, "--timeout", d.Timeout.String())
	}

	if _, err := d.run(ctx, args); err != nil {
		return "", fmt.Errorf("helm upgrade failed: %w", err)
	}
	return "deployed", nil
}

// Preview renders the chart without touching the cluster and summarizes the
// manifests a deploy would apply.
func (d *HelmDeployer) Preview(ctx context.Context, chart, valuesFile, namespace string) ([]ManifestInfo, error) {
	if d.Release == "" {
		return nil, errors.New("release name is empty")
	}

	args := []string{"template", d.Release, chart}
	if namespace != "" {
		args = append(args, "--namespace", namespace)
	}
	if valuesFile != "" {
		args = append(args, "--values", valuesFile)
	}

	out, err := d.run(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("helm template failed: %w", err)
	}
	return parseManifests(out)
}

func (d *HelmDeployer) run(ctx context.Context, args []string) ([]byte, error) {
	if _, err := exec.LookPath("helm"); err != nil {
		return nil, fmt.Errorf("helm executable not found: %w", err)
	}

	cmd := exec.CommandContext(ctx, "helm", args...)
	cmd.Dir = d.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w\nstderr: %s", err, stderr.String())
	}
	return stdout.Bytes(), nil
}
