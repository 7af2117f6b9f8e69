package secrets

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os/exec"
	"strings"

	"gopkg.in/yaml.v3"
)

// KubectlTarget materializes secrets into a Kubernetes cluster through the
// kubectl binary. Manifests are piped over stdin so secret values never touch
// the filesystem.
type KubectlTarget struct {
	// Kubeconfig overrides the default kubeconfig path when set.
	Kubeconfig string
	// Context selects a kubeconfig context when set.
	Context string
}

func (t *KubectlTarget) Exists(ctx context.Context, ref Ref) (bool, error) {
	args := append(t.globalArgs(),
		"get", "secret", ref.Name,
		"--namespace", ref.Namespace,
		"--ignore-not-found",
		"--output", "name",
	)
	stdout, err := t.run(ctx, args, nil)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(stdout) != "", nil
}

func (t *KubectlTarget) Create(ctx context.Context, ref Ref, bundle Bundle) error {
	manifest, err := secretManifest(ref, bundle)
	if err != nil {
		return err
	}
	args := append(t.globalArgs(), "create", "--filename", "-")
	_, err = t.run(ctx, args, manifest)
	return err
}

func (t *KubectlTarget) Replace(ctx context.Context, ref Ref, bundle Bundle) error {
	manifest, err := secretManifest(ref, bundle)
	if err != nil {
		return err
	}
	args := append(t.globalArgs(), "replace", "--filename", "-")
	_, err = t.run(ctx, args, manifest)
	return err
}

func (t *KubectlTarget) globalArgs() []string {
	var args []string
	if t.Kubeconfig != "" {
		args = append(args, "--kubeconfig", t.Kubeconfig)
	}
	if t.Context != "" {
		args = append(args, "--context", t.Context)
	}
	return args
}

func (t *KubectlTarget) run(ctx context.Context, args []string, stdin []byte) (string, error) {
	if _, err := exec.LookPath("kubectl"); err != nil {
		return "", fmt.Errorf("kubectl executable not found: %w", err)
	}

	cmd := exec.CommandContext(ctx, "kubectl", args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("kubectl %s failed: %w\nstderr: %s", args[len(t.globalArgs())], err, stderr.String())
	}
	return stdout.String(), nil
}

func secretManifest(ref Ref, bundle Bundle) ([]byte, error) {
	data := make(map[string]string, len(bundle.Keys))
	for k, v := range bundle.Keys {
		data[k] = base64.StdEncoding.EncodeToString(v)
	}
	manifest := map[string]any{
		"apiVersion": "v1",
		"kind":       "Secret",
		"metadata": map[string]any{
			"name":      ref.Name,
			"namespace": ref.Namespace,
		},
		"type": "Opaque",
		"data": data,
	}
	out, err := yaml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("building secret manifest for %s: %w", ref, err)
	}
	return out, nil
}
