package secrets

import (
	"bytes"
	"encoding/base64"
	"slices"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestSecretManifest(t *testing.T) {
	ref := Ref{Namespace: "billing", Name: "billing-secrets"}
	bundle := newBundle("billing/prod", map[string]string{"DB_PASSWORD": "hunter2"})

	manifest, err := secretManifest(ref, bundle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed struct {
		APIVersion string `yaml:"apiVersion"`
		Kind       string `yaml:"kind"`
		Metadata   struct {
			Name      string `yaml:"name"`
			Namespace string `yaml:"namespace"`
		} `yaml:"metadata"`
		Type string            `yaml:"type"`
		Data map[string]string `yaml:"data"`
	}
	if err := yaml.Unmarshal(manifest, &parsed); err != nil {
		t.Fatalf("manifest is not valid YAML: %v", err)
	}
	if parsed.Kind != "Secret" || parsed.APIVersion != "v1" {
		t.Errorf("expected v1 Secret, got %s %s", parsed.APIVersion, parsed.Kind)
	}
	if parsed.Metadata.Name != "billing-secrets" || parsed.Metadata.Namespace != "billing" {
		t.Errorf("unexpected metadata: %+v", parsed.Metadata)
	}
	want := base64.StdEncoding.EncodeToString([]byte("hunter2"))
	if parsed.Data["DB_PASSWORD"] != want {
		t.Errorf("expected base64 value %q, got %q", want, parsed.Data["DB_PASSWORD"])
	}
	if bytes.Contains(manifest, []byte("hunter2")) {
		t.Error("manifest contains raw secret value")
	}
}

func TestKubectlTarget_GlobalArgs(t *testing.T) {
	target := &KubectlTarget{}
	if got := target.globalArgs(); len(got) != 0 {
		t.Errorf("expected no args, got %v", got)
	}

	target = &KubectlTarget{Kubeconfig: "/home/ci/kubeconfig", Context: "uat"}
	want := []string{"--kubeconfig", "/home/ci/kubeconfig", "--context", "uat"}
	if got := target.globalArgs(); !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}
