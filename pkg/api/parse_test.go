package api

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSpec(t *testing.T, dir, content string) string {
	t.Helper()
	f := filepath.Join(dir, DefaultSpecFilename)
	if err := os.WriteFile(f, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return f
}

func TestLoadSpec_Valid(t *testing.T) {
	content := `
service:
  name: billing
  repo: git@example.com:team/billing.git
  namespace: team-a
defaults:
  build:
    command: make build
environments:
  dev: {}
  prod:
    build:
      command: make release
stores:
  - name: team-vault
    type: aws-ssm
    options:
      region: eu-central-1
`
	dir := t.TempDir()
	f := writeSpec(t, dir, content)

	s, err := LoadSpec(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.Service.Name != "billing" {
		t.Fatalf("expected service name billing, got %q", s.Service.Name)
	}
	if s.Dir != dir {
		t.Fatalf("expected Dir=%q, got %q", dir, s.Dir)
	}
	if len(s.Environments) != 2 {
		t.Fatalf("expected 2 environments, got %d", len(s.Environments))
	}
	if s.Environments["dev"] == nil {
		t.Fatal("empty inline environment should normalize to an empty map")
	}
	if len(s.Stores) != 1 || s.Stores[0].Type != StoreTypeSSM {
		t.Fatalf("unexpected stores: %+v", s.Stores)
	}
}

func TestLoadSpec_OverlayFiles(t *testing.T) {
	content := `
service:
  name: billing
environments:
  dev: {}
`
	dir := t.TempDir()
	f := writeSpec(t, dir, content)

	envDir := filepath.Join(dir, "environments")
	if err := os.MkdirAll(envDir, 0o750); err != nil {
		t.Fatal(err)
	}
	overlay := "deploy:\n  values:\n    replicas: 3\n"
	if err := os.WriteFile(filepath.Join(envDir, "prod.yaml"), []byte(overlay), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := LoadSpec(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prod, ok := s.Environments["prod"]
	if !ok {
		t.Fatalf("expected prod environment from overlay file, got %v", s.Environments)
	}
	deploy, ok := prod["deploy"].(map[string]any)
	if !ok {
		t.Fatalf("expected deploy subtree in prod overlay, got %v", prod)
	}
	if deploy["values"].(map[string]any)["replicas"] != 3 {
		t.Fatalf("unexpected overlay content: %v", deploy)
	}
}

func TestLoadSpec_OverlayCollision(t *testing.T) {
	content := `
environments:
  prod: {}
`
	dir := t.TempDir()
	f := writeSpec(t, dir, content)

	envDir := filepath.Join(dir, "environments")
	if err := os.MkdirAll(envDir, 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(envDir, "prod.yaml"), []byte("a: 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := LoadSpec(f)
	if err == nil {
		t.Fatal("expected error for environment defined inline and as a file")
	}
	if !strings.Contains(err.Error(), "defined both inline") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadSpec_FileNotFound(t *testing.T) {
	_, err := LoadSpec("/nonexistent/ship.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "reading spec file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadSpec_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	f := writeSpec(t, dir, "{{invalid")

	_, err := LoadSpec(f)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "parsing spec file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadSpec_ValidationFails(t *testing.T) {
	dir := t.TempDir()
	f := writeSpec(t, dir, "service:\n  name: billing\n")

	_, err := LoadSpec(f)
	if err == nil {
		t.Fatal("expected validation error for a spec without environments")
	}
	if !strings.Contains(err.Error(), "validating spec") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBaseTree(t *testing.T) {
	s := &Spec{
		Service: ServiceConfig{Name: "billing", Repo: "git@example.com:team/billing.git", Namespace: "team-a"},
		Defaults: map[string]any{
			"service":  map[string]any{"owner": "platform"},
			"replicas": 1,
		},
	}

	tree, err := s.BaseTree()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	svc, ok := tree["service"].(map[string]any)
	if !ok {
		t.Fatalf("expected service subtree, got %v", tree)
	}
	if svc["name"] != "billing" {
		t.Fatalf("expected service.name billing, got %v", svc["name"])
	}
	if svc["owner"] != "platform" {
		t.Fatal("service identity must not discard sibling keys from defaults")
	}
	if tree["replicas"] != 1 {
		t.Fatalf("expected replicas 1, got %v", tree["replicas"])
	}
}
