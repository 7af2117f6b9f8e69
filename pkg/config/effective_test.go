package config

import (
	"testing"
	"time"
)

func testEffective(t *testing.T) *Effective {
	t.Helper()
	tree, err := MergeLayers(map[string]any{
		"service": map[string]any{"name": "billing"},
		"deploy": map[string]any{
			"wait":    true,
			"timeout": "90s",
			"values":  map[string]any{"replicas": 3},
		},
		"tags":  []any{"a", "b"},
		"count": 7,
	})
	if err != nil {
		t.Fatalf("MergeLayers: %v", err)
	}
	return &Effective{environment: "dev", tree: tree}
}

func TestEffectiveGetters(t *testing.T) {
	cfg := testEffective(t)

	if got := cfg.String("service.name"); got != "billing" {
		t.Errorf("String = %q, want billing", got)
	}
	if got := cfg.StringOr("service.owner", "unowned"); got != "unowned" {
		t.Errorf("StringOr fallback = %q, want unowned", got)
	}
	if !cfg.BoolOr("deploy.wait", false) {
		t.Error("BoolOr(deploy.wait) = false, want true")
	}
	if got := cfg.IntOr("count", 0); got != 7 {
		t.Errorf("IntOr = %d, want 7", got)
	}
	if got := cfg.DurationOr("deploy.timeout", time.Minute); got != 90*time.Second {
		t.Errorf("DurationOr = %v, want 90s", got)
	}
	if got := cfg.DurationOr("deploy.grace", time.Minute); got != time.Minute {
		t.Errorf("DurationOr fallback = %v, want 1m", got)
	}
	if got := cfg.Strings("tags"); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Strings = %v, want [a b]", got)
	}
	if !cfg.Has("deploy.values.replicas") {
		t.Error("Has(deploy.values.replicas) = false, want true")
	}
	if cfg.Has("deploy.wait.nested") {
		t.Error("Has through a scalar should report false")
	}
}

func TestEffectiveSubIsolated(t *testing.T) {
	cfg := testEffective(t)

	sub := cfg.Sub("deploy.values")
	if sub["replicas"] != 3 {
		t.Fatalf("Sub = %v, want replicas 3", sub)
	}

	sub["replicas"] = 99
	if got := cfg.IntOr("deploy.values.replicas", 0); got != 3 {
		t.Errorf("mutating Sub result changed the configuration: replicas = %d", got)
	}
}

func TestEffectiveSubAbsent(t *testing.T) {
	cfg := testEffective(t)

	if got := cfg.Sub("no.such.path"); len(got) != 0 {
		t.Errorf("Sub of absent path = %v, want empty", got)
	}
	if got := cfg.Sub("count"); len(got) != 0 {
		t.Errorf("Sub of scalar = %v, want empty", got)
	}
}

func TestEffectiveTreeIsolated(t *testing.T) {
	cfg := testEffective(t)

	tree := cfg.Tree()
	tree["service"].(map[string]any)["name"] = "tampered"

	if got := cfg.String("service.name"); got != "billing" {
		t.Errorf("mutating Tree result changed the configuration: service.name = %q", got)
	}
}
