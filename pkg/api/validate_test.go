package api

import (
	"strings"
	"testing"
)

func validSpec() *Spec {
	return &Spec{
		Service: ServiceConfig{Name: "billing"},
		Environments: map[string]map[string]any{
			"dev":  {},
			"prod": {},
		},
		Stores: []StoreConfig{
			{Name: "team-vault", Type: StoreTypeSSM},
		},
	}
}

func TestSpecValidate_Valid(t *testing.T) {
	if err := validSpec().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSpecValidate_NoEnvironments(t *testing.T) {
	s := validSpec()
	s.Environments = nil

	err := s.Validate()
	if err == nil || !strings.Contains(err.Error(), "no environments") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSpecValidate_BadEnvironmentName(t *testing.T) {
	tests := []struct {
		name string
		env  string
	}{
		{"empty", "  "},
		{"slash", "pr/od"},
		{"space", "pr od"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSpec()
			s.Environments[tt.env] = map[string]any{}

			if err := s.Validate(); err == nil {
				t.Fatalf("expected error for environment name %q", tt.env)
			}
		})
	}
}

func TestSpecValidate_Stores(t *testing.T) {
	tests := []struct {
		name    string
		stores  []StoreConfig
		wantErr string
	}{
		{
			"missing name",
			[]StoreConfig{{Type: StoreTypeRedis}},
			"name is required",
		},
		{
			"missing type",
			[]StoreConfig{{Name: "cache"}},
			"type is required",
		},
		{
			"duplicate name",
			[]StoreConfig{{Name: "cache", Type: StoreTypeRedis}, {Name: "cache", Type: StoreTypeFile}},
			"duplicate store name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSpec()
			s.Stores = tt.stores

			err := s.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestBatchValidate(t *testing.T) {
	tests := []struct {
		name    string
		batch   Batch
		wantErr string
	}{
		{
			"valid",
			Batch{Targets: []BatchTarget{
				{Spec: "services/billing/ship.yaml", Environments: []string{"dev", "prod"}},
				{Spec: "services/web/ship.yaml", Environments: []string{"dev"}},
			}},
			"",
		},
		{
			"no targets",
			Batch{},
			"no targets",
		},
		{
			"missing spec",
			Batch{Targets: []BatchTarget{{Environments: []string{"dev"}}}},
			"spec is required",
		},
		{
			"no environments",
			Batch{Targets: []BatchTarget{{Spec: "ship.yaml"}}},
			"environments list is empty",
		},
		{
			"duplicate pair",
			Batch{Targets: []BatchTarget{
				{Spec: "ship.yaml", Environments: []string{"dev", "dev"}},
			}},
			"duplicate environment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.batch.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want to contain %q", err, tt.wantErr)
			}
		})
	}
}
