package policy

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/IA683/AstraGPT/internal/domain"
)

func TestDefaultPolicyMapping(t *testing.T) {
	engine, err := NewEngine(context.Background())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	tests := []struct {
		tier  domain.AccessTier
		allow bool
		model string
	}{
		{domain.TierStandard, true, "gpt-3.5-turbo"},
		{domain.TierElevated, true, "gpt-4o-mini"},
		{domain.TierRejected, false, ""},
	}
	for _, tc := range tests {
		eval, err := engine.Evaluate(context.Background(), domain.PolicyInput{Tier: tc.tier})
		if err != nil {
			t.Fatalf("evaluate %s: %v", tc.tier, err)
		}
		if eval.Result.Allow != tc.allow || eval.Result.Model != tc.model {
			t.Fatalf("tier %s: got %+v", tc.tier, eval.Result)
		}
		if eval.BundleHash == "" {
			t.Fatalf("bundle hash must be set")
		}
	}
}

func TestPolicyDeterministic(t *testing.T) {
	engine, err := NewEngine(context.Background())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	input := domain.PolicyInput{Tier: domain.TierStandard}
	first, err := engine.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("evaluate first: %v", err)
	}
	second, err := engine.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("evaluate second: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected deterministic evaluation")
	}
}

func TestPolicyFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.rego")
	custom := `package astragate.access

default result = {"allow": false, "model": ""}

result = {"allow": true, "model": "custom-model"} {
	input.tier == "standard"
}
`
	if err := os.WriteFile(path, []byte(custom), 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}

	engine, err := NewEngineFromPath(context.Background(), path)
	if err != nil {
		t.Fatalf("new engine from path: %v", err)
	}
	eval, err := engine.Evaluate(context.Background(), domain.PolicyInput{Tier: domain.TierStandard})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if eval.Result.Model != "custom-model" {
		t.Fatalf("expected custom model, got %q", eval.Result.Model)
	}
	if eval.BundleHash == sha256Hex([]byte(defaultModule)) {
		t.Fatalf("custom bundle must not reuse default hash")
	}
}

func TestPolicyFromMissingPath(t *testing.T) {
	if _, err := NewEngineFromPath(context.Background(), filepath.Join(t.TempDir(), "absent.rego")); err == nil {
		t.Fatalf("expected error for missing policy file")
	}
}
