package controlplane

import (
	"reflect"
	"testing"
)

func TestMergeEffectiveConfig(t *testing.T) {
	defaults := map[string]any{"model": "gpt-4", "max_tokens": 4096}
	limits := map[string]any{"monthly_credits": int64(1000)}
	overrides := map[string]any{"max_tokens": 8192}

	got := MergeEffectiveConfig(defaults, limits, overrides)

	want := map[string]any{
		"model":      "gpt-4",
		"max_tokens": 8192,
		"limits":     limits,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MergeEffectiveConfig() = %+v, want %+v", got, want)
	}
}

func TestMergeEffectiveConfig_NoOverrides(t *testing.T) {
	defaults := map[string]any{"model": "gpt-4"}
	limits := map[string]any{"monthly_credits": int64(500)}

	got := MergeEffectiveConfig(defaults, limits, nil)

	if got["model"] != "gpt-4" {
		t.Errorf("model = %v, want gpt-4", got["model"])
	}
	if !reflect.DeepEqual(got["limits"], limits) {
		t.Errorf("limits = %+v, want %+v", got["limits"], limits)
	}
}

func TestMergeEffectiveConfig_DoesNotMutateInputs(t *testing.T) {
	defaults := map[string]any{"model": "gpt-4"}
	overrides := map[string]any{"model": "gpt-5"}

	MergeEffectiveConfig(defaults, nil, overrides)

	if defaults["model"] != "gpt-4" {
		t.Errorf("defaults mutated: model = %v", defaults["model"])
	}
}
