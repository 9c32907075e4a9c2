package controlplane

// MergeEffectiveConfig computes Instance.effective_config exactly as I8
// requires: start with the offering version's defaults, set "limits" from
// the plan, then shallow-merge overrides (last write wins per top-level
// key). Deep merge is explicitly not required.
func MergeEffectiveConfig(defaults map[string]any, limits map[string]any, overrides map[string]any) map[string]any {
	out := map[string]any{}
	for k, v := range defaults {
		out[k] = v
	}
	out["limits"] = limits
	for k, v := range overrides {
		out[k] = v
	}
	return out
}
