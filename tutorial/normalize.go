package tutorial

import (
	"encoding/json"
	"fmt"
)

// systemNoiseKeys are bookkeeping arguments injected by the agent framework.
// They carry no simulation signal and are dropped unconditionally.
var systemNoiseKeys = map[string]struct{}{
	"abacus_inputs_dir": {},
	"stru_file":         {},
	"stru_type":         {},
	"job_type":          {},
	"files":             {},
	"file_format":       {},
	"step_id":           {},
	"tool_name":         {},
	"work_dir":          {},
	"out_dir":           {},
	"save_path":         {},
}

// knownDefaults maps ABACUS input keys to the solver defaults. A key whose
// value string-compares equal to its default adds nothing to the recipe and
// is dropped when the default filter is on.
var knownDefaults = map[string]any{
	"suffix":            "ABACUS",
	"calculation":       "scf",
	"basis_type":        "lcao",
	"symmetry":          1,
	"nspin":             1,
	"knorm":             0,
	"cal_force":         0,
	"cal_stress":        0,
	"esolver_type":      "ksdft",
	"smearing_method":   "gauss",
	"mixing_type":       "broyden",
	"out_chg":           0,
	"out_bandgap":       0,
	"deepks_out_labels": 0,
	"out_stru":          0,
	"start_charge":      "atomic",
}

// NormalizeArgs filters a raw tool-call argument mapping: system-noise keys
// are always dropped, booleans become 0/1 (the downstream input format has no
// boolean type), and with applyDefaultFilter each known-default key is dropped
// iff its string-coerced value equals the string-coerced default. Comparison
// is deliberately string-typed, not numeric. Non-mapping input is returned
// unchanged.
func NormalizeArgs(v any, applyDefaultFilter bool) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}

	cleaned := make(map[string]any, len(m))
	for k, val := range m {
		if _, noisy := systemNoiseKeys[k]; noisy {
			continue
		}
		if b, isBool := val.(bool); isBool {
			if b {
				val = 1
			} else {
				val = 0
			}
		}
		if applyDefaultFilter {
			if def, known := knownDefaults[k]; known && coerceString(val) == coerceString(def) {
				continue
			}
		}
		cleaned[k] = val
	}
	return cleaned
}

// coerceString renders a value the way the default table is compared:
// json.Number keeps its source formatting, so "1.0" stays distinct from "1".
func coerceString(v any) string {
	switch t := v.(type) {
	case json.Number:
		return t.String()
	case string:
		return t
	default:
		return fmt.Sprint(v)
	}
}
