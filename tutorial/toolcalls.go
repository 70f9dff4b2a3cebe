package tutorial

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// toolKind is the closed set of simulation actions the extractor understands.
type toolKind int

const (
	kindOther toolKind = iota
	kindStructureGen
	kindRelax
	kindRun
	kindBand
	kindPrepare
)

type toolRoute struct {
	kind  toolKind
	label string
}

// toolRoutes maps tool names to their kind and physics-step label. Unknown
// tools stay kindOther and contribute nothing to the view.
var toolRoutes = map[string]toolRoute{
	"generate_bulk_structure": {kind: kindStructureGen, label: "Structure Generation"},
	"abacus_do_relax":         {kind: kindRelax, label: "Geometry Optimization"},
	"run_abacus":              {kind: kindRun, label: "Self-Consistent Field"},
	"abacus_cal_band":         {kind: kindBand, label: "Band Structure Calculation"},
	"abacus_prepare":          {kind: kindPrepare, label: "Input Preparation"},
}

// kpointKeys route to the KPoint group; every other surviving key goes to
// Input.
var kpointKeys = map[string]struct{}{
	"kspacing":   {},
	"kpath":      {},
	"k_points":   {},
	"gamma_only": {},
}

// parseToolCalls rebuilds the simulated input file from a call-id → ToolCall
// mapping. Calls apply in ascending lexicographic call-id order, the only
// temporal signal the producing system preserves. Any decode failure returns
// an error and callers substitute an all-empty view.
func parseToolCalls(data []byte) (SimulatedFileView, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var calls map[string]ToolCall
	if err := dec.Decode(&calls); err != nil {
		return SimulatedFileView{}, fmt.Errorf("parseToolCalls: %w", err)
	}

	ids := make([]string, 0, len(calls))
	for id := range calls {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var view SimulatedFileView
	for _, id := range ids {
		applyToolCall(&view, calls[id])
	}
	return view, nil
}

func applyToolCall(view *SimulatedFileView, call ToolCall) {
	route, known := toolRoutes[call.Name]
	if !known {
		return
	}
	view.PhysicsSteps = append(view.PhysicsSteps, route.label)

	switch route.kind {
	case kindStructureGen:
		source := any(call.Args)
		if len(call.Result) > 0 {
			source = any(call.Result)
		}
		mergeInto(&view.Structure, normalizedParams(source))
	case kindPrepare:
		source := any(call.Args)
		if inner, ok := call.Result["input_content"].(map[string]any); ok && len(inner) > 0 {
			source = any(inner)
		}
		routeParams(view, normalizedParams(source))
	case kindRelax, kindRun, kindBand:
		routeParams(view, normalizedParams(any(call.Args)))
	}
}

func normalizedParams(v any) map[string]any {
	m, _ := NormalizeArgs(v, true).(map[string]any)
	return m
}

func routeParams(view *SimulatedFileView, params map[string]any) {
	for k, v := range params {
		if _, kpoint := kpointKeys[k]; kpoint {
			setParam(&view.KPoint, k, v)
		} else {
			setParam(&view.Input, k, v)
		}
	}
}

func mergeInto(dst *map[string]any, src map[string]any) {
	for k, v := range src {
		setParam(dst, k, v)
	}
}

func setParam(dst *map[string]any, k string, v any) {
	if *dst == nil {
		*dst = make(map[string]any)
	}
	(*dst)[k] = v
}
