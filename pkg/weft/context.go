package weft

import (
	"strconv"
	"strings"
)

// TemplateData is the hierarchical context a template is rendered
// against. Values may be scalars, sequences ([]any or typed slices), or
// nested mappings (TemplateData / map[string]any). The renderer treats
// the caller-supplied root as read-only; loop iterations derive fresh
// shadowed copies and never mutate it.
type TemplateData map[string]any

// Loop-scoped synthetic bindings, visible only inside a loop body.
const (
	loopVarIndex  = "$index"
	loopVarFirst  = "$first"
	loopVarLast   = "$last"
	loopVarLength = "$length"
)

// Resolve navigates a dotted path through data. Each segment must exist
// as a mapping key or, for numeric segments, a valid sequence index. Any
// missing key, out-of-range index, or attempt to descend into a scalar
// returns ok=false; Resolve never panics.
func Resolve(data any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}

	current := data
	for _, segment := range strings.Split(path, ".") {
		if segment == "" {
			return nil, false
		}

		if value, ok := lookupKey(current, segment); ok {
			current = value
			continue
		}

		index, err := strconv.Atoi(segment)
		if err != nil {
			return nil, false
		}
		value, ok := lookupIndex(current, index)
		if !ok {
			return nil, false
		}
		current = value
	}

	return current, true
}

// lookupKey reads a mapping key from the supported mapping shapes.
func lookupKey(current any, key string) (any, bool) {
	switch v := current.(type) {
	case TemplateData:
		value, ok := v[key]
		return value, ok
	case map[string]any:
		value, ok := v[key]
		return value, ok
	case map[string]string:
		value, ok := v[key]
		return value, ok
	case map[string]int:
		value, ok := v[key]
		return value, ok
	case map[string]float64:
		value, ok := v[key]
		return value, ok
	case map[string]bool:
		value, ok := v[key]
		return value, ok
	}
	return nil, false
}

// lookupIndex reads a sequence element from the supported slice shapes.
func lookupIndex(current any, index int) (any, bool) {
	seq, err := toSequence(current)
	if err != nil {
		return nil, false
	}
	if index < 0 || index >= len(seq) {
		return nil, false
	}
	return seq[index], true
}

// toSequence converts a sequence-shaped value to []any for iteration.
// Anything that is not a sequence (scalars and mappings included) is an
// error; loops require an actual sequence.
func toSequence(value any) ([]any, error) {
	switch v := value.(type) {
	case []any:
		return v, nil
	case []string:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, nil
	case []int:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, nil
	case []float64:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, nil
	case []bool:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, nil
	case []map[string]any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, nil
	case []TemplateData:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, nil
	}
	return nil, &TypeError{Message: "value is not a sequence"}
}

// shadow returns a copy of data with the given bindings layered on top.
// The copy is shallow: nested values stay shared, which is safe because
// traversal is read-only.
func shadow(data TemplateData, bindings TemplateData) TemplateData {
	derived := make(TemplateData, len(data)+len(bindings))
	for k, v := range data {
		derived[k] = v
	}
	for k, v := range bindings {
		derived[k] = v
	}
	return derived
}
