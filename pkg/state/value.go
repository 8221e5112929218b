package state

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Comparison selects how two field values are compared.
type Comparison string

// Comparison modes.
const (
	CompareScalar  Comparison = "scalar"
	CompareSet     Comparison = "set"
	CompareOrdered Comparison = "ordered"
)

// Normalize converts decoded YAML and JSON values into one canonical shape:
// integers become int64 (integral floats included), typed slices and maps
// become []any and map[string]any.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil, bool, string, int64:
		return t
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		if t <= math.MaxInt64 {
			return int64(t)
		}
		return float64(t)
	case float32:
		return normalizeFloat(float64(t))
	case float64:
		return normalizeFloat(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Normalize(e)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Normalize(e)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = e
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = Normalize(e)
		}
		return out
	default:
		return t
	}
}

func normalizeFloat(f float64) any {
	if f == math.Trunc(f) && f >= math.MinInt64 && f <= math.MaxInt64 {
		return int64(f)
	}
	return f
}

// Clone deep-copies a normalized value.
func Clone(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Clone(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Clone(e)
		}
		return out
	default:
		return t
	}
}

// Equal compares two values under the given comparison mode. Set comparison
// ignores order and duplicates; it only differs from ordered comparison for
// list values.
func Equal(desired, remote any, mode Comparison) bool {
	a, b := Normalize(desired), Normalize(remote)
	if isEmpty(a) && isEmpty(b) {
		return true
	}
	if mode == CompareSet {
		a, b = canonicalSet(a), canonicalSet(b)
		return cmp.Equal(a, b, cmpopts.SortSlices(lessValue), cmpopts.EquateEmpty())
	}
	return cmp.Equal(a, b, cmpopts.EquateEmpty())
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

func canonicalSet(v any) any {
	list, ok := v.([]any)
	if !ok {
		return v
	}
	out := make([]any, 0, len(list))
	for _, e := range list {
		if !slices.ContainsFunc(out, func(x any) bool { return cmp.Equal(x, e) }) {
			out = append(out, e)
		}
	}
	return out
}

func lessValue(a, b any) bool {
	return fmt.Sprintf("%T:%v", a, a) < fmt.Sprintf("%T:%v", b, b)
}

// SortedStrings returns the string members of a list value, sorted. Non-string
// members are formatted with fmt.
func SortedStrings(v any) []string {
	list, ok := Normalize(v).([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		if s, ok := e.(string); ok {
			out = append(out, s)
		} else {
			out = append(out, fmt.Sprint(e))
		}
	}
	sort.Strings(out)
	return slices.Compact(out)
}
