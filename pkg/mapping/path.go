package mapping

import (
	"fmt"
	"strings"
)

// Extract walks a dot-separated path through a decoded payload. A "[]"
// segment maps the rest of the path over a list. The empty path returns the
// payload itself.
func Extract(payload any, path string) (any, bool) {
	if path == "" {
		return payload, payload != nil
	}
	return extract(payload, strings.Split(path, "."))
}

func extract(v any, segs []string) (any, bool) {
	if len(segs) == 0 {
		return v, v != nil
	}
	seg := segs[0]
	if seg == "[]" {
		list, ok := v.([]any)
		if !ok {
			return nil, false
		}
		out := make([]any, 0, len(list))
		for _, e := range list {
			if x, ok := extract(e, segs[1:]); ok {
				out = append(out, x)
			}
		}
		return out, true
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	next, ok := m[seg]
	if !ok {
		return nil, false
	}
	return extract(next, segs[1:])
}

// Inject sets value at a dot-separated path, creating intermediate objects.
// Intermediate values that are not objects are replaced.
func Inject(payload map[string]any, path string, value any) error {
	if path == "" {
		obj, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("cannot inject %T at the payload root", value)
		}
		for k, v := range obj {
			payload[k] = v
		}
		return nil
	}
	segs := strings.Split(path, ".")
	cur := payload
	for _, seg := range segs[:len(segs)-1] {
		if seg == "[]" {
			return fmt.Errorf("cannot inject through list segment in %q", path)
		}
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[seg] = next
		}
		cur = next
	}
	last := segs[len(segs)-1]
	if last == "[]" {
		return fmt.Errorf("cannot inject through list segment in %q", path)
	}
	cur[last] = value
	return nil
}

// Merge deep-merges src into dst. Objects merge key by key; everything else
// in src replaces what dst holds.
func Merge(dst, src map[string]any) {
	for k, v := range src {
		if sm, ok := v.(map[string]any); ok {
			if dm, ok := dst[k].(map[string]any); ok {
				Merge(dm, sm)
				continue
			}
			cp := make(map[string]any, len(sm))
			Merge(cp, sm)
			dst[k] = cp
			continue
		}
		dst[k] = v
	}
}

// Pick returns the first element of a list payload whose value at sel.Path
// equals the expanded sel.Equals.
func Pick(payload any, sel *Select, values map[string]string) (any, bool, error) {
	if sel == nil {
		return payload, payload != nil, nil
	}
	want, err := Expand(sel.Equals, values, false)
	if err != nil {
		return nil, false, err
	}
	list, ok := payload.([]any)
	if !ok {
		return nil, false, nil
	}
	for _, item := range list {
		got, ok := Extract(item, sel.Path)
		if ok && fmt.Sprint(got) == want {
			return item, true, nil
		}
	}
	return nil, false, nil
}
