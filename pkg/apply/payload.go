package apply

import (
	"fmt"
	"maps"
	"slices"

	"github.com/agentstation/orgsync/pkg/mapping"
	"github.com/agentstation/orgsync/pkg/state"
)

// template expands a static payload tree into a fresh object.
func template(tree map[string]any, keys map[string]string) (map[string]any, error) {
	v, err := mapping.ExpandTree(tree, keys)
	if err != nil {
		return nil, err
	}
	out, ok := v.(map[string]any)
	if !ok || out == nil {
		return map[string]any{}, nil
	}
	return out, nil
}

// inject encodes value through entry's codec and sets it at the entry's
// write path.
func inject(payload map[string]any, entry mapping.Entry, value any) error {
	encoded, err := entry.Encode(value)
	if err != nil {
		return fmt.Errorf("%s: %w", entry.Key, err)
	}
	return mapping.Inject(payload, entry.Write.Path, encoded)
}

// injectAll injects values in key order.
func (e *Engine) injectAll(payload map[string]any, kind state.Kind, values map[string]any) error {
	for _, key := range slices.Sorted(maps.Keys(values)) {
		entry, err := e.reg.Resolve(kind, key)
		if err != nil || !entry.Writable() {
			continue
		}
		if err := inject(payload, entry, values[key]); err != nil {
			return err
		}
	}
	return nil
}

// delta returns the members of want missing from have and of have missing
// from want.
func delta(want, have any) (add, remove []string) {
	w, h := state.SortedStrings(want), state.SortedStrings(have)
	for _, s := range w {
		if !slices.Contains(h, s) {
			add = append(add, s)
		}
	}
	for _, s := range h {
		if !slices.Contains(w, s) {
			remove = append(remove, s)
		}
	}
	return add, remove
}
