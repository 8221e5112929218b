package mapping

import (
	"fmt"
	"net/url"
	"strings"
)

// Expand substitutes {placeholder} references in tmpl. With escape set each
// substituted value is path-escaped, which is what locators need; payload
// templates are expanded verbatim.
func Expand(tmpl string, values map[string]string, escape bool) (string, error) {
	if !strings.Contains(tmpl, "{") {
		return tmpl, nil
	}
	var b strings.Builder
	rest := tmpl
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return "", fmt.Errorf("unterminated placeholder in %q", tmpl)
		}
		name := rest[open+1 : open+end]
		value, ok := values[name]
		if !ok {
			return "", fmt.Errorf("missing placeholder %q in %q", name, tmpl)
		}
		if escape {
			value = url.PathEscape(value)
		}
		b.WriteString(rest[:open])
		b.WriteString(value)
		rest = rest[open+end+1:]
	}
}

// Placeholders lists the placeholder names referenced by tmpl.
func Placeholders(tmpl string) []string {
	var names []string
	rest := tmpl
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			return names
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return names
		}
		names = append(names, rest[open+1:open+end])
		rest = rest[open+end+1:]
	}
}

// ExpandTree expands every string leaf of a static payload tree.
func ExpandTree(v any, values map[string]string) (any, error) {
	switch t := v.(type) {
	case string:
		return Expand(t, values, false)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			x, err := ExpandTree(e, values)
			if err != nil {
				return nil, err
			}
			out[k] = x
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			x, err := ExpandTree(e, values)
			if err != nil {
				return nil, err
			}
			out[i] = x
		}
		return out, nil
	default:
		return t, nil
	}
}
