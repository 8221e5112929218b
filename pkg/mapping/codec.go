package mapping

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/agentstation/orgsync/pkg/constants"
	"github.com/agentstation/orgsync/pkg/state"
)

// Codec converts between the remote representation of a field and the value
// declared in documents.
type Codec struct {
	Name   string
	Decode func(remote any) (any, error)
	Encode func(declared any) (any, error)
}

var codecs = map[string]Codec{
	"":           valueCodec,
	"value":      valueCodec,
	"permission": permissionCodec,
	"enabled":    enabledCodec,
	"bool":       boolCodec,
	"strings":    stringsCodec,
}

// LookupCodec returns the codec registered under name.
func LookupCodec(name string) (Codec, bool) {
	c, ok := codecs[name]
	return c, ok
}

// CodecNames lists the registered codec names.
func CodecNames() []string {
	var names []string
	for name := range codecs {
		if name != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

var valueCodec = Codec{
	Name:   "value",
	Decode: func(v any) (any, error) { return state.Normalize(v), nil },
	Encode: func(v any) (any, error) { return state.Normalize(v), nil },
}

// permissionCodec reads the strongest granted level from a permissions flag
// object and also accepts a plain level string.
var permissionCodec = Codec{
	Name: "permission",
	Decode: func(v any) (any, error) {
		switch t := state.Normalize(v).(type) {
		case string:
			return t, nil
		case map[string]any:
			if flags, ok := t["permissions"].(map[string]any); ok {
				return strongestPermission(flags), nil
			}
			if role, ok := t["role_name"].(string); ok {
				return role, nil
			}
			if p, ok := t["permission"].(string); ok {
				return p, nil
			}
			if level := strongestPermission(t); level != "" {
				return level, nil
			}
		}
		return nil, fmt.Errorf("cannot decode permission from %T", v)
	},
	Encode: func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("permission must be a string, got %T", v)
		}
		return s, nil
	},
}

func strongestPermission(flags map[string]any) string {
	for _, level := range constants.PermissionLadder {
		if granted, _ := flags[level].(bool); granted {
			return level
		}
	}
	return ""
}

// enabledCodec reads both plain booleans and {"enabled": bool} objects.
var enabledCodec = Codec{
	Name: "enabled",
	Decode: func(v any) (any, error) {
		switch t := v.(type) {
		case bool:
			return t, nil
		case map[string]any:
			if b, ok := t["enabled"].(bool); ok {
				return b, nil
			}
		}
		return nil, fmt.Errorf("cannot decode enabled flag from %T", v)
	},
	Encode: func(v any) (any, error) {
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected a boolean, got %T", v)
		}
		return b, nil
	},
}

var boolCodec = Codec{
	Name: "bool",
	Decode: func(v any) (any, error) {
		switch t := v.(type) {
		case bool:
			return t, nil
		case string:
			return strconv.ParseBool(t)
		}
		return nil, fmt.Errorf("expected a boolean, got %T", v)
	},
	Encode: func(v any) (any, error) {
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected a boolean, got %T", v)
		}
		return b, nil
	},
}

var stringsCodec = Codec{
	Name: "strings",
	Decode: func(v any) (any, error) {
		if v == nil {
			return []any{}, nil
		}
		if _, ok := state.Normalize(v).([]any); !ok {
			return nil, fmt.Errorf("expected a list, got %T", v)
		}
		out := make([]any, 0)
		for _, s := range state.SortedStrings(v) {
			out = append(out, s)
		}
		return out, nil
	},
	Encode: func(v any) (any, error) {
		if _, ok := state.Normalize(v).([]any); !ok {
			return nil, fmt.Errorf("expected a list, got %T", v)
		}
		names := state.SortedStrings(v)
		out := make([]any, len(names))
		for i, s := range names {
			out[i] = s
		}
		return out, nil
	},
}
