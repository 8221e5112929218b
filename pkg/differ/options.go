package differ

import "github.com/agentstation/orgsync/pkg/state"

// Option configures a Differ.
type Option func(*differ)

// WithIgnoredFields skips config keys during comparison. A name matches a
// key of every kind; "kind.key" matches one kind only. Names may be glob or
// regex patterns; a pattern that does not compile is compared literally.
func WithIgnoredFields(fields ...string) Option {
	return func(d *differ) {
		for _, field := range fields {
			if err := d.ignore.Add(field); err != nil {
				d.ignore.AddLiteral(field)
			}
		}
	}
}

// WithKinds restricts the diff to the given kinds.
func WithKinds(kinds ...state.Kind) Option {
	return func(d *differ) {
		for _, k := range kinds {
			d.kinds[k] = true
		}
	}
}

// WithNoops keeps noop entries in the plan.
func WithNoops(enabled bool) Option {
	return func(d *differ) {
		d.noops = enabled
	}
}
