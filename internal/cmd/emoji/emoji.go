// Package emoji provides symbol constants for CLI output.
// These symbols create a consistent visual language across all commands.
package emoji

// Symbol constants for CLI output.
const (
	// Success marks an applied change or a clean run.
	Success = "✓"

	// Error marks a failed change or a failed run.
	Error = "✗"

	// Warning marks coverage gaps and other non-fatal notices.
	Warning = "!"

	// Skipped marks changes left out by a dry run.
	Skipped = "-"

	// Create marks a resource that will be created.
	Create = "+"

	// Update marks a field that will change.
	Update = "~"

	// Unknown represents unknown or indeterminate states.
	Unknown = "?"

	// Info represents informational messages.
	Info = "i"
)
