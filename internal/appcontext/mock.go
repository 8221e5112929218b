package appcontext

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/agentstation/orgsync"
	"github.com/agentstation/orgsync/pkg/mapping"
)

// Mock provides a mock implementation of Interface for testing.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a default/zero value.
type Mock struct {
	ClientFunc            func() (orgsync.Client, error)
	ClientWithOptionsFunc func(...orgsync.Option) (orgsync.Client, error)
	RegistryFunc          func() (*mapping.Registry, error)
	LoggerFunc            func() *zerolog.Logger
	Format                string
	Out                   io.Writer
	VersionFunc           func() string
	CommitFunc            func() string
	DateFunc              func() string
	BuiltByFunc           func() string
}

// Client returns a client using the mock function or nil.
func (m *Mock) Client() (orgsync.Client, error) {
	if m.ClientFunc != nil {
		return m.ClientFunc()
	}
	return nil, nil
}

// ClientWithOptions returns a client using the mock function, falling back
// to Client.
func (m *Mock) ClientWithOptions(opts ...orgsync.Option) (orgsync.Client, error) {
	if m.ClientWithOptionsFunc != nil {
		return m.ClientWithOptionsFunc(opts...)
	}
	return m.Client()
}

// Registry returns the mock registry or the embedded default table.
func (m *Mock) Registry() (*mapping.Registry, error) {
	if m.RegistryFunc != nil {
		return m.RegistryFunc()
	}
	return mapping.Default()
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns the configured format.
func (m *Mock) OutputFormat() string {
	return m.Format
}

// Stdout returns Out or a discarding writer.
func (m *Mock) Stdout() io.Writer {
	if m.Out != nil {
		return m.Out
	}
	return io.Discard
}

// Version returns version using the mock function or "dev".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}

// Commit returns commit using the mock function or "unknown".
func (m *Mock) Commit() string {
	if m.CommitFunc != nil {
		return m.CommitFunc()
	}
	return "unknown"
}

// Date returns date using the mock function or "unknown".
func (m *Mock) Date() string {
	if m.DateFunc != nil {
		return m.DateFunc()
	}
	return "unknown"
}

// BuiltBy returns builtBy using the mock function or "test".
func (m *Mock) BuiltBy() string {
	if m.BuiltByFunc != nil {
		return m.BuiltByFunc()
	}
	return "test"
}

// Ensure Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
