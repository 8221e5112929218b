// Package appcontext provides the shared application context interface
// used by all commands. This eliminates interface duplication across
// command packages and provides a single source of truth for app dependencies.
package appcontext

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/agentstation/orgsync"
	"github.com/agentstation/orgsync/pkg/mapping"
)

// Interface defines the application context interface that commands need.
// The App struct from cmd/orgsync/app implements it; tests use Mock.
type Interface interface {
	// Client returns the orgsync client, creating it lazily if needed.
	Client() (orgsync.Client, error)

	// ClientWithOptions creates a new client with extra options on top of
	// the configured ones.
	ClientWithOptions(...orgsync.Option) (orgsync.Client, error)

	// Registry returns the configured mapping table without building a
	// client, so it needs no credentials.
	Registry() (*mapping.Registry, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (json, yaml, table, wide).
	OutputFormat() string

	// Stdout is where command results are written.
	Stdout() io.Writer

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
