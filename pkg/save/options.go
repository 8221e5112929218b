// Package save writes generated desired-state documents to disk or to a
// caller-supplied writer.
package save

import (
	"io"

	"github.com/agentstation/orgsync/pkg/constants"
)

// Options is the configuration for save.
type Options struct {
	path   string
	writer io.Writer
	header string
}

// Path returns the path for the save options.
func (s *Options) Path() string {
	return s.path
}

// Writer returns the writer for the save options.
func (s *Options) Writer() io.Writer {
	return s.writer
}

// Header returns the comment block written before the document.
func (s *Options) Header() string {
	return s.header
}

// Defaults returns the default save options.
func Defaults() *Options {
	return &Options{
		path:   constants.GeneratedFileName,
		writer: nil,
	}
}

// Apply applies the given options to the save options.
func (s *Options) Apply(opts ...Option) Options {
	for _, opt := range opts {
		opt(s)
	}
	return *s
}

// Option is a function that configures save options.
type Option func(*Options)

// WithPath for filesystem saves.
func WithPath(path string) Option {
	return func(s *Options) {
		s.path = path
	}
}

// WithWriter for custom outputs. A writer takes precedence over the path.
func WithWriter(w io.Writer) Option {
	return func(s *Options) {
		s.writer = w
	}
}

// WithHeader sets a comment block; each line is prefixed with "# ".
func WithHeader(header string) Option {
	return func(s *Options) {
		s.header = header
	}
}
