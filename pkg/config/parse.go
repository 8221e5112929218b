package config

import (
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/orgsync/pkg/constants"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/logging"
	"github.com/agentstation/orgsync/pkg/state"
)

// Parse decodes a document. file is used in error messages only.
func Parse(data []byte, file string) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, parseError(file, err)
	}
	return &doc, nil
}

// ParseFile reads and decodes a document.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	return Parse(data, path)
}

// DefaultsPath returns the defaults document that sits beside mainPath, or
// "" when there is none.
func DefaultsPath(mainPath string) string {
	candidate := filepath.Join(filepath.Dir(mainPath), constants.DefaultsFileName)
	if abs, err := filepath.Abs(candidate); err == nil {
		if main, err := filepath.Abs(mainPath); err == nil && abs == main {
			return ""
		}
	}
	if _, err := os.Stat(candidate); err != nil {
		return ""
	}
	return candidate
}

// Load parses the main document and, when defaultsPath is non-empty, the
// defaults document, and merges them. Any error is fatal and is returned
// before a single remote call is made.
func Load(mainPath, defaultsPath string) (*state.State, error) {
	main, err := ParseFile(mainPath)
	if err != nil {
		return nil, err
	}
	var defaults *Document
	if defaultsPath != "" {
		if defaults, err = ParseFile(defaultsPath); err != nil {
			return nil, err
		}
		logging.Debug().Str("file", defaultsPath).Msg("Loaded defaults document")
	}
	return Merge(main, defaults)
}

func parseError(file string, err error) error {
	return errors.NewParseError("yaml", file, yaml.FormatError(err, false, false), err)
}
