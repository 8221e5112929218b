package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/orgsync/pkg/constants"
)

// Config describes how the process logger writes.
type Config struct {
	// Level is a zerolog level name; "warning" and "off" are accepted too.
	Level string

	// Format is json, console or auto. Auto picks console on a terminal.
	Format string

	// Output is stderr, stdout, discard or a file path. Files are appended to.
	Output string

	NoColor   bool
	AddCaller bool

	// Fields are attached to every line, e.g. the organization being synced.
	Fields map[string]any
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Level:   zerolog.InfoLevel.String(),
		Format:  "auto",
		Output:  "stderr",
		NoColor: os.Getenv("NO_COLOR") != "",
	}
}

// levelAliases are accepted on top of zerolog's own level names.
var levelAliases = map[string]zerolog.Level{
	"warning": zerolog.WarnLevel,
	"none":    zerolog.Disabled,
	"off":     zerolog.Disabled,
}

// ParseLevel resolves a level name, falling back to info.
func ParseLevel(name string) zerolog.Level {
	name = strings.ToLower(strings.TrimSpace(name))
	if l, ok := levelAliases[name]; ok {
		return l
	}
	if name == "" {
		return zerolog.InfoLevel
	}
	l, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.InfoLevel
	}
	return l
}

// NewLoggerFromConfig builds a logger and sets the global level to match.
func NewLoggerFromConfig(cfg *Config) zerolog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	level := ParseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	out, terminal := openOutput(cfg.Output)
	var w io.Writer = out
	if useConsole(cfg.Format, terminal) {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly, NoColor: cfg.NoColor}
	}

	ctx := zerolog.New(w).Level(level).With().Timestamp()
	if cfg.AddCaller || level <= zerolog.DebugLevel {
		ctx = ctx.Caller()
	}
	if len(cfg.Fields) > 0 {
		ctx = ctx.Fields(cfg.Fields)
	}
	return ctx.Logger()
}

// Configure replaces the default logger.
func Configure(cfg *Config) {
	SetDefault(NewLoggerFromConfig(cfg))
}

// ConfigureFromEnv configures the default logger from ORGSYNC_LOG_* or
// LOG_* variables. LOG_FIELDS takes comma-separated key=value pairs.
func ConfigureFromEnv() {
	cfg := DefaultConfig()
	cfg.Level = env("LEVEL", cfg.Level)
	cfg.Format = env("FORMAT", cfg.Format)
	cfg.Output = env("OUTPUT", cfg.Output)
	cfg.AddCaller = env("CALLER", "") == "true"
	cfg.Fields = parseFields(env("FIELDS", ""))
	Configure(cfg)
}

// openOutput returns the destination and whether it is a terminal. An
// unwritable file path falls back to stderr.
func openOutput(name string) (io.Writer, bool) {
	switch strings.ToLower(name) {
	case "", "stderr":
		return os.Stderr, stderrIsTerminal()
	case "stdout":
		return os.Stdout, false
	case "discard", "none":
		return io.Discard, false
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, constants.FilePermissions)
	if err != nil {
		return os.Stderr, stderrIsTerminal()
	}
	return f, false
}

func useConsole(format string, terminal bool) bool {
	switch strings.ToLower(format) {
	case "console", "pretty":
		return true
	case "", "auto":
		return terminal
	}
	return false
}

func parseFields(s string) map[string]any {
	if s == "" {
		return nil
	}
	fields := map[string]any{}
	for _, pair := range strings.Split(s, ",") {
		if k, v, ok := strings.Cut(pair, "="); ok {
			fields[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	return fields
}

func env(suffix, fallback string) string {
	for _, key := range []string{"ORGSYNC_LOG_" + suffix, "LOG_" + suffix} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return fallback
}
