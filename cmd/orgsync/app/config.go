package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/agentstation/orgsync/pkg/constants"
)

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// GitHub access
	Token  string
	APIURL string

	// Reconciliation
	Mapping     string
	Defaults    string
	Concurrency int
	Rate        float64
	Burst       int
	MaxRetries  int
	Timeout     time.Duration

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (applied later by UpdateFromFlags)
// 2. Environment variables (ORGSYNC_*, GITHUB_TOKEN)
// 3. .env files
// 4. Config file (~/.orgsync.yaml or ./.orgsync.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	loadEnvFiles()
	return loadConfig(viper.New(), os.Getenv("ORGSYNC_CONFIG"))
}

// loadConfigFile reloads configuration from an explicit --config path.
func loadConfigFile(path string) (*Config, error) {
	return loadConfig(viper.New(), path)
}

func loadConfig(v *viper.Viper, configFile string) (*Config, error) {
	v.SetEnvPrefix("ORGSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// The token is commonly exported under the gh/Actions names.
	_ = v.BindEnv("token", "ORGSYNC_TOKEN", "GITHUB_TOKEN", "GH_TOKEN")
	_ = v.BindEnv("log_level", "ORGSYNC_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("log_format", "ORGSYNC_LOG_FORMAT", "LOG_FORMAT")
	_ = v.BindEnv("log_output", "ORGSYNC_LOG_OUTPUT", "LOG_OUTPUT")

	v.SetDefault("concurrency", constants.DefaultConcurrency)
	v.SetDefault("rate", constants.DefaultRequestsPerSecond)
	v.SetDefault("burst", constants.BurstSize)
	v.SetDefault("max_retries", constants.MaxRetries)
	v.SetDefault("timeout", constants.OperationTimeout)
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".orgsync")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configFile != "" {
			return nil, err
		}
	}

	return &Config{
		Verbose:     v.GetBool("verbose"),
		Quiet:       v.GetBool("quiet"),
		NoColor:     v.GetBool("no_color") || os.Getenv("NO_COLOR") != "",
		Format:      v.GetString("format"),
		ConfigFile:  v.ConfigFileUsed(),
		Token:       v.GetString("token"),
		APIURL:      v.GetString("api_url"),
		Mapping:     v.GetString("mapping"),
		Defaults:    v.GetString("defaults"),
		Concurrency: v.GetInt("concurrency"),
		Rate:        v.GetFloat64("rate"),
		Burst:       v.GetInt("burst"),
		MaxRetries:  v.GetInt("max_retries"),
		Timeout:     v.GetDuration("timeout"),
		LogLevel:    v.GetString("log_level"),
		LogFormat:   v.GetString("log_format"),
		LogOutput:   v.GetString("log_output"),
	}, nil
}

// UpdateFromFlags copies every flag the user set on the command line over
// the loaded configuration.
func (c *Config) UpdateFromFlags(flags *pflag.FlagSet) {
	set := func(name string, apply func()) {
		if f := flags.Lookup(name); f != nil && f.Changed {
			apply()
		}
	}
	set("verbose", func() { c.Verbose, _ = flags.GetBool("verbose") })
	set("quiet", func() { c.Quiet, _ = flags.GetBool("quiet") })
	set("no-color", func() { c.NoColor, _ = flags.GetBool("no-color") })
	set("format", func() { c.Format, _ = flags.GetString("format") })
	set("log-level", func() { c.LogLevel, _ = flags.GetString("log-level") })
	set("token", func() { c.Token, _ = flags.GetString("token") })
	set("api-url", func() { c.APIURL, _ = flags.GetString("api-url") })
	set("mapping", func() { c.Mapping, _ = flags.GetString("mapping") })
	set("defaults", func() { c.Defaults, _ = flags.GetString("defaults") })
	set("concurrency", func() { c.Concurrency, _ = flags.GetInt("concurrency") })
	set("rate", func() { c.Rate, _ = flags.GetFloat64("rate") })
	set("max-retries", func() { c.MaxRetries, _ = flags.GetInt("max-retries") })
	set("timeout", func() { c.Timeout, _ = flags.GetDuration("timeout") })
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}
