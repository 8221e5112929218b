package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/agentstation/orgsync/pkg/constants"
)

// TestLoadConfig verifies defaults.
func TestLoadConfig(t *testing.T) {
	t.Setenv("ORGSYNC_CONFIG", "")
	config, err := loadConfig(viper.New(), "")
	if err != nil {
		t.Fatalf("loadConfig() failed: %v", err)
	}
	if config.LogFormat != "auto" {
		t.Errorf("LogFormat = %q, want auto", config.LogFormat)
	}
	if config.Concurrency != constants.DefaultConcurrency {
		t.Errorf("Concurrency = %d, want %d", config.Concurrency, constants.DefaultConcurrency)
	}
	if config.Timeout != constants.OperationTimeout {
		t.Errorf("Timeout = %s, want %s", config.Timeout, constants.OperationTimeout)
	}
}

// TestConfig_TokenEnvironment verifies the accepted token variables and
// their precedence.
func TestConfig_TokenEnvironment(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "github token", env: map[string]string{"GITHUB_TOKEN": "gh"}, want: "gh"},
		{name: "gh cli token", env: map[string]string{"GH_TOKEN": "cli"}, want: "cli"},
		{name: "orgsync token wins", env: map[string]string{"ORGSYNC_TOKEN": "own", "GITHUB_TOKEN": "gh"}, want: "own"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"ORGSYNC_TOKEN", "GITHUB_TOKEN", "GH_TOKEN"} {
				t.Setenv(k, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			config, err := loadConfig(viper.New(), "")
			if err != nil {
				t.Fatalf("loadConfig() failed: %v", err)
			}
			if config.Token != tt.want {
				t.Errorf("Token = %q, want %q", config.Token, tt.want)
			}
		})
	}
}

// TestConfig_File verifies values from an explicit config file.
func TestConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orgsync.yaml")
	content := "api_url: https://ghe.example.com/api/v3\nconcurrency: 2\ntimeout: 5s\nmapping: ./mapping.yaml\n"
	if err := os.WriteFile(path, []byte(content), constants.FilePermissions); err != nil {
		t.Fatal(err)
	}

	config, err := loadConfig(viper.New(), path)
	if err != nil {
		t.Fatalf("loadConfig() failed: %v", err)
	}
	if config.APIURL != "https://ghe.example.com/api/v3" {
		t.Errorf("APIURL = %q", config.APIURL)
	}
	if config.Concurrency != 2 {
		t.Errorf("Concurrency = %d, want 2", config.Concurrency)
	}
	if config.Timeout != 5*time.Second {
		t.Errorf("Timeout = %s, want 5s", config.Timeout)
	}
	if config.ConfigFile != path {
		t.Errorf("ConfigFile = %q, want %q", config.ConfigFile, path)
	}

	if _, err := loadConfig(viper.New(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing explicit config file")
	}
}

// TestConfig_UpdateFromFlags verifies only changed flags override.
func TestConfig_UpdateFromFlags(t *testing.T) {
	config := &Config{Concurrency: 2, Token: "from-env", Format: "yaml"}

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("concurrency", 8, "")
	flags.String("token", "", "")
	flags.StringP("format", "o", "", "")
	flags.Bool("verbose", false, "")
	if err := flags.Parse([]string{"--token", "from-flag", "--verbose"}); err != nil {
		t.Fatal(err)
	}

	config.UpdateFromFlags(flags)
	if config.Token != "from-flag" {
		t.Errorf("Token = %q, want from-flag", config.Token)
	}
	if config.Concurrency != 2 {
		t.Errorf("Concurrency = %d, unset flag must not override", config.Concurrency)
	}
	if config.Format != "yaml" {
		t.Errorf("Format = %q, unset flag must not override", config.Format)
	}
	if !config.Verbose {
		t.Error("Verbose not set from flag")
	}
}
