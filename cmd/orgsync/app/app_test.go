package app

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/agentstation/orgsync"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/remote/memory"
)

func testConfig() *Config {
	return &Config{Token: "test-token", LogOutput: "discard"}
}

// TestApp_New verifies app initialization.
func TestApp_New(t *testing.T) {
	app, err := New("1.0.0", "abc123", "2024-01-01", "test")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if app.Version() != "1.0.0" {
		t.Errorf("Version() = %s, want 1.0.0", app.Version())
	}
	if app.Commit() != "abc123" {
		t.Errorf("Commit() = %s, want abc123", app.Commit())
	}
	if app.Date() != "2024-01-01" {
		t.Errorf("Date() = %s, want 2024-01-01", app.Date())
	}
	if app.BuiltBy() != "test" {
		t.Errorf("BuiltBy() = %s, want test", app.BuiltBy())
	}
	if app.Logger() == nil {
		t.Error("Logger() returned nil")
	}
	if app.Config() == nil {
		t.Error("Config() returned nil")
	}
}

// TestApp_Client_Singleton verifies that Client() returns the same instance.
func TestApp_Client_Singleton(t *testing.T) {
	app, err := New("1.0.0", "test", "2024-01-01", "test", WithConfig(testConfig()))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	c1, err := app.Client()
	if err != nil {
		t.Fatalf("Client() failed: %v", err)
	}
	c2, err := app.Client()
	if err != nil {
		t.Fatalf("Client() failed on second call: %v", err)
	}
	if c1 != c2 {
		t.Error("Client() returned different instances, expected singleton")
	}
}

// TestApp_Client_ThreadSafe verifies concurrent Client() calls are safe.
func TestApp_Client_ThreadSafe(t *testing.T) {
	app, err := New("1.0.0", "test", "2024-01-01", "test", WithConfig(testConfig()))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	const goroutines = 50
	var wg sync.WaitGroup
	results := make([]orgsync.Client, goroutines)
	errs := make([]error, goroutines)
	for i := range goroutines {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx], errs[idx] = app.Client()
		}(i)
	}
	wg.Wait()

	for i := range goroutines {
		if errs[i] != nil {
			t.Fatalf("goroutine %d: Client() failed: %v", i, errs[i])
		}
		if results[i] != results[0] {
			t.Errorf("goroutine %d got a different instance", i)
		}
	}
}

// TestApp_MissingToken verifies that the public API is never called anonymously.
func TestApp_MissingToken(t *testing.T) {
	app, err := New("1.0.0", "test", "2024-01-01", "test", WithConfig(&Config{LogOutput: "discard"}))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	_, err = app.Client()
	var authErr *errors.AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("Client() error = %v, want AuthenticationError", err)
	}
	if !errors.IsFatal(err) {
		t.Error("missing token should be fatal")
	}

	// A private endpoint may be used without a token.
	app.config.APIURL = "http://localhost:8080/api/v3"
	if _, err := app.ClientWithOptions(); err != nil {
		t.Errorf("ClientWithOptions() with custom endpoint failed: %v", err)
	}
}

// TestApp_WithClient verifies the injected client is used.
func TestApp_WithClient(t *testing.T) {
	c, err := orgsync.New(orgsync.WithExecutor(memory.New("acme")))
	if err != nil {
		t.Fatalf("orgsync.New() failed: %v", err)
	}
	app, err := New("1.0.0", "test", "2024-01-01", "test", WithConfig(&Config{LogOutput: "discard"}), WithClient(c))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	got, err := app.Client()
	if err != nil {
		t.Fatalf("Client() failed: %v", err)
	}
	if got != c {
		t.Error("Client() did not return the injected client")
	}
}

// TestApp_Execute runs commands through the root command.
func TestApp_Execute(t *testing.T) {
	var out bytes.Buffer
	logger := zerolog.Nop()
	app, err := New("1.2.3", "abc123", "2024-01-01", "test",
		WithConfig(testConfig()), WithLogger(&logger), WithStdout(&out))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if err := app.Execute(context.Background(), []string{"version"}); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out.String(), "orgsync version 1.2.3") {
		t.Errorf("version output = %q", out.String())
	}

	out.Reset()
	if err := app.Execute(context.Background(), []string{"mapping", "-o", "json", "--kind", "team"}); err != nil {
		t.Fatalf("mapping failed: %v", err)
	}
	if app.OutputFormat() != "json" {
		t.Errorf("OutputFormat() = %q, want json", app.OutputFormat())
	}
	if !strings.Contains(out.String(), `"kind": "team"`) {
		t.Errorf("mapping output = %q", out.String())
	}
}

// TestApp_Execute_UnknownCommand verifies cobra errors surface.
func TestApp_Execute_UnknownCommand(t *testing.T) {
	app, err := New("1.0.0", "test", "2024-01-01", "test", WithConfig(testConfig()), WithStdout(&bytes.Buffer{}))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := app.Execute(context.Background(), []string{"frobnicate"}); err == nil {
		t.Error("expected an error for an unknown command")
	}
}
