// Package errors provides the error taxonomy for orgsync.
//
// Errors fall into two families. Fatal errors (ParseError, ValidationError,
// ConfigError) abort a run before any remote call. Resource-scoped errors
// (RemoteError, DependencyError) are recorded against a single resource and
// never stop independent work. MappingNotFoundError is neither: it marks a
// coverage gap and is only ever logged.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// New returns an error that formats as the given text.
var New = errors.New

// Is, As, Join and Unwrap re-export the standard helpers so callers need one import.
var (
	Is     = errors.Is
	As     = errors.As
	Join   = errors.Join
	Unwrap = errors.Unwrap
)

// Sentinel errors.
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates a missing, invalid or insufficient credential
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnavailable indicates that the remote system is temporarily unavailable
	ErrUnavailable = errors.New("remote unavailable")

	// ErrRateLimited indicates that the API rate limit has been exceeded
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")

	// ErrMappingNotFound indicates a config key with no mapping entry
	ErrMappingNotFound = errors.New("mapping not found")

	// ErrDependencyFailed indicates a prerequisite resource could not be created
	ErrDependencyFailed = errors.New("dependency failed")

	// ErrReadOnly indicates an attempt to write a field that can only be read
	ErrReadOnly = errors.New("read only")
)

// NotFoundError represents an error when a resource is not found.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError is raised when the effective desired state is inconsistent:
// a missing identifying key, a duplicate instance or a dangling reference.
type ValidationError struct {
	Kind    string
	ID      string
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Kind != "" && e.Field != "":
		return fmt.Sprintf("invalid %s %q: field %s: %s", e.Kind, e.ID, e.Field, e.Message)
	case e.Kind != "":
		return fmt.Sprintf("invalid %s %q: %s", e.Kind, e.ID, e.Message)
	case e.Field != "":
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	default:
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
}

// Is implements errors.Is support.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a ValidationError not tied to a resource.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// NewResourceValidationError creates a ValidationError naming the offending resource and field.
func NewResourceValidationError(kind, id, field, message string) *ValidationError {
	return &ValidationError{Kind: kind, ID: id, Field: field, Message: message}
}

// ParseError represents a malformed input document.
type ParseError struct {
	Format  string
	File    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("%s parse error at %s:%d:%d: %s", e.Format, e.File, e.Line, e.Column, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("%s parse error in %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *ParseError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewParseError creates a new ParseError.
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{Format: format, File: file, Message: message, Err: err}
}

// MappingNotFoundError reports a (kind, key) pair absent from the mapping table.
type MappingNotFoundError struct {
	Kind string
	Key  string
}

func (e *MappingNotFoundError) Error() string {
	return fmt.Sprintf("no mapping for %s.%s", e.Kind, e.Key)
}

// Is implements errors.Is support.
func (e *MappingNotFoundError) Is(target error) bool {
	return target == ErrMappingNotFound || target == ErrNotFound
}

// NewMappingNotFoundError creates a new MappingNotFoundError.
func NewMappingNotFoundError(kind, key string) *MappingNotFoundError {
	return &MappingNotFoundError{Kind: kind, Key: key}
}

// Remote operation directions.
const (
	OpRead  = "read"
	OpWrite = "write"
)

// RemoteError is a failed call against the remote system.
type RemoteError struct {
	Op         string
	Verb       string
	Locator    string
	StatusCode int
	Message    string

	// RateLimited is set for primary and secondary rate limits, which GitHub
	// reports with 403 as well as 429.
	RateLimited bool

	// RetryAfter is the cool-down advertised by the remote, if any.
	RetryAfter time.Duration

	// Temporary marks network-level failures with no HTTP status.
	Temporary bool

	Err error
}

func (e *RemoteError) Error() string {
	op := "remote " + e.Op
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s %s failed (status %d): %s", op, e.Verb, e.Locator, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s %s failed: %s", op, e.Verb, e.Locator, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.RateLimited || e.StatusCode == http.StatusTooManyRequests
	case ErrUnavailable:
		return e.StatusCode >= http.StatusInternalServerError
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return !e.RateLimited && (e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
	case ErrTimeout:
		return e.StatusCode == http.StatusRequestTimeout || e.StatusCode == http.StatusGatewayTimeout
	case ErrInvalidInput:
		return e.StatusCode == http.StatusUnprocessableEntity || e.StatusCode == http.StatusBadRequest
	}
	return false
}

// Transient reports whether retrying the same call may succeed.
func (e *RemoteError) Transient() bool {
	if e.Temporary || e.RateLimited {
		return true
	}
	switch {
	case e.StatusCode == http.StatusTooManyRequests,
		e.StatusCode == http.StatusRequestTimeout,
		e.StatusCode >= http.StatusInternalServerError:
		return true
	}
	return errors.Is(e.Err, ErrTimeout) || errors.Is(e.Err, context.DeadlineExceeded)
}

// NewRemoteError creates a RemoteError for a call that got an HTTP status.
func NewRemoteError(op, verb, locator string, status int, message string) *RemoteError {
	return &RemoteError{Op: op, Verb: verb, Locator: locator, StatusCode: status, Message: message}
}

// WrapRemote wraps a transport failure that produced no HTTP status.
func WrapRemote(op, verb, locator string, err error) error {
	if err == nil {
		return nil
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return err
	}
	return &RemoteError{
		Op:        op,
		Verb:      verb,
		Locator:   locator,
		Message:   err.Error(),
		Temporary: !errors.Is(err, context.Canceled),
		Err:       err,
	}
}

// DependencyError marks work skipped because a prerequisite failed.
type DependencyError struct {
	Dependency string
	Message    string
	Err        error
}

func (e *DependencyError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("dependency failed: %s", e.Dependency)
	}
	return fmt.Sprintf("dependency failed: %s: %s", e.Dependency, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *DependencyError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *DependencyError) Is(target error) bool {
	return target == ErrDependencyFailed
}

// NewDependencyError creates a new DependencyError.
func NewDependencyError(dependency string, err error) *DependencyError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &DependencyError{Dependency: dependency, Message: msg, Err: err}
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}

// IOError represents an error during I/O operations.
type IOError struct {
	Operation string
	Path      string
	Message   string
	Err       error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError.
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{Operation: operation, Path: path, Message: message, Err: err}
}

// ResourceError represents a failed create/update/fetch of one resource instance.
type ResourceError struct {
	Operation string
	Resource  string
	ID        string
	Message   string
	Err       error
}

func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError.
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ResourceError{Operation: operation, Resource: resource, ID: id, Message: message, Err: err}
}

// AuthenticationError is a credential problem detected before any call is made.
type AuthenticationError struct {
	Method  string
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication error (%s): %s", e.Method, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrUnauthorized
}

// NewAuthenticationError creates a new AuthenticationError.
func NewAuthenticationError(method, message string, err error) *AuthenticationError {
	return &AuthenticationError{Method: method, Message: message, Err: err}
}

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

// Unwrap implements errors.Unwrap.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError.
func NewExitError(code int, err error) *ExitError {
	return &ExitError{Code: code, Err: err}
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation or parse error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsMappingNotFound checks if an error is a coverage gap.
func IsMappingNotFound(err error) bool {
	return errors.Is(err, ErrMappingNotFound)
}

// IsRateLimited checks if an error is a rate limit error.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsUnauthorized checks if an error is an authentication or permission failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsDependencyFailed checks if an error is a dependency short-circuit.
func IsDependencyFailed(err error) bool {
	return errors.Is(err, ErrDependencyFailed)
}

// IsCanceled checks if an error comes from cancellation.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}

// IsTransient reports whether err belongs to a retryable class: timeouts,
// rate limits and server-side failures.
func IsTransient(err error) bool {
	if err == nil || IsCanceled(err) {
		return false
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Transient()
	}
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnavailable) || errors.Is(err, ErrRateLimited)
}

// IsFatal reports whether err must abort the whole run.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var pe *ParseError
	var ve *ValidationError
	var ce *ConfigError
	var ae *AuthenticationError
	return errors.As(err, &pe) || errors.As(err, &ve) || errors.As(err, &ce) || errors.As(err, &ae)
}

// RetryAfter returns the cool-down advertised by a rate-limited remote error.
func RetryAfter(err error) (time.Duration, bool) {
	var re *RemoteError
	if errors.As(err, &re) && re.RetryAfter > 0 {
		return re.RetryAfter, true
	}
	return 0, false
}

// WrapValidation wraps an error as a ValidationError.
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps an error as an IOError.
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapResource wraps an error as a ResourceError.
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapParse wraps an error as a ParseError.
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}
