// Package remote defines the narrow contract between the reconciliation
// engine and the managed system: read a locator, or write a payload to a
// locator with a verb. Authentication, pagination and status mapping belong
// to the implementation.
package remote

import (
	"context"
	"sync"
)

// Executor performs remote reads and writes. Implementations return
// *errors.RemoteError for failed calls so callers can classify them.
type Executor interface {
	Read(ctx context.Context, locator string) (any, error)
	Write(ctx context.Context, locator, verb string, payload any) (any, error)
}

// Call is one recorded request.
type Call struct {
	Verb    string
	Locator string
	Payload any
}

// Recorder wraps an Executor and records every call.
type Recorder struct {
	Executor

	mu    sync.Mutex
	calls []Call
}

// NewRecorder wraps exec.
func NewRecorder(exec Executor) *Recorder {
	return &Recorder{Executor: exec}
}

// Read implements Executor.
func (r *Recorder) Read(ctx context.Context, locator string) (any, error) {
	r.record(Call{Verb: "GET", Locator: locator})
	return r.Executor.Read(ctx, locator)
}

// Write implements Executor.
func (r *Recorder) Write(ctx context.Context, locator, verb string, payload any) (any, error) {
	r.record(Call{Verb: verb, Locator: locator, Payload: payload})
	return r.Executor.Write(ctx, locator, verb, payload)
}

func (r *Recorder) record(c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Writes returns the recorded non-GET calls.
func (r *Recorder) Writes() []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Verb != "GET" {
			out = append(out, c)
		}
	}
	return out
}

// Reset drops the recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
