package appcontext

import (
	"bytes"
	"testing"
	"time"

	"github.com/agentstation/orgsync"
	"github.com/agentstation/orgsync/pkg/remote/memory"
	"github.com/agentstation/orgsync/pkg/worker"
)

// NewTestMock returns a Mock whose clients talk to gh with no rate limit
// and fast retries. Command output collects in the returned buffer.
func NewTestMock(t testing.TB, gh *memory.GitHub, format string) (*Mock, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	build := func(opts ...orgsync.Option) (orgsync.Client, error) {
		return orgsync.New(append([]orgsync.Option{
			orgsync.WithExecutor(gh),
			orgsync.WithRateLimit(0, 0),
			orgsync.WithMaxRetries(1),
			orgsync.WithPoolOptions(worker.WithBackoff(time.Millisecond, 5*time.Millisecond)),
		}, opts...)...)
	}
	return &Mock{
		ClientFunc:            func() (orgsync.Client, error) { return build() },
		ClientWithOptionsFunc: build,
		Format:                format,
		Out:                   out,
	}, out
}
