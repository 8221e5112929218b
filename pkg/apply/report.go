package apply

import (
	"github.com/agentstation/utc"

	"github.com/agentstation/orgsync/pkg/differ"
)

// Outcome is the result of one plan entry.
type Outcome string

// Outcomes.
const (
	OutcomeApplied Outcome = "applied"
	OutcomeSkipped Outcome = "skipped-dry-run"
	OutcomeFailed  Outcome = "failed"
)

// Result pairs a plan entry with its outcome.
type Result struct {
	Entry   differ.Entry `json:"entry" yaml:"entry"`
	Outcome Outcome      `json:"outcome" yaml:"outcome"`
	Reason  string       `json:"reason,omitempty" yaml:"reason,omitempty"`
	Err     error        `json:"-" yaml:"-"`
}

// Report is the outcome of one apply run.
type Report struct {
	DryRun     bool             `json:"dry_run" yaml:"dry_run"`
	Results    []Result         `json:"results" yaml:"results"`
	Failures   []differ.Failure `json:"failures,omitempty" yaml:"failures,omitempty"`
	Gaps       []differ.Gap     `json:"gaps,omitempty" yaml:"gaps,omitempty"`
	StartedAt  utc.Time         `json:"started_at" yaml:"started_at"`
	FinishedAt utc.Time         `json:"finished_at" yaml:"finished_at"`
}

// Success reports whether every result was applied or skipped and no
// resource failed before apply.
func (r *Report) Success() bool {
	if len(r.Failures) > 0 {
		return false
	}
	for _, res := range r.Results {
		if res.Outcome == OutcomeFailed {
			return false
		}
	}
	return true
}

// Count returns the number of results with outcome o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Failed returns the failed results.
func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Outcome == OutcomeFailed {
			out = append(out, res)
		}
	}
	return out
}

func applied(e differ.Entry) Result {
	return Result{Entry: e, Outcome: OutcomeApplied}
}

func failed(e differ.Entry, err error) Result {
	return Result{Entry: e, Outcome: OutcomeFailed, Reason: err.Error(), Err: err}
}
