// This file implements the rebuild report and its per-scope digests.
package breadcrumbs

import (
	"time"

	"github.com/cockroachdb/errors"
)

// ScopeStatus is the outcome of one scope within a rebuild.
type ScopeStatus string

const (
	ScopeOK      ScopeStatus = "ok"
	ScopeFailed  ScopeStatus = "failed"
	ScopeSkipped ScopeStatus = "skipped"
)

// ScopeResult describes what a rebuild did with one scope.
type ScopeResult struct {
	ScopeID    string      `json:"scope_id"`
	Status     ScopeStatus `json:"status"`
	Records    int         `json:"records"`
	Digest     string      `json:"digest,omitempty"`
	Changed    bool        `json:"changed"`
	DurationMS int64       `json:"duration_ms"`
	Error      string      `json:"error,omitempty"`

	err error
}

// Err returns the materialization error of a failed scope.
func (r ScopeResult) Err() error { return r.err }

// Report summarizes a full rebuild. A rebuild never fails as a whole; the
// report is where failures show up.
type Report struct {
	Kind       string        `json:"kind"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Scopes     []ScopeResult `json:"scopes"`

	// Aborted is set when the run stopped early, either because a scope
	// failed under AbortOnFailure or because the context was canceled.
	Aborted bool `json:"aborted"`

	// ListError is set when the scope list itself could not be fetched.
	ListError string `json:"list_error,omitempty"`

	listErr error
}

// Count returns how many scopes ended with status.
func (r Report) Count(status ScopeStatus) int {
	n := 0
	for _, s := range r.Scopes {
		if s.Status == status {
			n++
		}
	}
	return n
}

// Failed reports whether any part of the run failed.
func (r Report) Failed() bool {
	return r.listErr != nil || r.Count(ScopeFailed) > 0
}

// Err returns the first failure of the run, or nil.
func (r Report) Err() error {
	if r.listErr != nil {
		return r.listErr
	}
	for _, s := range r.Scopes {
		if s.err != nil {
			return errors.Wrapf(s.err, "%s rebuild", r.Kind)
		}
	}
	return nil
}

// Result returns the result for scopeID.
func (r Report) Result(scopeID string) (ScopeResult, bool) {
	for _, s := range r.Scopes {
		if s.ScopeID == scopeID {
			return s, true
		}
	}
	return ScopeResult{}, false
}
