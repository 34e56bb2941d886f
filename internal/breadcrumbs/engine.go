// This file implements the breadcrumb engine: serialized rebuilds over all scopes.
package breadcrumbs

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// FailurePolicy decides what a rebuild does after a scope fails.
type FailurePolicy string

const (
	// AbortOnFailure stops the run at the first failing scope. Later scopes
	// keep their previous records.
	AbortOnFailure FailurePolicy = "abort"

	// ContinueOnFailure logs the failure and goes on with the next scope.
	ContinueOnFailure FailurePolicy = "continue"
)

// DefaultScopeLimit is the page size used to list "all" scopes.
const DefaultScopeLimit = 10000

// ErrUnknownPolicy is returned by ParseFailurePolicy.
var ErrUnknownPolicy = errors.New("unknown rebuild failure policy")

// ParseFailurePolicy maps a config value to a FailurePolicy. The empty
// string selects AbortOnFailure.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", AbortOnFailure:
		return AbortOnFailure, nil
	case ContinueOnFailure:
		return ContinueOnFailure, nil
	default:
		return "", errors.Wrapf(ErrUnknownPolicy, "%q", s)
	}
}

// Options configures an Engine.
type Options struct {
	// Kind names the entity kind in logs and reports ("categories").
	Kind string

	// ScopeLimit is passed to ScopeSource.ListScopes. Zero selects
	// DefaultScopeLimit.
	ScopeLimit int

	OnFailure FailurePolicy
	Logger    *zap.SugaredLogger
}

// Engine rebuilds and serves breadcrumb records for one entity kind.
type Engine[E any] struct {
	kind       string
	scopes     ScopeSource
	entities   EntitySource[E]
	store      *Store[E]
	scopeLimit int
	onFailure  FailurePolicy
	log        *zap.SugaredLogger

	// rebuildMu serializes Rebuild and RebuildScope.
	rebuildMu sync.Mutex
}

// New creates an Engine. A nil store gets a fresh one.
func New[E any](scopes ScopeSource, entities EntitySource[E], store *Store[E], opts Options) *Engine[E] {
	if store == nil {
		store = NewStore[E]()
	}
	if opts.ScopeLimit <= 0 {
		opts.ScopeLimit = DefaultScopeLimit
	}
	if opts.OnFailure == "" {
		opts.OnFailure = AbortOnFailure
	}
	log := orNop(opts.Logger)
	if opts.Kind != "" {
		log = log.With("kind", opts.Kind)
	}
	return &Engine[E]{
		kind:       opts.Kind,
		scopes:     scopes,
		entities:   entities,
		store:      store,
		scopeLimit: opts.ScopeLimit,
		onFailure:  opts.OnFailure,
		log:        log,
	}
}

// Kind returns the entity kind the engine serves.
func (e *Engine[E]) Kind() string { return e.kind }

// Rebuild lists all scopes and materializes them one at a time, in the
// order the ScopeSource returned them. It never returns an error; failures
// are logged and recorded in the Report.
func (e *Engine[E]) Rebuild(ctx context.Context) Report {
	e.rebuildMu.Lock()
	defer e.rebuildMu.Unlock()

	report := Report{Kind: e.kind, StartedAt: time.Now()}

	scopeIDs, err := e.scopes.ListScopes(ctx, e.scopeLimit)
	if err != nil {
		report.listErr = errors.Wrapf(err, "%s rebuild: listing scopes", e.kind)
		report.ListError = report.listErr.Error()
		e.log.Errorw("Rebuild could not list scopes", "error", err)
		report.FinishedAt = time.Now()
		return report
	}

	stopped := false
	for _, id := range scopeIDs {
		if !stopped && ctx.Err() != nil {
			e.log.Warnw("Rebuild canceled", "scope", id, "error", ctx.Err())
			stopped = true
		}
		if stopped {
			report.Scopes = append(report.Scopes, ScopeResult{ScopeID: id, Status: ScopeSkipped})
			continue
		}

		result := e.materialize(ctx, id)
		report.Scopes = append(report.Scopes, result)
		if result.Status == ScopeFailed && e.onFailure == AbortOnFailure {
			e.log.Warnw("Rebuild aborted after scope failure",
				"scope", id,
				"remaining", len(scopeIDs)-len(report.Scopes))
			stopped = true
		}
	}
	report.Aborted = stopped

	e.log.Infow("Rebuild finished",
		"scopes", len(scopeIDs),
		"ok", report.Count(ScopeOK),
		"failed", report.Count(ScopeFailed),
		"skipped", report.Count(ScopeSkipped),
		"duration_ms", time.Since(report.StartedAt).Milliseconds())
	report.FinishedAt = time.Now()
	return report
}

// RebuildScope rematerializes a single scope. Unlike Rebuild it returns the
// fetch error; the previous records of the scope stay published on failure.
func (e *Engine[E]) RebuildScope(ctx context.Context, scopeID string) (ScopeResult, error) {
	e.rebuildMu.Lock()
	defer e.rebuildMu.Unlock()

	result := e.materialize(ctx, scopeID)
	return result, result.err
}

func (e *Engine[E]) materialize(ctx context.Context, scopeID string) ScopeResult {
	start := time.Now()
	result := ScopeResult{ScopeID: scopeID}

	scope, err := Materialize(ctx, scopeID, e.entities, e.log)
	result.DurationMS = time.Since(start).Milliseconds()
	if err != nil {
		result.Status = ScopeFailed
		result.err = err
		result.Error = err.Error()
		e.log.Errorw("Scope materialization failed", "scope", scopeID, "error", err)
		return result
	}

	prev := e.store.Replace(scope)
	result.Status = ScopeOK
	result.Records = scope.Len()
	result.Digest = scope.Digest()
	result.Changed = prev == nil || prev.Digest() != scope.Digest() || scope.Digest() == ""
	e.log.Debugw("Scope materialized",
		"scope", scopeID,
		"count", result.Records,
		"changed", result.Changed,
		"duration_ms", result.DurationMS)
	return result
}

// Get returns the breadcrumb record of entityID within scopeID. ok is false
// when the scope was never materialized or does not contain the entity.
// Roots and leaves are found like any other entity, with empty Parents or
// Children.
func (e *Engine[E]) Get(scopeID, entityID string) (Record[E], bool) {
	scope, ok := e.store.Scope(scopeID)
	if !ok {
		return Record[E]{}, false
	}
	return scope.Get(entityID)
}

// Records returns all records of a scope in source order.
func (e *Engine[E]) Records(scopeID string) ([]Record[E], bool) {
	scope, ok := e.store.Scope(scopeID)
	if !ok {
		return nil, false
	}
	return scope.Records(), true
}

// Scopes returns the IDs of all materialized scopes, sorted.
func (e *Engine[E]) Scopes() []string {
	return e.store.ScopeIDs()
}
