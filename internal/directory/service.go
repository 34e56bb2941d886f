// This file implements the directory service that keeps breadcrumbs current after writes.
package directory

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/festivals/internal/breadcrumbs"
	"github.com/mesh-intelligence/festivals/pkg/types"
)

// Config tunes the rebuild behavior of a Service.
type Config struct {
	OnFailure  breadcrumbs.FailurePolicy
	ScopeLimit int

	// Interval between periodic full rebuilds. Zero disables them.
	Interval time.Duration

	Logger *zap.SugaredLogger
}

// Service owns one breadcrumb engine per hierarchical kind and triggers
// their rebuilds.
type Service struct {
	Categories *breadcrumbs.Engine[*types.Category]
	Places     *breadcrumbs.Engine[*types.Place]

	interval time.Duration
	trigger  chan struct{}
	log      *zap.SugaredLogger
}

// Reports pairs the rebuild reports of both kinds.
type Reports struct {
	Categories breadcrumbs.Report `json:"categories"`
	Places     breadcrumbs.Report `json:"places"`
}

// Failed reports whether either rebuild recorded a failure.
func (r Reports) Failed() bool {
	return r.Categories.Failed() || r.Places.Failed()
}

// Err returns the first failure of either rebuild.
func (r Reports) Err() error {
	if err := r.Categories.Err(); err != nil {
		return err
	}
	return r.Places.Err()
}

// NewService builds the engines over the tables of dir. dir must be
// attached.
func NewService(dir types.Directory, cfg Config) (*Service, error) {
	festivals, err := dir.GetTable(types.TableFestivals)
	if err != nil {
		return nil, errors.Wrap(err, "festivals table")
	}
	categories, err := dir.GetTable(types.TableCategories)
	if err != nil {
		return nil, errors.Wrap(err, "categories table")
	}
	places, err := dir.GetTable(types.TablePlaces)
	if err != nil {
		return nil, errors.Wrap(err, "places table")
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	scopes := FestivalScopes(festivals)

	return &Service{
		Categories: breadcrumbs.New(scopes, CategorySource(categories), nil, breadcrumbs.Options{
			Kind:       types.TableCategories,
			ScopeLimit: cfg.ScopeLimit,
			OnFailure:  cfg.OnFailure,
			Logger:     log,
		}),
		Places: breadcrumbs.New(scopes, PlaceSource(places), nil, breadcrumbs.Options{
			Kind:       types.TablePlaces,
			ScopeLimit: cfg.ScopeLimit,
			OnFailure:  cfg.OnFailure,
			Logger:     log,
		}),
		interval: cfg.Interval,
		trigger:  make(chan struct{}, 1),
		log:      log,
	}, nil
}

// RebuildAll rebuilds categories, then places.
func (s *Service) RebuildAll(ctx context.Context) Reports {
	return Reports{
		Categories: s.Categories.Rebuild(ctx),
		Places:     s.Places.Rebuild(ctx),
	}
}

// Trigger asks Run for a full rebuild. It never blocks; triggers that
// arrive while one is pending are coalesced.
func (s *Service) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run performs an initial full rebuild, then rebuilds on every Trigger and
// every Interval until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	s.logReports(s.RebuildAll(ctx))

	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			s.logReports(s.RebuildAll(ctx))
		case <-s.trigger:
			s.logReports(s.RebuildAll(ctx))
		}
	}
}

// AfterWrite rematerializes the festival touched by a write to table.
// Festival writes do not change any hierarchy and are ignored.
func (s *Service) AfterWrite(ctx context.Context, table, festivalID string) {
	if festivalID == "" {
		return
	}
	var err error
	switch table {
	case types.TableCategories:
		_, err = s.Categories.RebuildScope(ctx, festivalID)
	case types.TablePlaces:
		_, err = s.Places.RebuildScope(ctx, festivalID)
	default:
		return
	}
	if err != nil {
		s.log.Warnw("Breadcrumb refresh after write failed",
			"kind", table,
			"festival_id", festivalID,
			"error", err)
	}
}

func (s *Service) logReports(r Reports) {
	if r.Failed() {
		s.log.Warnw("Breadcrumb rebuild finished with failures", "error", r.Err())
	}
}
