// Package api serves the festival directory and its breadcrumbs over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mesh-intelligence/festivals/internal/directory"
	"github.com/mesh-intelligence/festivals/pkg/types"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Options configures a Handler.
type Options struct {
	// RebuildsPerMinute limits POST /api/v1/breadcrumbs/rebuild. Zero or
	// less disables the limit.
	RebuildsPerMinute float64

	Logger *zap.SugaredLogger
}

// Handler wraps dependencies for HTTP handlers.
type Handler struct {
	dir     types.Directory
	svc     *directory.Service
	limiter *rate.Limiter
	log     *zap.SugaredLogger
}

// NewHandler creates a Handler over an attached directory and the service
// that owns its breadcrumb engines.
func NewHandler(dir types.Directory, svc *directory.Service, opts Options) *Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	limit := rate.Inf
	if opts.RebuildsPerMinute > 0 {
		limit = rate.Limit(opts.RebuildsPerMinute / 60)
	}
	return &Handler{
		dir:     dir,
		svc:     svc,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
	}
}

// NewRouter creates the HTTP router with all routes registered.
func NewRouter(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)

	// Festivals
	mux.HandleFunc("GET /api/v1/festivals", h.ListFestivals)
	mux.HandleFunc("POST /api/v1/festivals", h.CreateFestival)
	mux.HandleFunc("GET /api/v1/festivals/{festivalID}", h.GetFestival)
	mux.HandleFunc("PUT /api/v1/festivals/{festivalID}", h.UpdateFestival)
	mux.HandleFunc("DELETE /api/v1/festivals/{festivalID}", h.DeleteFestival)

	// Categories and places
	categories := &nodeRoutes[*types.Category]{
		h:         h,
		table:     types.TableCategories,
		engine:    h.svc.Categories,
		newEntity: func() *types.Category { return &types.Category{} },
	}
	places := &nodeRoutes[*types.Place]{
		h:         h,
		table:     types.TablePlaces,
		engine:    h.svc.Places,
		newEntity: func() *types.Place { return &types.Place{} },
	}
	categories.register(mux, "/api/v1/festivals/{festivalID}/categories")
	places.register(mux, "/api/v1/festivals/{festivalID}/places")

	// Breadcrumbs
	mux.HandleFunc("POST /api/v1/breadcrumbs/rebuild", h.Rebuild)

	return h.withLogging(mux)
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Rebuild runs a full rebuild of both kinds and returns the reports.
// Failures are part of the reports, not of the status code.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow() {
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, "rebuild rate limit exceeded", nil)
		return
	}
	reports := h.svc.RebuildAll(r.Context())
	if reports.Failed() {
		h.log.Warnw("Requested rebuild finished with failures", "error", reports.Err())
	}
	writeJSON(w, http.StatusOK, reports)
}

func (h *Handler) table(w http.ResponseWriter, name string) (types.Table, bool) {
	t, err := h.dir.GetTable(name)
	if err != nil {
		h.fail(w, err)
		return nil, false
	}
	return t, true
}

// fail maps a directory error to a status and writes it.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Errorw("Request failed", "error", err)
	}
	writeError(w, status, msg, err)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, types.ErrHasChildren):
		return http.StatusConflict, "entity has dependents"
	case errors.Is(err, types.ErrInvalidName),
		errors.Is(err, types.ErrInvalidFestival),
		errors.Is(err, types.ErrInvalidParent),
		errors.Is(err, types.ErrParentNotFound),
		errors.Is(err, types.ErrInvalidPeriod),
		errors.Is(err, types.ErrInvalidData),
		errors.Is(err, types.ErrInvalidID),
		errors.Is(err, types.ErrInvalidFilter):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, types.ErrDirectoryDetached):
		return http.StatusServiceUnavailable, "directory unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// listFilter builds a table filter from query parameters.
func listFilter(r *http.Request, keys ...string) (types.Filter, error) {
	q := r.URL.Query()
	filter := types.Filter{}
	for _, k := range keys {
		if q.Has(k) {
			filter[k] = q.Get(k)
		}
	}
	for _, k := range []string{"limit", "offset"} {
		if !q.Has(k) {
			continue
		}
		n, err := strconv.Atoi(q.Get(k))
		if err != nil || n < 0 {
			return nil, errors.Wrapf(types.ErrInvalidFilter, "%s must be a non-negative integer", k)
		}
		filter[k] = n
	}
	return filter, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrapf(types.ErrInvalidData, "decoding body: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
