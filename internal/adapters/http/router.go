// Package httpadapter serves the dashboard: JSON renderings of the console
// views and the forms that mutate the directory.
package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/directory-console/internal/core/domain"
	"github.com/kirillkom/directory-console/internal/core/usecase"
)

const serviceName = "dashboard"

// Metrics is the subset of the HTTP metrics used by the router.
type Metrics interface {
	Middleware(service string, next http.Handler) http.Handler
	Handler() http.Handler
	StreamOpened(service, stream string) func()
	RecordRateLimited()
}

type Options struct {
	RateLimitRPS    float64
	RateLimitBurst  int
	MaxInFlight     int
	InFlightTimeout time.Duration
	// StreamKeepAlive is the comment ping period of event streams.
	StreamKeepAlive time.Duration
}

type Router struct {
	views     *usecase.Views
	directory *usecase.DirectoryService
	monitor   *usecase.ImportMonitor
	exports   *usecase.ExportUseCase
	metrics   Metrics
	logger    *slog.Logger
	opts      Options
}

func NewRouter(
	views *usecase.Views,
	directory *usecase.DirectoryService,
	monitor *usecase.ImportMonitor,
	exports *usecase.ExportUseCase,
	metrics Metrics,
	logger *slog.Logger,
	opts Options,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.StreamKeepAlive <= 0 {
		opts.StreamKeepAlive = 15 * time.Second
	}
	return &Router{
		views:     views,
		directory: directory,
		monitor:   monitor,
		exports:   exports,
		metrics:   metrics,
		logger:    logger,
		opts:      opts,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	mux.HandleFunc("GET /v1/sites", rt.listSites)
	mux.HandleFunc("POST /v1/sites", rt.createSite)
	mux.HandleFunc("GET /v1/sites/{site_id}", rt.sitePanel)
	mux.HandleFunc("PUT /v1/sites/{site_id}", rt.updateSite)
	mux.HandleFunc("DELETE /v1/sites/{site_id}", rt.deleteSite)
	mux.HandleFunc("GET /v1/sites/{site_id}/imports", rt.importBoard)
	mux.HandleFunc("POST /v1/sites/{site_id}/imports", rt.createImport)
	mux.HandleFunc("GET /v1/sites/{site_id}/imports/stream", rt.importStream)
	mux.HandleFunc("GET /v1/sites/{site_id}/map", rt.siteMap)
	mux.HandleFunc("GET /v1/sites/{site_id}/map/stream", rt.mapStream)
	mux.HandleFunc("GET /v1/sites/{site_id}/pages", rt.listPages)
	mux.HandleFunc("POST /v1/sites/{site_id}/pages", rt.createPage)
	mux.HandleFunc("GET /v1/sites/{site_id}/pages/{page_id}", rt.getPage)
	mux.HandleFunc("PATCH /v1/sites/{site_id}/pages/{page_id}", rt.updatePage)
	mux.HandleFunc("DELETE /v1/sites/{site_id}/pages/{page_id}", rt.deletePage)
	mux.HandleFunc("GET /v1/sites/{site_id}/prompts", rt.listPrompts)
	mux.HandleFunc("POST /v1/sites/{site_id}/prompts", rt.createPrompt)
	mux.HandleFunc("DELETE /v1/sites/{site_id}/prompts/{prompt_id}", rt.deletePrompt)
	mux.HandleFunc("POST /v1/sites/{site_id}/generate", rt.generate)
	if rt.exports != nil {
		mux.HandleFunc("POST /v1/sites/{site_id}/exports", rt.export)
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.opts.MaxInFlight, rt.opts.InFlightTimeout)
	handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst, rt.recordRateLimited)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) recordRateLimited() {
	if rt.metrics != nil {
		rt.metrics.RecordRateLimited()
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "parse path", errors.New(name+" must be a positive integer"))
	}
	return id, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "decode body", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.logger.Error("dashboard_request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": errorMessage(err)})
}

func errorMessage(err error) string {
	msg := err.Error()
	if strings.TrimSpace(msg) == "" {
		return http.StatusText(http.StatusInternalServerError)
	}
	return msg
}
