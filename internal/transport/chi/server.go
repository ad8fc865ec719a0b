package chi

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/geofeed/internal/domain"
	domdisc "github.com/kailas-cloud/geofeed/internal/domain/discovery"
	"github.com/kailas-cloud/geofeed/internal/domain/engagement"
	"github.com/kailas-cloud/geofeed/internal/domain/entity"
	"github.com/kailas-cloud/geofeed/internal/domain/feed"
	engagementuc "github.com/kailas-cloud/geofeed/internal/usecase/engagement"
	healthuc "github.com/kailas-cloud/geofeed/internal/usecase/health"
)

const maxBodyBytes = 1 << 20

// Error codes returned to clients.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeUnauthorized     = "unauthorized"
	codeNotFound         = "not_found"
	codeUpstream         = "upstream_unavailable"
	codeInternal         = "internal_error"
)

// Feed assembles the unpersonalized discovery feed.
type Feed interface {
	Assemble(ctx context.Context, f domdisc.Filters) (feed.Result, error)
}

// Recommender serves the ranked feeds.
type Recommender interface {
	ForYou(ctx context.Context, userID string, f domdisc.Filters, topN int) ([]feed.Item, error)
	Popular(ctx context.Context, kind entity.Kind, topN int) ([]feed.Item, error)
}

// Recorder ingests engagement entries.
type Recorder interface {
	Record(ctx context.Context, userID string, entries []engagement.Metric) (engagementuc.Result, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type itemsResponse struct {
	Data []feed.Item `json:"data"`
}

type markersResponse struct {
	Data []feed.Marker `json:"data"`
}

type recordResponse struct {
	Recorded int `json:"recorded"`
	Skipped  int `json:"skipped"`
}

type healthResponse struct {
	Status healthuc.Status                 `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server holds the HTTP handlers of the discovery API.
type Server struct {
	feed          Feed
	recommend     Recommender
	recorder      Recorder
	health        HealthChecker
	auth          func(http.Handler) http.Handler
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. auth guards the routes that need a
// caller identity.
func NewServer(
	feed Feed,
	recommend Recommender,
	recorder Recorder,
	health HealthChecker,
	auth func(http.Handler) http.Handler,
	logger *zap.Logger,
) *Server {
	s := &Server{
		feed:      feed,
		recommend: recommend,
		recorder:  recorder,
		health:    health,
		auth:      auth,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		validationHandler,
		sentinelHandler(domain.ErrUnauthorized, http.StatusUnauthorized, codeUnauthorized),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrUpstream, http.StatusServiceUnavailable, codeUpstream),
	}
	return s
}

// Routes registers every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Get("/discover", s.Discover)
	r.Get("/discover/popular", s.Popular)
	r.Group(func(r chi.Router) {
		r.Use(s.auth)
		r.Get("/discover/for-you", s.ForYou)
		r.Post("/metrics", s.RecordMetrics)
	})
}

// Discover handles GET /discover.
func (s *Server) Discover(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilters(r.URL.Query())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	res, err := s.feed.Assemble(r.Context(), f)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if f.View == domdisc.ViewMap && !f.HasDirectIDs() {
		markers := res.Markers
		if markers == nil {
			markers = []feed.Marker{}
		}
		writeJSON(w, http.StatusOK, markersResponse{Data: markers})
		return
	}
	writeItems(w, res.Items)
}

// ForYou handles GET /discover/for-you.
func (s *Server) ForYou(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilters(r.URL.Query())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	topN, err := parseTopN(r.URL.Query())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items, err := s.recommend.ForYou(r.Context(), UserFromContext(r.Context()), f, topN)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeItems(w, items)
}

// Popular handles GET /discover/popular.
func (s *Server) Popular(w http.ResponseWriter, r *http.Request) {
	kind, limit, err := parsePopular(r.URL.Query())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items, err := s.recommend.Popular(r.Context(), kind, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeItems(w, items)
}

// RecordMetrics handles POST /metrics.
func (s *Server) RecordMetrics(w http.ResponseWriter, r *http.Request) {
	var req metricsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body", "")
		return
	}
	if err := validateStruct(&req); err != nil {
		s.handleDomainError(w, err)
		return
	}

	res, err := s.recorder.Record(r.Context(), UserFromContext(r.Context()), req.metrics())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recordResponse{Recorded: res.Recorded, Skipped: res.Skipped})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{Status: report.Status, Checks: report.Checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeItems(w http.ResponseWriter, items []feed.Item) {
	if items == nil {
		items = []feed.Item{}
	}
	writeJSON(w, http.StatusOK, itemsResponse{Data: items})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message, field string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message, Field: field})
}

// validationHandler reports the offending field of a validation error.
func validationHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrValidation) {
		return false
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, codeValidationFailed, ve.Field+": "+ve.Reason, ve.Field)
		return true
	}
	writeError(w, http.StatusBadRequest, codeValidationFailed, domain.ErrValidation.Error(), "")
	return true
}

// sentinelHandler returns an errorHandler that matches a single sentinel
// error. The client sees only the sentinel message.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error(), "")
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error", "")
}
