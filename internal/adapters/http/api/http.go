// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"

	"github.com/okian/festa/internal/domain/types"
	"github.com/okian/festa/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RecommendationDependencies
	FestivalDependencies

	// Ready reports whether the recommendation data is loaded.
	Ready() bool
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler          *HealthHandler
	readyHandler           *ReadyHandler
	statsHandler           *StatsHandler
	recommendationsHandler *RecommendationsHandler
	festivalsHandler       *FestivalsHandler

	corsOrigins []string
	rateLimit   int
	rateWindow  time.Duration
	logger      logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithCORSOrigins sets the origins allowed to call the API from a browser.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// WithRateLimit limits each client IP to requests per window. Zero disables it.
func WithRateLimit(requests int, window time.Duration) Option {
	return func(s *Server) {
		s.rateLimit = requests
		s.rateWindow = window
	}
}

// WithLogger sets the logger used for access and error logs.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		corsOrigins: []string{"*"},
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler()
	s.readyHandler = NewReadyHandler(deps)
	s.statsHandler = NewStatsHandler(statsProvider)
	s.recommendationsHandler = NewRecommendationsHandler(deps, s.logger)
	s.festivalsHandler = NewFestivalsHandler(deps, s.logger)
	return s
}

// Router builds a chi router carrying the shared middleware stack and every
// API route. Callers may mount further routes on the result.
func (s *Server) Router(ctx context.Context) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(RequestID(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(CORS(s.corsOrigins))
	r.Use(RateLimit(s.rateLimit, s.rateWindow))
	s.Register(ctx, r)
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/readyz", MetricsMiddleware(s.readyHandler.HandleReady, "readyz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Get("/recommendations/{content_id}", MetricsMiddleware(s.recommendationsHandler.HandleGetRecommendations, "recommendations"))
	r.Get("/festivals", MetricsMiddleware(s.festivalsHandler.HandleListFestivals, "festivals"))
	r.Get("/festivals/{content_id}", MetricsMiddleware(s.festivalsHandler.HandleGetFestival, "festival"))
}

// errorResponse is the body of every non-2xx answer. Detail repeats Message
// for clients written against the FastAPI error shape.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg, Detail: msg})
}

// writeKindError translates a service error to its status code by kind.
func writeKindError(ctx context.Context, l logger.Logger, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, types.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, types.ErrNotReady):
		writeError(w, http.StatusServiceUnavailable, "not_ready", err)
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the body.
		writeError(w, statusClientClosedRequest, "canceled", err)
	default:
		l.Error(ctx, "request failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
