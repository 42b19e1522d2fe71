// Package api provides the HTTP chassis for the frost forecast service: a
// chi router with the cross-cutting middleware chain (panic recovery,
// request timeouts, correlation IDs, structured request logging, metrics)
// mounted in front of the domain handlers.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"frostwatch/internal/alerts"
	"frostwatch/internal/types"
)

// defaultRequestTimeout is the soft deadline applied to request contexts
// when the configuration does not specify one.
const defaultRequestTimeout = 29 * time.Second

// PredictionGenerator runs the forecast pipeline on demand.
type PredictionGenerator interface {
	GeneratePrediction(ctx context.Context) (types.Prediction, error)
}

// PredictionLedger is the read surface the API exposes over stored
// predictions.
type PredictionLedger interface {
	Latest(ctx context.Context) (*types.Prediction, error)
	TodaysPredictions(ctx context.Context) ([]types.Prediction, error)
	DailyAverageProbability(ctx context.Context) (float64, bool, error)
}

// SensorReader serves the most recent cached sensor reading.
type SensorReader interface {
	GetLatest(ctx context.Context) (types.CachedReading, error)
}

// AlertDispatcher runs the recipient fan-out on demand.
type AlertDispatcher interface {
	DispatchDailyAlert(ctx context.Context, recipients []string) (alerts.DispatchReport, error)
}

// HTTPMetrics is the narrow metrics interface the chassis records to.
type HTTPMetrics interface {
	RecordHTTPRequest(route, method, status string, duration time.Duration)
}

// Server wires the middleware chain and domain handlers onto a chi router.
type Server struct {
	logger    *slog.Logger
	validate  *validator.Validate
	metrics   HTTPMetrics
	clock     types.Clock
	timeout   time.Duration
	service   string
	startedAt time.Time

	generator   PredictionGenerator
	predictions PredictionLedger
	farmers     types.FarmerDirectory
	sensorCache SensorReader
	dispatcher  AlertDispatcher

	router *chi.Mux
}

// ServerConfig holds the dependencies for creating a Server.
type ServerConfig struct {
	Logger         *slog.Logger
	Metrics        HTTPMetrics // optional
	Clock          types.Clock
	RequestTimeout time.Duration
	Service        string

	Generator   PredictionGenerator
	Predictions PredictionLedger
	Farmers     types.FarmerDirectory
	SensorCache SensorReader
	Dispatcher  AlertDispatcher
}

// NewServer validates the configuration, mounts middleware and routes, and
// returns a ready-to-serve handler.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if cfg.Generator == nil || cfg.Predictions == nil {
		return nil, fmt.Errorf("prediction dependencies must not be nil")
	}
	if cfg.Clock == nil {
		cfg.Clock = types.RealClock{}
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	s := &Server{
		logger:      cfg.Logger,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		metrics:     cfg.Metrics,
		clock:       cfg.Clock,
		timeout:     cfg.RequestTimeout,
		service:     cfg.Service,
		startedAt:   cfg.Clock.Now(),
		generator:   cfg.Generator,
		predictions: cfg.Predictions,
		farmers:     cfg.Farmers,
		sensorCache: cfg.SensorCache,
		dispatcher:  cfg.Dispatcher,
		router:      chi.NewRouter(),
	}
	s.mountRoutes()
	return s, nil
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// mountRoutes registers the middleware chain and all endpoints. Middleware
// order matters: the recoverer is outermost, the request ID must exist
// before the logger runs.
func (s *Server) mountRoutes() {
	s.router.Use(s.Recoverer)
	s.router.Use(ContextTimeoutMiddleware(s.timeout))
	s.router.Use(RequestIDMiddleware)
	s.router.Use(RequestLogger(s.logger))
	s.router.Use(s.MetricsMiddleware)

	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/predictions", s.HandleGeneratePrediction)
		r.Get("/predictions/latest", s.HandleLatestPrediction)
		r.Get("/predictions/today", s.HandleTodaysPredictions)

		r.Post("/alerts/daily", s.HandleDispatchDailyAlert)

		r.Get("/sensors/latest", s.HandleLatestReading)

		r.Post("/farmers", s.HandleRegisterFarmer)
		r.Get("/farmers", s.HandleListFarmers)
	})

	s.router.Get("/health", s.HandleHealth)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())
}
