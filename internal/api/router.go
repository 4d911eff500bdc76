package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/Harshitk-cp/feps/internal/api/handlers"
	mw "github.com/Harshitk-cp/feps/internal/api/middleware"
	"github.com/Harshitk-cp/feps/internal/buildconfig"
	"github.com/Harshitk-cp/feps/internal/config"
	"github.com/Harshitk-cp/feps/internal/domain"
	"github.com/Harshitk-cp/feps/internal/service"
	"github.com/Harshitk-cp/feps/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router       *chi.Mux
	Models       *service.ModelService
	Checkpoint   *service.CheckpointService
	Expirer      *service.ExpirerService
	backend      store.Backend
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(backend store.Backend, logger *zap.Logger) *App {
	// Services
	defaults := domain.ModelParams{
		Clones:     config.DefaultClones(),
		Gamma:      config.DefaultGamma(),
		BaseReward: config.DefaultBaseReward(),
	}
	modelSvc := service.NewModelService(backend.Agents(), backend.Snapshots(), defaults, logger)
	modelSvc.SetSnapshotKeep(config.SnapshotKeep())

	checkpointSvc := service.NewCheckpointService(modelSvc, logger)
	checkpointSvc.SetInterval(config.CheckpointInterval())

	expirerSvc := service.NewExpirerService(modelSvc, logger)
	expirerSvc.SetInterval(config.ExpirerInterval())
	expirerSvc.SetTTL(config.ModelIdleTTL())

	// Handlers
	agentHandler := handlers.NewAgentHandler(modelSvc)
	observationHandler := handlers.NewObservationHandler(modelSvc)
	predictionHandler := handlers.NewPredictionHandler(modelSvc)
	outcomeHandler := handlers.NewOutcomeHandler(modelSvc)
	snapshotHandler := handlers.NewSnapshotHandler(modelSvc)

	r := chi.NewRouter()

	// Initialize app with metrics tracking
	app := &App{
		Router:     r,
		Models:     modelSvc,
		Checkpoint: checkpointSvc,
		Expirer:    expirerSvc,
		backend:    backend,
		startTime:  time.Now(),
	}

	// Metrics collector for middleware
	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)                                                 // Generate/extract request ID first
	r.Use(middleware.RealIP)                                            // Extract real IP
	r.Use(metricsCollector.Middleware)                                  // Collect metrics
	r.Use(mw.Logging(logger))                                           // Log all requests
	r.Use(middleware.Recoverer)                                         // Recover from panics
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst())) // Rate limiting

	// Health (no auth)
	r.Get("/health", healthHandler(backend))

	// Metrics (no auth)
	r.Get("/metrics", app.metricsHandler())

	// Authenticated routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(config.APIKey()))

		// Agents
		r.Route("/agents", func(r chi.Router) {
			r.Post("/", agentHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", agentHandler.Get)

				// Learning loop
				r.Post("/observations", observationHandler.Observe)
				r.Post("/vocabulary", observationHandler.RegisterVocabulary)
				r.Get("/prediction", predictionHandler.Predict)
				r.Get("/uncertainty", predictionHandler.Uncertainty)
				r.Get("/beliefs", predictionHandler.Beliefs)
				r.Post("/outcomes", outcomeHandler.Resolve)
				r.Delete("/episode", outcomeHandler.ResetEpisode)

				// Model lifecycle
				r.Get("/model", snapshotHandler.Export)
				r.Put("/model", snapshotHandler.Import)
				r.Post("/checkpoint", snapshotHandler.Checkpoint)
			})
		})
	})

	return app
}

// NewRouter returns just the chi.Mux for callers that manage their own
// service lifecycles.
func NewRouter(backend store.Backend, logger *zap.Logger) *chi.Mux {
	return NewApp(backend, logger).Router
}

func healthHandler(backend store.Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := backend.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "store": backend.Name(), "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "store": backend.Name()})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"models_loaded":  app.Models.Loaded(),
			"store":          app.backend.Name(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
			"version":    buildconfig.Version(),
			"commit":     buildconfig.Commit(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}
