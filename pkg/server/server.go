package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"sports-spaces-backend/pkg/config"
	"sports-spaces-backend/pkg/database"
	"sports-spaces-backend/pkg/handlers"
	"sports-spaces-backend/pkg/metrics"
	customMiddleware "sports-spaces-backend/pkg/middleware"
	"sports-spaces-backend/pkg/services"
	"sports-spaces-backend/pkg/storage"
	"sports-spaces-backend/pkg/utils"
)

// jsonBodyLimit caps the JSON-only endpoints
const jsonBodyLimit = 1 << 20

// Deps are the collaborators the router is built from
type Deps struct {
	Config  *config.Config
	DB      database.DatabaseInterface
	Objects storage.ObjectStorage
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// NewRouter wires services, handlers and middleware into a chi router
func NewRouter(deps Deps) *chi.Mux {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := chi.NewRouter()
	setupMiddleware(router, cfg, logger, deps.Metrics)

	sportService := services.NewSportService(deps.DB, logger.Named("sports"))
	spaceService := services.NewSpaceService(deps.DB, deps.Objects, services.SpaceServiceOptions{
		SignedURLTTL: cfg.SignedURLTTL,
		AdminRole:    cfg.AdminRole,
		Logger:       logger.Named("spaces"),
		OnRollback:   deps.Metrics.RollbackObserver(),
	})

	setupRoutes(router, cfg, deps, sportService, spaceService, logger)
	return router
}

func setupMiddleware(router *chi.Mux, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	// normalize before logging and routing
	router.Use(customMiddleware.Normalize())
	router.Use(customMiddleware.RequestLogger(cfg, logger.Named("http")))
	router.Use(customMiddleware.Recovery(cfg, logger))
	if m != nil {
		router.Use(customMiddleware.Metrics(m))
	}
	router.Use(customMiddleware.CORS(cfg))
	router.Use(middleware.Compress(5))
	router.Use(customMiddleware.BearerToken)

	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

func setupRoutes(router *chi.Mux, cfg *config.Config, deps Deps, sportService services.SportService, spaceService services.SpaceService, logger *zap.Logger) {
	healthHandler := handlers.NewHealthHandler(cfg, deps.DB)
	sportsHandler := handlers.NewSportsHandler(cfg, sportService)
	spacesHandler := handlers.NewSpacesHandler(cfg, spaceService, logger.Named("handlers"))

	router.Get("/", healthHandler.HealthCheck)
	if deps.Metrics != nil {
		router.Handle("/metrics", promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{}))
	}
	if cfg.IsDevelopment() {
		router.Get("/debug/db-pool", healthHandler.PoolStats)
	}

	// only reads carry the request deadline
	reads := func(r chi.Router) chi.Router {
		if cfg.RequestTimeout > 0 {
			return r.With(middleware.Timeout(cfg.RequestTimeout))
		}
		return r
	}
	// writes is the middleware chain for mutating endpoints
	writes := func(r chi.Router) chi.Router {
		if cfg.ProtectWrites {
			return r.With(customMiddleware.RequireRole(deps.DB, cfg.AdminRole, logger.Named("auth")))
		}
		return r
	}
	jsonOnly := customMiddleware.RequireContentType("application/json")

	router.Route("/sports", func(r chi.Router) {
		reads(r).Get("/list-sports", sportsHandler.ListSports)
		writes(r).With(jsonOnly, customMiddleware.MaxBodySize(jsonBodyLimit)).
			Post("/create-sport", sportsHandler.CreateSport)
	})

	router.Route("/spaces", func(r chi.Router) {
		reads(r).Get("/list-spaces", spacesHandler.ListSpaces)

		w := writes(r)
		w.With(
			customMiddleware.RequireContentType("application/json", "multipart/form-data"),
			customMiddleware.MaxBodySize(cfg.MaxUploadBytes+jsonBodyLimit),
		).Post("/create-space", spacesHandler.CreateSpace)

		w.Group(func(r chi.Router) {
			r.Use(customMiddleware.MaxBodySize(jsonBodyLimit))
			r.With(jsonOnly).Post("/activate-space", spacesHandler.ActivateSpace)
			r.With(jsonOnly).Post("/inactivate-space", spacesHandler.InactivateSpace)
			r.With(jsonOnly).Put("/edit-space/{id}", spacesHandler.UpdateSpace)
			r.Delete("/delete-space/{id}", spacesHandler.DeleteSpace)
		})

		reads(r).Get("/{id}", spacesHandler.GetSpace)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteMethodNotAllowedResponse(w, fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path))
	})
}
