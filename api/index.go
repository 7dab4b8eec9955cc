package handler

import (
	"net/http"
	"sync"

	"go.uber.org/zap"
	"sports-spaces-backend/pkg/config"
	"sports-spaces-backend/pkg/database"
	"sports-spaces-backend/pkg/logger"
	"sports-spaces-backend/pkg/metrics"
	"sports-spaces-backend/pkg/server"
	"sports-spaces-backend/pkg/utils"
)

// per cold start
var (
	logOnce    sync.Once
	appLogger  *zap.Logger
	metricOnce sync.Once
	appMetrics *metrics.Metrics
)

// Handler is the Vercel function entry point. All routes live in one chi router.
func Handler(w http.ResponseWriter, r *http.Request) {
	cfg := config.GetCached()

	logOnce.Do(func() {
		appLogger = logger.Must(cfg.LogLevel, cfg.LogFormat)
	})
	metricOnce.Do(func() {
		appMetrics = metrics.New()
	})

	deps, err := server.Bootstrap(cfg, appLogger, appMetrics, database.GetDatabase)
	if err != nil {
		appLogger.Error("bootstrap failed", zap.Error(err))
		utils.WriteInternalServerErrorResponse(w, "Configuration error: "+err.Error())
		return
	}

	server.NewRouter(deps).ServeHTTP(w, r)
}
