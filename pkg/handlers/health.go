package handlers

import (
	"net/http"
	"time"

	"sports-spaces-backend/pkg/config"
	"sports-spaces-backend/pkg/database"
	"sports-spaces-backend/pkg/utils"
)

type HealthHandler struct {
	config  *config.Config
	db      database.DatabaseInterface
	started time.Time
}

func NewHealthHandler(cfg *config.Config, db database.DatabaseInterface) *HealthHandler {
	return &HealthHandler{config: cfg, db: db, started: time.Now()}
}

// GET /
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.db.HealthCheck(); err != nil {
		utils.WriteErrorResponseWithCode(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE",
			"Database unavailable", err.Error())
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{
		"status":      "ok",
		"service":     "sports-spaces-backend",
		"environment": h.config.Environment,
		"uptime":      time.Since(h.started).Round(time.Second).String(),
	})
}

// GET /debug/db-pool, development only
func (h *HealthHandler) PoolStats(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccessResponse(w, database.GetConnectionStats())
}
