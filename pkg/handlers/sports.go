package handlers

import (
	"net/http"

	"sports-spaces-backend/pkg/config"
	"sports-spaces-backend/pkg/services"
	"sports-spaces-backend/pkg/utils"
)

type SportsHandler struct {
	config  *config.Config
	service services.SportService
}

func NewSportsHandler(cfg *config.Config, service services.SportService) *SportsHandler {
	return &SportsHandler{config: cfg, service: service}
}

type createSportRequest struct {
	Name string `json:"name"`
}

// GET /sports/list-sports
func (h *SportsHandler) ListSports(w http.ResponseWriter, r *http.Request) {
	sports, err := h.service.ListSports(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, sports)
}

// POST /sports/create-sport
func (h *SportsHandler) CreateSport(w http.ResponseWriter, r *http.Request) {
	var req createSportRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}
	sport, err := h.service.CreateSport(r.Context(), req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, sport)
}
