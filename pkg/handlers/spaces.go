package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/h2non/filetype"
	"go.uber.org/zap"
	"sports-spaces-backend/pkg/config"
	"sports-spaces-backend/pkg/middleware"
	"sports-spaces-backend/pkg/models"
	"sports-spaces-backend/pkg/services"
	"sports-spaces-backend/pkg/utils"
)

type SpacesHandler struct {
	config  *config.Config
	service services.SpaceService
	logger  *zap.Logger
}

func NewSpacesHandler(cfg *config.Config, service services.SpaceService, logger *zap.Logger) *SpacesHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SpacesHandler{config: cfg, service: service, logger: logger}
}

type spaceIDRequest struct {
	ID int64 `json:"id"`
}

// POST /spaces/create-space
// multipart/form-data with a "data" JSON field and an optional "image" file,
// or a plain JSON body without image.
func (h *SpacesHandler) CreateSpace(w http.ResponseWriter, r *http.Request) {
	var cmd services.CreateSpaceCommand
	var image *services.ImageUpload

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		var ok bool
		image, ok = h.parseMultipartCreate(w, r, &cmd)
		if !ok {
			return
		}
	} else if err := utils.ParseJSONBody(r, &cmd); err != nil {
		writeBodyError(w, err)
		return
	}

	space, err := h.service.CreateSpace(r.Context(), cmd, image)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, space)
}

func (h *SpacesHandler) parseMultipartCreate(w http.ResponseWriter, r *http.Request, cmd *services.CreateSpaceCommand) (*services.ImageUpload, bool) {
	if err := r.ParseMultipartForm(h.config.MaxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			utils.WriteRequestTooLargeResponse(w, "request body too large")
			return nil, false
		}
		utils.WriteBadRequestResponse(w, "invalid multipart form: "+err.Error())
		return nil, false
	}
	defer r.MultipartForm.RemoveAll()

	data := r.FormValue("data")
	if strings.TrimSpace(data) == "" {
		utils.WriteValidationErrorResponse(w, "data field is required", "")
		return nil, false
	}
	if err := json.Unmarshal([]byte(data), cmd); err != nil {
		utils.WriteBadRequestResponse(w, "data field is not valid JSON: "+err.Error())
		return nil, false
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, true
	}
	if err != nil {
		utils.WriteBadRequestResponse(w, "invalid image field: "+err.Error())
		return nil, false
	}
	defer file.Close()

	buf, err := io.ReadAll(io.LimitReader(file, h.config.MaxUploadBytes+1))
	if err != nil {
		utils.WriteBadRequestResponse(w, "failed to read image: "+err.Error())
		return nil, false
	}
	if int64(len(buf)) > h.config.MaxUploadBytes {
		utils.WriteRequestTooLargeResponse(w, fmt.Sprintf("image exceeds %d bytes", h.config.MaxUploadBytes))
		return nil, false
	}
	if len(buf) == 0 {
		return nil, true
	}

	// trust the bytes, not the client's Content-Type
	kind, err := filetype.Match(buf)
	if err != nil || !filetype.IsImage(buf) {
		h.logger.Warn("rejected non-image upload", zap.String("filename", header.Filename), zap.String("detected", kind.MIME.Value))
		utils.WriteValidationErrorResponse(w, "image must be an image file", "detected type: "+kind.MIME.Value)
		return nil, false
	}

	return &services.ImageUpload{
		Filename:    header.Filename,
		ContentType: kind.MIME.Value,
		Data:        buf,
	}, true
}

// GET /spaces/list-spaces
func (h *SpacesHandler) ListSpaces(w http.ResponseWriter, r *http.Request) {
	spaces, err := h.service.ListSpaces(r.Context(), middleware.TokenFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, spaces)
}

// GET /spaces/{id}
func (h *SpacesHandler) GetSpace(w http.ResponseWriter, r *http.Request) {
	id, ok := spaceIDParam(r)
	if !ok {
		utils.WriteValidationErrorResponse(w, "id must be a positive integer", "")
		return
	}
	space, err := h.service.GetSpaceByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, space)
}

// POST /spaces/activate-space
func (h *SpacesHandler) ActivateSpace(w http.ResponseWriter, r *http.Request) {
	h.changeState(w, r, h.service.ActivateSpace)
}

// POST /spaces/inactivate-space
func (h *SpacesHandler) InactivateSpace(w http.ResponseWriter, r *http.Request) {
	h.changeState(w, r, h.service.InactivateSpace)
}

func (h *SpacesHandler) changeState(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id int64) (*models.MessageResponse, error)) {
	var req spaceIDRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}
	if req.ID <= 0 {
		utils.WriteValidationErrorResponse(w, "id must be a positive integer", "")
		return
	}
	msg, err := apply(r.Context(), req.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, msg)
}

// PUT /spaces/edit-space/{id}
func (h *SpacesHandler) UpdateSpace(w http.ResponseWriter, r *http.Request) {
	id, ok := spaceIDParam(r)
	if !ok {
		utils.WriteValidationErrorResponse(w, "id must be a positive integer", "")
		return
	}
	var cmd services.UpdateSpaceCommand
	if err := utils.ParseJSONBody(r, &cmd); err != nil {
		writeBodyError(w, err)
		return
	}
	space, err := h.service.UpdateSpace(r.Context(), id, cmd)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, space)
}

// DELETE /spaces/delete-space/{id}
func (h *SpacesHandler) DeleteSpace(w http.ResponseWriter, r *http.Request) {
	id, ok := spaceIDParam(r)
	if !ok {
		utils.WriteValidationErrorResponse(w, "id must be a positive integer", "")
		return
	}
	msg, err := h.service.DeleteSpace(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, msg)
}
