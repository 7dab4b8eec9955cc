package handlers

import (
	"errors"
	"net/http"
	"strconv"

	chiRoute "github.com/go-chi/chi/v5"
	"sports-spaces-backend/pkg/services"
	"sports-spaces-backend/pkg/utils"
)

// writeServiceError maps a service error kind to its HTTP status and code
func writeServiceError(w http.ResponseWriter, err error) {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		utils.WriteInternalServerErrorResponse(w, err.Error())
		return
	}

	switch svcErr.Kind {
	case services.KindValidation:
		utils.WriteValidationErrorResponse(w, svcErr.Message, svcErr.Details())
	case services.KindNotFound:
		utils.WriteNotFoundResponse(w, svcErr.Message)
	default:
		utils.WriteErrorResponseWithCode(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", svcErr.Message, svcErr.Details())
	}
}

// writeBodyError reports a request body that could not be decoded
func writeBodyError(w http.ResponseWriter, err error) {
	if errors.Is(err, utils.ErrBodyTooLarge) {
		utils.WriteRequestTooLargeResponse(w, err.Error())
		return
	}
	utils.WriteBadRequestResponse(w, err.Error())
}

// spaceIDParam reads the {id} route parameter, which must be a positive integer
func spaceIDParam(r *http.Request) (int64, bool) {
	return parseID(chiRoute.URLParam(r, "id"))
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
