package handler

import (
	"encoding/json"
	"net/http"

	"convene/internal/availability/service"
	httputil "convene/pkg/http"
	"convene/pkg/logger"
	"convene/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type AvailabilityHandler struct {
	service service.AvailabilityService
	log     *logger.Logger
}

func NewAvailabilityHandler(service service.AvailabilityService, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log,
	}
}

func (h *AvailabilityHandler) Suggest(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.SuggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Suggest", "error", writeErr)
		}
		return
	}

	result, err := h.service.Suggest(r.Context(), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Suggest", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "Suggest", "error", err)
	}
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/availability/suggest", h.Suggest)
}
