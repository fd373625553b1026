package handler

import (
	"encoding/json"
	"net/http"

	"convene/internal/meetings/service"
	httputil "convene/pkg/http"
	"convene/pkg/logger"
	"convene/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type MeetingHandler struct {
	service service.MeetingService
	log     *logger.Logger
}

func NewMeetingHandler(service service.MeetingService, log *logger.Logger) *MeetingHandler {
	return &MeetingHandler{
		service: service,
		log:     log,
	}
}

func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var meeting model.Meeting
	if err := json.NewDecoder(r.Body).Decode(&meeting); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.Create(r.Context(), &meeting); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, meeting); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *MeetingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	meeting, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, meeting); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *MeetingHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	meetings, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, meetings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *MeetingHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var updates model.MeetingUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Update", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.Update(r.Context(), ps.ByName("id"), &updates); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Update", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *MeetingHandler) UpdateMetadata(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var metadata map[string]any
	if err := json.NewDecoder(r.Body).Decode(&metadata); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "UpdateMetadata", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.UpdateMetadata(r.Context(), ps.ByName("id"), metadata); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "UpdateMetadata", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *MeetingHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Delete", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *MeetingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/meetings", h.Create)
	router.GET("/api/v1/meetings", h.GetAll)
	router.GET("/api/v1/meetings/:id", h.GetByID)
	router.PATCH("/api/v1/meetings/:id", h.Update)
	router.PUT("/api/v1/meetings/:id/metadata", h.UpdateMetadata)
	router.DELETE("/api/v1/meetings/:id", h.Delete)
}
