package handler

import (
	"encoding/json"
	"net/http"

	"convene/internal/rooms/service"
	httputil "convene/pkg/http"
	"convene/pkg/logger"
	"convene/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type RoomHandler struct {
	service service.RoomService
	log     *logger.Logger
}

func NewRoomHandler(service service.RoomService, log *logger.Logger) *RoomHandler {
	return &RoomHandler{
		service: service,
		log:     log,
	}
}

func (h *RoomHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	rooms, err := h.service.GetAll(r.Context())
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, rooms); err != nil {
		h.log.Error("failed to write success response", "handler", "GetAll", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RoomHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	room, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, room); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RoomHandler) CheckAvailability(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	startTime, err := httputil.ExtractTime(r, "start_time")
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CheckAvailability", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	endTime, err := httputil.ExtractTime(r, "end_time")
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CheckAvailability", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if startTime == nil || endTime == nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Both 'start_time' and 'end_time' query parameters are required",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "CheckAvailability", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	excludeMeetingID := r.URL.Query().Get("exclude_meeting_id")

	availability, err := h.service.CheckAvailability(r.Context(), *startTime, *endTime, excludeMeetingID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CheckAvailability", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, availability); err != nil {
		h.log.Error("failed to write success response", "handler", "CheckAvailability", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RoomHandler) Book(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.BookRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Book", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	booking, err := h.service.Book(r.Context(), ps.ByName("id"), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Book", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Book", "operation", "WriteCreated", "error", err)
	}
}

func (h *RoomHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/rooms", h.GetAll)
	router.GET("/api/v1/rooms/availability", h.CheckAvailability)
	router.GET("/api/v1/rooms/id/:id", h.GetByID)
	router.POST("/api/v1/rooms/id/:id/bookings", h.Book)
}
