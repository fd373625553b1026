package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"convene/internal/polls/service"
	httputil "convene/pkg/http"
	"convene/pkg/logger"
	"convene/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type PollHandler struct {
	service service.PollService
	log     *logger.Logger
}

func NewPollHandler(service service.PollService, log *logger.Logger) *PollHandler {
	return &PollHandler{
		service: service,
		log:     log,
	}
}

func (h *PollHandler) Create(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.PollCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	poll, err := h.service.CreatePoll(r.Context(), ps.ByName("id"), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, poll); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *PollHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	poll, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, poll); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PollHandler) Vote(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Vote", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	poll, err := h.service.Vote(r.Context(), ps.ByName("id"), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Vote", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, poll); err != nil {
		h.log.Error("failed to write success response", "handler", "Vote", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PollHandler) Close(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	poll, err := h.service.Close(r.Context(), ps.ByName("id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Close", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, poll); err != nil {
		h.log.Error("failed to write success response", "handler", "Close", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PollHandler) Finalize(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	// The finalize body is optional; an empty body means count the votes.
	var req model.FinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Finalize", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	poll, err := h.service.Finalize(r.Context(), ps.ByName("id"), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Finalize", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, poll); err != nil {
		h.log.Error("failed to write success response", "handler", "Finalize", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PollHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/meetings/:id/polls", h.Create)
	router.GET("/api/v1/polls/:id", h.GetByID)
	router.POST("/api/v1/polls/:id/votes", h.Vote)
	router.POST("/api/v1/polls/:id/close", h.Close)
	router.POST("/api/v1/polls/:id/finalize", h.Finalize)
}
