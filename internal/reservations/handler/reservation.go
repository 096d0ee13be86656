package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"visitscheduler/internal/reservations/service"
	apperrors "visitscheduler/pkg/errors"
	httputil "visitscheduler/pkg/http"
	"visitscheduler/pkg/logger"
	"visitscheduler/pkg/model"
)

type ReservationHandler struct {
	service service.ReservationService
	log     *logger.Logger
}

func NewReservationHandler(service service.ReservationService, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		service: service,
		log:     log,
	}
}

type SweepResult struct {
	Deleted int64 `json:"deleted"`
}

func (h *ReservationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *ReservationHandler) Reserve(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.ReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Reserve", apperrors.InvalidInput("Invalid request body"))
		return
	}

	app, err := h.service.Reserve(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Reserve", err)
		return
	}

	if err := httputil.WriteCreated(w, app); err != nil {
		h.log.Error("failed to write created response", "handler", "Reserve", "operation", "WriteCreated", "error", err)
	}
}

func (h *ReservationHandler) GetApplication(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	app, err := h.service.GetApplication(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetApplication", err)
		return
	}

	if err := httputil.WriteSuccess(w, app); err != nil {
		h.log.Error("failed to write success response", "handler", "GetApplication", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) Amend(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var update model.ApplicationUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeError(w, "Amend", apperrors.InvalidInput("Invalid request body"))
		return
	}

	app, err := h.service.Amend(r.Context(), ps.ByName("id"), &update)
	if err != nil {
		h.writeError(w, "Amend", err)
		return
	}

	if err := httputil.WriteSuccess(w, app); err != nil {
		h.log.Error("failed to write success response", "handler", "Amend", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) Complete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	visit, err := h.service.Complete(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Complete", err)
		return
	}

	if err := httputil.WriteCreated(w, visit); err != nil {
		h.log.Error("failed to write created response", "handler", "Complete", "operation", "WriteCreated", "error", err)
	}
}

func (h *ReservationHandler) Abandon(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Abandon(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "Abandon", err)
		return
	}
	httputil.WriteNoContent(w)
}

// Sweep accepts an optional "window" query parameter as a Go duration.
func (h *ReservationHandler) Sweep(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var window time.Duration
	if windowStr := r.URL.Query().Get("window"); windowStr != "" {
		var err error
		window, err = time.ParseDuration(windowStr)
		if err != nil || window <= 0 {
			h.writeError(w, "Sweep", apperrors.InvalidInput(fmt.Sprintf("invalid window parameter: %s", windowStr)))
			return
		}
	}

	deleted, err := h.service.SweepExpired(r.Context(), window)
	if err != nil {
		h.writeError(w, "Sweep", err)
		return
	}

	if err := httputil.WriteSuccess(w, SweepResult{Deleted: deleted}); err != nil {
		h.log.Error("failed to write success response", "handler", "Sweep", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) GetVisit(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	visit, err := h.service.GetVisit(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetVisit", err)
		return
	}

	if err := httputil.WriteSuccess(w, visit); err != nil {
		h.log.Error("failed to write success response", "handler", "GetVisit", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) CancelVisit(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	visit, err := h.service.CancelVisit(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "CancelVisit", err)
		return
	}

	if err := httputil.WriteSuccess(w, visit); err != nil {
		h.log.Error("failed to write success response", "handler", "CancelVisit", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/applications", h.Reserve)
	router.POST("/api/v1/applications/sweep", h.Sweep)
	router.GET("/api/v1/applications/id/:id", h.GetApplication)
	router.PATCH("/api/v1/applications/id/:id", h.Amend)
	router.DELETE("/api/v1/applications/id/:id", h.Abandon)
	router.POST("/api/v1/applications/id/:id/complete", h.Complete)
	router.GET("/api/v1/visits/id/:id", h.GetVisit)
	router.POST("/api/v1/visits/id/:id/cancel", h.CancelVisit)
}
