package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"visitscheduler/internal/templates/service"
	apperrors "visitscheduler/pkg/errors"
	httputil "visitscheduler/pkg/http"
	"visitscheduler/pkg/logger"
	"visitscheduler/pkg/model"
)

type TemplateHandler struct {
	service       service.TemplateService
	log           *logger.Logger
	lookaheadDays int
	now           func() time.Time
}

func NewTemplateHandler(service service.TemplateService, log *logger.Logger, lookaheadDays int) *TemplateHandler {
	return &TemplateHandler{
		service:       service,
		log:           log,
		lookaheadDays: lookaheadDays,
		now:           time.Now,
	}
}

func (h *TemplateHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var tpl model.SessionTemplate
	if err := json.NewDecoder(r.Body).Decode(&tpl); err != nil {
		h.writeError(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.Create(r.Context(), &tpl); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, tpl); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *TemplateHandler) GetByReference(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	tpl, err := h.service.GetByReference(r.Context(), ps.ByName("ref"))
	if err != nil {
		h.writeError(w, "GetByReference", err)
		return
	}

	if err := httputil.WriteSuccess(w, tpl); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByReference", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TemplateHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	limit := 0
	if limitStr := query.Get("limit"); limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			h.writeError(w, "GetAll", apperrors.InvalidInput(fmt.Sprintf("invalid limit parameter: %s", limitStr)))
			return
		}
	}

	var offset int64
	if offsetStr := query.Get("offset"); offsetStr != "" {
		var err error
		offset, err = strconv.ParseInt(offsetStr, 10, 64)
		if err != nil {
			h.writeError(w, "GetAll", apperrors.InvalidInput(fmt.Sprintf("invalid offset parameter: %s", offsetStr)))
			return
		}
	}

	templates, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WriteList(w, templates, total); err != nil {
		h.log.Error("failed to write list response", "handler", "GetAll", "operation", "WriteList", "error", err)
	}
}

func (h *TemplateHandler) ListActive(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	from, to, err := httputil.ExtractDateRange(r, h.now(), h.lookaheadDays)
	if err != nil {
		h.writeError(w, "ListActive", err)
		return
	}

	templates, err := h.service.ListActive(r.Context(), ps.ByName("prison"), from, to)
	if err != nil {
		h.writeError(w, "ListActive", err)
		return
	}

	if err := httputil.WriteList(w, templates, int64(len(templates))); err != nil {
		h.log.Error("failed to write list response", "handler", "ListActive", "operation", "WriteList", "error", err)
	}
}

func (h *TemplateHandler) EligibleSessions(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	prisonerID := r.URL.Query().Get("prisonerId")
	if prisonerID == "" {
		h.writeError(w, "EligibleSessions", apperrors.InvalidInput("'prisonerId' query parameter is required"))
		return
	}

	from, to, err := httputil.ExtractDateRange(r, h.now(), h.lookaheadDays)
	if err != nil {
		h.writeError(w, "EligibleSessions", err)
		return
	}

	sessions, err := h.service.EligibleSessions(r.Context(), ps.ByName("prison"), prisonerID, from, to)
	if err != nil {
		h.writeError(w, "EligibleSessions", err)
		return
	}

	if err := httputil.WriteList(w, sessions, int64(len(sessions))); err != nil {
		h.log.Error("failed to write list response", "handler", "EligibleSessions", "operation", "WriteList", "error", err)
	}
}

func (h *TemplateHandler) ValidateMigration(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.MigrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "ValidateMigration", apperrors.InvalidInput("Invalid request body"))
		return
	}

	result, err := h.service.ValidateMigration(r.Context(), &req)
	if err != nil {
		h.writeError(w, "ValidateMigration", err)
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "ValidateMigration", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TemplateHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/templates", h.Create)
	router.GET("/api/v1/templates", h.GetAll)
	router.GET("/api/v1/templates/ref/:ref", h.GetByReference)
	router.GET("/api/v1/templates/prison/:prison", h.ListActive)
	router.GET("/api/v1/templates/prison/:prison/eligible", h.EligibleSessions)
	router.POST("/api/v1/templates/migration/validate", h.ValidateMigration)
}
