// Package handler exposes the service over HTTP.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/opexhub/be-opex-initiatives/internal/errors"
	"github.com/opexhub/be-opex-initiatives/internal/logger"
	"github.com/opexhub/be-opex-initiatives/internal/service"
)

// HTTPHandler handles HTTP requests.
type HTTPHandler struct {
	initiatives *service.InitiativeService
	workflows   *service.WorkflowService
	kpis        *service.KPIService
	log         *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(
	initiatives *service.InitiativeService,
	workflows *service.WorkflowService,
	kpis *service.KPIService,
	log *logger.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		initiatives: initiatives,
		workflows:   workflows,
		kpis:        kpis,
		log:         log,
	}
}

// errorResponse is the JSON error body. Fields is present for validation
// failures so clients can show every problem at once.
type errorResponse struct {
	Error  string   `json:"error"`
	Code   string   `json:"code"`
	Fields []string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errors.HTTPStatus(err), errorResponse{
		Error:  err.Error(),
		Code:   string(errors.CodeOf(err)),
		Fields: errors.FieldsOf(err),
	})
}

// CreateInitiative handles initiative registration requests.
func (h *HTTPHandler) CreateInitiative(w http.ResponseWriter, r *http.Request) {
	var req service.CreateInitiativeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.InvalidInput("body", "invalid request body"))
		return
	}

	init, err := h.initiatives.CreateInitiative(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, init)
}

// GetInitiative handles single-initiative lookups by business identifier.
func (h *HTTPHandler) GetInitiative(w http.ResponseWriter, r *http.Request) {
	initiativeID := r.URL.Query().Get("id")
	if initiativeID == "" {
		writeError(w, errors.InvalidInput("id", "initiative id is required"))
		return
	}

	init, err := h.initiatives.GetInitiative(r.Context(), initiativeID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, init)
}

// ListInitiatives handles filtered, paginated initiative listing.
func (h *HTTPHandler) ListInitiatives(w http.ResponseWriter, r *http.Request) {
	var sitePtr, statusPtr *string
	if site := r.URL.Query().Get("site"); site != "" {
		sitePtr = &site
	}
	if status := r.URL.Query().Get("status"); status != "" {
		statusPtr = &status
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	initiatives, total, err := h.initiatives.ListInitiatives(r.Context(), sitePtr, statusPtr, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"initiatives": initiatives,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
	})
}

// ListSites handles site reference listing.
func (h *HTTPHandler) ListSites(w http.ResponseWriter, r *http.Request) {
	sites, err := h.initiatives.ListSites(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sites)
}

// ListDisciplines handles discipline reference listing.
func (h *HTTPHandler) ListDisciplines(w http.ResponseWriter, r *http.Request) {
	disciplines, err := h.initiatives.ListDisciplines(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, disciplines)
}

// RecordKPI handles KPI recording requests.
func (h *HTTPHandler) RecordKPI(w http.ResponseWriter, r *http.Request) {
	var req service.RecordKPIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.InvalidInput("body", "invalid request body"))
		return
	}

	entry, err := h.kpis.RecordKPI(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// ListKPIs handles KPI listing per site.
func (h *HTTPHandler) ListKPIs(w http.ResponseWriter, r *http.Request) {
	siteCode := r.URL.Query().Get("site")
	if siteCode == "" {
		writeError(w, errors.InvalidInput("site", "site is required"))
		return
	}

	entries, err := h.kpis.ListKPIs(r.Context(), siteCode)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}
