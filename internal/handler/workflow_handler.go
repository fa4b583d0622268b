package handler

import (
	"encoding/json"
	"net/http"

	"github.com/opexhub/be-opex-initiatives/internal/errors"
	"github.com/opexhub/be-opex-initiatives/internal/repository"
	"github.com/opexhub/be-opex-initiatives/internal/workflow"
)

// transitionRequest is the approve/reject request body. Stage fields are
// flat on the wire and folded into the engine's per-stage payload variants.
type transitionRequest struct {
	InitiativeID   string         `json:"initiative_id"`
	Actor          workflow.Actor `json:"actor"`
	Comment        string         `json:"comment"`
	InitiativeLead string         `json:"initiative_lead,omitempty"`
	MOCRequired    *bool          `json:"moc_required,omitempty"`
	MOCNumber      string         `json:"moc_number,omitempty"`
	CapexRequired  *bool          `json:"capex_required,omitempty"`
	CapexDetails   string         `json:"capex_details,omitempty"`
}

// payload converts the flat wire fields into the engine payload.
func (req *transitionRequest) payload() workflow.Payload {
	p := workflow.Payload{Comment: req.Comment}
	if req.InitiativeLead != "" {
		p.Lead = &workflow.LeadAssignment{InitiativeLead: req.InitiativeLead}
	}
	if req.MOCRequired != nil {
		p.MOC = &workflow.MOCAssessment{Required: *req.MOCRequired, Number: req.MOCNumber}
	}
	if req.CapexRequired != nil {
		p.Capex = &workflow.CapexAssessment{Required: *req.CapexRequired, Details: req.CapexDetails}
	}
	return p
}

// transitionResponse returns the updated initiative together with the
// appended transaction.
type transitionResponse struct {
	Initiative  *repository.Initiative          `json:"initiative"`
	Transaction *repository.WorkflowTransaction `json:"transaction"`
}

// ApproveStage handles approval requests for an initiative's current stage.
func (h *HTTPHandler) ApproveStage(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTransition(w, r)
	if !ok {
		return
	}

	init, txn, err := h.workflows.Approve(r.Context(), req.InitiativeID, req.Actor, req.payload())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transitionResponse{Initiative: init, Transaction: txn})
}

// RejectStage handles rejection requests for an initiative's current stage.
func (h *HTTPHandler) RejectStage(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTransition(w, r)
	if !ok {
		return
	}

	init, txn, err := h.workflows.Reject(r.Context(), req.InitiativeID, req.Actor, req.payload())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transitionResponse{Initiative: init, Transaction: txn})
}

// PendingStage handles lookups of the stage an initiative is waiting at.
func (h *HTTPHandler) PendingStage(w http.ResponseWriter, r *http.Request) {
	initiativeID := r.URL.Query().Get("initiative_id")
	if initiativeID == "" {
		writeError(w, errors.InvalidInput("initiative_id", "initiative id is required"))
		return
	}

	info, err := h.workflows.PendingStage(r.Context(), initiativeID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// ListTransactions handles audit-trail lookups for an initiative.
func (h *HTTPHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	initiativeID := r.URL.Query().Get("initiative_id")
	if initiativeID == "" {
		writeError(w, errors.InvalidInput("initiative_id", "initiative id is required"))
		return
	}

	txns, err := h.workflows.Transactions(r.Context(), initiativeID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, txns)
}

// ListPending handles "what is waiting on this role" queries.
func (h *HTTPHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	if role == "" {
		writeError(w, errors.InvalidInput("role", "role is required"))
		return
	}
	site := r.URL.Query().Get("site")

	initiatives, err := h.workflows.PendingFor(r.Context(), role, site)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, initiatives)
}

func (h *HTTPHandler) decodeTransition(w http.ResponseWriter, r *http.Request) (*transitionRequest, bool) {
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.InvalidInput("body", "invalid request body"))
		return nil, false
	}
	if req.InitiativeID == "" {
		writeError(w, errors.InvalidInput("initiative_id", "initiative id is required"))
		return nil, false
	}
	return &req, true
}
