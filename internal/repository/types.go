package repository

import (
	"time"

	"github.com/shopspring/decimal"
)

// ── Domain types for the initiative workflow ─────────────────────────────────

// Initiative is the persisted initiative record. Workflow-owned fields
// (status, current_stage, stage outputs) change only through ApplyTransition;
// everything else is immutable after creation.
type Initiative struct {
	ID                  string           `json:"id"`
	InitiativeID        string           `json:"initiative_id"`
	Title               string           `json:"title"`
	Description         string           `json:"description"`
	Category            string           `json:"category"`
	SiteCode            string           `json:"site_code"`
	DisciplineCode      string           `json:"discipline_code"`
	Proposer            string           `json:"proposer"`
	ProposalDate        string           `json:"proposal_date"`
	ExpectedClosureDate string           `json:"expected_closure_date"`
	ActualClosureDate   *string          `json:"actual_closure_date,omitempty"`
	EstimatedSavings    decimal.Decimal  `json:"estimated_savings"`
	ActualSavings       *decimal.Decimal `json:"actual_savings,omitempty"`
	Status              string           `json:"status"`
	Priority            string           `json:"priority"`
	BudgetType          string           `json:"budget_type"`
	CurrentStage        int              `json:"current_stage"`
	InitiativeLead      *string          `json:"initiative_lead,omitempty"`
	MOCRequired         *bool            `json:"moc_required,omitempty"`
	MOCNumber           *string          `json:"moc_number,omitempty"`
	CapexRequired       *bool            `json:"capex_required,omitempty"`
	CapexDetails        *string          `json:"capex_details,omitempty"`
	Comments            *string          `json:"comments,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// WorkflowTransaction is one immutable row of the audit log. The bigserial id
// gives a total order per initiative; rows are never updated or deleted.
type WorkflowTransaction struct {
	ID             int64     `json:"id"`
	InitiativeID   string    `json:"initiative_id"`
	StageNumber    int       `json:"stage_number"`
	StageName      string    `json:"stage_name"`
	Decision       string    `json:"decision"`
	Comment        string    `json:"comment"`
	ActionBy       string    `json:"action_by"`
	ActionAt       time.Time `json:"action_at"`
	PendingWith    *string   `json:"pending_with,omitempty"`
	InitiativeLead *string   `json:"initiative_lead,omitempty"`
	MOCRequired    *bool     `json:"moc_required,omitempty"`
	MOCNumber      *string   `json:"moc_number,omitempty"`
	CapexRequired  *bool     `json:"capex_required,omitempty"`
	CapexDetails   *string   `json:"capex_details,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Site is a manufacturing site reference record.
type Site struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Discipline is an initiative discipline reference record.
type Discipline struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// KPIEntry is a monthly KPI measurement for a site.
type KPIEntry struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	SiteCode    string          `json:"site_code"`
	Month       string          `json:"month"`
	Unit        string          `json:"unit"`
	TargetValue decimal.Decimal `json:"target_value"`
	ActualValue decimal.Decimal `json:"actual_value"`
	Description *string         `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
