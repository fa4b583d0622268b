package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opexhub/be-opex-initiatives/internal/client"
	"github.com/opexhub/be-opex-initiatives/internal/errors"
	"github.com/opexhub/be-opex-initiatives/internal/logger"
	"github.com/opexhub/be-opex-initiatives/internal/repository"
	"github.com/opexhub/be-opex-initiatives/internal/workflow"
)

// InitiativeWriter is the persistence surface for initiative creation and
// querying. Implemented by repository.InitiativeRepository.
type InitiativeWriter interface {
	Create(ctx context.Context, init *repository.Initiative) error
	GetByInitiativeID(ctx context.Context, initiativeID string) (*repository.Initiative, error)
	List(ctx context.Context, site, status *string, limit, offset int) ([]*repository.Initiative, int64, error)
	CountBySiteAndYear(ctx context.Context, siteCode string, year int) (int64, error)
	CountBySiteDisciplineAndYear(ctx context.Context, siteCode, disciplineCode string, year int) (int64, error)
}

// ReferenceStore validates and lists site and discipline references.
// Implemented by repository.ReferenceRepository.
type ReferenceStore interface {
	GetSite(ctx context.Context, code string) (*repository.Site, error)
	GetDiscipline(ctx context.Context, code string) (*repository.Discipline, error)
	ListSites(ctx context.Context) ([]*repository.Site, error)
	ListDisciplines(ctx context.Context) ([]*repository.Discipline, error)
}

// InitiativeService handles initiative registration and queries.
type InitiativeService struct {
	initiatives InitiativeWriter
	reference   ReferenceStore
	publisher   EventPublisher
	log         *logger.Logger
	now         func() time.Time
}

// NewInitiativeService creates a new InitiativeService.
func NewInitiativeService(
	initiatives InitiativeWriter,
	reference ReferenceStore,
	publisher EventPublisher,
	log *logger.Logger,
) *InitiativeService {
	return &InitiativeService{
		initiatives: initiatives,
		reference:   reference,
		publisher:   publisher,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateInitiativeRequest carries the proposal fields for a new initiative.
// Monetary amounts travel as strings to stay exact.
type CreateInitiativeRequest struct {
	Title               string  `json:"title"`
	Description         string  `json:"description"`
	Category            string  `json:"category"`
	SiteCode            string  `json:"site_code"`
	DisciplineCode      string  `json:"discipline_code"`
	Proposer            string  `json:"proposer"`
	ProposalDate        string  `json:"proposal_date,omitempty"`
	ExpectedClosureDate string  `json:"expected_closure_date"`
	EstimatedSavings    string  `json:"estimated_savings"`
	Priority            string  `json:"priority"`
	BudgetType          string  `json:"budget_type"`
	Comments            *string `json:"comments,omitempty"`
}

var validPriorities = map[string]bool{"HIGH": true, "MEDIUM": true, "LOW": true}
var validBudgetTypes = map[string]bool{"BUDGETED": true, "NON_BUDGETED": true}

// CreateInitiative validates a proposal, generates its business identifier
// and registers it at stage 1 in PROPOSED.
func (s *InitiativeService) CreateInitiative(ctx context.Context, req *CreateInitiativeRequest) (*repository.Initiative, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, errors.InvalidInput("title", "title is required")
	}
	if strings.TrimSpace(req.Category) == "" {
		return nil, errors.InvalidInput("category", "category is required")
	}
	if strings.TrimSpace(req.Proposer) == "" {
		return nil, errors.InvalidInput("proposer", "proposer is required")
	}

	priority := strings.ToUpper(req.Priority)
	if !validPriorities[priority] {
		return nil, errors.InvalidInput("priority", "priority must be HIGH, MEDIUM or LOW")
	}

	budgetType := strings.ToUpper(req.BudgetType)
	if !validBudgetTypes[budgetType] {
		return nil, errors.InvalidInput("budget_type", "budget type must be BUDGETED or NON_BUDGETED")
	}

	savings, err := decimal.NewFromString(req.EstimatedSavings)
	if err != nil {
		return nil, errors.InvalidInput("estimated_savings", "estimated savings must be a decimal number")
	}
	if savings.LessThanOrEqual(decimal.Zero) {
		return nil, errors.InvalidInput("estimated_savings", "estimated savings must be greater than zero")
	}

	proposalDateStr := req.ProposalDate
	if proposalDateStr == "" {
		proposalDateStr = s.now().Format("2006-01-02")
	}
	proposalDate, err := time.Parse("2006-01-02", proposalDateStr)
	if err != nil {
		return nil, errors.InvalidInput("proposal_date", "invalid date format, expected YYYY-MM-DD")
	}

	closureDate, err := time.Parse("2006-01-02", req.ExpectedClosureDate)
	if err != nil {
		return nil, errors.InvalidInput("expected_closure_date", "invalid date format, expected YYYY-MM-DD")
	}
	if !closureDate.After(proposalDate) {
		return nil, errors.InvalidInput("expected_closure_date", "expected closure date must be after the proposal date")
	}

	site, err := s.reference.GetSite(ctx, strings.ToUpper(req.SiteCode))
	if err != nil {
		return nil, err
	}
	discipline, err := s.reference.GetDiscipline(ctx, strings.ToUpper(req.DisciplineCode))
	if err != nil {
		return nil, err
	}

	initiativeID, err := s.generateInitiativeID(ctx, site.Code, discipline.Code)
	if err != nil {
		return nil, err
	}

	init := &repository.Initiative{
		InitiativeID:        initiativeID,
		Title:               strings.TrimSpace(req.Title),
		Description:         req.Description,
		Category:            req.Category,
		SiteCode:            site.Code,
		DisciplineCode:      discipline.Code,
		Proposer:            req.Proposer,
		ProposalDate:        proposalDateStr,
		ExpectedClosureDate: req.ExpectedClosureDate,
		EstimatedSavings:    savings,
		Status:              string(workflow.StatusProposed),
		Priority:            priority,
		BudgetType:          budgetType,
		CurrentStage:        workflow.FirstStage,
		Comments:            req.Comments,
	}

	if err := s.initiatives.Create(ctx, init); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("initiative_id", init.InitiativeID).
		Str("site", init.SiteCode).
		Str("discipline", init.DisciplineCode).
		Str("proposer", init.Proposer).
		Str("estimated_savings", init.EstimatedSavings.String()).
		Msg("Initiative registered")

	if s.publisher != nil {
		pendingWith := workflow.PendingRole(workflow.StatusProposed, workflow.FirstStage)
		event := &client.WorkflowEvent{
			EventType:    "initiative_submitted",
			InitiativeID: init.InitiativeID,
			SiteCode:     init.SiteCode,
			ActorEmail:   init.Proposer,
			StageNumber:  workflow.FirstStage,
		}
		if pendingWith != nil {
			event.PendingWith = *pendingWith
		}
		s.publisher.PublishWorkflowEvent(event)
	}

	return init, nil
}

// GetInitiative retrieves an initiative by its business identifier.
func (s *InitiativeService) GetInitiative(ctx context.Context, initiativeID string) (*repository.Initiative, error) {
	return s.initiatives.GetByInitiativeID(ctx, initiativeID)
}

// ListInitiatives lists initiatives with optional filters and pagination.
func (s *InitiativeService) ListInitiatives(ctx context.Context, site, status *string, page, pageSize int) ([]*repository.Initiative, int64, error) {
	offset := (page - 1) * pageSize
	return s.initiatives.List(ctx, site, status, pageSize, offset)
}

// ListSites returns the site reference records.
func (s *InitiativeService) ListSites(ctx context.Context) ([]*repository.Site, error) {
	return s.reference.ListSites(ctx)
}

// ListDisciplines returns the discipline reference records.
func (s *InitiativeService) ListDisciplines(ctx context.Context) ([]*repository.Discipline, error) {
	return s.reference.ListDisciplines(ctx)
}

// generateInitiativeID builds the business identifier SITE/YY/DISC/NN/NNN:
// site code, two-digit year, discipline code, per-discipline sequence for the
// site, and the site's overall sequence for the year.
func (s *InitiativeService) generateInitiativeID(ctx context.Context, siteCode, disciplineCode string) (string, error) {
	year := s.now().Year()

	disciplineCount, err := s.initiatives.CountBySiteDisciplineAndYear(ctx, siteCode, disciplineCode, year)
	if err != nil {
		return "", err
	}
	overallCount, err := s.initiatives.CountBySiteAndYear(ctx, siteCode, year)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/%02d/%s/%02d/%03d",
		siteCode, year%100, disciplineCode, disciplineCount+1, overallCount+1), nil
}
