package service

import (
	"context"
	"time"

	"github.com/opexhub/be-opex-initiatives/internal/client"
	"github.com/opexhub/be-opex-initiatives/internal/logger"
	"github.com/opexhub/be-opex-initiatives/internal/repository"
	"github.com/opexhub/be-opex-initiatives/internal/workflow"
)

// InitiativeStore is the initiative persistence surface the workflow service
// needs. Implemented by repository.InitiativeRepository.
type InitiativeStore interface {
	GetByInitiativeID(ctx context.Context, initiativeID string) (*repository.Initiative, error)
	ApplyTransition(ctx context.Context, initiativeID string, upd repository.TransitionUpdate, txn *repository.WorkflowTransaction) error
	ListAtStages(ctx context.Context, stages []int, site *string) ([]*repository.Initiative, error)
}

// TransactionStore reads the append-only transaction log.
// Implemented by repository.TransactionRepository.
type TransactionStore interface {
	ListByInitiativeID(ctx context.Context, initiativeID string) ([]*repository.WorkflowTransaction, error)
}

// EventPublisher publishes workflow events. Implemented by
// client.NotificationPublisher; publishing is always non-fatal.
type EventPublisher interface {
	PublishWorkflowEvent(event *client.WorkflowEvent)
}

// WorkflowService orchestrates approve/reject transitions: it loads the
// initiative, runs the pure engine, commits the result through the store's
// guarded write, and publishes a notification.
type WorkflowService struct {
	initiatives  InitiativeStore
	transactions TransactionStore
	publisher    EventPublisher
	log          *logger.Logger
	now          func() time.Time
}

// NewWorkflowService creates a new WorkflowService.
func NewWorkflowService(
	initiatives InitiativeStore,
	transactions TransactionStore,
	publisher EventPublisher,
	log *logger.Logger,
) *WorkflowService {
	return &WorkflowService{
		initiatives:  initiatives,
		transactions: transactions,
		publisher:    publisher,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// PendingStageInfo describes the stage an initiative is waiting at.
// PendingWith is nil once the workflow is terminal.
type PendingStageInfo struct {
	StepNumber   int     `json:"step_number"`
	StageName    string  `json:"stage_name"`
	RequiredRole string  `json:"required_role"`
	PendingWith  *string `json:"pending_with"`
}

// PendingStage returns the current stage and the role the initiative is
// waiting on.
func (s *WorkflowService) PendingStage(ctx context.Context, initiativeID string) (*PendingStageInfo, error) {
	init, err := s.initiatives.GetByInitiativeID(ctx, initiativeID)
	if err != nil {
		return nil, err
	}

	stage, err := workflow.StageAt(init.CurrentStage)
	if err != nil {
		return nil, err
	}

	return &PendingStageInfo{
		StepNumber:   stage.Step,
		StageName:    stage.Activity,
		RequiredRole: stage.RoleCode,
		PendingWith:  workflow.PendingRole(workflow.Status(init.Status), init.CurrentStage),
	}, nil
}

// Approve applies an approval transition at the initiative's current stage.
// Returns the updated initiative and the appended transaction.
func (s *WorkflowService) Approve(ctx context.Context, initiativeID string, actor workflow.Actor, payload workflow.Payload) (*repository.Initiative, *repository.WorkflowTransaction, error) {
	return s.transition(ctx, initiativeID, actor, workflow.DecisionApproved, payload)
}

// Reject applies a rejection at the initiative's current stage, terminating
// the workflow.
func (s *WorkflowService) Reject(ctx context.Context, initiativeID string, actor workflow.Actor, payload workflow.Payload) (*repository.Initiative, *repository.WorkflowTransaction, error) {
	return s.transition(ctx, initiativeID, actor, workflow.DecisionRejected, payload)
}

func (s *WorkflowService) transition(ctx context.Context, initiativeID string, actor workflow.Actor, decision workflow.Decision, payload workflow.Payload) (*repository.Initiative, *repository.WorkflowTransaction, error) {
	init, err := s.initiatives.GetByInitiativeID(ctx, initiativeID)
	if err != nil {
		return nil, nil, err
	}

	snap := workflow.Snapshot{
		InitiativeID: init.InitiativeID,
		SiteCode:     init.SiteCode,
		Status:       workflow.Status(init.Status),
		CurrentStage: init.CurrentStage,
	}

	res, err := workflow.Transition(snap, actor, decision, payload, s.now())
	if err != nil {
		return nil, nil, err
	}

	txn := recordToTransaction(res.Record)
	upd := repository.TransitionUpdate{
		ExpectedStage:  snap.CurrentStage,
		NewStage:       res.NewStage,
		NewStatus:      string(res.NewStatus),
		InitiativeLead: res.Outputs.InitiativeLead,
		MOCRequired:    res.Outputs.MOCRequired,
		MOCNumber:      res.Outputs.MOCNumber,
		CapexRequired:  res.Outputs.CapexRequired,
		CapexDetails:   res.Outputs.CapexDetails,
	}

	// A lost race surfaces here as Conflict; the caller refetches and retries.
	if err := s.initiatives.ApplyTransition(ctx, init.InitiativeID, upd, txn); err != nil {
		return nil, nil, err
	}

	s.log.Info().
		Str("initiative_id", init.InitiativeID).
		Int("stage", snap.CurrentStage).
		Str("decision", string(decision)).
		Str("new_status", string(res.NewStatus)).
		Str("action_by", actor.Email).
		Msg("Workflow transition applied")

	s.publishTransitionEvent(init, res, actor)

	updated, err := s.initiatives.GetByInitiativeID(ctx, init.InitiativeID)
	if err != nil {
		return nil, nil, err
	}
	return updated, txn, nil
}

// Transactions returns the full transaction chain for an initiative, oldest
// first.
func (s *WorkflowService) Transactions(ctx context.Context, initiativeID string) ([]*repository.WorkflowTransaction, error) {
	if _, err := s.initiatives.GetByInitiativeID(ctx, initiativeID); err != nil {
		return nil, err
	}
	return s.transactions.ListByInitiativeID(ctx, initiativeID)
}

// PendingFor returns the initiatives currently waiting on the given role.
// Site scoping applies unless site is empty.
func (s *WorkflowService) PendingFor(ctx context.Context, role, site string) ([]*repository.Initiative, error) {
	steps := workflow.StepsForRole(role)
	if len(steps) == 0 {
		return []*repository.Initiative{}, nil
	}

	var sitePtr *string
	if site != "" {
		sitePtr = &site
	}
	return s.initiatives.ListAtStages(ctx, steps, sitePtr)
}

// ── internal helpers ──────────────────────────────────────────────────────────

func (s *WorkflowService) publishTransitionEvent(init *repository.Initiative, res *workflow.Result, actor workflow.Actor) {
	if s.publisher == nil {
		return
	}

	eventType := "stage_approved"
	switch res.NewStatus {
	case workflow.StatusRejected:
		eventType = "stage_rejected"
	case workflow.StatusCompleted:
		eventType = "initiative_completed"
	}

	event := &client.WorkflowEvent{
		EventType:    eventType,
		InitiativeID: init.InitiativeID,
		SiteCode:     init.SiteCode,
		ActorEmail:   actor.Email,
		StageNumber:  res.Record.StageNumber,
	}
	if res.Record.PendingWith != nil {
		event.PendingWith = *res.Record.PendingWith
	}
	s.publisher.PublishWorkflowEvent(event)
}

func recordToTransaction(rec workflow.TransactionRecord) *repository.WorkflowTransaction {
	return &repository.WorkflowTransaction{
		InitiativeID:   rec.InitiativeID,
		StageNumber:    rec.StageNumber,
		StageName:      rec.StageName,
		Decision:       string(rec.Decision),
		Comment:        rec.Comment,
		ActionBy:       rec.ActionBy,
		ActionAt:       rec.ActionAt,
		PendingWith:    rec.PendingWith,
		InitiativeLead: rec.InitiativeLead,
		MOCRequired:    rec.MOCRequired,
		MOCNumber:      rec.MOCNumber,
		CapexRequired:  rec.CapexRequired,
		CapexDetails:   rec.CapexDetails,
	}
}
