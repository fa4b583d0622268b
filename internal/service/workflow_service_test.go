package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opexhub/be-opex-initiatives/internal/client"
	"github.com/opexhub/be-opex-initiatives/internal/errors"
	"github.com/opexhub/be-opex-initiatives/internal/logger"
	"github.com/opexhub/be-opex-initiatives/internal/repository"
	"github.com/opexhub/be-opex-initiatives/internal/workflow"
)

// ── fakes ─────────────────────────────────────────────────────────────────────

// fakeInitiativeStore keeps initiatives in memory and mimics the guarded
// transition write, including the Conflict on a stale expected stage.
type fakeInitiativeStore struct {
	initiatives map[string]*repository.Initiative
	txns        []*repository.WorkflowTransaction
}

func newFakeInitiativeStore(inits ...*repository.Initiative) *fakeInitiativeStore {
	store := &fakeInitiativeStore{initiatives: map[string]*repository.Initiative{}}
	for _, init := range inits {
		store.initiatives[init.InitiativeID] = init
	}
	return store
}

func (f *fakeInitiativeStore) GetByInitiativeID(_ context.Context, id string) (*repository.Initiative, error) {
	init, ok := f.initiatives[id]
	if !ok {
		return nil, errors.NotFound("initiative", id)
	}
	clone := *init
	return &clone, nil
}

func (f *fakeInitiativeStore) ApplyTransition(_ context.Context, id string, upd repository.TransitionUpdate, txn *repository.WorkflowTransaction) error {
	init, ok := f.initiatives[id]
	if !ok {
		return errors.NotFound("initiative", id)
	}
	terminal := init.Status == "COMPLETED" || init.Status == "REJECTED"
	if init.CurrentStage != upd.ExpectedStage || terminal {
		return errors.Conflict("initiative changed concurrently")
	}

	init.Status = upd.NewStatus
	init.CurrentStage = upd.NewStage
	if upd.InitiativeLead != nil {
		init.InitiativeLead = upd.InitiativeLead
	}
	if upd.MOCRequired != nil {
		init.MOCRequired = upd.MOCRequired
	}
	if upd.MOCNumber != nil {
		init.MOCNumber = upd.MOCNumber
	}
	if upd.CapexRequired != nil {
		init.CapexRequired = upd.CapexRequired
	}
	if upd.CapexDetails != nil {
		init.CapexDetails = upd.CapexDetails
	}

	txn.ID = int64(len(f.txns) + 1)
	f.txns = append(f.txns, txn)
	return nil
}

func (f *fakeInitiativeStore) ListAtStages(_ context.Context, stages []int, site *string) ([]*repository.Initiative, error) {
	stageSet := map[int]bool{}
	for _, st := range stages {
		stageSet[st] = true
	}

	out := []*repository.Initiative{}
	for _, init := range f.initiatives {
		if init.Status != "PROPOSED" && init.Status != "IN_PROGRESS" {
			continue
		}
		if !stageSet[init.CurrentStage] {
			continue
		}
		if site != nil && init.SiteCode != *site {
			continue
		}
		clone := *init
		out = append(out, &clone)
	}
	return out, nil
}

type fakeTransactionStore struct {
	store *fakeInitiativeStore
}

func (f *fakeTransactionStore) ListByInitiativeID(_ context.Context, id string) ([]*repository.WorkflowTransaction, error) {
	out := []*repository.WorkflowTransaction{}
	for _, txn := range f.store.txns {
		if txn.InitiativeID == id {
			out = append(out, txn)
		}
	}
	return out, nil
}

type fakePublisher struct {
	events []*client.WorkflowEvent
}

func (f *fakePublisher) PublishWorkflowEvent(event *client.WorkflowEvent) {
	f.events = append(f.events, event)
}

// ── helpers ───────────────────────────────────────────────────────────────────

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "disabled", ServiceName: "test"})
}

func testInitiative(stage int, status string) *repository.Initiative {
	return &repository.Initiative{
		ID:                  "8f6c9be2-0000-0000-0000-000000000001",
		InitiativeID:        "NDS/26/MX/01/001",
		Title:               "Reduce steam losses",
		Category:            "Energy",
		SiteCode:            "NDS",
		DisciplineCode:      "MX",
		Proposer:            "stld@plant.example",
		ProposalDate:        "2026-03-01",
		ExpectedClosureDate: "2026-09-01",
		EstimatedSavings:    decimal.RequireFromString("125000.00"),
		Status:              status,
		Priority:            "HIGH",
		BudgetType:          "BUDGETED",
		CurrentStage:        stage,
	}
}

func newTestWorkflowService(store *fakeInitiativeStore, pub *fakePublisher) *WorkflowService {
	svc := NewWorkflowService(store, &fakeTransactionStore{store: store}, pub, testLogger())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func actorAt(step int) workflow.Actor {
	st, _ := workflow.StageAt(step)
	return workflow.Actor{Email: "actor@plant.example", Role: st.RoleCode, Site: "NDS"}
}

func approvePayload(step int) workflow.Payload {
	p := workflow.Payload{Comment: "approved"}
	switch step {
	case 3:
		p.Lead = &workflow.LeadAssignment{InitiativeLead: "lead@plant.example"}
	case 4:
		p.MOC = &workflow.MOCAssessment{Required: false}
	case 5:
		p.Capex = &workflow.CapexAssessment{Required: false}
	}
	return p
}

// ── tests ─────────────────────────────────────────────────────────────────────

func TestWorkflowService_ApproveAdvancesStage(t *testing.T) {
	store := newFakeInitiativeStore(testInitiative(1, "PROPOSED"))
	pub := &fakePublisher{}
	svc := newTestWorkflowService(store, pub)

	init, txn, err := svc.Approve(context.Background(), "NDS/26/MX/01/001", actorAt(1), approvePayload(1))
	require.NoError(t, err)

	assert.Equal(t, 2, init.CurrentStage)
	assert.Equal(t, "IN_PROGRESS", init.Status)

	require.NotNil(t, txn)
	assert.Equal(t, 1, txn.StageNumber)
	assert.Equal(t, "APPROVED", txn.Decision)
	assert.Equal(t, fixedNow, txn.ActionAt)
	require.NotNil(t, txn.PendingWith)
	assert.Equal(t, workflow.RoleSiteHead, *txn.PendingWith)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "stage_approved", pub.events[0].EventType)
	assert.Equal(t, workflow.RoleSiteHead, pub.events[0].PendingWith)
}

func TestWorkflowService_RejectTerminates(t *testing.T) {
	store := newFakeInitiativeStore(testInitiative(2, "IN_PROGRESS"))
	pub := &fakePublisher{}
	svc := newTestWorkflowService(store, pub)

	init, txn, err := svc.Reject(context.Background(), "NDS/26/MX/01/001", actorAt(2),
		workflow.Payload{Comment: "savings estimate not credible"})
	require.NoError(t, err)

	assert.Equal(t, "REJECTED", init.Status)
	assert.Equal(t, 2, init.CurrentStage, "pointer marks the rejecting stage")
	assert.Equal(t, "REJECTED", txn.Decision)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "stage_rejected", pub.events[0].EventType)
}

func TestWorkflowService_CompletionEvent(t *testing.T) {
	store := newFakeInitiativeStore(testInitiative(5, "IN_PROGRESS"))
	pub := &fakePublisher{}
	svc := newTestWorkflowService(store, pub)

	init, _, err := svc.Approve(context.Background(), "NDS/26/MX/01/001", actorAt(5), approvePayload(5))
	require.NoError(t, err)

	assert.Equal(t, "COMPLETED", init.Status)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "initiative_completed", pub.events[0].EventType)
}

func TestWorkflowService_StageDataAccumulates(t *testing.T) {
	store := newFakeInitiativeStore(testInitiative(3, "IN_PROGRESS"))
	svc := newTestWorkflowService(store, &fakePublisher{})
	ctx := context.Background()
	id := "NDS/26/MX/01/001"

	_, _, err := svc.Approve(ctx, id, actorAt(3), approvePayload(3))
	require.NoError(t, err)

	_, _, err = svc.Approve(ctx, id, actorAt(4), workflow.Payload{
		Comment: "process change needed",
		MOC:     &workflow.MOCAssessment{Required: true, Number: "MOC-2026-017"},
	})
	require.NoError(t, err)

	init, _, err := svc.Approve(ctx, id, actorAt(5), workflow.Payload{
		Comment: "no capital spend",
		Capex:   &workflow.CapexAssessment{Required: false},
	})
	require.NoError(t, err)

	assert.Equal(t, "COMPLETED", init.Status)
	require.NotNil(t, init.InitiativeLead)
	assert.Equal(t, "lead@plant.example", *init.InitiativeLead)
	require.NotNil(t, init.MOCRequired)
	assert.True(t, *init.MOCRequired)
	require.NotNil(t, init.MOCNumber)
	assert.Equal(t, "MOC-2026-017", *init.MOCNumber)
	require.NotNil(t, init.CapexRequired)
	assert.False(t, *init.CapexRequired)
	assert.Nil(t, init.CapexDetails)
}

func TestWorkflowService_TerminalInitiativeNotFound(t *testing.T) {
	store := newFakeInitiativeStore(testInitiative(3, "REJECTED"))
	pub := &fakePublisher{}
	svc := newTestWorkflowService(store, pub)

	_, _, err := svc.Approve(context.Background(), "NDS/26/MX/01/001", actorAt(3), approvePayload(3))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
	assert.Empty(t, pub.events, "a refused transition publishes nothing")
	assert.Empty(t, store.txns, "a refused transition appends nothing")
}

func TestWorkflowService_UnknownInitiative(t *testing.T) {
	svc := newTestWorkflowService(newFakeInitiativeStore(), &fakePublisher{})

	_, _, err := svc.Approve(context.Background(), "NDS/26/MX/99/999", actorAt(1), approvePayload(1))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}

func TestWorkflowService_ForbiddenActorLeavesStateUnchanged(t *testing.T) {
	store := newFakeInitiativeStore(testInitiative(2, "IN_PROGRESS"))
	svc := newTestWorkflowService(store, &fakePublisher{})

	wrongSite := workflow.Actor{Email: "sh@other.example", Role: workflow.RoleSiteHead, Site: "HSD1"}
	_, _, err := svc.Approve(context.Background(), "NDS/26/MX/01/001", wrongSite,
		workflow.Payload{Comment: "ok"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeForbidden))

	init, err := store.GetByInitiativeID(context.Background(), "NDS/26/MX/01/001")
	require.NoError(t, err)
	assert.Equal(t, 2, init.CurrentStage)
	assert.Equal(t, "IN_PROGRESS", init.Status)
}

func TestWorkflowService_ConcurrentTransitionConflicts(t *testing.T) {
	store := newFakeInitiativeStore(testInitiative(2, "IN_PROGRESS"))
	svc := newTestWorkflowService(store, &fakePublisher{})
	ctx := context.Background()
	id := "NDS/26/MX/01/001"

	// Simulate a race: another actor advances the stage after our snapshot
	// was taken but before the guarded write commits.
	store.initiatives[id].CurrentStage = 3

	upd := repository.TransitionUpdate{ExpectedStage: 2, NewStage: 3, NewStatus: "IN_PROGRESS"}
	err := store.ApplyTransition(ctx, id, upd, &repository.WorkflowTransaction{InitiativeID: id})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConflict))

	// After a refetch the retry goes through at the real current stage.
	_, _, err = svc.Approve(ctx, id, actorAt(3), approvePayload(3))
	assert.NoError(t, err)
}

func TestWorkflowService_Transactions(t *testing.T) {
	store := newFakeInitiativeStore(testInitiative(1, "PROPOSED"))
	svc := newTestWorkflowService(store, &fakePublisher{})
	ctx := context.Background()
	id := "NDS/26/MX/01/001"

	_, _, err := svc.Approve(ctx, id, actorAt(1), approvePayload(1))
	require.NoError(t, err)
	_, _, err = svc.Approve(ctx, id, actorAt(2), approvePayload(2))
	require.NoError(t, err)

	txns, err := svc.Transactions(ctx, id)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, 1, txns[0].StageNumber)
	assert.Equal(t, 2, txns[1].StageNumber)

	_, err = svc.Transactions(ctx, "NDS/26/MX/99/999")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}

func TestWorkflowService_PendingStage(t *testing.T) {
	store := newFakeInitiativeStore(testInitiative(2, "IN_PROGRESS"))
	svc := newTestWorkflowService(store, &fakePublisher{})

	info, err := svc.PendingStage(context.Background(), "NDS/26/MX/01/001")
	require.NoError(t, err)

	assert.Equal(t, 2, info.StepNumber)
	assert.Equal(t, "Approval", info.StageName)
	assert.Equal(t, workflow.RoleSiteHead, info.RequiredRole)
	require.NotNil(t, info.PendingWith)
	assert.Equal(t, workflow.RoleSiteHead, *info.PendingWith)
}

func TestWorkflowService_PendingStageTerminal(t *testing.T) {
	store := newFakeInitiativeStore(testInitiative(4, "REJECTED"))
	svc := newTestWorkflowService(store, &fakePublisher{})

	info, err := svc.PendingStage(context.Background(), "NDS/26/MX/01/001")
	require.NoError(t, err)
	assert.Nil(t, info.PendingWith)
}

func TestWorkflowService_PendingFor(t *testing.T) {
	waiting := testInitiative(4, "IN_PROGRESS")
	other := testInitiative(2, "IN_PROGRESS")
	other.InitiativeID = "NDS/26/PR/01/002"
	elsewhere := testInitiative(5, "IN_PROGRESS")
	elsewhere.InitiativeID = "HSD1/26/MX/01/001"
	elsewhere.SiteCode = "HSD1"

	store := newFakeInitiativeStore(waiting, other, elsewhere)
	svc := newTestWorkflowService(store, &fakePublisher{})
	ctx := context.Background()

	// IL covers both data-capture stages; site scoping applies.
	pending, err := svc.PendingFor(ctx, workflow.RoleInitiativeLead, "NDS")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "NDS/26/MX/01/001", pending[0].InitiativeID)

	// Empty site means unscoped.
	pending, err = svc.PendingFor(ctx, workflow.RoleInitiativeLead, "")
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	// A role with no stages has nothing pending.
	pending, err = svc.PendingFor(ctx, "UNKNOWN", "NDS")
	require.NoError(t, err)
	assert.Empty(t, pending)
}
