package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/opexhub/be-opex-initiatives/internal/errors"
)

// Snapshot is the view of an initiative the transition function needs: the
// stage pointer read before the transition, which the storage layer re-checks
// at commit time for the optimistic-concurrency guarantee.
type Snapshot struct {
	InitiativeID string
	SiteCode     string
	Status       Status
	CurrentStage int
}

// TransactionRecord is the immutable audit record produced by a transition.
// ActionAt is always server-assigned.
type TransactionRecord struct {
	InitiativeID   string
	StageNumber    int
	StageName      string
	Decision       Decision
	Comment        string
	ActionBy       string
	ActionAt       time.Time
	PendingWith    *string
	InitiativeLead *string
	MOCRequired    *bool
	MOCNumber      *string
	CapexRequired  *bool
	CapexDetails   *string
}

// Result is the computed outcome of a transition: the new stage pointer and
// status to commit, the stage outputs to merge into the initiative, and the
// transaction record to append. Nothing is persisted here; the caller commits
// the whole result atomically or not at all.
type Result struct {
	NewStage  int
	NewStatus Status
	Outputs   StageOutputs
	Record    TransactionRecord
}

// Transition computes an approve or reject transition for the initiative's
// current stage. It is pure: no I/O, no clock reads (now is injected), and it
// never mutates the snapshot.
//
// Guard order follows the contract: absorbing-state check, then
// authorization, then payload validation. A snapshot in COMPLETED or REJECTED
// yields NotFound so callers treat closed workflows like missing ones.
func Transition(snap Snapshot, actor Actor, decision Decision, p Payload, now time.Time) (*Result, error) {
	if snap.Status.IsTerminal() {
		return nil, errors.New(errors.ErrCodeNotFound,
			fmt.Sprintf("initiative '%s' has no actionable stage (status %s)", snap.InitiativeID, snap.Status))
	}

	stage, err := StageAt(snap.CurrentStage)
	if err != nil {
		return nil, err
	}

	if !CanAct(actor, snap.SiteCode, snap.CurrentStage) {
		return nil, errors.Forbidden(fmt.Sprintf(
			"role %s at site %s may not act on stage %d (requires %s at site %s)",
			actor.Role, actor.Site, snap.CurrentStage, stage.RoleCode, snap.SiteCode))
	}

	if err := ValidatePayload(snap.CurrentStage, decision, p); err != nil {
		return nil, err
	}

	rec := TransactionRecord{
		InitiativeID: snap.InitiativeID,
		StageNumber:  snap.CurrentStage,
		StageName:    stage.Activity,
		Decision:     decision,
		Comment:      strings.TrimSpace(p.Comment),
		ActionBy:     actor.Email,
		ActionAt:     now,
	}

	res := &Result{Record: rec}

	if decision == DecisionRejected {
		// The workflow halts at the rejecting stage.
		res.NewStage = snap.CurrentStage
		res.NewStatus = StatusRejected
		return res, nil
	}

	res.Outputs = outputsFor(snap.CurrentStage, p)
	res.Record.InitiativeLead = res.Outputs.InitiativeLead
	res.Record.MOCRequired = res.Outputs.MOCRequired
	res.Record.MOCNumber = res.Outputs.MOCNumber
	res.Record.CapexRequired = res.Outputs.CapexRequired
	res.Record.CapexDetails = res.Outputs.CapexDetails

	next, ok, err := NextStage(snap.CurrentStage)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Final stage approved: the pointer stays as the terminal marker.
		res.NewStage = snap.CurrentStage
		res.NewStatus = StatusCompleted
		return res, nil
	}

	res.NewStage = next.Step
	res.NewStatus = StatusInProgress
	res.Record.PendingWith = &next.RoleCode
	return res, nil
}
