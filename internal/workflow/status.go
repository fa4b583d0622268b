package workflow

// Status is the overall lifecycle state of an initiative. It is always a
// function of the transaction history; nothing outside this package computes
// or assigns it.
type Status string

const (
	StatusProposed   Status = "PROPOSED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusApproved   Status = "APPROVED"
	StatusCompleted  Status = "COMPLETED"
	StatusRejected   Status = "REJECTED"
)

// IsTerminal reports whether no further transitions are permitted.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// DecisionRecord is the slice of a transaction that status derivation needs.
type DecisionRecord struct {
	StageNumber int
	Decision    Decision
}

// DeriveStatus recomputes the lifecycle status from the ordered transaction
// history alone. Used by the reconciliation check asserting the stored status
// field never drifts from the log.
func DeriveStatus(history []DecisionRecord) Status {
	if len(history) == 0 {
		return StatusProposed
	}

	last := history[len(history)-1]
	if last.Decision == DecisionRejected {
		return StatusRejected
	}
	if last.StageNumber >= TotalStages() {
		return StatusCompleted
	}
	return StatusInProgress
}

// PendingRole returns the role code the initiative is waiting on, or nil when
// the workflow is terminal. Derived from the registry, never stored as truth.
func PendingRole(status Status, currentStage int) *string {
	if status.IsTerminal() {
		return nil
	}
	stage, err := StageAt(currentStage)
	if err != nil {
		return nil
	}
	role := stage.RoleCode
	return &role
}
