package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/opexhub/be-opex-initiatives/internal/database"
	"github.com/opexhub/be-opex-initiatives/internal/errors"
)

// TransactionRepository reads and appends immutable workflow transactions.
// The table is insert-only; no update or delete is exposed.
type TransactionRepository struct {
	db *database.DB
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// rowQuerier is satisfied by both the pool wrapper and pgx.Tx, so the append
// SQL can run standalone or inside ApplyTransition's transaction.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// insertTransaction appends one transaction row. action_at is recorded as
// computed by the engine; the bigserial id provides the per-initiative order.
func insertTransaction(ctx context.Context, q rowQuerier, txn *WorkflowTransaction) error {
	query := `
		INSERT INTO workflow_transactions
		    (initiative_id, stage_number, stage_name,
		     decision, comment, action_by, action_at, pending_with,
		     initiative_lead, moc_required, moc_number, capex_required, capex_details)
		VALUES ($1, $2, $3,
		        $4, $5, $6, $7, $8,
		        $9, $10, $11, $12, $13)
		RETURNING id, created_at
	`

	err := q.QueryRow(ctx, query,
		txn.InitiativeID,
		txn.StageNumber,
		txn.StageName,
		txn.Decision,
		txn.Comment,
		txn.ActionBy,
		txn.ActionAt,
		txn.PendingWith,
		txn.InitiativeLead,
		txn.MOCRequired,
		txn.MOCNumber,
		txn.CapexRequired,
		txn.CapexDetails,
	).Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to append workflow transaction")
	}
	return nil
}

// Append inserts one transaction row outside any surrounding transaction.
func (r *TransactionRepository) Append(ctx context.Context, txn *WorkflowTransaction) error {
	return insertTransaction(ctx, r.db, txn)
}

// ListByInitiativeID returns the full transaction chain for an initiative,
// oldest first.
func (r *TransactionRepository) ListByInitiativeID(ctx context.Context, initiativeID string) ([]*WorkflowTransaction, error) {
	query := `
		SELECT id, initiative_id, stage_number, stage_name,
		       decision, comment, action_by, action_at, pending_with,
		       initiative_lead, moc_required, moc_number, capex_required, capex_details,
		       created_at
		FROM workflow_transactions
		WHERE initiative_id = $1
		ORDER BY id ASC
	`

	rows, err := r.db.Query(ctx, query, initiativeID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list workflow transactions")
	}
	defer rows.Close()

	txns := make([]*WorkflowTransaction, 0)
	for rows.Next() {
		txn := &WorkflowTransaction{}
		err := rows.Scan(
			&txn.ID,
			&txn.InitiativeID,
			&txn.StageNumber,
			&txn.StageName,
			&txn.Decision,
			&txn.Comment,
			&txn.ActionBy,
			&txn.ActionAt,
			&txn.PendingWith,
			&txn.InitiativeLead,
			&txn.MOCRequired,
			&txn.MOCNumber,
			&txn.CapexRequired,
			&txn.CapexDetails,
			&txn.CreatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan workflow transaction")
		}
		txns = append(txns, txn)
	}

	return txns, nil
}
