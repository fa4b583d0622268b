package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/opexhub/be-opex-initiatives/internal/database"
	"github.com/opexhub/be-opex-initiatives/internal/errors"
)

// InitiativeRepository handles initiative data operations.
type InitiativeRepository struct {
	db *database.DB
}

// NewInitiativeRepository creates a new initiative repository.
func NewInitiativeRepository(db *database.DB) *InitiativeRepository {
	return &InitiativeRepository{db: db}
}

const initiativeColumns = `
	id, initiative_id, title, description, category,
	site_code, discipline_code, proposer,
	proposal_date, expected_closure_date, actual_closure_date,
	estimated_savings::text, actual_savings::text,
	status, priority, budget_type, current_stage,
	initiative_lead, moc_required, moc_number, capex_required, capex_details,
	comments, created_at, updated_at
`

// Create inserts a new initiative. Status and current_stage must already be
// set to their registration values by the service layer.
func (r *InitiativeRepository) Create(ctx context.Context, init *Initiative) error {
	query := `
		INSERT INTO initiatives
		    (initiative_id, title, description, category,
		     site_code, discipline_code, proposer,
		     proposal_date, expected_closure_date,
		     estimated_savings, status, priority, budget_type,
		     current_stage, comments)
		VALUES ($1, $2, $3, $4,
		        $5, $6, $7,
		        $8, $9,
		        $10::numeric, $11, $12, $13,
		        $14, $15)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		init.InitiativeID,
		init.Title,
		init.Description,
		init.Category,
		init.SiteCode,
		init.DisciplineCode,
		init.Proposer,
		init.ProposalDate,
		init.ExpectedClosureDate,
		init.EstimatedSavings.String(),
		init.Status,
		init.Priority,
		init.BudgetType,
		init.CurrentStage,
		init.Comments,
	).Scan(&init.ID, &init.CreatedAt, &init.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create initiative")
	}

	return nil
}

// GetByInitiativeID retrieves an initiative by its business identifier.
func (r *InitiativeRepository) GetByInitiativeID(ctx context.Context, initiativeID string) (*Initiative, error) {
	query := `SELECT ` + initiativeColumns + ` FROM initiatives WHERE initiative_id = $1`

	init, err := scanInitiative(r.db.QueryRow(ctx, query, initiativeID))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("initiative", initiativeID)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get initiative")
	}
	return init, nil
}

// List retrieves initiatives with optional site/status filters and pagination.
func (r *InitiativeRepository) List(ctx context.Context, site, status *string, limit, offset int) ([]*Initiative, int64, error) {
	query := `SELECT ` + initiativeColumns + ` FROM initiatives WHERE TRUE`
	countQuery := `SELECT COUNT(*) FROM initiatives WHERE TRUE`

	args := []any{}
	argCount := 1

	if site != nil {
		query += fmt.Sprintf(" AND site_code = $%d", argCount)
		countQuery += fmt.Sprintf(" AND site_code = $%d", argCount)
		args = append(args, *site)
		argCount++
	}

	if status != nil {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		countQuery += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, *status)
		argCount++
	}

	query += " ORDER BY created_at DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1)
	queryArgs := append(args, limit, offset)

	var total int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to count initiatives")
	}

	rows, err := r.db.Query(ctx, query, queryArgs...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to list initiatives")
	}
	defer rows.Close()

	initiatives := make([]*Initiative, 0)
	for rows.Next() {
		init, err := scanInitiative(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan initiative")
		}
		initiatives = append(initiatives, init)
	}

	return initiatives, total, nil
}

// ListAtStages returns non-terminal initiatives currently sitting at one of
// the given stages, optionally scoped to a site. Backs the "pending with"
// queue for a role.
func (r *InitiativeRepository) ListAtStages(ctx context.Context, stages []int, site *string) ([]*Initiative, error) {
	if len(stages) == 0 {
		return []*Initiative{}, nil
	}

	query := `SELECT ` + initiativeColumns + `
		FROM initiatives
		WHERE status IN ('PROPOSED', 'IN_PROGRESS')
		  AND current_stage = ANY($1)
	`
	args := []any{stages}
	if site != nil {
		query += " AND site_code = $2"
		args = append(args, *site)
	}
	query += " ORDER BY created_at ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list pending initiatives")
	}
	defer rows.Close()

	initiatives := make([]*Initiative, 0)
	for rows.Next() {
		init, err := scanInitiative(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan initiative")
		}
		initiatives = append(initiatives, init)
	}

	return initiatives, nil
}

// TransitionUpdate is the guarded write committed by ApplyTransition.
// ExpectedStage is the stage pointer read before the transition was computed;
// the UPDATE re-verifies it so a concurrent transition loses with Conflict
// instead of double-advancing.
type TransitionUpdate struct {
	ExpectedStage  int
	NewStage       int
	NewStatus      string
	InitiativeLead *string
	MOCRequired    *bool
	MOCNumber      *string
	CapexRequired  *bool
	CapexDetails   *string
}

// ApplyTransition commits a workflow transition: the guarded initiative
// update and the transaction-log append happen in one database transaction,
// so the log is never ahead of or behind the stage pointer.
func (r *InitiativeRepository) ApplyTransition(ctx context.Context, initiativeID string, upd TransitionUpdate, txn *WorkflowTransaction) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE initiatives
			SET status          = $2,
			    current_stage   = $3,
			    initiative_lead = COALESCE($4, initiative_lead),
			    moc_required    = COALESCE($5, moc_required),
			    moc_number      = COALESCE($6, moc_number),
			    capex_required  = COALESCE($7, capex_required),
			    capex_details   = COALESCE($8, capex_details),
			    updated_at      = NOW()
			WHERE initiative_id = $1
			  AND current_stage = $9
			  AND status IN ('PROPOSED', 'IN_PROGRESS')
			RETURNING id
		`

		var returnedID string
		err := tx.QueryRow(ctx, query,
			initiativeID,
			upd.NewStatus,
			upd.NewStage,
			upd.InitiativeLead,
			upd.MOCRequired,
			upd.MOCNumber,
			upd.CapexRequired,
			upd.CapexDetails,
			upd.ExpectedStage,
		).Scan(&returnedID)
		if err == pgx.ErrNoRows {
			return errors.Conflict(fmt.Sprintf(
				"initiative '%s' changed concurrently at stage %d; refetch and retry", initiativeID, upd.ExpectedStage))
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to apply workflow transition")
		}

		return insertTransaction(ctx, tx, txn)
	})
}

// ── sequence helpers for initiative id generation ─────────────────────────────

// CountBySiteAndYear counts initiatives registered for a site in a year.
func (r *InitiativeRepository) CountBySiteAndYear(ctx context.Context, siteCode string, year int) (int64, error) {
	query := `
		SELECT COUNT(*) FROM initiatives
		WHERE site_code = $1 AND EXTRACT(YEAR FROM created_at) = $2
	`
	var count int64
	if err := r.db.QueryRow(ctx, query, siteCode, year).Scan(&count); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to count site initiatives")
	}
	return count, nil
}

// CountBySiteDisciplineAndYear counts initiatives for a site/discipline pair
// in a year.
func (r *InitiativeRepository) CountBySiteDisciplineAndYear(ctx context.Context, siteCode, disciplineCode string, year int) (int64, error) {
	query := `
		SELECT COUNT(*) FROM initiatives
		WHERE site_code = $1 AND discipline_code = $2 AND EXTRACT(YEAR FROM created_at) = $3
	`
	var count int64
	if err := r.db.QueryRow(ctx, query, siteCode, disciplineCode, year).Scan(&count); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to count discipline initiatives")
	}
	return count, nil
}

// ── scan helper ───────────────────────────────────────────────────────────────

type initiativeScanner interface {
	Scan(dest ...any) error
}

func scanInitiative(row initiativeScanner) (*Initiative, error) {
	init := &Initiative{}
	var estimated string
	var actual *string

	err := row.Scan(
		&init.ID,
		&init.InitiativeID,
		&init.Title,
		&init.Description,
		&init.Category,
		&init.SiteCode,
		&init.DisciplineCode,
		&init.Proposer,
		&init.ProposalDate,
		&init.ExpectedClosureDate,
		&init.ActualClosureDate,
		&estimated,
		&actual,
		&init.Status,
		&init.Priority,
		&init.BudgetType,
		&init.CurrentStage,
		&init.InitiativeLead,
		&init.MOCRequired,
		&init.MOCNumber,
		&init.CapexRequired,
		&init.CapexDetails,
		&init.Comments,
		&init.CreatedAt,
		&init.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	// Amounts travel as text to keep them exact end to end.
	init.EstimatedSavings, err = decimal.NewFromString(estimated)
	if err != nil {
		return nil, fmt.Errorf("parse estimated_savings: %w", err)
	}
	if actual != nil {
		parsed, err := decimal.NewFromString(*actual)
		if err != nil {
			return nil, fmt.Errorf("parse actual_savings: %w", err)
		}
		init.ActualSavings = &parsed
	}

	return init, nil
}
