package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/opexhub/be-opex-initiatives/internal/database"
	"github.com/opexhub/be-opex-initiatives/internal/errors"
)

// KPIRepository records and lists monthly KPI entries per site. Aggregation
// happens in reporting tooling, not here.
type KPIRepository struct {
	db *database.DB
}

// NewKPIRepository creates a new KPIRepository.
func NewKPIRepository(db *database.DB) *KPIRepository {
	return &KPIRepository{db: db}
}

// Create inserts one KPI entry.
func (r *KPIRepository) Create(ctx context.Context, entry *KPIEntry) error {
	query := `
		INSERT INTO kpi_entries
		    (name, category, site_code, month, unit, target_value, actual_value, description)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		entry.Name,
		entry.Category,
		entry.SiteCode,
		entry.Month,
		entry.Unit,
		entry.TargetValue.String(),
		entry.ActualValue.String(),
		entry.Description,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create KPI entry")
	}
	return nil
}

// ListBySite returns KPI entries for a site, newest first.
func (r *KPIRepository) ListBySite(ctx context.Context, siteCode string) ([]*KPIEntry, error) {
	query := `
		SELECT id, name, category, site_code, month, unit,
		       target_value::text, actual_value::text, description, created_at
		FROM kpi_entries
		WHERE site_code = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, siteCode)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list KPI entries")
	}
	defer rows.Close()

	entries := make([]*KPIEntry, 0)
	for rows.Next() {
		entry := &KPIEntry{}
		var target, actual string
		err := rows.Scan(
			&entry.ID,
			&entry.Name,
			&entry.Category,
			&entry.SiteCode,
			&entry.Month,
			&entry.Unit,
			&target,
			&actual,
			&entry.Description,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan KPI entry")
		}
		if entry.TargetValue, err = decimal.NewFromString(target); err != nil {
			return nil, fmt.Errorf("parse target_value: %w", err)
		}
		if entry.ActualValue, err = decimal.NewFromString(actual); err != nil {
			return nil, fmt.Errorf("parse actual_value: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
