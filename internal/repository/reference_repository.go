package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/opexhub/be-opex-initiatives/internal/database"
	"github.com/opexhub/be-opex-initiatives/internal/errors"
)

// ReferenceRepository serves the site and discipline lookup tables.
type ReferenceRepository struct {
	db *database.DB
}

// NewReferenceRepository creates a new ReferenceRepository.
func NewReferenceRepository(db *database.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// defaultSites are the manufacturing sites seeded on first start.
var defaultSites = []Site{
	{Code: "NDS", Name: "NDS Plant", Type: "Manufacturing"},
	{Code: "HSD1", Name: "HSD1 Plant", Type: "Manufacturing"},
	{Code: "HSD2", Name: "HSD2 Plant", Type: "Manufacturing"},
	{Code: "HSD3", Name: "HSD3 Plant", Type: "Manufacturing"},
	{Code: "DHJ", Name: "DHJ Plant", Type: "Manufacturing"},
	{Code: "APL", Name: "APL Plant", Type: "Manufacturing"},
	{Code: "TCD", Name: "TCD Plant", Type: "Manufacturing"},
}

// defaultDisciplines are the initiative disciplines seeded on first start.
var defaultDisciplines = []Discipline{
	{Code: "MX", Name: "Maintenance", Description: "Maintenance related initiatives for equipment and facility upkeep"},
	{Code: "PR", Name: "Production", Description: "Production efficiency and process improvement initiatives"},
	{Code: "QA", Name: "Quality Assurance", Description: "Quality improvement and assurance initiatives"},
	{Code: "SF", Name: "Safety", Description: "Safety enhancement and risk reduction initiatives"},
	{Code: "EN", Name: "Energy", Description: "Energy efficiency and conservation initiatives"},
	{Code: "EV", Name: "Environment", Description: "Environmental protection and sustainability initiatives"},
	{Code: "IT", Name: "Information Technology", Description: "IT system improvement and digitalization initiatives"},
}

// SeedDefaults inserts the default sites and disciplines, skipping rows that
// already exist. Safe to run on every start.
func (r *ReferenceRepository) SeedDefaults(ctx context.Context) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		for _, site := range defaultSites {
			_, err := tx.Exec(ctx,
				`INSERT INTO initiative_sites (code, name, type) VALUES ($1, $2, $3)
				 ON CONFLICT (code) DO NOTHING`,
				site.Code, site.Name, site.Type)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to seed site")
			}
		}
		for _, disc := range defaultDisciplines {
			_, err := tx.Exec(ctx,
				`INSERT INTO initiative_disciplines (code, name, description) VALUES ($1, $2, $3)
				 ON CONFLICT (code) DO NOTHING`,
				disc.Code, disc.Name, disc.Description)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to seed discipline")
			}
		}
		return nil
	})
}

// ListSites returns all sites ordered by code.
func (r *ReferenceRepository) ListSites(ctx context.Context) ([]*Site, error) {
	rows, err := r.db.Query(ctx, `SELECT code, name, type FROM initiative_sites ORDER BY code`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list sites")
	}
	defer rows.Close()

	sites := make([]*Site, 0)
	for rows.Next() {
		site := &Site{}
		if err := rows.Scan(&site.Code, &site.Name, &site.Type); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan site")
		}
		sites = append(sites, site)
	}
	return sites, nil
}

// GetSite returns a site by code.
func (r *ReferenceRepository) GetSite(ctx context.Context, code string) (*Site, error) {
	site := &Site{}
	err := r.db.QueryRow(ctx,
		`SELECT code, name, type FROM initiative_sites WHERE code = $1`, code).
		Scan(&site.Code, &site.Name, &site.Type)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("site", code)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get site")
	}
	return site, nil
}

// ListDisciplines returns all disciplines ordered by code.
func (r *ReferenceRepository) ListDisciplines(ctx context.Context) ([]*Discipline, error) {
	rows, err := r.db.Query(ctx, `SELECT code, name, description FROM initiative_disciplines ORDER BY code`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list disciplines")
	}
	defer rows.Close()

	disciplines := make([]*Discipline, 0)
	for rows.Next() {
		disc := &Discipline{}
		if err := rows.Scan(&disc.Code, &disc.Name, &disc.Description); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan discipline")
		}
		disciplines = append(disciplines, disc)
	}
	return disciplines, nil
}

// GetDiscipline returns a discipline by code.
func (r *ReferenceRepository) GetDiscipline(ctx context.Context, code string) (*Discipline, error) {
	disc := &Discipline{}
	err := r.db.QueryRow(ctx,
		`SELECT code, name, description FROM initiative_disciplines WHERE code = $1`, code).
		Scan(&disc.Code, &disc.Name, &disc.Description)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("discipline", code)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get discipline")
	}
	return disc, nil
}
