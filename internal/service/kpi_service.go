package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/opexhub/be-opex-initiatives/internal/errors"
	"github.com/opexhub/be-opex-initiatives/internal/logger"
	"github.com/opexhub/be-opex-initiatives/internal/repository"
)

// KPIStore is the persistence surface for KPI entries.
// Implemented by repository.KPIRepository.
type KPIStore interface {
	Create(ctx context.Context, entry *repository.KPIEntry) error
	ListBySite(ctx context.Context, siteCode string) ([]*repository.KPIEntry, error)
}

// KPIService records and lists monthly KPI entries.
type KPIService struct {
	kpis      KPIStore
	reference ReferenceStore
	log       *logger.Logger
}

// NewKPIService creates a new KPIService.
func NewKPIService(kpis KPIStore, reference ReferenceStore, log *logger.Logger) *KPIService {
	return &KPIService{kpis: kpis, reference: reference, log: log}
}

// RecordKPIRequest carries one KPI measurement. Values travel as strings to
// stay exact.
type RecordKPIRequest struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	SiteCode    string  `json:"site_code"`
	Month       string  `json:"month"`
	Unit        string  `json:"unit"`
	TargetValue string  `json:"target_value"`
	ActualValue string  `json:"actual_value"`
	Description *string `json:"description,omitempty"`
}

// RecordKPI validates and stores one KPI entry.
func (s *KPIService) RecordKPI(ctx context.Context, req *RecordKPIRequest) (*repository.KPIEntry, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, errors.InvalidInput("name", "name is required")
	}
	if strings.TrimSpace(req.Month) == "" {
		return nil, errors.InvalidInput("month", "month is required")
	}

	site, err := s.reference.GetSite(ctx, strings.ToUpper(req.SiteCode))
	if err != nil {
		return nil, err
	}

	target, err := decimal.NewFromString(req.TargetValue)
	if err != nil {
		return nil, errors.InvalidInput("target_value", "target value must be a decimal number")
	}
	actual, err := decimal.NewFromString(req.ActualValue)
	if err != nil {
		return nil, errors.InvalidInput("actual_value", "actual value must be a decimal number")
	}

	entry := &repository.KPIEntry{
		Name:        strings.TrimSpace(req.Name),
		Category:    req.Category,
		SiteCode:    site.Code,
		Month:       req.Month,
		Unit:        req.Unit,
		TargetValue: target,
		ActualValue: actual,
		Description: req.Description,
	}

	if err := s.kpis.Create(ctx, entry); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("kpi_id", entry.ID).
		Str("name", entry.Name).
		Str("site", entry.SiteCode).
		Str("month", entry.Month).
		Msg("KPI entry recorded")

	return entry, nil
}

// ListKPIs returns KPI entries for a site, newest first.
func (s *KPIService) ListKPIs(ctx context.Context, siteCode string) ([]*repository.KPIEntry, error) {
	return s.kpis.ListBySite(ctx, siteCode)
}
