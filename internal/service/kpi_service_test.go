package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opexhub/be-opex-initiatives/internal/errors"
	"github.com/opexhub/be-opex-initiatives/internal/repository"
)

type fakeKPIStore struct {
	entries []*repository.KPIEntry
}

func (f *fakeKPIStore) Create(_ context.Context, entry *repository.KPIEntry) error {
	entry.ID = "8f6c9be2-0000-0000-0000-00000000000b"
	entry.CreatedAt = fixedNow
	clone := *entry
	f.entries = append(f.entries, &clone)
	return nil
}

func (f *fakeKPIStore) ListBySite(_ context.Context, siteCode string) ([]*repository.KPIEntry, error) {
	out := []*repository.KPIEntry{}
	for _, entry := range f.entries {
		if entry.SiteCode == siteCode {
			out = append(out, entry)
		}
	}
	return out, nil
}

func validKPIRequest() *RecordKPIRequest {
	return &RecordKPIRequest{
		Name:        "Specific energy consumption",
		Category:    "Energy",
		SiteCode:    "nds",
		Month:       "2026-03",
		Unit:        "kWh/t",
		TargetValue: "415.0",
		ActualValue: "402.7",
	}
}

func TestKPIService_Record(t *testing.T) {
	store := &fakeKPIStore{}
	svc := NewKPIService(store, fakeReferenceStore{}, testLogger())

	entry, err := svc.RecordKPI(context.Background(), validKPIRequest())
	require.NoError(t, err)

	assert.Equal(t, "NDS", entry.SiteCode)
	assert.True(t, entry.TargetValue.Equal(decimal.RequireFromString("415.0")))
	assert.True(t, entry.ActualValue.Equal(decimal.RequireFromString("402.7")))
	assert.Len(t, store.entries, 1)
}

func TestKPIService_RecordValidation(t *testing.T) {
	svc := NewKPIService(&fakeKPIStore{}, fakeReferenceStore{}, testLogger())
	ctx := context.Background()

	req := validKPIRequest()
	req.Name = " "
	_, err := svc.RecordKPI(ctx, req)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))

	req = validKPIRequest()
	req.Month = ""
	_, err = svc.RecordKPI(ctx, req)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))

	req = validKPIRequest()
	req.TargetValue = "many"
	_, err = svc.RecordKPI(ctx, req)
	require.Error(t, err)
	assert.Contains(t, errors.FieldsOf(err), "target_value")

	req = validKPIRequest()
	req.SiteCode = "XXX"
	_, err = svc.RecordKPI(ctx, req)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}

func TestKPIService_ListBySite(t *testing.T) {
	store := &fakeKPIStore{}
	svc := NewKPIService(store, fakeReferenceStore{}, testLogger())
	ctx := context.Background()

	_, err := svc.RecordKPI(ctx, validKPIRequest())
	require.NoError(t, err)

	entries, err := svc.ListKPIs(ctx, "NDS")
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	entries, err = svc.ListKPIs(ctx, "HSD1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
