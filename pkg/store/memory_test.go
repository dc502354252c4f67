package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
)

func newTestBill(id string) *billmodel.BillRecord {
	return &billmodel.BillRecord{
		BillID:          id,
		ChamberOfOrigin: billmodel.ChamberShugiin,
		SessionNumber:   217,
		Title:           "test bill " + id,
		Category:        billmodel.CategoryBudget,
		SubmitterKind:   billmodel.SubmitterGovernment,
		Status:          billmodel.StatusSubmitted,
		Stage:           billmodel.StageSubmitted,
		SourceChambers:  billmodel.SourceShugiinOnly,
		LastUpdated:     time.Now(),
	}
}

func TestMemoryStore_CreateGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	bill := newTestBill("217-1")
	require.NoError(t, s.Create(ctx, bill))

	got, err := s.Get(ctx, "217-1")
	require.NoError(t, err)
	assert.Equal(t, bill.Title, got.Title)

	// mutating the returned copy must not affect the stored record
	got.Title = "mutated"
	again, err := s.Get(ctx, "217-1")
	require.NoError(t, err)
	assert.Equal(t, "test bill 217-1", again.Title)
}

func TestMemoryStore_CreateDuplicate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	bill := newTestBill("217-1")
	require.NoError(t, s.Create(ctx, bill))
	err := s.Create(ctx, bill)
	assert.Error(t, err)
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_List_FilterAndMax(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	b1 := newTestBill("217-1")
	b2 := newTestBill("217-2")
	b2.Category = billmodel.CategoryEducation
	b3 := newTestBill("217-3")
	require.NoError(t, s.Create(ctx, b1))
	require.NoError(t, s.Create(ctx, b2))
	require.NoError(t, s.Create(ctx, b3))

	all, err := s.List(ctx, nil, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	budgetOnly, err := s.List(ctx, Filter{"category": billmodel.CategoryBudget}, 0)
	require.NoError(t, err)
	assert.Len(t, budgetOnly, 2)

	limited, err := s.List(ctx, nil, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestMemoryStore_Update(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	bill := newTestBill("217-1")
	require.NoError(t, s.Create(ctx, bill))

	err := s.Update(ctx, "217-1", map[string]any{
		"status": billmodel.StatusCommittee,
		"stage":  billmodel.StageCommitteeReferred,
	})
	require.NoError(t, err)

	got, err := s.Get(ctx, "217-1")
	require.NoError(t, err)
	assert.Equal(t, billmodel.StatusCommittee, got.Status)
	assert.Equal(t, billmodel.StageCommitteeReferred, got.Stage)
}

func TestMemoryStore_UpdateUnknownField(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	bill := newTestBill("217-1")
	require.NoError(t, s.Create(ctx, bill))

	err := s.Update(ctx, "217-1", map[string]any{"bill_id": "changed"})
	assert.Error(t, err)
}

func TestMemoryStore_UpdateNotFound(t *testing.T) {
	s := NewMemoryStore()
	err := s.Update(context.Background(), "missing", map[string]any{"title": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Delete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	bill := newTestBill("217-1")
	require.NoError(t, s.Create(ctx, bill))

	require.NoError(t, s.Delete(ctx, "217-1"))
	_, err := s.Get(ctx, "217-1")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = s.Delete(ctx, "217-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalReportStore_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	rs, err := NewLocalReportStore(dir)
	require.NoError(t, err)

	ctx := context.Background()
	payload := []byte(`{"execution_id":"abc"}`)
	require.NoError(t, rs.Save(ctx, "migration_report_abc.json", payload))

	got, err := rs.Load(ctx, "migration_report_abc.json")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	_, err = rs.Load(ctx, "missing.json")
	assert.ErrorIs(t, err, ErrNotFound)
}
