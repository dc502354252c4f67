// Package store defines the record-store abstraction every component reads
// and writes BillRecords through, plus a ReportStore for persisted
// migration/quality reports. The interfaces follow spec.md §6's
// get/list/create/update/delete contract; this package supplies an
// in-memory reference implementation and a Postgres-backed one built on
// jackc/pgx/v5, grounded on codeready-toolchain/tarsy's pkg/database
// (minus its ent/ dependency, which this module drops — see DESIGN.md).
package store

import (
	"context"
	"errors"

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
)

// ErrNotFound is returned by Get/Update/Delete when no record matches id.
var ErrNotFound = errors.New("store: record not found")

// Filter is a conjunction of equality and boolean constraints over
// BillRecord's scalar fields (spec.md §6: "no join semantics assumed").
// A nil or empty Filter matches every record.
type Filter map[string]any

// Matches reports whether rec satisfies every constraint in f.
func (f Filter) Matches(rec *billmodel.BillRecord) bool {
	for field, want := range f {
		got, ok := fieldValue(rec, field)
		if !ok || got != want {
			return false
		}
	}
	return true
}

func fieldValue(rec *billmodel.BillRecord, field string) (any, bool) {
	switch field {
	case "bill_id":
		return rec.BillID, true
	case "chamber_of_origin":
		return rec.ChamberOfOrigin, true
	case "source_chambers":
		return rec.SourceChambers, true
	case "submitter_kind":
		return rec.SubmitterKind, true
	case "category":
		return rec.Category, true
	case "status":
		return rec.Status, true
	case "stage":
		return rec.Stage, true
	case "session_number":
		return rec.SessionNumber, true
	case "sponsoring_ministry":
		return rec.SponsoringMinistry, true
	default:
		return nil, false
	}
}

// RecordStore is the persistence interface every component depends on.
// spec.md §6 treats the record store as an external system accessed only
// through this shape; components must never assume a SQL join is
// available underneath.
type RecordStore interface {
	Get(ctx context.Context, id string) (*billmodel.BillRecord, error)
	List(ctx context.Context, filter Filter, max int) ([]*billmodel.BillRecord, error)
	Create(ctx context.Context, rec *billmodel.BillRecord) error
	Update(ctx context.Context, id string, fields map[string]any) error
	Delete(ctx context.Context, id string) error
}

// ReportStore persists the JSON artifacts spec.md §6 names: migration
// reports and, by extension, quality/completion snapshots. Kept as its
// own narrow interface so callers that only need durable blob storage
// don't have to depend on the full RecordStore contract.
type ReportStore interface {
	Save(ctx context.Context, name string, data []byte) error
	Load(ctx context.Context, name string) ([]byte, error)
}
