package store

import (
	"context"
	stdsql "database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver, used only for migrations

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
)

//go:embed migrations
var migrationsFS embed.FS

// PostgresStore implements RecordStore and ReportStore against a
// Postgres database, for deployments that set store.record_store_url.
// Grounded on codeready-toolchain/tarsy's
// pkg/database/client.go migration sequence, re-targeted from Ent onto
// raw jackc/pgx/v5 queries since this module has no code-generation step
// to run (see DESIGN.md).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens a connection pool against dsn, applies any
// pending embedded migrations, and returns a ready PostgresStore.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if err := runMigrations(dsn); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() { s.pool.Close() }

func runMigrations(dsn string) error {
	db, err := stdsql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("opening migration connection: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("creating postgres driver: %w", err)
	}
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("creating migration source: %w", err)
	}
	defer sourceDriver.Close()

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "bills", driver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*billmodel.BillRecord, error) {
	row := s.pool.QueryRow(ctx, selectColumns+" FROM bills WHERE bill_id = $1", id)
	rec, err := scanBill(row)
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", id, translateNoRows(err))
	}
	return rec, nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter, max int) ([]*billmodel.BillRecord, error) {
	query, args := buildListQuery(filter, max)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	var out []*billmodel.BillRecord
	for rows.Next() {
		rec, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("list: scanning row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func buildListQuery(filter Filter, max int) (string, []any) {
	var clauses []string
	var args []any
	i := 1
	for field, want := range filter {
		if !isFilterableColumn(field) {
			continue
		}
		clauses = append(clauses, fmt.Sprintf("%s = $%d", field, i))
		args = append(args, want)
		i++
	}
	query := selectColumns + " FROM bills"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY bill_id"
	if max > 0 {
		query += fmt.Sprintf(" LIMIT %d", max)
	}
	return query, args
}

func isFilterableColumn(field string) bool {
	switch field {
	case "bill_id", "chamber_of_origin", "session_number", "submitter_kind",
		"category", "status", "stage", "sponsoring_ministry", "source_chambers":
		return true
	default:
		return false
	}
}

func (s *PostgresStore) Create(ctx context.Context, rec *billmodel.BillRecord) error {
	committeeAssignments, err := json.Marshal(rec.CommitteeAssignments)
	if err != nil {
		return fmt.Errorf("create %q: marshaling committee_assignments: %w", rec.BillID, err)
	}
	votingResults, err := json.Marshal(rec.VotingResults)
	if err != nil {
		return fmt.Errorf("create %q: marshaling voting_results: %w", rec.BillID, err)
	}
	amendments, err := json.Marshal(rec.Amendments)
	if err != nil {
		return fmt.Errorf("create %q: marshaling amendments: %w", rec.BillID, err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO bills (
			bill_id, chamber_of_origin, session_number, source_urls,
			title, outline, background, expected_effects, key_provisions, related_laws,
			category, submitter_kind, sponsoring_ministry, submitting_members, supporting_members,
			submitted_date, committee_referral_date, committee_report_date, final_vote_date,
			promulgated_date, implementation_date,
			status, stage, committee_assignments, voting_results, amendments,
			source_chambers, last_updated, data_quality_score
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29
		)`,
		rec.BillID, string(rec.ChamberOfOrigin), rec.SessionNumber, rec.SourceURLs,
		rec.Title, rec.Outline, rec.Background, rec.ExpectedEffects, rec.KeyProvisions, rec.RelatedLaws,
		string(rec.Category), string(rec.SubmitterKind), rec.SponsoringMinistry, rec.SubmittingMembers, rec.SupportingMembers,
		rec.SubmittedDate, rec.CommitteeReferralDate, rec.CommitteeReportDate, rec.FinalVoteDate,
		rec.PromulgatedDate, rec.ImplementationDate,
		string(rec.Status), string(rec.Stage), committeeAssignments, votingResults, amendments,
		string(rec.SourceChambers), rec.LastUpdated, rec.DataQualityScore,
	)
	if err != nil {
		return fmt.Errorf("create %q: %w", rec.BillID, err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	var clauses []string
	var args []any
	i := 1
	for field, value := range fields {
		if !isUpdatableColumn(field) {
			return fmt.Errorf("update %q: unknown field %q", id, field)
		}
		clauses = append(clauses, fmt.Sprintf("%s = $%d", field, i))
		args = append(args, value)
		i++
	}
	clauses = append(clauses, fmt.Sprintf("last_updated = $%d", i))
	args = append(args, time.Now())
	i++
	args = append(args, id)

	query := fmt.Sprintf("UPDATE bills SET %s WHERE bill_id = $%d", strings.Join(clauses, ", "), i)
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update %q: %w", id, ErrNotFound)
	}
	return nil
}

func isUpdatableColumn(field string) bool {
	switch field {
	case "title", "outline", "background", "expected_effects", "status", "stage",
		"data_quality_score", "sponsoring_ministry", "category", "submitter_kind",
		"source_chambers":
		return true
	default:
		return false
	}
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM bills WHERE bill_id = $1", id)
	if err != nil {
		return fmt.Errorf("delete %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete %q: %w", id, ErrNotFound)
	}
	return nil
}

// Save implements ReportStore by upserting a row in the reports table.
func (s *PostgresStore) Save(ctx context.Context, name string, data []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reports (name, data, created_at) VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, created_at = EXCLUDED.created_at`,
		name, data)
	if err != nil {
		return fmt.Errorf("save report %q: %w", name, err)
	}
	return nil
}

// Load implements ReportStore by reading back a previously saved report.
func (s *PostgresStore) Load(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, "SELECT data FROM reports WHERE name = $1", name).Scan(&data)
	if err != nil {
		return nil, fmt.Errorf("load report %q: %w", name, translateNoRows(err))
	}
	return data, nil
}
