package queue

import (
	"context"
	stdsql "database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
)

//go:embed migrations
var migrationsFS embed.FS

// PostgresQueue is a durable alternative to the in-memory Queue.
// cmd/ingestd does not construct it: with queue.backend=postgres it
// still runs the in-memory Queue and logs a warning. Claim uses
// `SELECT ... FOR UPDATE SKIP LOCKED`, the same claim pattern the
// teacher's pkg/queue/worker.go uses for session claiming, rewritten
// against jackc/pgx/v5 directly since this module has no ent code
// generation step (see DESIGN.md).
type PostgresQueue struct {
	pool *pgxpool.Pool
}

// NewPostgresQueue opens a pool against dsn, applies pending migrations,
// and returns a ready PostgresQueue.
func NewPostgresQueue(ctx context.Context, dsn string) (*PostgresQueue, error) {
	if err := runQueueMigrations(dsn); err != nil {
		return nil, fmt.Errorf("running queue migrations: %w", err)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &PostgresQueue{pool: pool}, nil
}

func (q *PostgresQueue) Close() { q.pool.Close() }

func runQueueMigrations(dsn string) error {
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

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "jobs", driver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// Enqueue inserts a new job row.
func (q *PostgresQueue) Enqueue(ctx context.Context, funcRef string, payload any, opts EnqueueOptions) (string, error) {
	priority := opts.Priority
	if priority == "" {
		priority = billmodel.PriorityNormal
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling payload: %w", err)
	}

	jobID := uuid.New().String()
	_, err = q.pool.Exec(ctx, `
		INSERT INTO jobs (job_id, func_ref, priority, payload, timeout_ms, result_ttl_ms, description, batch_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		jobID, funcRef, string(priority), body,
		opts.Timeout.Milliseconds(), opts.ResultTTL.Milliseconds(), opts.Description, opts.BatchID)
	if err != nil {
		return "", fmt.Errorf("enqueuing job: %w", err)
	}
	return jobID, nil
}

// Claim atomically claims the next queued job in strict priority order,
// FIFO within a priority, using SELECT ... FOR UPDATE SKIP LOCKED so
// concurrent workers never double-claim a row.
func (q *PostgresQueue) Claim(ctx context.Context) (*billmodel.Task, error) {
	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning claim transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		SELECT job_id, func_ref, priority, payload, timeout_ms, result_ttl_ms,
		       attempts, description, batch_id, created_at
		FROM jobs
		WHERE status = 'queued'
		ORDER BY CASE priority
			WHEN 'urgent' THEN 0 WHEN 'high' THEN 1
			WHEN 'normal' THEN 2 WHEN 'low' THEN 3 ELSE 4 END,
			created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`)

	var job billmodel.Task
	var priority string
	var payload []byte
	var timeoutMs, resultTTLMs int64
	if err := row.Scan(&job.JobID, &job.FuncRef, &priority, &payload, &timeoutMs,
		&resultTTLMs, &job.Attempts, &job.Description, &job.BatchID, &job.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("claiming job: %w", err)
	}
	job.Priority = billmodel.Priority(priority)
	_ = json.Unmarshal(payload, &job.Payload)
	job.Timeout = time.Duration(timeoutMs) * time.Millisecond
	job.ResultTTL = time.Duration(resultTTLMs) * time.Millisecond

	now := time.Now()
	if _, err := tx.Exec(ctx, `
		UPDATE jobs SET status = 'running', attempts = attempts + 1, started_at = $1
		WHERE job_id = $2`, now, job.JobID); err != nil {
		return nil, fmt.Errorf("marking job running: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing claim: %w", err)
	}

	job.Status = billmodel.JobRunning
	job.Attempts++
	job.StartedAt = &now
	return &job, nil
}

// Finish writes a job's terminal status and result/error back.
func (q *PostgresQueue) Finish(ctx context.Context, jobID string, result any, taskErr error) error {
	now := time.Now()
	if taskErr != nil {
		_, err := q.pool.Exec(ctx, `
			UPDATE jobs SET status = 'failed', last_error = $1, ended_at = $2 WHERE job_id = $3`,
			taskErr.Error(), now, jobID)
		return err
	}
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	_, err = q.pool.Exec(ctx, `
		UPDATE jobs SET status = 'succeeded', result = $1, ended_at = $2 WHERE job_id = $3`,
		body, now, jobID)
	return err
}

// JobStatus reads back a job's current row.
func (q *PostgresQueue) JobStatus(ctx context.Context, jobID string) (*billmodel.Task, error) {
	row := q.pool.QueryRow(ctx, `
		SELECT job_id, func_ref, priority, payload, timeout_ms, result_ttl_ms, status,
		       attempts, result, last_error, description, batch_id, created_at, started_at, ended_at
		FROM jobs WHERE job_id = $1`, jobID)

	var job billmodel.Task
	var priority, status string
	var payload, result []byte
	var timeoutMs, resultTTLMs int64
	if err := row.Scan(&job.JobID, &job.FuncRef, &priority, &payload, &timeoutMs, &resultTTLMs,
		&status, &job.Attempts, &result, &job.LastError, &job.Description, &job.BatchID,
		&job.CreatedAt, &job.StartedAt, &job.EndedAt); err != nil {
		return nil, fmt.Errorf("reading job %q: %w", jobID, err)
	}
	job.Priority = billmodel.Priority(priority)
	job.Status = billmodel.JobStatus(status)
	_ = json.Unmarshal(payload, &job.Payload)
	if len(result) > 0 {
		_ = json.Unmarshal(result, &job.Result)
	}
	job.Timeout = time.Duration(timeoutMs) * time.Millisecond
	job.ResultTTL = time.Duration(resultTTLMs) * time.Millisecond
	return &job, nil
}
