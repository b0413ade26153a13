/**
 * PostgreSQL Job Log for the pdfocr worker
 *
 * Keeps a durable history of asynchronous extractions. Results themselves
 * live in Redis and expire; this table keeps status, counts and errors.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"regexp"
	"time"

	"github.com/lib/pq"
)

const schemaSQL = `
	CREATE SCHEMA IF NOT EXISTS pdfocr;

	CREATE TABLE IF NOT EXISTS pdfocr.extraction_jobs (
		id                 UUID PRIMARY KEY,
		filename           TEXT NOT NULL DEFAULT 'unknown.pdf',
		status             TEXT NOT NULL,
		progress           INTEGER NOT NULL DEFAULT 0,
		page_count         INTEGER,
		crop_count         INTEGER,
		processing_time_ms BIGINT,
		error_code         TEXT,
		error_message      TEXT,
		metadata           JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS extraction_jobs_status_idx
		ON pdfocr.extraction_jobs (status, updated_at DESC);
`

// PostgresClient handles job log persistence
type PostgresClient struct {
	db *sql.DB
}

// NewPostgresClient creates a new PostgreSQL client and ensures the schema exists
func NewPostgresClient(databaseURL string) (*PostgresClient, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	// Connect to database
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	client := &PostgresClient{db: db}
	if err := client.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return client, nil
}

// EnsureSchema creates the job log table when missing
func (p *PostgresClient) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create job log schema: %w", err)
	}
	return nil
}

// UpdateJobStatus upserts the job row. Counts and timings only overwrite
// stored values when set; metadata is merged.
func (p *PostgresClient) UpdateJobStatus(ctx context.Context, update *JobUpdate) error {
	if update.JobID == "" {
		return fmt.Errorf("job ID is required")
	}
	if update.Status == "" {
		return fmt.Errorf("status is required")
	}

	metadata := update.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	metadataJSON = sanitizeJSONForPostgres(metadataJSON)

	query := `
		INSERT INTO pdfocr.extraction_jobs (
			id, filename, status, progress, page_count, crop_count,
			processing_time_ms, error_code, error_message, metadata,
			created_at, updated_at
		) VALUES (
			$1::uuid, COALESCE(NULLIF($2::text, ''), 'unknown.pdf'), $3::text, $4::int,
			NULLIF($5::int, 0), NULLIF($6::int, 0), NULLIF($7::bigint, 0),
			NULLIF($8::text, ''), NULLIF($9::text, ''), $10::jsonb,
			NOW(), NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			filename = CASE WHEN $2::text = '' THEN pdfocr.extraction_jobs.filename ELSE EXCLUDED.filename END,
			status = EXCLUDED.status,
			progress = EXCLUDED.progress,
			page_count = COALESCE(EXCLUDED.page_count, pdfocr.extraction_jobs.page_count),
			crop_count = COALESCE(EXCLUDED.crop_count, pdfocr.extraction_jobs.crop_count),
			processing_time_ms = COALESCE(EXCLUDED.processing_time_ms, pdfocr.extraction_jobs.processing_time_ms),
			error_code = EXCLUDED.error_code,
			error_message = EXCLUDED.error_message,
			metadata = pdfocr.extraction_jobs.metadata || EXCLUDED.metadata,
			updated_at = NOW()
		RETURNING id
	`

	var returnedID string
	err = p.db.QueryRowContext(
		ctx,
		query,
		update.JobID,            // $1
		update.Filename,         // $2
		string(update.Status),   // $3
		update.Progress,         // $4
		update.Pages,            // $5
		update.Crops,            // $6
		update.ProcessingTimeMs, // $7
		update.ErrorCode,        // $8
		update.ErrorMessage,     // $9
		string(metadataJSON),    // $10
	).Scan(&returnedID)
	if err != nil {
		return fmt.Errorf("failed to update job status (job=%s, status=%s): %w", update.JobID, update.Status, err)
	}
	return nil
}

// GetJobByID retrieves a job row by ID
func (p *PostgresClient) GetJobByID(ctx context.Context, jobID string) (*Job, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job ID is required")
	}

	query := `
		SELECT id, filename, status, progress, page_count, crop_count,
		       error_code, error_message, created_at, updated_at
		FROM pdfocr.extraction_jobs
		WHERE id = $1::uuid
	`
	job, err := scanJob(p.db.QueryRowContext(ctx, query, jobID))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// ListJobs returns the most recently updated jobs in any of the given states.
func (p *PostgresClient) ListJobs(ctx context.Context, statuses []Status, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	query := `
		SELECT id, filename, status, progress, page_count, crop_count,
		       error_code, error_message, created_at, updated_at
		FROM pdfocr.extraction_jobs
		WHERE cardinality($1::text[]) = 0 OR status = ANY($1::text[])
		ORDER BY updated_at DESC
		LIMIT $2
	`
	rows, err := p.db.QueryContext(ctx, query, pq.Array(names), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job                     Job
		status                  string
		pages, crops            sql.NullInt64
		errorCode, errorMessage sql.NullString
	)
	if err := row.Scan(
		&job.ID, &job.Filename, &status, &job.Progress, &pages, &crops,
		&errorCode, &errorMessage, &job.CreatedAt, &job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	job.Status = Status(status)
	job.Pages = int(pages.Int64)
	job.Crops = int(crops.Int64)
	job.ErrorCode = errorCode.String
	job.Error = errorMessage.String
	return &job, nil
}

// GetStats returns connection pool statistics
func (p *PostgresClient) GetStats() sql.DBStats {
	return p.db.Stats()
}

// Ping checks the connection
func (p *PostgresClient) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database connection
func (p *PostgresClient) Close() error {
	return p.db.Close()
}

var (
	nullEscape    = regexp.MustCompile(`\\u0000`)
	controlEscape = regexp.MustCompile(`\\u00[01][0-9a-fA-F]`)
)

// sanitizeJSONForPostgres removes escapes JSONB rejects: \u0000 is dropped and
// other control characters become spaces.
func sanitizeJSONForPostgres(jsonBytes []byte) []byte {
	result := nullEscape.ReplaceAll(jsonBytes, []byte{})
	return controlEscape.ReplaceAll(result, []byte(" "))
}
