/**
 * Storage Manager for the pdfocr job path
 *
 * Coordinates job state across Redis (live status and results) and an
 * optional PostgreSQL job log (durable history).
 */

package storage

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/adverant/nexus/pdfocr/internal/extract"
)

// ErrNoJobLog is returned by queries that need the PostgreSQL job log when
// none is configured.
var ErrNoJobLog = stderrors.New("job log is not configured")

// StorageManager coordinates Redis and PostgreSQL operations
type StorageManager struct {
	redis    *RedisStore
	postgres *PostgresClient
}

// ManagerConfig holds storage configuration
type ManagerConfig struct {
	RedisURL string
	// DatabaseURL is optional; without it no job history is kept.
	DatabaseURL string
	ResultTTL   time.Duration
}

// NewStorageManager creates a new storage manager
func NewStorageManager(cfg ManagerConfig) (*StorageManager, error) {
	redisStore, err := NewRedisStore(RedisStoreConfig{RedisURL: cfg.RedisURL, TTL: cfg.ResultTTL})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis store: %w", err)
	}

	var postgres *PostgresClient
	if cfg.DatabaseURL != "" {
		postgres, err = NewPostgresClient(cfg.DatabaseURL)
		if err != nil {
			redisStore.Close() // Cleanup on failure
			return nil, fmt.Errorf("failed to initialize PostgreSQL client: %w", err)
		}
	}

	return &StorageManager{redis: redisStore, postgres: postgres}, nil
}

// NewStorageManagerWith assembles a manager from connected clients. postgres may be nil.
func NewStorageManagerWith(redisStore *RedisStore, postgres *PostgresClient) *StorageManager {
	return &StorageManager{redis: redisStore, postgres: postgres}
}

// HasJobLog reports whether job history is persisted.
func (sm *StorageManager) HasJobLog() bool {
	return sm.postgres != nil
}

// CreateJob records a newly queued job
func (sm *StorageManager) CreateJob(ctx context.Context, jobID, filename string) (*Job, error) {
	now := time.Now().UTC()
	job := &Job{
		ID:        jobID,
		Filename:  filename,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := sm.redis.Create(ctx, job); err != nil {
		return nil, err
	}
	if sm.postgres != nil {
		if err := sm.postgres.UpdateJobStatus(ctx, &JobUpdate{
			JobID:    jobID,
			Filename: filename,
			Status:   StatusQueued,
		}); err != nil {
			return job, fmt.Errorf("job log: %w", err)
		}
	}
	return job, nil
}

// UpdateJobStatus records a status transition in both stores
func (sm *StorageManager) UpdateJobStatus(ctx context.Context, update *JobUpdate) error {
	return sm.write(ctx, update, nil)
}

// CompleteJob stores the extraction result and marks the job completed
func (sm *StorageManager) CompleteJob(ctx context.Context, update *JobUpdate, result *extract.Result) error {
	if result == nil {
		return fmt.Errorf("result is required")
	}
	update.Status = StatusCompleted
	update.Progress = 100
	update.Pages = len(result.Images)
	update.Crops = len(result.CroppedImages)
	return sm.write(ctx, update, result)
}

func (sm *StorageManager) write(ctx context.Context, update *JobUpdate, result *extract.Result) error {
	var errs []error
	if _, err := sm.redis.Update(ctx, update, result); err != nil {
		errs = append(errs, fmt.Errorf("result store: %w", err))
	}
	if sm.postgres != nil {
		if err := sm.postgres.UpdateJobStatus(ctx, update); err != nil {
			errs = append(errs, fmt.Errorf("job log: %w", err))
		}
	}
	return stderrors.Join(errs...)
}

// GetJob loads a job. Expired Redis records fall back to the job log,
// which has no result payload.
func (sm *StorageManager) GetJob(ctx context.Context, jobID string) (*Job, error) {
	job, err := sm.redis.Get(ctx, jobID)
	if err == nil {
		return job, nil
	}
	if !stderrors.Is(err, ErrJobNotFound) || sm.postgres == nil {
		return nil, err
	}
	return sm.postgres.GetJobByID(ctx, jobID)
}

// ListJobs returns recent jobs from the job log.
func (sm *StorageManager) ListJobs(ctx context.Context, statuses []Status, limit int) ([]*Job, error) {
	if sm.postgres == nil {
		return nil, ErrNoJobLog
	}
	return sm.postgres.ListJobs(ctx, statuses, limit)
}

// Ping checks every configured backend
func (sm *StorageManager) Ping(ctx context.Context) error {
	if err := sm.redis.Ping(ctx); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if sm.postgres != nil {
		if err := sm.postgres.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	return nil
}

// GetStats returns connection statistics
func (sm *StorageManager) GetStats() map[string]interface{} {
	stats := map[string]interface{}{
		"redis": map[string]interface{}{
			"ttl": sm.redis.ttl.String(),
		},
	}
	if sm.postgres != nil {
		pgStats := sm.postgres.GetStats()
		stats["postgres"] = map[string]interface{}{
			"max_open_connections": pgStats.MaxOpenConnections,
			"open_connections":     pgStats.OpenConnections,
			"in_use":               pgStats.InUse,
			"idle":                 pgStats.Idle,
			"wait_count":           pgStats.WaitCount,
			"wait_duration":        pgStats.WaitDuration.String(),
		}
	}
	return stats
}

// Close closes all connections
func (sm *StorageManager) Close() error {
	var errs []error
	if sm.redis != nil {
		if err := sm.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}
	if sm.postgres != nil {
		if err := sm.postgres.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close PostgreSQL: %w", err))
		}
	}
	return stderrors.Join(errs...)
}
