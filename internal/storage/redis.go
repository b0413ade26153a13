/**
 * Redis Result Store
 *
 * Holds job status and completed extraction results for polling clients.
 * Records expire after the configured TTL.
 */

package storage

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adverant/nexus/pdfocr/internal/extract"
)

const defaultKeyPrefix = "pdfocr:job:"

// RedisStore implements job status storage on Redis
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisStoreConfig holds Redis store configuration
type RedisStoreConfig struct {
	RedisURL string
	Prefix   string
	TTL      time.Duration
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(cfg RedisStoreConfig) (*RedisStore, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("redis URL is required")
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return newRedisStore(client, cfg.Prefix, cfg.TTL), nil
}

func newRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(jobID string) string {
	return s.prefix + jobID
}

// Create stores a new queued job
func (s *RedisStore) Create(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.key(job.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	return nil
}

// Get loads a job record
func (s *RedisStore) Get(ctx context.Context, jobID string) (*Job, error) {
	data, err := s.client.Get(ctx, s.key(jobID)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", jobID, err)
	}
	return &job, nil
}

// Update applies a status update. A missing record is recreated so that a
// worker can report on jobs whose record already expired.
func (s *RedisStore) Update(ctx context.Context, update *JobUpdate, result *extract.Result) (*Job, error) {
	if update.JobID == "" {
		return nil, fmt.Errorf("job ID is required")
	}
	now := time.Now().UTC()

	job, err := s.Get(ctx, update.JobID)
	if stderrors.Is(err, ErrJobNotFound) {
		job = &Job{ID: update.JobID, CreatedAt: now}
	} else if err != nil {
		return nil, err
	}

	job.apply(update, now)
	if result != nil {
		job.Result = result
	}

	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := s.client.Set(ctx, s.key(job.ID), data, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("redis set: %w", err)
	}
	return job, nil
}

// Ping checks the connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
