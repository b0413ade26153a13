package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Producer enqueues extraction tasks
type Producer struct {
	client    *asynq.Client
	queueName string
	timeout   time.Duration
}

// ProducerConfig holds producer configuration
type ProducerConfig struct {
	RedisURL  string
	QueueName string
	// ProcessingTimeout bounds how long asynq lets a task run.
	ProcessingTimeout time.Duration
}

// NewProducer creates an asynq client for task submission
func NewProducer(cfg ProducerConfig) (*Producer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &Producer{
		client:    asynq.NewClient(redisOpt),
		queueName: cfg.QueueName,
		timeout:   cfg.ProcessingTimeout,
	}, nil
}

// Enqueue submits a job. Extraction failures are deterministic, so tasks are never retried.
func (p *Producer) Enqueue(ctx context.Context, data *JobData) (*asynq.TaskInfo, error) {
	task, err := NewExtractTask(data, p.taskOptions(data.JobID)...)
	if err != nil {
		return nil, err
	}
	info, err := p.client.EnqueueContext(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue job %s: %w", data.JobID, err)
	}
	return info, nil
}

func (p *Producer) taskOptions(jobID string) []asynq.Option {
	opts := []asynq.Option{
		asynq.Queue(p.queueName),
		asynq.TaskID(jobID),
		asynq.MaxRetry(0),
	}
	if p.timeout > 0 {
		// The handler enforces the processing timeout itself; leave room to record the failure.
		opts = append(opts, asynq.Timeout(p.timeout+30*time.Second))
	}
	return opts
}

// Close closes the asynq client
func (p *Producer) Close() error {
	return p.client.Close()
}
