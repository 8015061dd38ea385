// Package queue is a Redis-backed durable job queue: one hash per job, one
// list per queue, workers popping with BRPOP. Job hashes survive worker
// restarts so /jobs/{id} can always answer.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/voforge/voforge-api/metrics"
)

const (
	StatusQueued   = "queued"
	StatusStarted  = "started"
	StatusFinished = "finished"
	StatusFailed   = "failed"

	jobKeyPrefix   = "voforge:job:"
	queueKeyPrefix = "voforge:queue:"

	// Failed jobs keep only the tail of the error text.
	maxErrorLen = 2000
)

var ErrJobNotFound = errors.New("job not found")

// Meta is the enqueue-time context stored alongside a job.
type Meta struct {
	ProjectID     string `json:"project_id"`
	RunType       string `json:"run_type"`
	ExecutionMode string `json:"execution_mode,omitempty"`
	NarrationMode string `json:"narration_mode,omitempty"`
	QueuedAt      string `json:"queued_at"`
}

// JobStatus is the full job hash as returned by Status.
type JobStatus struct {
	JobID      string          `json:"job_id"`
	Status     string          `json:"status"`
	FuncName   string          `json:"func_name"`
	QueueName  string          `json:"queue_name"`
	Meta       Meta            `json:"meta"`
	EnqueuedAt string          `json:"enqueued_at"`
	StartedAt  string          `json:"started_at,omitempty"`
	EndedAt    string          `json:"ended_at,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Client enqueues jobs and reads their status.
type Client struct {
	rdb       *redis.Client
	queueName string
}

func New(redisURL, queueName string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid queue url: %w", err)
	}
	return &Client{rdb: redis.NewClient(opts), queueName: queueName}, nil
}

// NewFromRedis wraps an existing redis client (used by tests on miniredis).
func NewFromRedis(rdb *redis.Client, queueName string) *Client {
	return &Client{rdb: rdb, queueName: queueName}
}

func (c *Client) QueueName() string { return c.queueName }

func jobKey(jobID string) string {
	return jobKeyPrefix + jobID
}

func (c *Client) queueKey() string {
	return queueKeyPrefix + c.queueName
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Ping reports whether the queue backend is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Enqueue stores the job hash and pushes the job id onto the queue list.
func (c *Client) Enqueue(ctx context.Context, funcName string, args interface{}, meta Meta) (string, error) {
	jobID := uuid.NewString()
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job args: %w", err)
	}
	if meta.QueuedAt == "" {
		meta.QueuedAt = nowISO()
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job meta: %w", err)
	}

	fields := map[string]interface{}{
		"status":      StatusQueued,
		"func_name":   funcName,
		"queue_name":  c.queueName,
		"args":        string(argsJSON),
		"meta":        string(metaJSON),
		"enqueued_at": nowISO(),
	}
	if err := c.rdb.HSet(ctx, jobKey(jobID), fields).Err(); err != nil {
		return "", fmt.Errorf("failed to store job hash: %w", err)
	}
	if err := c.rdb.LPush(ctx, c.queueKey(), jobID).Err(); err != nil {
		return "", fmt.Errorf("failed to push job onto queue: %w", err)
	}
	metrics.Metrics.JobsEnqueuedCount.WithLabelValues(meta.RunType).Inc()
	return jobID, nil
}

// Status reads a job hash. A missing hash is ErrJobNotFound.
func (c *Client) Status(ctx context.Context, jobID string) (*JobStatus, error) {
	fields, err := c.rdb.HGetAll(ctx, jobKey(jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read job hash: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	status := &JobStatus{
		JobID:      jobID,
		Status:     fields["status"],
		FuncName:   fields["func_name"],
		QueueName:  fields["queue_name"],
		EnqueuedAt: fields["enqueued_at"],
		StartedAt:  fields["started_at"],
		EndedAt:    fields["ended_at"],
		Error:      fields["error"],
	}
	if raw := fields["meta"]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &status.Meta)
	}
	if raw := fields["result"]; raw != "" {
		status.Result = json.RawMessage(raw)
	}
	return status, nil
}

func truncateError(text string) string {
	if len(text) <= maxErrorLen {
		return text
	}
	return text[len(text)-maxErrorLen:]
}
