package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/voforge/voforge-api/cache"
	"github.com/voforge/voforge-api/log"
)

const (
	// Per-job hard deadline. Renders of long videos dominate; anything past
	// an hour is stuck.
	jobTimeout = 60 * time.Minute

	popTimeout = 5 * time.Second
)

// JobFunc runs one job. args is the JSON the enqueuer stored.
type JobFunc func(ctx context.Context, jobID string, args json.RawMessage) (interface{}, error)

// Worker pops job ids off the queue list and runs registered functions.
type Worker struct {
	client   *Client
	funcs    map[string]JobFunc
	inFlight *cache.Cache[string]
}

func NewWorker(client *Client) *Worker {
	return &Worker{
		client:   client,
		funcs:    map[string]JobFunc{},
		inFlight: cache.New[string](),
	}
}

func (w *Worker) Register(funcName string, fn JobFunc) {
	w.funcs[funcName] = fn
}

// InFlightJobs lists the ids of jobs currently being processed.
func (w *Worker) InFlightJobs() []string {
	return w.inFlight.Keys()
}

// Run blocks popping jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	log.LogNoJobID("worker started", "queue", w.client.queueName)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := w.client.rdb.BRPop(ctx, popTimeout, w.client.queueKey()).Result()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// redis.Nil on an empty queue, transient errors otherwise
			continue
		}
		if len(res) != 2 {
			continue
		}
		w.process(ctx, res[1])
	}
}

// ProcessOne pops at most one job; used by tests to drive the worker
// deterministically.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	jobID, err := w.client.rdb.RPop(ctx, w.client.queueKey()).Result()
	if err != nil {
		return false, nil
	}
	w.process(ctx, jobID)
	return true, nil
}

func (w *Worker) process(ctx context.Context, jobID string) {
	key := jobKey(jobID)
	fields, err := w.client.rdb.HGetAll(ctx, key).Result()
	if err != nil || len(fields) == 0 {
		log.Log(jobID, "job hash missing, dropping job")
		return
	}
	funcName := fields["func_name"]
	fn, ok := w.funcs[funcName]
	if !ok {
		w.finish(ctx, jobID, StatusFailed, nil, fmt.Sprintf("no registered function: %s", funcName))
		return
	}

	_ = w.client.rdb.HSet(ctx, key, map[string]interface{}{
		"status":     StatusStarted,
		"started_at": nowISO(),
	}).Err()
	log.Log(jobID, "job started", "func_name", funcName)

	jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	w.inFlight.Store(jobID, funcName)
	defer w.inFlight.Remove(jobID)

	result, err := w.runSafely(jobCtx, jobID, fn, json.RawMessage(fields["args"]))
	if err != nil {
		log.LogError(jobID, "job failed", err)
		w.finish(ctx, jobID, StatusFailed, nil, err.Error())
		return
	}
	log.Log(jobID, "job finished", "func_name", funcName)
	w.finish(ctx, jobID, StatusFinished, result, "")
}

func (w *Worker) runSafely(ctx context.Context, jobID string, fn JobFunc, args json.RawMessage) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v\n%s", r, debug.Stack())
		}
	}()
	return fn(ctx, jobID, args)
}

func (w *Worker) finish(ctx context.Context, jobID, status string, result interface{}, errText string) {
	fields := map[string]interface{}{
		"status":   status,
		"ended_at": nowISO(),
	}
	if errText != "" {
		fields["error"] = truncateError(errText)
	}
	if result != nil {
		if raw, err := json.Marshal(result); err == nil {
			fields["result"] = string(raw)
		}
	}
	_ = w.client.rdb.HSet(ctx, jobKey(jobID), fields).Err()
}
