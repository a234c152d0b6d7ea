package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	qsvc "casefile/internal/services/queue"
	queuePkg "casefile/pkg/queue"
)

const (
	dequeueTimeout = 5 * time.Second
	sessionLockTTL = 30 * time.Second
)

// Worker consumes investigation requests from the queue. A Redis lock
// per (player, case) keeps concurrent workers from interleaving
// requests for the same session.
type Worker struct {
	id          string
	queue       *qsvc.RequestQueue
	processor   *Processor
	redisClient *redis.Client
	log         *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
}

// New creates a new worker instance
func New(requestQueue *qsvc.RequestQueue, processor *Processor, redisClient *redis.Client, log *slog.Logger, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}

	return &Worker{
		id:          workerID,
		queue:       requestQueue,
		processor:   processor,
		redisClient: redisClient,
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start begins processing requests from the queue
func (w *Worker) Start() error {
	w.log.Info("Worker starting", "worker_id", w.id)

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down", "worker_id", w.id)
			return nil
		default:
			if err := w.processNextRequest(); err != nil {
				w.log.Error("Error processing request", "error", err, "worker_id", w.id)
				// Continue processing even on error
				time.Sleep(1 * time.Second)
			}
		}
	}
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested", "worker_id", w.id)
	w.cancel()
}

// processNextRequest pulls the next request from the queue and processes it
func (w *Worker) processNextRequest() error {
	// Block waiting for next request (bounded so shutdown is noticed)
	ctx, cancel := context.WithTimeout(w.ctx, dequeueTimeout+time.Second)
	defer cancel()

	req, err := w.queue.BlockingDequeueRequest(ctx, dequeueTimeout)
	if err != nil {
		if w.ctx.Err() != nil {
			return nil // Shutting down
		}
		return fmt.Errorf("failed to dequeue request: %w", err)
	}

	if req == nil {
		// Queue is empty - this is normal
		return nil
	}

	w.log.Info("Received request from queue",
		"worker_id", w.id,
		"request_id", req.RequestID,
		"type", req.Type,
		"player_id", req.PlayerID,
		"case_id", req.CaseID,
	)

	// Try to acquire the session lock
	locked, err := w.acquireSessionLock(req.PlayerID, req.CaseID)
	if err != nil {
		return fmt.Errorf("failed to acquire session lock: %w", err)
	}
	if !locked {
		// Another worker holds this session; re-queue and move on
		w.log.Info("Session already locked, re-queueing request",
			"worker_id", w.id,
			"request_id", req.RequestID,
			"player_id", req.PlayerID,
			"case_id", req.CaseID,
		)
		if err := w.queue.EnqueueRequest(w.ctx, req); err != nil {
			return fmt.Errorf("failed to re-queue request: %w", err)
		}
		return nil
	}

	defer w.releaseSessionLock(req.PlayerID, req.CaseID)
	return w.processRequest(req)
}

func sessionLockKey(playerID, caseID string) string {
	return fmt.Sprintf("session-lock:%s:%s", playerID, caseID)
}

// acquireSessionLock attempts to acquire a lock for a (player, case)
// session. Returns true if the lock was acquired.
func (w *Worker) acquireSessionLock(playerID, caseID string) (bool, error) {
	result, err := w.redisClient.SetNX(w.ctx, sessionLockKey(playerID, caseID), w.id, sessionLockTTL).Result()
	if err != nil {
		return false, err
	}
	return result, nil
}

// releaseSessionLock releases the session lock if this worker owns it
func (w *Worker) releaseSessionLock(playerID, caseID string) {
	script := redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)

	if err := script.Run(w.ctx, w.redisClient, []string{sessionLockKey(playerID, caseID)}, w.id).Err(); err != nil {
		w.log.Error("Failed to release session lock", "error", err,
			"player_id", playerID, "case_id", caseID)
	}
}

// processRequest resolves one request and pushes its response
func (w *Worker) processRequest(req *queuePkg.Request) error {
	start := time.Now()

	resp, err := w.processor.Process(w.ctx, req)
	if err != nil {
		return fmt.Errorf("failed to process request %s: %w", req.RequestID, err)
	}

	if err := w.queue.PushResponse(w.ctx, resp); err != nil {
		return fmt.Errorf("failed to push response for %s: %w", req.RequestID, err)
	}

	w.log.Info("Request processed",
		"worker_id", w.id,
		"request_id", req.RequestID,
		"type", req.Type,
		"had_error", resp.Error != "",
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
