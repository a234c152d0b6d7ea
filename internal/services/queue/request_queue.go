package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"casefile/pkg/queue"
)

const (
	// requestsKey is the global list all workers consume from.
	requestsKey = "requests"

	// responseKeyTTL bounds how long an unconsumed response lingers.
	responseKeyTTL = 5 * time.Minute
)

// RequestQueue manages the global investigation request queue and the
// per-request response lists.
type RequestQueue struct {
	client *Client
}

func NewRequestQueue(client *Client) *RequestQueue {
	return &RequestQueue{
		client: client,
	}
}

func responseKey(requestID string) string {
	return fmt.Sprintf("response:%s", requestID)
}

// EnqueueRequest adds a request to the global requests queue
func (q *RequestQueue) EnqueueRequest(ctx context.Context, req *queue.Request) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}

	data, err := req.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize request: %w", err)
	}

	if err := q.client.rdb.RPush(ctx, requestsKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue request: %w", err)
	}
	return nil
}

// DequeueRequest removes and returns the next request from the global queue
// Returns nil if queue is empty
func (q *RequestQueue) DequeueRequest(ctx context.Context) (*queue.Request, error) {
	result, err := q.client.rdb.LPop(ctx, requestsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Queue is empty
		}
		return nil, fmt.Errorf("failed to dequeue request: %w", err)
	}

	req, err := queue.FromJSON([]byte(result))
	if err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return req, nil
}

// BlockingDequeueRequest blocks until a request is available, then returns it.
// A zero timeout waits forever.
func (q *RequestQueue) BlockingDequeueRequest(ctx context.Context, timeout time.Duration) (*queue.Request, error) {
	result, err := q.client.rdb.BLPop(ctx, timeout, requestsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Timed out with nothing queued
		}
		return nil, fmt.Errorf("failed to dequeue request: %w", err)
	}

	// BLPop returns [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BLPop result: %v", result)
	}

	req, err := queue.FromJSON([]byte(result[1]))
	if err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return req, nil
}

// Depth returns the number of requests in the global queue
func (q *RequestQueue) Depth(ctx context.Context) (int, error) {
	count, err := q.client.rdb.LLen(ctx, requestsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get request queue depth: %w", err)
	}
	return int(count), nil
}

// PushResponse publishes the worker's result to the per-request list
func (q *RequestQueue) PushResponse(ctx context.Context, resp *queue.Response) error {
	data, err := resp.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize response: %w", err)
	}

	key := responseKey(resp.RequestID)
	pipe := q.client.rdb.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, responseKeyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push response: %w", err)
	}
	return nil
}

// PopResponse blocks until the response for the given request arrives.
// A zero timeout waits forever.
func (q *RequestQueue) PopResponse(ctx context.Context, requestID string, timeout time.Duration) (*queue.Response, error) {
	result, err := q.client.rdb.BLPop(ctx, timeout, responseKey(requestID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Timed out
		}
		return nil, fmt.Errorf("failed to pop response: %w", err)
	}

	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BLPop result: %v", result)
	}

	resp, err := queue.ResponseFromJSON([]byte(result[1]))
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return resp, nil
}
