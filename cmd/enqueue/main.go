package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	qsvc "casefile/internal/services/queue"
	"casefile/pkg/queue"
)

// Small utility for exercising the worker without the API: enqueues
// one request and waits for its response.
func main() {
	var (
		redisURL  = flag.String("redis", "redis://localhost:6379", "Redis URL")
		reqType   = flag.String("type", "start", "Request type: start, utterance, accusation")
		playerID  = flag.String("player", "test-player", "Player ID")
		caseID    = flag.String("case", "muddy_footprints", "Case ID")
		utterance = flag.String("utterance", "", "Utterance text (for type=utterance)")
		suspectID = flag.String("suspect", "", "Suspect ID (for type=accusation)")
		wait      = flag.Duration("wait", 30*time.Second, "How long to wait for the response")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := qsvc.NewClient(*redisURL, logger)
	if err != nil {
		log.Fatal("Failed to connect to Redis: ", err)
	}
	defer func() { _ = client.Close() }()

	rq := qsvc.NewRequestQueue(client)
	ctx := context.Background()

	req := &queue.Request{
		RequestID:  uuid.New().String(),
		Type:       queue.RequestType(*reqType),
		PlayerID:   *playerID,
		CaseID:     *caseID,
		Utterance:  *utterance,
		SuspectID:  *suspectID,
		EnqueuedAt: time.Now().UTC(),
	}

	if err := rq.EnqueueRequest(ctx, req); err != nil {
		log.Fatal("Failed to enqueue request: ", err)
	}
	fmt.Printf("Enqueued %s request: %s\n", req.Type, req.RequestID)

	depth, err := rq.Depth(ctx)
	if err != nil {
		log.Fatal("Failed to get queue depth: ", err)
	}
	fmt.Printf("Queue depth: %d requests\n", depth)

	fmt.Println("Waiting for response...")
	resp, err := rq.PopResponse(ctx, req.RequestID, *wait)
	if err != nil {
		log.Fatal("Failed to read response: ", err)
	}
	if resp == nil {
		fmt.Println("No response within timeout. Is a worker running?")
		os.Exit(1)
	}

	if resp.Error != "" {
		fmt.Printf("Request failed: %s\n", resp.Error)
		os.Exit(1)
	}
	if resp.Narration != "" {
		fmt.Printf("\n%s\n\n", resp.Narration)
	}
	fmt.Printf("State: %s\n", string(resp.State))
}
