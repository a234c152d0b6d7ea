package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"casefile/pkg/casedef"
	"casefile/pkg/engine"
	"casefile/pkg/investigation"
)

// RedisStorage persists investigations in Redis and serves case
// definitions from files loaded at startup.
type RedisStorage struct {
	client  *redis.Client
	logger  *slog.Logger
	dataDir string

	mu    sync.RWMutex
	cases map[string]*casedef.CaseDefinition
}

// Ensure RedisStorage implements Storage interface
var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a Redis-backed storage instance and loads
// all case definitions from dataDir.
func NewRedisStorage(redisURL, dataDir string, logger *slog.Logger) (*RedisStorage, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	s := &RedisStorage{
		client:  redis.NewClient(opt),
		logger:  logger,
		dataDir: dataDir,
		cases:   make(map[string]*casedef.CaseDefinition),
	}

	if err := s.loadCases(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewRedisStorageFromClient wraps an existing Redis client. Used by
// tests with miniredis.
func NewRedisStorageFromClient(client *redis.Client, dataDir string, logger *slog.Logger) (*RedisStorage, error) {
	s := &RedisStorage{
		client:  client,
		logger:  logger,
		dataDir: dataDir,
		cases:   make(map[string]*casedef.CaseDefinition),
	}
	if dataDir != "" {
		if err := s.loadCases(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// loadCases reads every case file in the data directory. A case that
// fails validation aborts startup rather than surfacing mid-game.
func (s *RedisStorage) loadCases() error {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return fmt.Errorf("failed to read case directory %s: %w", s.dataDir, err)
	}

	loaded := make(map[string]*casedef.CaseDefinition)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(s.dataDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read case file %s: %w", path, err)
		}

		cd, err := casedef.Parse(data, entry.Name())
		if err != nil {
			return fmt.Errorf("failed to parse case file %s: %w", path, err)
		}

		if _, exists := loaded[cd.ID]; exists {
			return fmt.Errorf("duplicate case ID %q in %s", cd.ID, path)
		}
		loaded[cd.ID] = cd
		s.logger.Info("Loaded case definition", "case_id", cd.ID, "title", cd.Title, "clues", len(cd.Clues))
	}

	if len(loaded) == 0 {
		return fmt.Errorf("no case files found in %s", s.dataDir)
	}

	s.mu.Lock()
	s.cases = loaded
	s.mu.Unlock()
	return nil
}

func investigationKey(playerID, caseID string) string {
	return fmt.Sprintf("investigation:%s:%s", playerID, caseID)
}

func archiveKey(inv *investigation.Investigation) string {
	return fmt.Sprintf("investigation:archive:%s", inv.ID.String())
}

// LoadInvestigation retrieves an investigation by player and case.
// Returns nil if it doesn't exist.
func (s *RedisStorage) LoadInvestigation(ctx context.Context, playerID, caseID string) (*investigation.Investigation, error) {
	data, err := s.client.Get(ctx, investigationKey(playerID, caseID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load investigation: %w", err)
	}

	var inv investigation.Investigation
	if err := json.Unmarshal([]byte(data), &inv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal investigation: %w", err)
	}
	return &inv, nil
}

// SaveInvestigation persists the investigation under its (player, case) key.
func (s *RedisStorage) SaveInvestigation(ctx context.Context, inv *investigation.Investigation) error {
	data, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("failed to marshal investigation: %w", err)
	}

	key := investigationKey(inv.PlayerID, inv.CaseID)
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		s.logger.Error("Redis SET failed", "key", key, "error", err)
		return fmt.Errorf("failed to save investigation: %w", err)
	}
	return nil
}

// ArchiveInvestigation writes a durable copy of a concluded
// investigation keyed by its UUID. The active (player, case) record is
// left in place so the conclusion stays readable.
func (s *RedisStorage) ArchiveInvestigation(ctx context.Context, inv *investigation.Investigation) error {
	data, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("failed to marshal investigation: %w", err)
	}

	if err := s.client.Set(ctx, archiveKey(inv), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to archive investigation: %w", err)
	}

	s.logger.Info("Archived investigation",
		"investigation_id", inv.ID.String(),
		"player_id", inv.PlayerID,
		"case_id", inv.CaseID,
		"status", inv.Status)
	return nil
}

// GetCase returns a loaded case definition by ID.
func (s *RedisStorage) GetCase(ctx context.Context, caseID string) (*casedef.CaseDefinition, error) {
	s.mu.RLock()
	cd, ok := s.cases[caseID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", engine.ErrCaseNotFound, caseID)
	}
	return cd, nil
}

// ListCases returns every loaded case definition, sorted by ID.
func (s *RedisStorage) ListCases(ctx context.Context) ([]*casedef.CaseDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cases := make([]*casedef.CaseDefinition, 0, len(s.cases))
	for _, cd := range s.cases {
		cases = append(cases, cd)
	}
	sort.Slice(cases, func(i, j int) bool { return cases[i].ID < cases[j].ID })
	return cases, nil
}

func (s *RedisStorage) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (s *RedisStorage) Close() error {
	if err := s.client.Close(); err != nil {
		s.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	s.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection blocks until Redis answers pings, with retries.
func (s *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := s.Ping(ctx); err != nil {
			s.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		s.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}
