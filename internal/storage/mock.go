package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"casefile/pkg/casedef"
	"casefile/pkg/engine"
	"casefile/pkg/investigation"
)

// MockStorage is an in-memory implementation of Storage for testing
type MockStorage struct {
	LoadInvestigationFunc    func(ctx context.Context, playerID, caseID string) (*investigation.Investigation, error)
	SaveInvestigationFunc    func(ctx context.Context, inv *investigation.Investigation) error
	ArchiveInvestigationFunc func(ctx context.Context, inv *investigation.Investigation) error
	GetCaseFunc              func(ctx context.Context, caseID string) (*casedef.CaseDefinition, error)
	PingFunc                 func(ctx context.Context) error

	investigations map[string][]byte
	archived       map[string][]byte
	cases          map[string]*casedef.CaseDefinition

	mu sync.Mutex // protects all fields above
}

var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new in-memory mock storage
func NewMockStorage(cases ...*casedef.CaseDefinition) *MockStorage {
	m := &MockStorage{
		investigations: make(map[string][]byte),
		archived:       make(map[string][]byte),
		cases:          make(map[string]*casedef.CaseDefinition),
	}
	for _, cd := range cases {
		m.cases[cd.ID] = cd
	}
	return m
}

func (m *MockStorage) LoadInvestigation(ctx context.Context, playerID, caseID string) (*investigation.Investigation, error) {
	m.mu.Lock()
	fn := m.LoadInvestigationFunc
	data, ok := m.investigations[investigationKey(playerID, caseID)]
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, playerID, caseID)
	}
	if !ok {
		return nil, nil
	}

	var inv investigation.Investigation
	if err := json.Unmarshal(data, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (m *MockStorage) SaveInvestigation(ctx context.Context, inv *investigation.Investigation) error {
	m.mu.Lock()
	fn := m.SaveInvestigationFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, inv)
	}

	data, err := json.Marshal(inv)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.investigations[investigationKey(inv.PlayerID, inv.CaseID)] = data
	m.mu.Unlock()
	return nil
}

func (m *MockStorage) ArchiveInvestigation(ctx context.Context, inv *investigation.Investigation) error {
	m.mu.Lock()
	fn := m.ArchiveInvestigationFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, inv)
	}

	data, err := json.Marshal(inv)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.archived[inv.ID.String()] = data
	m.mu.Unlock()
	return nil
}

func (m *MockStorage) GetCase(ctx context.Context, caseID string) (*casedef.CaseDefinition, error) {
	m.mu.Lock()
	fn := m.GetCaseFunc
	cd, ok := m.cases[caseID]
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, caseID)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", engine.ErrCaseNotFound, caseID)
	}
	return cd, nil
}

func (m *MockStorage) ListCases(ctx context.Context) ([]*casedef.CaseDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cases := make([]*casedef.CaseDefinition, 0, len(m.cases))
	for _, cd := range m.cases {
		cases = append(cases, cd)
	}
	sort.Slice(cases, func(i, j int) bool { return cases[i].ID < cases[j].ID })
	return cases, nil
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.Lock()
	fn := m.PingFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return nil
}

func (m *MockStorage) Close() error {
	return nil
}

// ArchivedCount returns the number of archived investigations
func (m *MockStorage) ArchivedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.archived)
}
