package storage

import (
	"context"

	"casefile/pkg/casedef"
	"casefile/pkg/engine"
)

// HealthChecker defines basic health check capabilities
type HealthChecker interface {
	// Ping tests the service connection
	Ping(ctx context.Context) error
}

// Closer defines cleanup capabilities
type Closer interface {
	// Close closes the service connection
	Close() error
}

// Storage combines investigation persistence and the case catalog. It
// satisfies the engine's StateStore and CaseLibrary interfaces, plus
// the listing operation the API layer needs.
type Storage interface {
	HealthChecker
	Closer

	engine.StateStore
	engine.CaseLibrary

	// ListCases returns every loaded case definition, sorted by ID.
	ListCases(ctx context.Context) ([]*casedef.CaseDefinition, error)
}
