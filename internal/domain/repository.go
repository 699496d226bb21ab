package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by lookups with no matching record.
var ErrNotFound = errors.New("incident not found")

// ValidationError marks a structurally invalid ingestion payload.
// Nothing is persisted when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

// IncidentRepository defines the interface for incident persistence.
// This follows the Dependency Inversion Principle - domain defines the
// interface, the storage adapters implement it. The core issues at most
// one keyed write per ingestion; writes are last-writer-wins.
type IncidentRepository interface {
	// Put stores an incident under its id, overwriting any prior record.
	Put(ctx context.Context, incident Incident) error

	// Get returns the incident stored under id, or ErrNotFound.
	Get(ctx context.Context, id string) (Incident, error)

	// List returns up to limit incidents, most recently written first.
	List(ctx context.Context, limit int) ([]Incident, error)

	// Health checks store connectivity.
	Health(ctx context.Context) error
}
