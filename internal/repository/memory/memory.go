package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/safesphere/backend/internal/domain"
)

// Repository implements domain.IncidentRepository in memory. Used when no
// database is configured and by tests. Recency is tracked with a write
// sequence so overwrites move a record to the front of listings, matching
// the most-recently-written-first contract of the production store.
type Repository struct {
	mu    sync.RWMutex
	seq   uint64
	items map[string]entry
}

type entry struct {
	incident domain.Incident
	seq      uint64
}

// NewRepository creates an empty in-memory repository
func NewRepository() *Repository {
	return &Repository{items: make(map[string]entry)}
}

// Put stores an incident, overwriting any prior record with the same id.
func (r *Repository) Put(ctx context.Context, inc domain.Incident) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.items[inc.ID] = entry{incident: inc, seq: r.seq}
	return nil
}

// Get returns the incident stored under id, or domain.ErrNotFound.
func (r *Repository) Get(ctx context.Context, id string) (domain.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.items[id]
	if !ok {
		return domain.Incident{}, domain.ErrNotFound
	}
	return e.incident, nil
}

// List returns up to limit incidents, most recently written first.
func (r *Repository) List(ctx context.Context, limit int) ([]domain.Incident, error) {
	r.mu.RLock()
	entries := make([]entry, 0, len(r.items))
	for _, e := range r.items {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].seq > entries[j].seq
	})

	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	results := make([]domain.Incident, len(entries))
	for i, e := range entries {
		results[i] = e.incident
	}
	return results, nil
}

// Health always succeeds for the in-memory store.
func (r *Repository) Health(ctx context.Context) error {
	return nil
}

// Len reports how many incidents are stored.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
