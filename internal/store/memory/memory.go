// Package memory implements store.Store in process memory. Records live for
// the lifetime of the store and are discarded by Close.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/alfredjeanlab/appreg/internal/model"
	"github.com/alfredjeanlab/appreg/internal/store"
)

// Store is a mutex-guarded, insertion-ordered application table.
type Store struct {
	mu     sync.RWMutex
	order  []string
	byID   map[string]*model.Application
	closed bool
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{byID: make(map[string]*model.Application)}
}

// CreateApplication stores a copy of app. Callers may keep mutating app.
// Replacing an existing record keeps its CreatedAt; app.CreatedAt is updated
// to the stored value.
func (s *Store) CreateApplication(ctx context.Context, app *model.Application) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if app.ID == "" {
		return fmt.Errorf("create application: id is required")
	}
	cp, err := clone(app)
	if err != nil {
		return fmt.Errorf("create application %s: %w", app.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("create application %s: store is closed", app.ID)
	}
	if existing, ok := s.byID[app.ID]; ok {
		cp.CreatedAt = existing.CreatedAt
	} else {
		s.order = append(s.order, app.ID)
	}
	s.byID[app.ID] = cp
	app.CreatedAt = cp.CreatedAt
	return nil
}

// GetApplication returns a copy of the record with the given id.
func (s *Store) GetApplication(ctx context.Context, id string) (*model.Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	app, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(app)
}

// ListApplications returns copies of every record in insertion order.
func (s *Store) ListApplications(ctx context.Context) ([]*model.Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Application, 0, len(s.order))
	for _, id := range s.order {
		cp, err := clone(s.byID[id])
		if err != nil {
			return nil, fmt.Errorf("list applications: %w", err)
		}
		out = append(out, cp)
	}
	return out, nil
}

// Len returns the number of stored applications.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Close drops every record. Subsequent writes fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.order = nil
	s.byID = make(map[string]*model.Application)
	return nil
}

// clone deep-copies an application through its JSON encoding, which is the
// only shape the registry ever serves.
func clone(app *model.Application) (*model.Application, error) {
	data, err := json.Marshal(app)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var cp model.Application
	if err := dec.Decode(&cp); err != nil {
		return nil, err
	}
	return &cp, nil
}
