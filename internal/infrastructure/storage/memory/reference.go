// Package memory provides in-memory repository implementations, used by unit
// tests and local development without PostgreSQL.
package memory

import (
	"context"
	"sync"

	"majifix/internal/core/apperror"
	"majifix/internal/core/id"
	"majifix/internal/domain/reference"
)

// ReferenceStore is an in-memory implementation of reference.Store.
type ReferenceStore struct {
	mu sync.RWMutex

	jurisdictions map[id.ID]*reference.Jurisdiction
	groups        map[id.ID]*reference.ServiceGroup
	priorities    map[id.ID]*reference.Priority
	types         map[id.ID]*reference.ServiceType
}

var _ reference.Store = (*ReferenceStore)(nil)

// NewReferenceStore creates an empty store.
func NewReferenceStore() *ReferenceStore {
	return &ReferenceStore{
		jurisdictions: make(map[id.ID]*reference.Jurisdiction),
		groups:        make(map[id.ID]*reference.ServiceGroup),
		priorities:    make(map[id.ID]*reference.Priority),
		types:         make(map[id.ID]*reference.ServiceType),
	}
}

// AddJurisdiction stores a jurisdiction.
func (s *ReferenceStore) AddJurisdiction(rec *reference.Jurisdiction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recCopy := *rec
	s.jurisdictions[rec.ID] = &recCopy
}

// AddGroup stores a service group.
func (s *ReferenceStore) AddGroup(rec *reference.ServiceGroup) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recCopy := *rec
	s.groups[rec.ID] = &recCopy
}

// AddPriority stores a priority.
func (s *ReferenceStore) AddPriority(rec *reference.Priority) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recCopy := *rec
	s.priorities[rec.ID] = &recCopy
}

// AddType stores a service type.
func (s *ReferenceStore) AddType(rec *reference.ServiceType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recCopy := *rec
	s.types[rec.ID] = &recCopy
}

// GetJurisdiction retrieves a jurisdiction by id.
func (s *ReferenceStore) GetJurisdiction(ctx context.Context, refID id.ID) (*reference.Jurisdiction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.jurisdictions[refID]
	if !ok {
		return nil, apperror.NewNotFound("Jurisdiction", refID.String())
	}
	recCopy := *rec
	return &recCopy, nil
}

// GetGroup retrieves a service group by id.
func (s *ReferenceStore) GetGroup(ctx context.Context, refID id.ID) (*reference.ServiceGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.groups[refID]
	if !ok {
		return nil, apperror.NewNotFound("ServiceGroup", refID.String())
	}
	recCopy := *rec
	return &recCopy, nil
}

// GetPriority retrieves a priority by id.
func (s *ReferenceStore) GetPriority(ctx context.Context, refID id.ID) (*reference.Priority, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.priorities[refID]
	if !ok {
		return nil, apperror.NewNotFound("Priority", refID.String())
	}
	recCopy := *rec
	return &recCopy, nil
}

// GetType retrieves a service type by id.
func (s *ReferenceStore) GetType(ctx context.Context, refID id.ID) (*reference.ServiceType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.types[refID]
	if !ok {
		return nil, apperror.NewNotFound("ServiceType", refID.String())
	}
	recCopy := *rec
	return &recCopy, nil
}
