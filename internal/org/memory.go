package org

import (
	"context"
	"sync"
)

// InMemory implements Store with in-process concurrency safety.
type InMemory struct {
	mu   sync.RWMutex
	orgs map[string]*Organization
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty directory store.
func NewInMemory() *InMemory {
	return &InMemory{orgs: make(map[string]*Organization)}
}

func (s *InMemory) Create(ctx context.Context, o *Organization) error {
	if o == nil || o.ID == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.orgs[o.ID] = &cp
	return nil
}

func (s *InMemory) Find(ctx context.Context, id string) (*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *InMemory) List(ctx context.Context) ([]*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Organization, 0, len(s.orgs))
	for _, o := range s.orgs {
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (s *InMemory) ListChildren(ctx context.Context, parentID string) ([]*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Organization
	for _, o := range s.orgs {
		if o.ParentOrgID == parentID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}
