package cert

import (
	"context"
	"sync"
	"time"
)

// InMemory implements Store with in-process concurrency safety. The mutex
// makes RecordVerification a true atomic increment.
type InMemory struct {
	mu    sync.RWMutex
	certs map[string]*Certificate
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty certificate store.
func NewInMemory() *InMemory {
	return &InMemory{certs: make(map[string]*Certificate)}
}

func (s *InMemory) Create(ctx context.Context, c *Certificate) error {
	if c == nil || c.ID == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.certs[c.ID] = &cp
	return nil
}

func (s *InMemory) Find(ctx context.Context, id string) (*Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.certs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *InMemory) ListByOrg(ctx context.Context, orgID string) ([]*Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Certificate
	for _, c := range s.certs {
		if c.OrganizationID == orgID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemory) ListByRecipient(ctx context.Context, key string) ([]*Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Certificate
	for _, c := range s.certs {
		if c.Recipient.Email == key || (c.Recipient.ID != "" && c.Recipient.ID == key) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemory) ListByStatus(ctx context.Context, status Status, orgID string) ([]*Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Certificate
	for _, c := range s.certs {
		if c.Status != status {
			continue
		}
		if orgID != "" && c.OrganizationID != orgID {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (s *InMemory) SetStatus(ctx context.Context, id string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.certs[id]
	if !ok {
		return ErrNotFound
	}
	c.Status = status
	return nil
}

func (s *InMemory) RecordVerification(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.certs[id]
	if !ok {
		return ErrNotFound
	}
	c.VerificationCount++
	c.LastVerificationAt = at
	return nil
}

func (s *InMemory) SetAttestation(ctx context.Context, id string, att Attestation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.certs[id]
	if !ok {
		return ErrNotFound
	}
	c.Blockchain = att
	return nil
}
