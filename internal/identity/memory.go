package identity

import (
	"context"
	"sync"
	"time"
)

// InMemoryUsers implements UserStore with in-process concurrency safety.
// Used in tests and single-node deployments without Postgres.
type InMemoryUsers struct {
	mu    sync.RWMutex
	users map[string]*User
}

var _ UserStore = (*InMemoryUsers)(nil)

// NewInMemoryUsers creates an empty user store.
func NewInMemoryUsers() *InMemoryUsers {
	return &InMemoryUsers{users: make(map[string]*User)}
}

func (s *InMemoryUsers) Find(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneUser(u)
	return out, nil
}

func (s *InMemoryUsers) Put(ctx context.Context, u *User) error {
	if u == nil || u.ID == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = cloneUser(u)
	return nil
}

func (s *InMemoryUsers) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *InMemoryUsers) ListPending(ctx context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*User
	for _, u := range s.users {
		if u.State == StatePending {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (s *InMemoryUsers) ListByOrg(ctx context.Context, orgID string) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*User
	for _, u := range s.users {
		if u.OrganizationID == orgID {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (s *InMemoryUsers) SetRole(ctx context.Context, id string, role Role, permissions []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Role = role
	u.Permissions = append([]string(nil), permissions...)
	return nil
}

func (s *InMemoryUsers) SetActive(ctx context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Active = active
	return nil
}

func (s *InMemoryUsers) TouchLogin(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLoginAt = at
	return nil
}

func cloneUser(u *User) *User {
	out := *u
	out.Permissions = append([]string(nil), u.Permissions...)
	return &out
}
