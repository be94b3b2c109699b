package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"veridoc.org/internal/audit"
)

const (
	defaultInvitationTTL = 7 * 24 * time.Hour
	expiringSoonWindow   = 24 * time.Hour
)

// Inviter creates pending user rows that the resolver later merges into
// confirmed accounts.
type Inviter struct {
	users UserStore
	orgs  OrgLookup
	ttl   time.Duration
	now   func() time.Time
}

// InviterOption configures Inviter behavior.
type InviterOption func(*Inviter)

// WithInvitationTTL overrides the invitation lifetime.
func WithInvitationTTL(ttl time.Duration) InviterOption {
	return func(i *Inviter) {
		if ttl > 0 {
			i.ttl = ttl
		}
	}
}

// WithInviterClock overrides the time source (useful for tests).
func WithInviterClock(fn func() time.Time) InviterOption {
	return func(i *Inviter) {
		if fn != nil {
			i.now = fn
		}
	}
}

// NewInviter constructs an Inviter.
func NewInviter(users UserStore, orgs OrgLookup, opts ...InviterOption) *Inviter {
	i := &Inviter{
		users: users,
		orgs:  orgs,
		ttl:   defaultInvitationTTL,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Invite persists a pending user row keyed by the normalized email.
// Re-inviting the same address before expiry overwrites the pending row
// (last invite wins). Superadmins are never created through invitations.
func (i *Inviter) Invite(ctx context.Context, email, displayName string, role Role, orgID, invitedBy string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if role != RoleAdmin && role != RoleStudent {
		return nil, fmt.Errorf("%w: role must be admin or student", ErrInvalidInput)
	}
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return nil, fmt.Errorf("%w: organization_id is required", ErrInvalidInput)
	}
	ok, err := i.orgs.Exists(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: organization %s", ErrNotFound, orgID)
	}

	now := i.now().UTC()
	u := &User{
		ID:             NormalizeEmailKey(email),
		Email:          email,
		DisplayName:    strings.TrimSpace(displayName),
		Role:           role,
		OrganizationID: orgID,
		Permissions:    PermissionsForRole(role),
		State:          StatePending,
		Active:         true,
		InvitedBy:      invitedBy,
		ExpiresAt:      now.Add(i.ttl),
		CreatedAt:      now,
	}
	if err := i.users.Put(ctx, u); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	_ = audit.LogEvent(ctx, "identity.invitation.created", map[string]any{
		"pending_key":     u.ID,
		"role":            string(role),
		"organization_id": orgID,
		"invited_by":      invitedBy,
	})
	return u, nil
}

// ListPending returns all not-yet-resolved invitation rows, each annotated
// with whether it expires within the next 24 hours.
func (i *Inviter) ListPending(ctx context.Context) ([]PendingInvitation, error) {
	pending, err := i.users.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	now := i.now().UTC()
	out := make([]PendingInvitation, 0, len(pending))
	for _, u := range pending {
		out = append(out, PendingInvitation{
			User:         u,
			ExpiringSoon: !u.ExpiresAt.IsZero() && u.ExpiresAt.Sub(now) < expiringSoonWindow,
		})
	}
	return out, nil
}
