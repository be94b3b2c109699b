package identity

import (
	"context"
	"strings"
	"time"

	"veridoc.org/internal/audit"
	"veridoc.org/internal/obs"
)

// Resolver maps a freshly authenticated external identity onto exactly one
// internal user record. Repeated logins with the same identity are
// idempotent: only LastLoginAt (and refreshed profile fields) change.
type Resolver struct {
	users       UserStore
	superAdmins map[string]struct{}
	now         func() time.Time
}

// ResolverOption configures Resolver behavior.
type ResolverOption func(*Resolver)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if fn != nil {
			r.now = fn
		}
	}
}

// NewResolver constructs a Resolver. superAdminEmails is the fixed
// allow-list of addresses that are promoted to superadmin on first login.
func NewResolver(users UserStore, superAdminEmails []string, opts ...ResolverOption) *Resolver {
	allow := make(map[string]struct{}, len(superAdminEmails))
	for _, e := range superAdminEmails {
		e = strings.TrimSpace(strings.ToLower(e))
		if e != "" {
			allow[e] = struct{}{}
		}
	}
	r := &Resolver{
		users:       users,
		superAdmins: allow,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve runs the ordered resolution algorithm, first match wins:
//
//  1. allow-listed email  -> idempotent superadmin upsert keyed by provider id
//  2. provider id lookup  -> confirmed account, refresh last login
//  3. normalized email    -> pending invitation, merge and rekey
//  4. otherwise           -> brand new student account
//
// A persistence failure never fails the login: the resolver returns the
// in-memory record matching what should have been stored and logs the
// failure (degraded mode).
func (r *Resolver) Resolve(ctx context.Context, ext ExternalIdentity) (*User, error) {
	providerID := strings.TrimSpace(ext.ProviderID)
	email := strings.TrimSpace(strings.ToLower(ext.Email))
	if providerID == "" || email == "" {
		return nil, ErrInvalidInput
	}
	now := r.now().UTC()

	if _, ok := r.superAdmins[email]; ok {
		return r.resolveSuperAdmin(ctx, providerID, email, ext, now)
	}

	if existing, err := r.users.Find(ctx, providerID); err == nil {
		if err := r.users.TouchLogin(ctx, providerID, now); err != nil {
			r.degrade(ctx, "touch_login", err)
		}
		existing.LastLoginAt = now
		return existing, nil
	} else if err != ErrNotFound {
		return nil, err
	}

	key := NormalizeEmailKey(email)
	if pending, err := r.users.Find(ctx, key); err == nil && pending.State == StatePending {
		return r.mergeInvitation(ctx, pending, key, providerID, ext, now)
	} else if err != nil && err != ErrNotFound {
		return nil, err
	}

	u := &User{
		ID:          providerID,
		Email:       email,
		DisplayName: ext.DisplayName,
		PhotoURL:    ext.PhotoURL,
		Role:        RoleStudent,
		Permissions: PermissionsForRole(RoleStudent),
		State:       StateConfirmed,
		Active:      true,
		CreatedAt:   now,
		LastLoginAt: now,
	}
	if err := r.users.Put(ctx, u); err != nil {
		r.degrade(ctx, "create_student", err)
	}
	_ = audit.LogEvent(ctx, "identity.user.created", map[string]any{
		"user_id": u.ID,
		"role":    string(u.Role),
	})
	return u, nil
}

func (r *Resolver) resolveSuperAdmin(ctx context.Context, providerID, email string, ext ExternalIdentity, now time.Time) (*User, error) {
	if existing, err := r.users.Find(ctx, providerID); err == nil {
		// Role and organization stay untouched; only profile fields refresh.
		existing.LastLoginAt = now
		if ext.DisplayName != "" {
			existing.DisplayName = ext.DisplayName
		}
		if ext.PhotoURL != "" {
			existing.PhotoURL = ext.PhotoURL
		}
		if err := r.users.Put(ctx, existing); err != nil {
			r.degrade(ctx, "refresh_superadmin", err)
		}
		return existing, nil
	} else if err != ErrNotFound {
		return nil, err
	}

	u := &User{
		ID:          providerID,
		Email:       email,
		DisplayName: ext.DisplayName,
		PhotoURL:    ext.PhotoURL,
		Role:        RoleSuperAdmin,
		Permissions: PermissionsForRole(RoleSuperAdmin),
		State:       StateConfirmed,
		Active:      true,
		CreatedAt:   now,
		LastLoginAt: now,
	}
	if err := r.users.Put(ctx, u); err != nil {
		r.degrade(ctx, "create_superadmin", err)
	}
	_ = audit.LogEvent(ctx, "identity.superadmin.ensured", map[string]any{
		"user_id": u.ID,
	})
	return u, nil
}

func (r *Resolver) mergeInvitation(ctx context.Context, pending *User, pendingKey, providerID string, ext ExternalIdentity, now time.Time) (*User, error) {
	merged := &User{
		ID:             providerID,
		Email:          strings.TrimSpace(strings.ToLower(ext.Email)),
		DisplayName:    pending.DisplayName,
		PhotoURL:       pending.PhotoURL,
		Role:           pending.Role,
		OrganizationID: pending.OrganizationID,
		Permissions:    append([]string(nil), pending.Permissions...),
		State:          StateConfirmed,
		Active:         true,
		InvitedBy:      pending.InvitedBy,
		CreatedAt:      pending.CreatedAt,
		LastLoginAt:    now,
	}
	if merged.DisplayName == "" {
		merged.DisplayName = ext.DisplayName
	}
	if merged.PhotoURL == "" {
		merged.PhotoURL = ext.PhotoURL
	}

	if err := r.users.Put(ctx, merged); err != nil {
		r.degrade(ctx, "merge_invitation", err)
		return merged, nil
	}
	// The pending row is deleted after the merge; the audit entry below is
	// the durable trace of the binding.
	if err := r.users.Delete(ctx, pendingKey); err != nil && err != ErrNotFound {
		r.degrade(ctx, "delete_pending", err)
	}
	_ = audit.LogEvent(ctx, "identity.invitation.merged", map[string]any{
		"user_id":         merged.ID,
		"pending_key":     pendingKey,
		"role":            string(merged.Role),
		"organization_id": merged.OrganizationID,
	})
	return merged, nil
}

func (r *Resolver) degrade(ctx context.Context, step string, err error) {
	obs.LogEvent(map[string]any{
		"ts":    r.now().UTC().Format(time.RFC3339Nano),
		"level": "error",
		"msg":   "identity resolver persistence failure, serving in-memory record",
		"step":  step,
		"error": err.Error(),
	})
}
