package identity

import (
	"context"
	"fmt"

	"veridoc.org/internal/audit"
)

// Admin performs user management mutations. Callers are expected to have
// passed the policy check already; the superadmin-target protection is
// enforced here regardless, so no caller can mutate a superadmin account.
type Admin struct {
	users UserStore
}

// NewAdmin constructs an Admin over the given user store.
func NewAdmin(users UserStore) *Admin {
	return &Admin{users: users}
}

// ChangeRole updates the target user's role and derived permissions.
// A superadmin target is protected: the operation is refused.
func (a *Admin) ChangeRole(ctx context.Context, userID string, role Role) (*User, error) {
	if role != RoleAdmin && role != RoleStudent {
		return nil, fmt.Errorf("%w: role must be admin or student", ErrInvalidInput)
	}
	target, err := a.users.Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if target.Role == RoleSuperAdmin {
		return nil, fmt.Errorf("%w: superadmin accounts are immutable", ErrForbidden)
	}
	perms := PermissionsForRole(role)
	if err := a.users.SetRole(ctx, userID, role, perms); err != nil {
		return nil, err
	}
	target.Role = role
	target.Permissions = perms
	_ = audit.LogEvent(ctx, "identity.user.role_changed", map[string]any{
		"user_id": userID,
		"role":    string(role),
	})
	return target, nil
}

// Deactivate soft-disables the target user. Superadmin targets are protected.
func (a *Admin) Deactivate(ctx context.Context, userID string) error {
	target, err := a.users.Find(ctx, userID)
	if err != nil {
		return err
	}
	if target.Role == RoleSuperAdmin {
		return fmt.Errorf("%w: superadmin accounts are immutable", ErrForbidden)
	}
	if err := a.users.SetActive(ctx, userID, false); err != nil {
		return err
	}
	_ = audit.LogEvent(ctx, "identity.user.deactivated", map[string]any{
		"user_id": userID,
	})
	return nil
}
