package identity

import (
	"context"
	"time"
)

// UserStore describes persistence operations required by the identity
// subsystem. Implementations must make Put an upsert keyed by User.ID.
type UserStore interface {
	Find(ctx context.Context, id string) (*User, error)
	Put(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
	ListPending(ctx context.Context) ([]*User, error)
	ListByOrg(ctx context.Context, orgID string) ([]*User, error)
	SetRole(ctx context.Context, id string, role Role, permissions []string) error
	SetActive(ctx context.Context, id string, active bool) error
	TouchLogin(ctx context.Context, id string, at time.Time) error
}

// OrgLookup is the narrow view of the organization directory the invitation
// path needs. Declared here to keep the dependency pointing outward.
type OrgLookup interface {
	Exists(ctx context.Context, id string) (bool, error)
}
