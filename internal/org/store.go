package org

import "context"

// Store describes persistence operations for the organization directory.
type Store interface {
	Create(ctx context.Context, o *Organization) error
	Find(ctx context.Context, id string) (*Organization, error)
	List(ctx context.Context) ([]*Organization, error)
	ListChildren(ctx context.Context, parentID string) ([]*Organization, error)
}
