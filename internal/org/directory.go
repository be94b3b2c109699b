package org

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"veridoc.org/internal/audit"
	"veridoc.org/internal/ids"
)

// Directory provides validated access to organization reference data.
type Directory struct {
	store Store
	now   func() time.Time
}

// DirectoryOption configures Directory behavior.
type DirectoryOption func(*Directory)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) DirectoryOption {
	return func(d *Directory) {
		if fn != nil {
			d.now = fn
		}
	}
}

// NewDirectory constructs a Directory over the given store.
func NewDirectory(store Store, opts ...DirectoryOption) *Directory {
	d := &Directory{store: store, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Draft is the caller-supplied part of a new organization.
type Draft struct {
	Name        string
	Type        string
	ParentOrgID string
	Contact     ContactInfo
	Settings    Settings
}

// Create validates the draft, derives the slug and level, and persists the
// organization. The parent, when set, must exist and cannot be the new
// organization itself.
func (d *Directory) Create(ctx context.Context, draft Draft, createdBy string) (*Organization, error) {
	name := strings.TrimSpace(draft.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: organization name is required", ErrInvalidInput)
	}

	level := 0
	parentID := strings.TrimSpace(draft.ParentOrgID)
	if parentID != "" {
		parent, err := d.store.Find(ctx, parentID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: parent organization %s", ErrNotFound, parentID)
			}
			return nil, err
		}
		level = parent.Level + 1
	}

	o := &Organization{
		ID:          ids.New(),
		Name:        name,
		Slug:        Slugify(name),
		Type:        strings.TrimSpace(draft.Type),
		ParentOrgID: parentID,
		Level:       level,
		Contact:     draft.Contact,
		Settings:    draft.Settings,
		Active:      true,
		CreatedBy:   createdBy,
		CreatedAt:   d.now().UTC(),
	}
	if err := d.store.Create(ctx, o); err != nil {
		return nil, err
	}
	_ = audit.LogEvent(ctx, "org.created", map[string]any{
		"organization_id": o.ID,
		"slug":            o.Slug,
		"parent_org_id":   parentID,
	})
	return o, nil
}

// Get fetches one organization by id.
func (d *Directory) Get(ctx context.Context, id string) (*Organization, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: organization_id is required", ErrInvalidInput)
	}
	return d.store.Find(ctx, id)
}

// List returns all organizations.
func (d *Directory) List(ctx context.Context) ([]*Organization, error) {
	return d.store.List(ctx)
}

// Children returns the direct children of an organization.
func (d *Directory) Children(ctx context.Context, parentID string) ([]*Organization, error) {
	parentID = strings.TrimSpace(parentID)
	if parentID == "" {
		return nil, fmt.Errorf("%w: organization_id is required", ErrInvalidInput)
	}
	return d.store.ListChildren(ctx, parentID)
}

// Exists reports whether an organization id is present. Satisfies the
// identity.OrgLookup interface used on the invitation path.
func (d *Directory) Exists(ctx context.Context, id string) (bool, error) {
	_, err := d.store.Find(ctx, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}
