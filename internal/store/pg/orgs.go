package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"veridoc.org/internal/org"
)

// Orgs implements org.Store on Postgres.
type Orgs struct {
	db *sql.DB
}

var _ org.Store = (*Orgs)(nil)

const orgColumns = `id, name, slug, type, parent_org_id, level, contact, settings,
	active, created_by, created_at`

func (s *Orgs) Create(ctx context.Context, o *org.Organization) error {
	if o == nil || o.ID == "" {
		return org.ErrInvalidInput
	}
	contact, err := json.Marshal(o.Contact)
	if err != nil {
		return err
	}
	settings, err := json.Marshal(o.Settings)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into organizations (id, name, slug, type, parent_org_id, level,
			contact, settings, active, created_by, created_at)
		values ($1,$2,$3,$4,nullif($5,''),$6,$7,$8,$9,$10,$11)
	`, o.ID, o.Name, o.Slug, o.Type, o.ParentOrgID, o.Level,
		contact, settings, o.Active, o.CreatedBy, o.CreatedAt)
	return err
}

func (s *Orgs) Find(ctx context.Context, id string) (*org.Organization, error) {
	row := s.db.QueryRowContext(ctx, `select `+orgColumns+` from organizations where id=$1`, id)
	o, err := scanOrg(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, org.ErrNotFound
	}
	return o, err
}

func (s *Orgs) List(ctx context.Context) ([]*org.Organization, error) {
	rows, err := s.db.QueryContext(ctx, `select `+orgColumns+` from organizations order by created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrgs(rows)
}

func (s *Orgs) ListChildren(ctx context.Context, parentID string) ([]*org.Organization, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+orgColumns+` from organizations where parent_org_id=$1 order by created_at`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrgs(rows)
}

func scanOrg(row rowScanner) (*org.Organization, error) {
	var (
		o        org.Organization
		parentID sql.NullString
		contact  []byte
		settings []byte
	)
	err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.Type, &parentID, &o.Level,
		&contact, &settings, &o.Active, &o.CreatedBy, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		o.ParentOrgID = parentID.String
	}
	if len(contact) > 0 {
		if err := json.Unmarshal(contact, &o.Contact); err != nil {
			return nil, err
		}
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &o.Settings); err != nil {
			return nil, err
		}
	}
	return &o, nil
}

func collectOrgs(rows *sql.Rows) ([]*org.Organization, error) {
	var out []*org.Organization
	for rows.Next() {
		o, err := scanOrg(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
