package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"veridoc.org/internal/identity"
)

// Users implements identity.UserStore on Postgres.
type Users struct {
	db *sql.DB
}

var _ identity.UserStore = (*Users)(nil)

const userColumns = `id, email, display_name, photo_url, role, organization_id,
	permissions, state, active, invited_by, expires_at, created_at, last_login_at`

func (s *Users) Find(ctx context.Context, id string) (*identity.User, error) {
	row := s.db.QueryRowContext(ctx, `select `+userColumns+` from users where id=$1`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	return u, err
}

func (s *Users) Put(ctx context.Context, u *identity.User) error {
	if u == nil || u.ID == "" {
		return identity.ErrInvalidInput
	}
	perms, err := json.Marshal(u.Permissions)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into users (id, email, display_name, photo_url, role, organization_id,
			permissions, state, active, invited_by, expires_at, created_at, last_login_at)
		values ($1,$2,$3,$4,$5,nullif($6,''),$7,$8,$9,$10,$11,$12,$13)
		on conflict (id) do update set
			email = excluded.email,
			display_name = excluded.display_name,
			photo_url = excluded.photo_url,
			role = excluded.role,
			organization_id = excluded.organization_id,
			permissions = excluded.permissions,
			state = excluded.state,
			active = excluded.active,
			invited_by = excluded.invited_by,
			expires_at = excluded.expires_at,
			last_login_at = excluded.last_login_at
	`, u.ID, u.Email, u.DisplayName, u.PhotoURL, string(u.Role), u.OrganizationID,
		perms, string(u.State), u.Active, u.InvitedBy,
		nullTime(u.ExpiresAt), u.CreatedAt, nullTime(u.LastLoginAt))
	return err
}

func (s *Users) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id=$1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return identity.ErrNotFound
	}
	return nil
}

func (s *Users) ListPending(ctx context.Context) ([]*identity.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+userColumns+` from users where state=$1 order by created_at`,
		string(identity.StatePending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (s *Users) ListByOrg(ctx context.Context, orgID string) ([]*identity.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+userColumns+` from users where organization_id=$1 order by created_at`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (s *Users) SetRole(ctx context.Context, id string, role identity.Role, permissions []string) error {
	perms, err := json.Marshal(permissions)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`update users set role=$2, permissions=$3 where id=$1`, id, string(role), perms)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return identity.ErrNotFound
	}
	return nil
}

func (s *Users) SetActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx, `update users set active=$2 where id=$1`, id, active)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return identity.ErrNotFound
	}
	return nil
}

func (s *Users) TouchLogin(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `update users set last_login_at=$2 where id=$1`, id, at)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return identity.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*identity.User, error) {
	var (
		u         identity.User
		role      string
		state     string
		orgID     sql.NullString
		perms     []byte
		expiresAt sql.NullTime
		lastLogin sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PhotoURL, &role, &orgID,
		&perms, &state, &u.Active, &u.InvitedBy, &expiresAt, &u.CreatedAt, &lastLogin)
	if err != nil {
		return nil, err
	}
	u.Role = identity.Role(role)
	u.State = identity.AccountState(state)
	if orgID.Valid {
		u.OrganizationID = orgID.String
	}
	if len(perms) > 0 {
		if err := json.Unmarshal(perms, &u.Permissions); err != nil {
			return nil, err
		}
	}
	if expiresAt.Valid {
		u.ExpiresAt = expiresAt.Time
	}
	if lastLogin.Valid {
		u.LastLoginAt = lastLogin.Time
	}
	return &u, nil
}

func collectUsers(rows *sql.Rows) ([]*identity.User, error) {
	var out []*identity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
