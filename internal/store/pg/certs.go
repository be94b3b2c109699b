package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"veridoc.org/internal/cert"
)

// Certificates implements cert.Store on Postgres. Queryable fields live in
// real columns; the nested info blocks are jsonb blobs.
type Certificates struct {
	db *sql.DB
}

var _ cert.Store = (*Certificates)(nil)

const certColumns = `id, organization_id, issuer_id, issuer, info, recipient_name,
	recipient_email, recipient_user_id, recipient, program, files, settings,
	status, verification_count, last_verification_at, blockchain, created_at`

func (s *Certificates) Create(ctx context.Context, c *cert.Certificate) error {
	if c == nil || c.ID == "" {
		return cert.ErrInvalidInput
	}
	issuer, err := json.Marshal(c.Issuer)
	if err != nil {
		return err
	}
	info, err := json.Marshal(c.Info)
	if err != nil {
		return err
	}
	recipient, err := json.Marshal(c.Recipient)
	if err != nil {
		return err
	}
	program, err := json.Marshal(c.Program)
	if err != nil {
		return err
	}
	files, err := json.Marshal(c.Files)
	if err != nil {
		return err
	}
	settings, err := json.Marshal(c.Settings)
	if err != nil {
		return err
	}
	blockchain, err := json.Marshal(c.Blockchain)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into certificates (id, organization_id, issuer_id, issuer, info,
			recipient_name, recipient_email, recipient_user_id, recipient, program,
			files, settings, status, verification_count, last_verification_at,
			blockchain, created_at)
		values ($1,$2,$3,$4,$5,$6,$7,nullif($8,''),$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`, c.ID, c.OrganizationID, c.IssuerID, issuer, info,
		c.Recipient.Name, c.Recipient.Email, c.Recipient.ID, recipient, program,
		files, settings, string(c.Status), c.VerificationCount,
		nullTime(c.LastVerificationAt), blockchain, c.CreatedAt)
	return err
}

func (s *Certificates) Find(ctx context.Context, id string) (*cert.Certificate, error) {
	row := s.db.QueryRowContext(ctx, `select `+certColumns+` from certificates where id=$1`, id)
	c, err := scanCert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cert.ErrNotFound
	}
	return c, err
}

func (s *Certificates) ListByOrg(ctx context.Context, orgID string) ([]*cert.Certificate, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+certColumns+` from certificates where organization_id=$1 order by created_at desc`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCerts(rows)
}

func (s *Certificates) ListByRecipient(ctx context.Context, key string) ([]*cert.Certificate, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+certColumns+` from certificates
		where recipient_email=$1 or recipient_user_id=$1
		order by created_at desc
	`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCerts(rows)
}

func (s *Certificates) ListByStatus(ctx context.Context, status cert.Status, orgID string) ([]*cert.Certificate, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if orgID == "" {
		rows, err = s.db.QueryContext(ctx,
			`select `+certColumns+` from certificates where status=$1 order by created_at desc`,
			string(status))
	} else {
		rows, err = s.db.QueryContext(ctx, `
			select `+certColumns+` from certificates
			where status=$1 and organization_id=$2
			order by created_at desc
		`, string(status), orgID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCerts(rows)
}

func (s *Certificates) SetStatus(ctx context.Context, id string, status cert.Status) error {
	res, err := s.db.ExecContext(ctx,
		`update certificates set status=$2 where id=$1`, id, string(status))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return cert.ErrNotFound
	}
	return nil
}

// RecordVerification uses a native SQL increment so concurrent verifications
// of the same certificate never lose updates.
func (s *Certificates) RecordVerification(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update certificates
		set verification_count = verification_count + 1, last_verification_at = $2
		where id = $1
	`, id, at)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return cert.ErrNotFound
	}
	return nil
}

func (s *Certificates) SetAttestation(ctx context.Context, id string, att cert.Attestation) error {
	blockchain, err := json.Marshal(att)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`update certificates set blockchain=$2 where id=$1`, id, blockchain)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return cert.ErrNotFound
	}
	return nil
}

func scanCert(row rowScanner) (*cert.Certificate, error) {
	var (
		c             cert.Certificate
		issuer        []byte
		info          []byte
		recipientName string
		recipEmail    string
		recipUserID   sql.NullString
		recipient     []byte
		program       []byte
		files         []byte
		settings      []byte
		status        string
		lastVerified  sql.NullTime
		blockchain    []byte
	)
	err := row.Scan(&c.ID, &c.OrganizationID, &c.IssuerID, &issuer, &info,
		&recipientName, &recipEmail, &recipUserID, &recipient, &program,
		&files, &settings, &status, &c.VerificationCount, &lastVerified,
		&blockchain, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	for _, blob := range []struct {
		data []byte
		dst  any
	}{
		{issuer, &c.Issuer},
		{info, &c.Info},
		{recipient, &c.Recipient},
		{program, &c.Program},
		{files, &c.Files},
		{settings, &c.Settings},
		{blockchain, &c.Blockchain},
	} {
		if len(blob.data) == 0 {
			continue
		}
		if err := json.Unmarshal(blob.data, blob.dst); err != nil {
			return nil, err
		}
	}
	c.Status = cert.Status(status)
	if lastVerified.Valid {
		c.LastVerificationAt = lastVerified.Time
	}
	return &c, nil
}

func collectCerts(rows *sql.Rows) ([]*cert.Certificate, error) {
	var out []*cert.Certificate
	for rows.Next() {
		c, err := scanCert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
