package pg

import (
	"context"
	"database/sql"

	"veridoc.org/internal/verify"
)

// VerificationLog implements verify.Log on Postgres. Insert-only; there is
// no update or delete path by design of the table.
type VerificationLog struct {
	db *sql.DB
}

var _ verify.Log = (*VerificationLog)(nil)

func (s *VerificationLog) Append(ctx context.Context, e *verify.LogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		insert into verification_log (id, certificate_id, ts, ip_address, user_agent, location, channel)
		values ($1,$2,$3,$4,$5,$6,$7)
	`, e.ID, e.CertificateID, e.Timestamp, e.Requester.IPAddress,
		e.Requester.UserAgent, e.Requester.Location, string(e.Channel))
	return err
}

func (s *VerificationLog) ListByCertificate(ctx context.Context, certificateID string) ([]*verify.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, certificate_id, ts, ip_address, user_agent, location, channel
		from verification_log
		where certificate_id=$1
		order by ts
	`, certificateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*verify.LogEntry
	for rows.Next() {
		var (
			e       verify.LogEntry
			channel string
		)
		if err := rows.Scan(&e.ID, &e.CertificateID, &e.Timestamp,
			&e.Requester.IPAddress, &e.Requester.UserAgent, &e.Requester.Location,
			&channel); err != nil {
			return nil, err
		}
		e.Channel = verify.Channel(channel)
		out = append(out, &e)
	}
	return out, rows.Err()
}
