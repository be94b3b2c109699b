package pg

import (
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Store bundles the Postgres-backed implementations of the domain stores
// over one shared connection pool.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres through the pgx stdlib driver.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing pool (used by tests with sqlmock).
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Users returns the user store.
func (s *Store) Users() *Users { return &Users{db: s.db} }

// Orgs returns the organization store.
func (s *Store) Orgs() *Orgs { return &Orgs{db: s.db} }

// Certificates returns the certificate store.
func (s *Store) Certificates() *Certificates { return &Certificates{db: s.db} }

// VerificationLog returns the append-only verification log.
func (s *Store) VerificationLog() *VerificationLog { return &VerificationLog{db: s.db} }
