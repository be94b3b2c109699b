package cert

import (
	"context"
	"time"
)

// Store describes persistence operations for certificate records.
type Store interface {
	Create(ctx context.Context, c *Certificate) error
	Find(ctx context.Context, id string) (*Certificate, error)
	ListByOrg(ctx context.Context, orgID string) ([]*Certificate, error)
	// ListByRecipient matches either the recipient email or the recipient
	// user id against the given key.
	ListByRecipient(ctx context.Context, key string) ([]*Certificate, error)
	ListByStatus(ctx context.Context, status Status, orgID string) ([]*Certificate, error)
	SetStatus(ctx context.Context, id string, status Status) error
	// RecordVerification atomically increments the verification counter and
	// stamps the time. Implementations without atomic increments may lose
	// updates under concurrent verification; that is an accepted
	// approximation, the counter must never decrease.
	RecordVerification(ctx context.Context, id string, at time.Time) error
	SetAttestation(ctx context.Context, id string, att Attestation) error
}
