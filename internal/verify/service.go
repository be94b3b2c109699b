package verify

import (
	"context"
	"errors"
	"strings"
	"time"

	"veridoc.org/internal/cert"
	"veridoc.org/internal/ids"
	"veridoc.org/internal/obs"
	"veridoc.org/internal/org"
)

// OrgResolver is the narrow view of the organization directory the
// verification response needs for display enrichment.
type OrgResolver interface {
	Get(ctx context.Context, id string) (*org.Organization, error)
}

// CertificateView is the sanitized public projection of a certificate.
// Internal identifiers (issuer id, recipient user id, delivery settings)
// never cross the trust boundary.
type CertificateView struct {
	ID                string            `json:"id"`
	Title             string            `json:"title"`
	Type              string            `json:"type,omitempty"`
	Description       string            `json:"description,omitempty"`
	IssueDate         time.Time         `json:"issue_date"`
	ExpiryDate        *time.Time        `json:"expiry_date,omitempty"`
	RecipientName     string            `json:"recipient_name"`
	OrganizationID    string            `json:"organization_id"`
	Program           cert.ProgramInfo  `json:"program"`
	FileURL           string            `json:"file_url,omitempty"`
	Blockchain        cert.Attestation  `json:"blockchain"`
	VerificationCount int64             `json:"verification_count"`
	CreatedAt         time.Time         `json:"created_at"`
}

// Result is the outcome of a public verification. An expired certificate is
// still Valid: expiry is informational, not a validity gate.
type Result struct {
	Valid        bool              `json:"valid"`
	Certificate  *CertificateView  `json:"certificate,omitempty"`
	Organization *org.Organization `json:"organization,omitempty"`
	Expired      bool              `json:"expired"`
	VerifiedAt   time.Time         `json:"verified_at"`
}

// Service is the public trust boundary. It accepts arbitrary untrusted
// certificate ids and never propagates a lookup miss as an error.
type Service struct {
	certs      cert.Store
	log        Log
	orgs       OrgResolver
	markFirst  func(ctx context.Context, id string) error
	now        func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithFirstVerification installs the hook invoked on every successful
// lookup; the certificate service uses it to move pending records to
// verified. Failures are swallowed like every other post-lookup write.
func WithFirstVerification(fn func(ctx context.Context, id string) error) Option {
	return func(s *Service) {
		s.markFirst = fn
	}
}

// NewService constructs the verification service. orgs may be nil; the
// organization block is then always absent from results.
func NewService(certs cert.Store, log Log, orgs OrgResolver, opts ...Option) *Service {
	s := &Service{
		certs: certs,
		log:   log,
		orgs:  orgs,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify looks up a certificate by id, records the verification event and
// returns the sanitized result. A miss yields Valid:false with a nil error;
// log-append and counter failures never fail the response.
func (s *Service) Verify(ctx context.Context, id string, meta RequesterMeta, channel Channel) (Result, error) {
	now := s.now().UTC()
	id = strings.TrimSpace(id)
	if id == "" {
		obs.ObserveVerification("invalid")
		return Result{Valid: false, VerifiedAt: now}, nil
	}

	c, err := s.certs.Find(ctx, id)
	if err != nil {
		if errors.Is(err, cert.ErrNotFound) {
			obs.ObserveVerification("invalid")
			return Result{Valid: false, VerifiedAt: now}, nil
		}
		obs.ObserveVerification("error")
		return Result{Valid: false, VerifiedAt: now}, err
	}

	expired := c.IsExpired(now)

	// Every successful lookup is logged, not only the first one.
	if err := s.log.Append(ctx, &LogEntry{
		ID:            ids.New(),
		CertificateID: c.ID,
		Timestamp:     now,
		Requester:     meta,
		Channel:       channel,
	}); err != nil {
		s.swallow("verification log append failed", c.ID, err)
	}

	if err := s.certs.RecordVerification(ctx, c.ID, now); err != nil {
		s.swallow("verification counter update failed", c.ID, err)
	} else {
		c.VerificationCount++
		c.LastVerificationAt = now
	}

	if s.markFirst != nil {
		if err := s.markFirst(ctx, c.ID); err != nil {
			s.swallow("status transition failed", c.ID, err)
		}
	}

	var organization *org.Organization
	if s.orgs != nil && c.OrganizationID != "" {
		if o, err := s.orgs.Get(ctx, c.OrganizationID); err == nil {
			organization = o
		}
		// Resolution failure leaves the organization absent; the result
		// stays valid.
	}

	if expired {
		obs.ObserveVerification("expired")
	} else {
		obs.ObserveVerification("valid")
	}

	return Result{
		Valid:        true,
		Certificate:  sanitize(c),
		Organization: organization,
		Expired:      expired,
		VerifiedAt:   now,
	}, nil
}

func sanitize(c *cert.Certificate) *CertificateView {
	return &CertificateView{
		ID:                c.ID,
		Title:             c.Info.Title,
		Type:              c.Info.Type,
		Description:       c.Info.Description,
		IssueDate:         c.Info.IssueDate,
		ExpiryDate:        c.Info.ExpiryDate,
		RecipientName:     c.Recipient.Name,
		OrganizationID:    c.OrganizationID,
		Program:           c.Program,
		FileURL:           c.Files.CertificateURL,
		Blockchain:        c.Blockchain,
		VerificationCount: c.VerificationCount,
		CreatedAt:         c.CreatedAt,
	}
}

func (s *Service) swallow(msg, certID string, err error) {
	obs.LogEvent(map[string]any{
		"ts":             s.now().UTC().Format(time.RFC3339Nano),
		"level":          "warn",
		"msg":            msg,
		"certificate_id": certID,
		"error":          err.Error(),
	})
}
