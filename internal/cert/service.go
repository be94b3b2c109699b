package cert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"veridoc.org/internal/audit"
	"veridoc.org/internal/identity"
	"veridoc.org/internal/ids"
	"veridoc.org/internal/obs"
)

const defaultAttestTimeout = 10 * time.Second

// Draft is the caller-supplied part of a new certificate. The issuing
// organization is never taken from the draft.
type Draft struct {
	Info      Info
	Recipient RecipientInfo
	Program   ProgramInfo
	Files     FileRefs
	Settings  IssueSettings
}

// Service owns the certificate lifecycle: issuance, fingerprinting and
// role-scoped queries.
type Service struct {
	store         Store
	attestor      Attestor
	attestTimeout time.Duration
	now           func() time.Time
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

// WithAttestTimeout bounds the background attestation attempt.
func WithAttestTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.attestTimeout = d
		}
	}
}

// NewService constructs a Service. attestor may be nil; attestation is then
// skipped and certificates remain in AttestationPending.
func NewService(store Store, attestor Attestor, opts ...Option) *Service {
	s := &Service{
		store:         store,
		attestor:      attestor,
		attestTimeout: defaultAttestTimeout,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue validates the draft, fingerprints it, persists the record and kicks
// off the background attestation. The initial insert is the atomic commit
// point: once it succeeds the certificate exists regardless of what happens
// to the caller or the attestation afterwards.
func (s *Service) Issue(ctx context.Context, draft Draft, issuer *identity.User) (*Certificate, error) {
	if issuer == nil {
		return nil, fmt.Errorf("%w: issuer profile is required", ErrInvalidInput)
	}
	if strings.TrimSpace(draft.Info.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if strings.TrimSpace(draft.Recipient.Name) == "" {
		return nil, fmt.Errorf("%w: recipient name is required", ErrInvalidInput)
	}
	recipientEmail := strings.TrimSpace(strings.ToLower(draft.Recipient.Email))
	if recipientEmail == "" {
		return nil, fmt.Errorf("%w: recipient email is required", ErrInvalidInput)
	}
	if strings.TrimSpace(draft.Files.CertificateURL) == "" {
		return nil, fmt.Errorf("%w: certificate file is required", ErrInvalidInput)
	}

	now := s.now().UTC()
	issueDate := draft.Info.IssueDate
	if issueDate.IsZero() {
		issueDate = now
	}

	c := &Certificate{
		ID:             ids.New(),
		OrganizationID: issuer.OrganizationID, // never the client-supplied org
		IssuerID:       issuer.ID,
		Issuer: IssuerInfo{
			Name: issuer.DisplayName,
			Role: string(issuer.Role),
		},
		Info:      draft.Info,
		Recipient: draft.Recipient,
		Program:   draft.Program,
		Files:     draft.Files,
		Settings:  draft.Settings,
		Status:    StatusPending,
		CreatedAt: now,
	}
	c.Info.IssueDate = issueDate
	c.Recipient.Email = recipientEmail

	fp := Fingerprint(c)
	c.Blockchain = Attestation{Hash: fp, Status: AttestationPending}

	if err := s.store.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	_ = audit.LogEvent(ctx, "cert.issued", map[string]any{
		"certificate_id":  c.ID,
		"organization_id": c.OrganizationID,
		"issuer_id":       c.IssuerID,
		"fingerprint":     fp,
	})

	if s.attestor != nil {
		// Detached from the request context on purpose: an aborted caller
		// must not cancel the attempt. Single best-effort attempt, no retry.
		go s.attest(c, fp)
	}

	return c, nil
}

func (s *Service) attest(c *Certificate, fingerprint string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.attestTimeout)
	defer cancel()

	receipt, err := s.attestor.Attest(ctx, c, fingerprint)
	if err != nil {
		obs.ObserveAttestation("failed")
		obs.LogEvent(map[string]any{
			"ts":             s.now().UTC().Format(time.RFC3339Nano),
			"level":          "warn",
			"msg":            "attestation failed, certificate remains servable",
			"certificate_id": c.ID,
			"error":          err.Error(),
		})
		return
	}
	att := Attestation{
		Hash:            fingerprint,
		TransactionHash: receipt.TransactionHash,
		BlockNumber:     receipt.BlockNumber,
		Network:         receipt.Network,
		Status:          AttestationConfirmed,
	}
	if err := s.store.SetAttestation(ctx, c.ID, att); err != nil {
		obs.ObserveAttestation("failed")
		obs.LogEvent(map[string]any{
			"ts":             s.now().UTC().Format(time.RFC3339Nano),
			"level":          "warn",
			"msg":            "attestation receipt not persisted",
			"certificate_id": c.ID,
			"error":          err.Error(),
		})
		return
	}
	obs.ObserveAttestation("confirmed")
}

// Get fetches one certificate by id.
func (s *Service) Get(ctx context.Context, id string) (*Certificate, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: certificate_id is required", ErrInvalidInput)
	}
	return s.store.Find(ctx, id)
}

// QueryByOrganization lists the certificates issued under one organization.
func (s *Service) QueryByOrganization(ctx context.Context, orgID string) ([]*Certificate, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return nil, fmt.Errorf("%w: organization_id is required", ErrInvalidInput)
	}
	return s.store.ListByOrg(ctx, orgID)
}

// QueryByRecipient lists the certificates received by an identity key, which
// may be a recipient email or an internal user id.
func (s *Service) QueryByRecipient(ctx context.Context, identityKey string) ([]*Certificate, error) {
	identityKey = strings.TrimSpace(identityKey)
	if identityKey == "" {
		return nil, fmt.Errorf("%w: identity key is required", ErrInvalidInput)
	}
	return s.store.ListByRecipient(ctx, identityKey)
}

// QueryByStatus lists certificates with a concrete status, optionally scoped
// to one organization. "all" is satisfied by the union over every concrete
// status so scoped and unscoped callers observe equivalent behavior.
func (s *Service) QueryByStatus(ctx context.Context, status string, orgID string) ([]*Certificate, error) {
	status = strings.TrimSpace(strings.ToLower(status))
	orgID = strings.TrimSpace(orgID)
	if status == "" || status == "all" {
		var out []*Certificate
		for _, st := range ConcreteStatuses {
			part, err := s.store.ListByStatus(ctx, st, orgID)
			if err != nil {
				return nil, err
			}
			out = append(out, part...)
		}
		return out, nil
	}
	switch Status(status) {
	case StatusPending, StatusVerified, StatusExpired:
		return s.store.ListByStatus(ctx, Status(status), orgID)
	default:
		return nil, fmt.Errorf("%w: unknown status %s", ErrInvalidInput, status)
	}
}

// MarkVerified transitions a pending certificate to verified. Called by the
// verification path on the first successful public lookup.
func (s *Service) MarkVerified(ctx context.Context, id string) error {
	c, err := s.store.Find(ctx, id)
	if err != nil {
		return err
	}
	if c.Status != StatusPending {
		return nil
	}
	return s.store.SetStatus(ctx, id, StatusVerified)
}
