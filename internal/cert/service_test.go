package cert

import (
	"context"
	"errors"
	"testing"
	"time"

	"veridoc.org/internal/identity"
)

func testIssuer() *identity.User {
	return &identity.User{
		ID:             "uid-issuer",
		Email:          "admin@kampus.edu",
		DisplayName:    "Pak Admin",
		Role:           identity.RoleAdmin,
		OrganizationID: "org-1",
	}
}

func testDraft() Draft {
	return Draft{
		Info:      Info{Title: "Sertifikat Kelulusan"},
		Recipient: RecipientInfo{Name: "Ayu Lestari", Email: "Ayu@Example.com"},
		Program:   ProgramInfo{Name: "Informatika", Grade: "A"},
		Files:     FileRefs{CertificateURL: "https://files.example.com/cert.pdf"},
	}
}

func TestIssueRoundtrip(t *testing.T) {
	store := NewInMemory()
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(store, nil, WithClock(func() time.Time { return now }))

	c, err := svc.Issue(context.Background(), testDraft(), testIssuer())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if c.ID == "" {
		t.Fatalf("id not generated")
	}
	if c.OrganizationID != "org-1" {
		t.Fatalf("organization not taken from issuer profile: %s", c.OrganizationID)
	}
	if c.IssuerID != "uid-issuer" || c.Issuer.Name != "Pak Admin" {
		t.Fatalf("issuer snapshot missing: %+v", c.Issuer)
	}
	if c.Status != StatusPending {
		t.Fatalf("status = %s, want pending", c.Status)
	}
	if c.Recipient.Email != "ayu@example.com" {
		t.Fatalf("recipient email not normalized: %s", c.Recipient.Email)
	}
	if !c.Info.IssueDate.Equal(now) {
		t.Fatalf("zero issue date not defaulted to now: %v", c.Info.IssueDate)
	}
	if c.Blockchain.Hash == "" || c.Blockchain.Status != AttestationPending {
		t.Fatalf("attestation not seeded: %+v", c.Blockchain)
	}

	got, err := svc.Get(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != c.ID || got.Info.Title != "Sertifikat Kelulusan" {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
}

func TestIssueValidation(t *testing.T) {
	svc := NewService(NewInMemory(), nil)
	ctx := context.Background()

	cases := map[string]Draft{
		"missing title": {
			Recipient: RecipientInfo{Name: "A", Email: "a@b.com"},
			Files:     FileRefs{CertificateURL: "u"},
		},
		"missing recipient name": {
			Info:      Info{Title: "T"},
			Recipient: RecipientInfo{Email: "a@b.com"},
			Files:     FileRefs{CertificateURL: "u"},
		},
		"missing recipient email": {
			Info:      Info{Title: "T"},
			Recipient: RecipientInfo{Name: "A"},
			Files:     FileRefs{CertificateURL: "u"},
		},
		"missing file": {
			Info:      Info{Title: "T"},
			Recipient: RecipientInfo{Name: "A", Email: "a@b.com"},
		},
	}
	for name, draft := range cases {
		if _, err := svc.Issue(ctx, draft, testIssuer()); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: got %v", name, err)
		}
	}
	if _, err := svc.Issue(ctx, testDraft(), nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("nil issuer: got %v", err)
	}
}

func TestFingerprintIsDeterministic(t *testing.T) {
	base := &Certificate{
		OrganizationID: "org-1",
		Info:           Info{Title: "T", IssueDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		Recipient:      RecipientInfo{Name: "A", Email: "a@b.com"},
		CreatedAt:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	first := Fingerprint(base)
	second := Fingerprint(base)
	if first != second {
		t.Fatalf("fingerprint not stable: %s vs %s", first, second)
	}
	if len(first) != 64 {
		t.Fatalf("expected hex sha256, got %q", first)
	}

	other := *base
	other.Recipient.Email = "c@d.com"
	if Fingerprint(&other) == first {
		t.Fatalf("different recipient produced identical fingerprint")
	}
}

// syncAttestor wraps StubAttestor and signals when the receipt is persisted.
type syncAttestor struct {
	inner StubAttestor
	done  chan struct{}
}

func (a *syncAttestor) Attest(ctx context.Context, c *Certificate, fp string) (AttestReceipt, error) {
	defer close(a.done)
	return a.inner.Attest(ctx, c, fp)
}

func TestIssueRunsBackgroundAttestation(t *testing.T) {
	store := NewInMemory()
	att := &syncAttestor{inner: StubAttestor{Network: "testnet"}, done: make(chan struct{})}
	svc := NewService(store, att)

	c, err := svc.Issue(context.Background(), testDraft(), testIssuer())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	select {
	case <-att.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("attestation never ran")
	}

	// SetAttestation happens after the attestor returns; poll briefly.
	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := store.Find(context.Background(), c.ID)
		if err != nil {
			t.Fatalf("Find: %v", err)
		}
		if got.Blockchain.Status == AttestationConfirmed {
			if got.Blockchain.TransactionHash == "" || got.Blockchain.Network != "testnet" {
				t.Fatalf("receipt not recorded: %+v", got.Blockchain)
			}
			if got.Blockchain.Hash != c.Blockchain.Hash {
				t.Fatalf("fingerprint changed during attestation")
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("attestation receipt never persisted: %+v", got.Blockchain)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestQueryByStatus(t *testing.T) {
	store := NewInMemory()
	svc := NewService(store, nil)
	ctx := context.Background()

	seed := func(id string, status Status, orgID string) {
		t.Helper()
		if err := store.Create(ctx, &Certificate{
			ID:             id,
			OrganizationID: orgID,
			Info:           Info{Title: id},
			Recipient:      RecipientInfo{Name: "A", Email: "a@b.com"},
			Status:         status,
		}); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
	seed("c1", StatusPending, "org-1")
	seed("c2", StatusVerified, "org-1")
	seed("c3", StatusExpired, "org-2")

	all, err := svc.QueryByStatus(ctx, "all", "")
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("all returned %d certificates", len(all))
	}

	scoped, err := svc.QueryByStatus(ctx, "all", "org-1")
	if err != nil {
		t.Fatalf("scoped all: %v", err)
	}
	if len(scoped) != 2 {
		t.Fatalf("scoped all returned %d certificates", len(scoped))
	}

	verified, err := svc.QueryByStatus(ctx, "verified", "")
	if err != nil {
		t.Fatalf("verified: %v", err)
	}
	if len(verified) != 1 || verified[0].ID != "c2" {
		t.Fatalf("verified query mismatch: %+v", verified)
	}

	if _, err := svc.QueryByStatus(ctx, "revoked", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown status: got %v", err)
	}
}

func TestMarkVerified(t *testing.T) {
	store := NewInMemory()
	svc := NewService(store, nil)
	ctx := context.Background()

	c, err := svc.Issue(ctx, testDraft(), testIssuer())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if err := svc.MarkVerified(ctx, c.ID); err != nil {
		t.Fatalf("MarkVerified: %v", err)
	}
	got, err := store.Find(ctx, c.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.Status != StatusVerified {
		t.Fatalf("status = %s, want verified", got.Status)
	}

	// Second call is a no-op on an already-verified record.
	if err := svc.MarkVerified(ctx, c.ID); err != nil {
		t.Fatalf("repeat MarkVerified: %v", err)
	}
}

func TestIsExpired(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	if (&Certificate{}).IsExpired(now) {
		t.Fatalf("no expiry date must never expire")
	}
	if !(&Certificate{Info: Info{ExpiryDate: &past}}).IsExpired(now) {
		t.Fatalf("past expiry not detected")
	}
	if (&Certificate{Info: Info{ExpiryDate: &future}}).IsExpired(now) {
		t.Fatalf("future expiry wrongly detected")
	}
}
