package cert

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("cert: not found")
	ErrInvalidInput = errors.New("cert: invalid input")
	ErrPersistence  = errors.New("cert: persistence failed")
)

// Status is the stored lifecycle state of a certificate. Expiry is always
// derived from ExpiryDate at read time; StatusExpired exists for query
// compatibility but is never the authoritative source.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusExpired  Status = "expired"
)

// ConcreteStatuses enumerates real stored statuses. A non-superadmin "all"
// query is satisfied by the union over these.
var ConcreteStatuses = []Status{StatusPending, StatusVerified, StatusExpired}

// AttestationStatus tracks the optional external attestation step.
type AttestationStatus string

const (
	AttestationPending   AttestationStatus = "pending"
	AttestationConfirmed AttestationStatus = "confirmed"
	AttestationFailed    AttestationStatus = "failed"
)

// IssuerInfo is a snapshot of the issuing user at issuance time.
type IssuerInfo struct {
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

// Info describes what the certificate attests.
type Info struct {
	Title       string     `json:"title"`
	Type        string     `json:"type,omitempty"`
	Description string     `json:"description,omitempty"`
	IssueDate   time.Time  `json:"issue_date"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
}

// RecipientInfo identifies who received the certificate.
type RecipientInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	ID    string `json:"id,omitempty"`
}

// ProgramInfo describes the program the certificate was earned in.
type ProgramInfo struct {
	Name        string `json:"name,omitempty"`
	Institution string `json:"institution,omitempty"`
	Grade       string `json:"grade,omitempty"`
	Credits     string `json:"credits,omitempty"`
}

// FileRefs holds blob-store URLs; the service never touches file bytes.
type FileRefs struct {
	CertificateURL string `json:"certificate_url"`
	TemplateURL    string `json:"template_url,omitempty"`
}

// IssueSettings are per-certificate issuance preferences.
type IssueSettings struct {
	Public     bool `json:"public"`
	SendEmail  bool `json:"send_email"`
	GenerateQR bool `json:"generate_qr"`
}

// Attestation records the optional external confirmation of the fingerprint.
// Hash is seeded from the fingerprint at issuance; the rest arrives
// asynchronously and is enrichment, never a validity gate.
type Attestation struct {
	Hash            string            `json:"hash"`
	TransactionHash string            `json:"transaction_hash,omitempty"`
	BlockNumber     int64             `json:"block_number,omitempty"`
	Network         string            `json:"network,omitempty"`
	Status          AttestationStatus `json:"status"`
}

// Certificate is the issued record. ID is system-generated and doubles as
// the public verification key.
type Certificate struct {
	ID                 string        `json:"id"`
	OrganizationID     string        `json:"organization_id"`
	IssuerID           string        `json:"issuer_id"`
	Issuer             IssuerInfo    `json:"issuer"`
	Info               Info          `json:"info"`
	Recipient          RecipientInfo `json:"recipient"`
	Program            ProgramInfo   `json:"program"`
	Files              FileRefs      `json:"files"`
	Settings           IssueSettings `json:"settings"`
	Status             Status        `json:"status"`
	VerificationCount  int64         `json:"verification_count"`
	LastVerificationAt time.Time     `json:"last_verification_at,omitempty"`
	Blockchain         Attestation   `json:"blockchain"`
	CreatedAt          time.Time     `json:"created_at"`
}

// IsExpired derives expiry at read time. This, not the stored status, is the
// authoritative answer to "is it expired now".
func (c *Certificate) IsExpired(now time.Time) bool {
	return c.Info.ExpiryDate != nil && c.Info.ExpiryDate.Before(now)
}
