package cert

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// fingerprintFields is the fixed field set and ordering the fingerprint is
// computed over. Changing either breaks every previously anchored
// attestation, so treat this struct as a wire contract.
type fingerprintFields struct {
	Title          string `json:"title"`
	RecipientName  string `json:"recipient_name"`
	RecipientEmail string `json:"recipient_email"`
	IssueDate      string `json:"issue_date"`
	OrganizationID string `json:"organization_id"`
	CreatedAt      string `json:"created_at"`
}

// Fingerprint computes the deterministic SHA-256 digest over the canonical
// JSON of a certificate's defining fields. It seeds the attestation hash.
func Fingerprint(c *Certificate) string {
	f := fingerprintFields{
		Title:          c.Info.Title,
		RecipientName:  c.Recipient.Name,
		RecipientEmail: c.Recipient.Email,
		IssueDate:      c.Info.IssueDate.UTC().Format(time.RFC3339),
		OrganizationID: c.OrganizationID,
		CreatedAt:      c.CreatedAt.UTC().Format(time.RFC3339),
	}
	// Struct field order fixes the JSON key order, so the digest is stable.
	data, _ := json.Marshal(f)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
