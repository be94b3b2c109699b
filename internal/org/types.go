package org

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("org: not found")
	ErrInvalidInput = errors.New("org: invalid input")
)

// ContactInfo holds the public contact details of an organization.
type ContactInfo struct {
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	Website string `json:"website,omitempty"`
}

// Settings holds per-organization issuance preferences.
type Settings struct {
	CertificateIDFormat string   `json:"certificate_id_format,omitempty"`
	QRCodeTemplate      string   `json:"qr_code_template,omitempty"`
	ApprovalRequired    bool     `json:"approval_required"`
	AllowedCertTypes    []string `json:"allowed_cert_types,omitempty"`
}

// Organization is reference data for an issuing institution. Organizations
// form a tree through ParentOrgID; depth is unconstrained.
type Organization struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	Type        string      `json:"type,omitempty"`
	ParentOrgID string      `json:"parent_org_id,omitempty"`
	Level       int         `json:"level"`
	Contact     ContactInfo `json:"contact"`
	Settings    Settings    `json:"settings"`
	Active      bool        `json:"active"`
	CreatedBy   string      `json:"created_by,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Slugify derives the URL slug from an organization name: lowercase, spaces
// to hyphens, everything outside [a-z0-9-] stripped.
func Slugify(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "-")
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}
