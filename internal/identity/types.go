package identity

import (
	"strings"
	"time"
)

// Role is the closed set of access levels. All permission decisions derive
// from it through the policy package; handlers never re-derive role booleans
// inline.
type Role string

const (
	RoleStudent    Role = "student"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// ParseRole normalizes a raw role string to a known Role.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.TrimSpace(strings.ToLower(raw))) {
	case RoleStudent:
		return RoleStudent, true
	case RoleAdmin:
		return RoleAdmin, true
	case RoleSuperAdmin:
		return RoleSuperAdmin, true
	default:
		return "", false
	}
}

// AccountState distinguishes a pending invitation row from a confirmed
// account. The state tag is authoritative; the key format (normalized email
// vs provider id) is not.
type AccountState string

const (
	StatePending   AccountState = "pending"
	StateConfirmed AccountState = "confirmed"
)

// Capability strings attached to users. Informational: the policy package is
// the source of truth for authorization.
const (
	PermUploadCertificates      = "upload_certificates"
	PermManageStudents          = "manage_students"
	PermViewOrgCertificates     = "view_organization_certificates"
	PermViewOwnCertificates     = "view_own_certificates"
	PermVerifyCertificates      = "verify_certificates"
	PermManageOrganizations     = "manage_organizations"
	PermManageUsers             = "manage_users"
	PermViewAllCertificates     = "view_all_certificates"
)

// PermissionsForRole returns the capability set granted with a role.
func PermissionsForRole(role Role) []string {
	switch role {
	case RoleSuperAdmin:
		return []string{
			PermManageOrganizations,
			PermManageUsers,
			PermUploadCertificates,
			PermViewAllCertificates,
			PermVerifyCertificates,
		}
	case RoleAdmin:
		return []string{
			PermUploadCertificates,
			PermManageStudents,
			PermViewOrgCertificates,
		}
	case RoleStudent:
		return []string{
			PermViewOwnCertificates,
			PermVerifyCertificates,
		}
	default:
		return nil
	}
}

// User is an internal account. While pending it is keyed by the normalized
// email; once confirmed it is keyed by the provider-assigned identity id.
type User struct {
	ID             string       `json:"id"`
	Email          string       `json:"email"`
	DisplayName    string       `json:"display_name,omitempty"`
	PhotoURL       string       `json:"photo_url,omitempty"`
	Role           Role         `json:"role"`
	OrganizationID string       `json:"organization_id,omitempty"`
	Permissions    []string     `json:"permissions,omitempty"`
	State          AccountState `json:"state"`
	Active         bool         `json:"active"`
	InvitedBy      string       `json:"invited_by,omitempty"`
	ExpiresAt      time.Time    `json:"expires_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	LastLoginAt    time.Time    `json:"last_login_at,omitempty"`
}

// ExternalIdentity is the verified identity returned by the external
// authentication provider. Facts only, no decisions.
type ExternalIdentity struct {
	ProviderID  string `json:"provider_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// PendingInvitation is a pending user annotated for listing.
type PendingInvitation struct {
	User         *User `json:"user"`
	ExpiringSoon bool  `json:"expiring_soon"`
}
