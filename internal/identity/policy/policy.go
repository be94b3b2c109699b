// Package policy is the single source of truth for permission decisions.
// Every function is pure and total: any role/ownership combination yields a
// boolean, never an error. Callers translate false into a forbidden result.
package policy

import "veridoc.org/internal/identity"

// CanManageOrganizations reports whether the role may create or mutate
// organizations.
func CanManageOrganizations(role identity.Role) bool {
	return role == identity.RoleSuperAdmin
}

// CanManageUsers reports whether the role may change roles or deactivate
// accounts. Superadmin targets stay immutable regardless (enforced at the
// mutation site).
func CanManageUsers(role identity.Role) bool {
	return role == identity.RoleSuperAdmin
}

// CanInvite reports whether the role may create pending invitations.
func CanInvite(role identity.Role) bool {
	return role == identity.RoleAdmin || role == identity.RoleSuperAdmin
}

// CanIssueCertificate reports whether the role may issue certificates.
func CanIssueCertificate(role identity.Role) bool {
	return role == identity.RoleAdmin || role == identity.RoleSuperAdmin
}

// CanViewCertificate decides read access to a single certificate.
// Superadmins see everything; admins see their own organization; students
// see certificates they received or that are public.
func CanViewCertificate(role identity.Role, viewerOrgID, certOrgID string, isOwnerRecipient, isPublic bool) bool {
	switch role {
	case identity.RoleSuperAdmin:
		return true
	case identity.RoleAdmin:
		return viewerOrgID != "" && viewerOrgID == certOrgID
	case identity.RoleStudent:
		return isOwnerRecipient || isPublic
	default:
		return false
	}
}

// CanAccessOrgPage decides access to an organization's detail view.
func CanAccessOrgPage(role identity.Role, viewerOrgID, targetOrgID string) bool {
	switch role {
	case identity.RoleSuperAdmin:
		return true
	case identity.RoleAdmin:
		return viewerOrgID != "" && viewerOrgID == targetOrgID
	default:
		return false
	}
}
