package httpapi

import (
	"net/http"

	"veridoc.org/internal/identity"
	"veridoc.org/internal/identity/policy"
)

type inviteRequest struct {
	Email          string `json:"email"`
	DisplayName    string `json:"display_name"`
	Role           string `json:"role"`
	OrganizationID string `json:"organization_id"`
}

func (a *API) handleInvitationsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createInvitation(w, r)
	case http.MethodGet:
		a.listInvitations(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (a *API) createInvitation(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.requireSession(w, r)
	if !ok {
		return
	}
	if !policy.CanInvite(sess.Role) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var req inviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	role, ok := identity.ParseRole(req.Role)
	if !ok {
		writeError(w, http.StatusBadRequest, "role must be admin or student")
		return
	}

	orgID := req.OrganizationID
	// Admins invite into their own organization only.
	if sess.Role == identity.RoleAdmin {
		orgID = sess.OrganizationID
	}

	pending, err := a.svc.Inviter.Invite(r.Context(), req.Email, req.DisplayName, role, orgID, sess.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pending)
}

func (a *API) listInvitations(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.requireSession(w, r)
	if !ok {
		return
	}
	if !policy.CanInvite(sess.Role) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	pending, err := a.svc.Inviter.ListPending(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	// Admins see only their own organization's invitations.
	if sess.Role == identity.RoleAdmin {
		scoped := pending[:0]
		for _, p := range pending {
			if p.User.OrganizationID == sess.OrganizationID {
				scoped = append(scoped, p)
			}
		}
		pending = scoped
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": pending})
}
