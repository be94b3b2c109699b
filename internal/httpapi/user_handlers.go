package httpapi

import (
	"net/http"
	"strings"

	"veridoc.org/internal/identity"
	"veridoc.org/internal/identity/policy"
)

type changeRoleRequest struct {
	Role string `json:"role"`
}

// handleUserResource routes /v1/users/{id}/role and /v1/users/{id}/deactivate.
func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/users/")
	if path == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	sess, ok := a.requireSession(w, r)
	if !ok {
		return
	}
	if !policy.CanManageUsers(sess.Role) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	switch {
	case strings.HasSuffix(path, "/role"):
		if r.Method != http.MethodPatch {
			methodNotAllowed(w, http.MethodPatch)
			return
		}
		a.changeUserRole(w, r, strings.TrimSuffix(path, "/role"))
	case strings.HasSuffix(path, "/deactivate"):
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		a.deactivateUser(w, r, strings.TrimSuffix(path, "/deactivate"))
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (a *API) changeUserRole(w http.ResponseWriter, r *http.Request, userID string) {
	var req changeRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	role, ok := identity.ParseRole(req.Role)
	if !ok {
		writeError(w, http.StatusBadRequest, "role must be admin or student")
		return
	}
	updated, err := a.svc.Admin.ChangeRole(r.Context(), userID, role)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) deactivateUser(w http.ResponseWriter, r *http.Request, userID string) {
	if err := a.svc.Admin.Deactivate(r.Context(), userID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deactivated"})
}
