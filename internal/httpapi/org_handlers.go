package httpapi

import (
	"net/http"
	"strings"

	"veridoc.org/internal/identity"
	"veridoc.org/internal/identity/policy"
	"veridoc.org/internal/org"
)

type createOrgRequest struct {
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	ParentOrgID string          `json:"parent_org_id"`
	Contact     org.ContactInfo `json:"contact"`
	Settings    org.Settings    `json:"settings"`
}

func (a *API) handleOrgsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createOrg(w, r)
	case http.MethodGet:
		a.listOrgs(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (a *API) createOrg(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.requireSession(w, r)
	if !ok {
		return
	}
	if !policy.CanManageOrganizations(sess.Role) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var req createOrgRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := a.svc.Orgs.Create(r.Context(), org.Draft{
		Name:        req.Name,
		Type:        req.Type,
		ParentOrgID: req.ParentOrgID,
		Contact:     req.Contact,
		Settings:    req.Settings,
	}, sess.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/v1/organizations/"+created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) listOrgs(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.requireSession(w, r)
	if !ok {
		return
	}

	if sess.Role == identity.RoleSuperAdmin {
		orgs, err := a.svc.Orgs.List(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": orgs})
		return
	}

	// Admins and students see only their own organization.
	if sess.OrganizationID == "" {
		writeJSON(w, http.StatusOK, map[string]any{"items": []*org.Organization{}})
		return
	}
	o, err := a.svc.Orgs.Get(r.Context(), sess.OrganizationID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": []*org.Organization{o}})
}

func (a *API) handleOrgResource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/organizations/")
	if path == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	id := path
	children := false
	members := false
	switch {
	case strings.HasSuffix(path, "/children"):
		id = strings.TrimSuffix(path, "/children")
		children = true
	case strings.HasSuffix(path, "/members"):
		id = strings.TrimSuffix(path, "/members")
		members = true
	}
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	sess, ok := a.requireSession(w, r)
	if !ok {
		return
	}
	if !policy.CanAccessOrgPage(sess.Role, sess.OrganizationID, id) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	if children {
		kids, err := a.svc.Orgs.Children(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": kids})
		return
	}

	if members {
		if _, err := a.svc.Orgs.Get(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		users, err := a.svc.Users.ListByOrg(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": users})
		return
	}

	o, err := a.svc.Orgs.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
