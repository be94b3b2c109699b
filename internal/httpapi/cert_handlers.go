package httpapi

import (
	"net/http"
	"strings"
	"time"

	"veridoc.org/internal/cert"
	"veridoc.org/internal/identity"
	"veridoc.org/internal/identity/policy"
	"veridoc.org/internal/verify"
)

type issueRequest struct {
	Title       string             `json:"title"`
	Type        string             `json:"type"`
	Description string             `json:"description"`
	IssueDate   *time.Time         `json:"issue_date"`
	ExpiryDate  *time.Time         `json:"expiry_date"`
	Recipient   cert.RecipientInfo `json:"recipient"`
	Program     cert.ProgramInfo   `json:"program"`
	Files       cert.FileRefs      `json:"files"`
	Settings    cert.IssueSettings `json:"settings"`
}

type issueResponse struct {
	Certificate *cert.Certificate `json:"certificate"`
	VerifyURL   string            `json:"verify_url"`
}

func (a *API) handleCertificatesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.issueCertificate(w, r)
	case http.MethodGet:
		a.listCertificates(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (a *API) issueCertificate(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.requireSession(w, r)
	if !ok {
		return
	}
	if !policy.CanIssueCertificate(sess.Role) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var req issueRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The issuing org comes from the stored profile, never the request.
	issuer, err := a.svc.Users.Find(r.Context(), sess.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	draft := cert.Draft{
		Info: cert.Info{
			Title:       req.Title,
			Type:        req.Type,
			Description: req.Description,
			ExpiryDate:  req.ExpiryDate,
		},
		Recipient: req.Recipient,
		Program:   req.Program,
		Files:     req.Files,
		Settings:  req.Settings,
	}
	if req.IssueDate != nil {
		draft.Info.IssueDate = *req.IssueDate
	}

	created, err := a.svc.Certs.Issue(r.Context(), draft, issuer)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/v1/certificates/"+created.ID)
	writeJSON(w, http.StatusCreated, issueResponse{
		Certificate: created,
		VerifyURL:   verify.BuildVerifyURL(a.BaseURL, created.ID),
	})
}

func (a *API) listCertificates(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.requireSession(w, r)
	if !ok {
		return
	}

	status := r.URL.Query().Get("status")

	var (
		certs []*cert.Certificate
		err   error
	)
	switch sess.Role {
	case identity.RoleSuperAdmin:
		orgID := strings.TrimSpace(r.URL.Query().Get("org_id"))
		if orgID != "" && status == "" {
			certs, err = a.svc.Certs.QueryByOrganization(r.Context(), orgID)
		} else {
			certs, err = a.svc.Certs.QueryByStatus(r.Context(), status, orgID)
		}
	case identity.RoleAdmin:
		if sess.OrganizationID == "" {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		if status == "" {
			certs, err = a.svc.Certs.QueryByOrganization(r.Context(), sess.OrganizationID)
		} else {
			certs, err = a.svc.Certs.QueryByStatus(r.Context(), status, sess.OrganizationID)
		}
	case identity.RoleStudent:
		certs, err = a.svc.Certs.QueryByRecipient(r.Context(), sess.Email)
		if err == nil {
			more, merr := a.svc.Certs.QueryByRecipient(r.Context(), sess.UserID)
			if merr == nil {
				certs = dedupeCerts(certs, more)
			}
		}
	default:
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": certs})
}

func (a *API) handleCertificateResource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/certificates/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	sess, ok := a.requireSession(w, r)
	if !ok {
		return
	}

	c, err := a.svc.Certs.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	isOwner := c.Recipient.Email == sess.Email ||
		(c.Recipient.ID != "" && c.Recipient.ID == sess.UserID)
	if !policy.CanViewCertificate(sess.Role, sess.OrganizationID, c.OrganizationID, isOwner, c.Settings.Public) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func dedupeCerts(a, b []*cert.Certificate) []*cert.Certificate {
	seen := make(map[string]struct{}, len(a))
	out := a
	for _, c := range a {
		seen[c.ID] = struct{}{}
	}
	for _, c := range b {
		if _, ok := seen[c.ID]; !ok {
			out = append(out, c)
		}
	}
	return out
}
