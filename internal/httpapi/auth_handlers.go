package httpapi

import (
	"net/http"
	"strings"
	"time"

	"veridoc.org/internal/audit"
	"veridoc.org/internal/identity"
)

const sessionTTL = 12 * time.Hour

type loginRequest struct {
	ProviderID  string `json:"provider_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`
}

type loginResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      *identity.User `json:"user"`
}

// handleLogin accepts the identity already verified by the upstream auth
// provider, resolves it to an internal user and mints a session token.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.ProviderID) == "" || strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "provider_id and email are required")
		return
	}

	user, err := a.svc.Resolver.Resolve(r.Context(), identity.ExternalIdentity{
		ProviderID:  req.ProviderID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !user.Active {
		writeError(w, http.StatusForbidden, "account deactivated")
		return
	}

	token, err := identity.GenerateToken(user, sessionTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token generation failed")
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.session.issued", map[string]any{
		"user_id": user.ID,
		"role":    string(user.Role),
	})

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(sessionTTL),
		User:      user,
	})
}
