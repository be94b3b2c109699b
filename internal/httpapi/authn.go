package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"veridoc.org/internal/audit"
	"veridoc.org/internal/identity"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/login",
	"/v1/qr/decode",
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/",
	"/verify",
}
var publicPrefixes = []string{
	"/v1/verify/",
	"/verify/",
}

func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if isPublicPath(r.URL.Path) {
			// A bearer token on a public path still resolves the session so
			// the verification channel can be attributed.
			if token, err := extractBearerToken(r.Header.Get(authHeader)); err == nil {
				if claims, err := identity.ParseAndValidate(token); err == nil {
					r = r.WithContext(sessionContext(r.Context(), claims))
				}
			}
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := identity.ParseAndValidate(token)
		if err != nil {
			if errors.Is(err, identity.ErrInvalidToken) {
				writeError(w, http.StatusUnauthorized, "invalid token")
			} else {
				writeError(w, http.StatusInternalServerError, "authentication error")
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(sessionContext(r.Context(), claims)))
	})
}

func sessionContext(ctx context.Context, claims *identity.Claims) context.Context {
	role, _ := identity.ParseRole(claims.Role)
	sess := identity.Session{
		UserID:         claims.Subject,
		Email:          claims.Email,
		Role:           role,
		OrganizationID: claims.OrganizationID,
	}
	ctx = identity.ContextWithSession(ctx, sess)
	ctx = audit.WithActor(ctx, sess.UserID)
	return ctx
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// requireSession extracts the authenticated session or writes 401.
func (a *API) requireSession(w http.ResponseWriter, r *http.Request) (identity.Session, bool) {
	s, ok := identity.SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return identity.Session{}, false
	}
	return s, true
}
