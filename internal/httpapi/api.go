package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"veridoc.org/internal/cert"
	"veridoc.org/internal/identity"
	"veridoc.org/internal/obs"
	"veridoc.org/internal/org"
	"veridoc.org/internal/verify"
)

// ReadyProbe reports readiness (e.g. a DB ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Services bundles the domain services the API fronts.
type Services struct {
	Resolver *identity.Resolver
	Inviter  *identity.Inviter
	Admin    *identity.Admin
	Users    identity.UserStore
	Certs    *cert.Service
	Verifier *verify.Service
	Orgs     *org.Directory
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string
	svc        Services

	// BaseURL is the public origin used when building verification URLs.
	BaseURL string

	maxBodyBytes int64
	rateBurst    int
	ratePerSec   int
}

// New wires routes onto a fresh mux.
func New(rp ReadyProbe, version string, svc Services) *API {
	a := &API{
		mux:          http.NewServeMux(),
		readyProbe:   rp,
		version:      version,
		svc:          svc,
		BaseURL:      "http://localhost:8080",
		maxBodyBytes: 1 << 20,
		rateBurst:    20,
		ratePerSec:   10,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// public verification surface
	a.mux.HandleFunc("/v1/verify/", a.handleVerifyResource)
	a.mux.HandleFunc("/verify/", a.handleVerifyWellKnown)
	a.mux.HandleFunc("/verify", a.handleVerifyWellKnown)
	a.mux.HandleFunc("/v1/qr/decode", a.handleQRDecode)

	// session
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)

	// authenticated surface
	a.mux.HandleFunc("/v1/certificates", a.handleCertificatesCollection)
	a.mux.HandleFunc("/v1/certificates/", a.handleCertificateResource)
	a.mux.HandleFunc("/v1/invitations", a.handleInvitationsCollection)
	a.mux.HandleFunc("/v1/organizations", a.handleOrgsCollection)
	a.mux.HandleFunc("/v1/organizations/", a.handleOrgResource)
	a.mux.HandleFunc("/v1/users/", a.handleUserResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = a.withAuth(h)
	h = obs.Instrument(h)
	h = Logging(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = CORS(h)
	h = SecurityHeaders(h)
	return h
}

// --- basic handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "veridoc-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "veridoc-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer func() { _, _ = io.Copy(io.Discard, r.Body) }()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

// writeDomainError maps the error taxonomy to HTTP codes. Forbidden is kept
// distinct from not-found so a denied caller learns nothing extra, and a
// missing resource is never disguised as denial.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cert.ErrNotFound),
		errors.Is(err, org.ErrNotFound),
		errors.Is(err, identity.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, cert.ErrInvalidInput),
		errors.Is(err, org.ErrInvalidInput),
		errors.Is(err, identity.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, identity.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, cert.ErrPersistence),
		errors.Is(err, identity.ErrPersistence):
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
