package httpapi

import (
	"net/http"
	"strings"

	"veridoc.org/internal/identity"
	"veridoc.org/internal/ids"
	"veridoc.org/internal/verify"
)

// handleVerifyResource serves GET /v1/verify/{id}. The id is untrusted
// input; a miss is a structured {"valid":false}, never a 500.
func (a *API) handleVerifyResource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/verify/")
	a.verifyAndRespond(w, r, id)
}

// handleVerifyWellKnown serves the QR landing path: /verify/{id} or
// /verify?id=..., auto-triggering verification on load.
func (a *API) handleVerifyWellKnown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/verify")
	id = strings.TrimPrefix(id, "/")
	if id == "" {
		id = r.URL.Query().Get("id")
	}
	a.verifyAndRespond(w, r, id)
}

func (a *API) verifyAndRespond(w http.ResponseWriter, r *http.Request, id string) {
	meta := verify.RequesterMeta{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	}
	channel := verify.ChannelPublic
	if _, ok := identity.SessionFromContext(r.Context()); ok {
		channel = verify.ChannelAuthenticated
	}

	result, err := a.svc.Verifier.Verify(r.Context(), id, meta, channel)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "verification unavailable")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type qrDecodeRequest struct {
	Payload string `json:"payload"`
}

// handleQRDecode extracts a certificate id from a scanned QR payload.
func (a *API) handleQRDecode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req qrDecodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := verify.DecodeQRPayload(req.Payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unrecognized payload")
		return
	}
	// Issued certificate ids are ULIDs; anything else is scanner noise.
	if !ids.IsWellFormed(id) {
		writeError(w, http.StatusBadRequest, "unrecognized payload")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"certificate_id": id,
		"verify_url":     verify.BuildVerifyURL(a.BaseURL, id),
	})
}
