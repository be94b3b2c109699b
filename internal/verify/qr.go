package verify

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrBadPayload indicates the QR payload carried no certificate id.
var ErrBadPayload = errors.New("verify: unrecognized payload")

const verifyPathSegment = "/verify/"

type qrPayload struct {
	CertificateID string `json:"certificateId"`
}

// DecodeQRPayload extracts a certificate id from a scanned QR payload.
// The payload is either a JSON object with a certificateId field or a bare
// verification URL containing /verify/<id>; JSON is tried first.
func DecodeQRPayload(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrBadPayload
	}

	var p qrPayload
	if err := json.Unmarshal([]byte(raw), &p); err == nil {
		if id := strings.TrimSpace(p.CertificateID); id != "" {
			return id, nil
		}
	}

	if idx := strings.LastIndex(raw, verifyPathSegment); idx >= 0 {
		id := raw[idx+len(verifyPathSegment):]
		if cut := strings.IndexAny(id, "?#/"); cut >= 0 {
			id = id[:cut]
		}
		id = strings.TrimSpace(id)
		if id != "" {
			return id, nil
		}
	}

	return "", ErrBadPayload
}

// BuildVerifyURL returns the public verification URL for a certificate id;
// this is also the string encoded into generated QR codes.
func BuildVerifyURL(baseURL, certificateID string) string {
	return strings.TrimRight(baseURL, "/") + verifyPathSegment + certificateID
}
