// Package ids generates the identifiers used for users, organizations,
// certificates and verification-log entries. Certificate ids double as the
// public verification key printed into QR codes, so they must stay stable
// once issued and survive being pasted into URLs.
package ids

import (
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a lexicographically sortable identifier used for storage keys.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// IsWellFormed reports whether s could have been produced by New. The public
// verify endpoint uses it to reject scanner noise without a store round trip;
// case is ignored since QR decoders sometimes lowercase the payload.
func IsWellFormed(s string) bool {
	if len(s) != ulid.EncodedSize {
		return false
	}
	_, err := ulid.ParseStrict(strings.ToUpper(s))
	return err == nil
}
