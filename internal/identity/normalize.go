package identity

import "strings"

// NormalizeEmailKey converts an email address into the storage key used for
// pending invitations: every character outside [A-Za-z0-9] becomes '_'.
// The same derivation must be used at invite time and at resolve time or the
// merge never finds the row.
func NormalizeEmailKey(email string) string {
	email = strings.TrimSpace(email)
	var b strings.Builder
	b.Grow(len(email))
	for _, r := range email {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
