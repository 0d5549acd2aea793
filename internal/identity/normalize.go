// Package identity implements member-identity normalization and the alias
// graph that resolves any member id to its canonical identity.
package identity

import "strings"

// Normalize canonicalizes a raw member id string for comparison: leading and
// trailing whitespace is trimmed and the result is lower-cased. Case or
// formatting differences must never create spurious duplicate identities.
func Normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
