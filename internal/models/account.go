package models

// Account represents a registered account.
type Account struct {
	// ID is the unique identifier for the account (UUID format).
	ID string

	// Email is the account's email address (unique). Visibility fan-out
	// and friend linking key off this value.
	Email string

	// CanonicalMemberID is the single member id this account is
	// authoritative for. Assigned at account creation and immutable
	// thereafter except by administrative correction.
	CanonicalMemberID string

	// AliasMemberIDs is a denormalized cache of alias identities claimed
	// by this account: always normalized, deduplicated, and excluding the
	// canonical id itself. It must stay a subset of the alias edges whose
	// canonical equals CanonicalMemberID, so it is only ever rebuilt
	// inside the same write path that creates an edge.
	AliasMemberIDs []string

	// DisplayName is the account's display name.
	DisplayName string

	// PasswordHash is the bcrypt hash of the account's password.
	PasswordHash string

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64
}
