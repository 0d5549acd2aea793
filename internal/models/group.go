package models

// GroupMember is one roster entry in a group.
type GroupMember struct {
	// ID is the member id for this roster slot.
	ID string

	// Name is the display name shown for this member inside the group.
	Name string

	// IsCurrentUser marks the roster entry belonging to the group's
	// owner. When a rewrite collapses two entries into one, the entry
	// with this flag wins.
	IsCurrentUser bool
}

// Group represents a shared expense group.
//
// Invariant: member ids within one group are unique after canonicalization;
// the cascade rewriter dedupes the roster whenever identities merge.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group.
	Name string

	// OwnerAccount is the id of the account that created the group.
	OwnerAccount string

	// Members is the group roster.
	Members []GroupMember

	// IsDirect marks an implicit two-person group backing a direct
	// (one-on-one) expense history.
	IsDirect bool

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}
