package models

// FriendRecord is one address-book entry: a person as known by one account.
// There is at most one row per (OwnerEmail, MemberID) pair. A row becomes
// "linked" when its member id is claimed by a real account.
type FriendRecord struct {
	// OwnerEmail is the email of the account whose address book this row
	// belongs to.
	OwnerEmail string

	// MemberID is the member id this row describes, as the owner knows it.
	MemberID string

	// Name is the display name the owner sees for this person.
	Name string

	// Nickname is an optional owner-chosen nickname. Cleared when it
	// matches the linked person's real display name (case-insensitively);
	// the prior value is preserved in OriginalName.
	Nickname string

	// OriginalName records what the owner originally called this person
	// before an identity link renamed them ("originally called X").
	OriginalName string

	// HasLinkedAccount reports whether this row is linked to a registered
	// account.
	HasLinkedAccount bool

	// LinkedAccountID, LinkedAccountEmail and LinkedMemberID identify the
	// linked account and its canonical member id. Empty when unlinked.
	LinkedAccountID    string
	LinkedAccountEmail string
	LinkedMemberID     string

	// CreatedAt is the Unix timestamp when the row was created.
	CreatedAt int64
}
