package models

// Split is one member's share of an expense.
type Split struct {
	// MemberID identifies who owes this share.
	MemberID string

	// Amount is this member's share of the expense total.
	Amount float64

	// IsSettled reports whether this share has been paid back. When two
	// splits collapse into one during an identity merge, the merged row
	// is settled only if all constituent rows were.
	IsSettled bool
}

// Participant is a denormalized view of one person on an expense, carrying
// link details when the person has a registered account.
type Participant struct {
	MemberID        string
	Name            string
	LinkedAccountID string
	Email           string
}

// Expense represents a shared expense.
//
// Invariant: the sum of split amounts equals Total before and after any
// identity merge. Merges combine rows for the same post-merge identity by
// summing amounts, never dropping a row.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group this expense belongs to.
	GroupID string

	// Description is the human-readable expense description.
	Description string

	// Total is the full expense amount.
	Total float64

	// PaidByMemberID identifies who paid.
	PaidByMemberID string

	// InvolvedMemberIDs lists every member id participating in the
	// expense. Kept id-unique.
	InvolvedMemberIDs []string

	// Splits is the per-member share breakdown.
	Splits []Split

	// Participants carries display and link details per person.
	Participants []Participant

	// ParticipantEmails is the set of account emails that must see this
	// expense. The visibility fan-out index is derived from this field.
	ParticipantEmails []string

	// CreatedAt is the Unix timestamp when the expense was created.
	CreatedAt int64
}

// VisibilityRow grants one account read access to one expense. Rows are
// derived from Expense.ParticipantEmails and freely deleted or inserted by
// the reconciler.
type VisibilityRow struct {
	AccountID string
	ExpenseID string
}
