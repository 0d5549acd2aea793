package models

// IssueSeverity classifies integrity findings.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// Issue is one finding from the integrity auditor.
type Issue struct {
	// Kind names the check that produced the finding, e.g.
	// "orphaned_friend_link" or "fragmented_identity".
	Kind string `json:"kind"`

	// Severity is error for broken references, warning for suspected
	// fragmentation.
	Severity IssueSeverity `json:"severity"`

	// Detail is a human-readable description of the finding.
	Detail string `json:"detail"`

	// OwnerEmail, MemberID and ExpenseID locate the offending record.
	// Only the fields relevant to the Kind are set.
	OwnerEmail string `json:"owner_email,omitempty"`
	MemberID   string `json:"member_id,omitempty"`
	ExpenseID  string `json:"expense_id,omitempty"`
}
