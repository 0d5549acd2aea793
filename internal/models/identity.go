package models

// AliasEdge links an alias member id to the canonical member id it stands
// for. The edge set forms a directed graph that must stay acyclic; cycle
// prevention happens at write time, not by storage constraint.
//
// Each alias appears at most once as a source (one outgoing edge per alias).
// Many edges sharing the same canonical is the normal case: many aliases,
// one person.
type AliasEdge struct {
	// Alias is the member id being redirected. Stored normalized
	// (trimmed, lower-cased).
	Alias string

	// Canonical is the member id the alias resolves to.
	Canonical string

	// OwnerAccount is the id of the account that created the edge.
	OwnerAccount string

	// CreatedAt is the Unix timestamp when the edge was written.
	// Edges are append-only: never mutated, never deleted in normal
	// operation, so this doubles as an audit trail.
	CreatedAt int64
}
