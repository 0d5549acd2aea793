// Package models defines the core domain models for the PayBack identity
// engine.
//
// # Member identities
//
// The same real person may be referenced by several opaque member id strings:
// one per account that knows them, plus ids invented before any accounts
// linked. A member id is not a stored record of its own - it exists only as
// values embedded in other entities and as nodes in AliasEdge rows.
//
// # Models
//
//   - AliasEdge: a directed alias -> canonical link in the identity graph
//   - Account: a registered account owning exactly one canonical member id
//   - FriendRecord: one address-book row per (owner, member id) pair
//   - Group: a shared expense group whose roster references member ids
//   - Expense: a shared expense with payer, splits and participants
//   - VisibilityRow: derived fan-out index row (account must see expense)
//   - Issue: a finding produced by the integrity auditor
//
// # Design principles
//
//  1. No pointers between models; relationships are id strings.
//  2. AliasEdge rows are append-only: created on claim/merge, never mutated,
//     never deleted in normal operation.
//  3. VisibilityRow is derived, not authoritative - it can always be
//     recomputed from Expense.ParticipantEmails.
package models
