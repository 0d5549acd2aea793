// Package rewrite implements the pure record-transformation rules applied
// when one member identity is canonicalized to another. All functions are
// side-effect free: they take the current rows, the target id being
// rewritten and the canonical id it collapses into, and return the new rows
// plus whether anything changed.
package rewrite

import (
	"github.com/AnganSamadder/PayBack-sub004/internal/identity"
	"github.com/AnganSamadder/PayBack-sub004/internal/models"
)

// MemberID rewrites a single member id, returning canonical when the id
// matches the target (after normalization), the normalized id otherwise.
func MemberID(id, target, canonical string) string {
	normalized := identity.Normalize(id)
	if normalized == identity.Normalize(target) {
		return identity.Normalize(canonical)
	}
	return normalized
}

// MemberIDs rewrites a member id list and dedupes the result, preserving
// first-seen order.
func MemberIDs(ids []string, target, canonical string) ([]string, bool) {
	changed := false
	seen := map[string]bool{}
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		rewritten := MemberID(id, target, canonical)
		if rewritten != id {
			changed = true
		}
		if seen[rewritten] {
			changed = true
			continue
		}
		seen[rewritten] = true
		result = append(result, rewritten)
	}
	return result, changed
}

// GroupMembers rewrites a group roster. When the rewrite collapses two
// entries into one id, the entry flagged IsCurrentUser wins; with neither or
// both flagged, the first wins. The roster stays id-unique.
func GroupMembers(members []models.GroupMember, target, canonical string) ([]models.GroupMember, bool) {
	changed := false
	index := map[string]int{}
	result := make([]models.GroupMember, 0, len(members))
	for _, member := range members {
		rewritten := member
		rewritten.ID = MemberID(member.ID, target, canonical)
		if rewritten.ID != member.ID {
			changed = true
		}

		at, dup := index[rewritten.ID]
		if !dup {
			index[rewritten.ID] = len(result)
			result = append(result, rewritten)
			continue
		}
		changed = true
		if rewritten.IsCurrentUser && !result[at].IsCurrentUser {
			result[at] = rewritten
		}
	}
	return result, changed
}

// Splits rewrites split rows, merging rows that land on the same post-rewrite
// member id. Amounts are summed and settlement flags combined with logical
// AND: a merged row is settled only if every constituent row was. This is
// the rule that keeps sum(splits.amount) equal to the expense total across a
// merge - an overwrite instead of a merge would silently drop money.
func Splits(splits []models.Split, target, canonical string) ([]models.Split, bool) {
	changed := false
	index := map[string]int{}
	result := make([]models.Split, 0, len(splits))
	for _, split := range splits {
		rewritten := split
		rewritten.MemberID = MemberID(split.MemberID, target, canonical)
		if rewritten.MemberID != split.MemberID {
			changed = true
		}

		at, dup := index[rewritten.MemberID]
		if !dup {
			index[rewritten.MemberID] = len(result)
			result = append(result, rewritten)
			continue
		}
		changed = true
		result[at].Amount += rewritten.Amount
		result[at].IsSettled = result[at].IsSettled && rewritten.IsSettled
	}
	return result, changed
}

// Participants rewrites participant rows, merging duplicates by preferring
// whichever row carries link details (non-empty LinkedAccountID or Email).
func Participants(participants []models.Participant, target, canonical string) ([]models.Participant, bool) {
	changed := false
	index := map[string]int{}
	result := make([]models.Participant, 0, len(participants))
	for _, p := range participants {
		rewritten := p
		rewritten.MemberID = MemberID(p.MemberID, target, canonical)
		if rewritten.MemberID != p.MemberID {
			changed = true
		}

		at, dup := index[rewritten.MemberID]
		if !dup {
			index[rewritten.MemberID] = len(result)
			result = append(result, rewritten)
			continue
		}
		changed = true
		kept := result[at]
		if kept.LinkedAccountID == "" && rewritten.LinkedAccountID != "" {
			kept.LinkedAccountID = rewritten.LinkedAccountID
		}
		if kept.Email == "" && rewritten.Email != "" {
			kept.Email = rewritten.Email
		}
		if kept.Name == "" {
			kept.Name = rewritten.Name
		}
		result[at] = kept
	}
	return result, changed
}

// Emails returns the union of the existing email set and extra, preserving
// first-seen order.
func Emails(emails []string, extra ...string) ([]string, bool) {
	changed := false
	seen := map[string]bool{}
	result := make([]string, 0, len(emails)+len(extra))
	for _, email := range emails {
		normalized := identity.Normalize(email)
		if normalized == "" || seen[normalized] {
			changed = changed || normalized != email
			continue
		}
		if normalized != email {
			changed = true
		}
		seen[normalized] = true
		result = append(result, normalized)
	}
	for _, email := range extra {
		normalized := identity.Normalize(email)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		result = append(result, normalized)
		changed = true
	}
	return result, changed
}
