package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AnganSamadder/PayBack-sub004/internal/identity"
	"github.com/AnganSamadder/PayBack-sub004/internal/metrics"
	"github.com/AnganSamadder/PayBack-sub004/internal/models"
	"github.com/AnganSamadder/PayBack-sub004/internal/rewrite"
	"github.com/AnganSamadder/PayBack-sub004/internal/storage"
)

// LinkInfo carries the claiming account's details into a cascade so friend
// records and expense participants can be linked as they are rewritten. The
// zero value means "no account link" and is used by manual merges of
// unlinked identities.
type LinkInfo struct {
	AccountID   string
	Email       string
	DisplayName string
}

// CascadeRewriter propagates a confirmed canonicalization (target ->
// canonical) through every dependent record: group rosters, expenses with
// their splits and participants, and friend address books. Each entity is
// rewritten and written back individually; the whole pass is keyed only by
// the (target, canonical) pair, so re-running it after a partial failure
// converges instead of duplicating work.
type CascadeRewriter struct {
	store      storage.Store
	visibility *VisibilityReconciler
	metrics    *metrics.Metrics
}

// NewCascadeRewriter creates a rewriter over the given store.
func NewCascadeRewriter(store storage.Store, visibility *VisibilityReconciler, m *metrics.Metrics) *CascadeRewriter {
	return &CascadeRewriter{store: store, visibility: visibility, metrics: m}
}

// Rewrite runs the full cascade for one canonicalization.
func (c *CascadeRewriter) Rewrite(ctx context.Context, targetID, canonicalID string, link LinkInfo) error {
	target := identity.Normalize(targetID)
	canonical := identity.Normalize(canonicalID)

	if err := c.rewriteGroups(ctx, target, canonical); err != nil {
		return err
	}
	if err := c.rewriteExpenses(ctx, target, canonical, link); err != nil {
		return err
	}
	if err := c.rewriteFriends(ctx, target, canonical, link); err != nil {
		return err
	}
	return nil
}

// rewriteGroups and the other rewrite passes list dependents by BOTH the
// target and the canonical id. A crashed pass may have already rewritten a
// record to the canonical id; listing by target alone would skip it on
// retry and leave follow-up work (visibility fan-out, link stamping)
// undone forever.

func (c *CascadeRewriter) rewriteGroups(ctx context.Context, target, canonical string) error {
	groups, err := c.listGroups(ctx, target, canonical)
	if err != nil {
		return err
	}
	for _, group := range groups {
		members, changed := rewrite.GroupMembers(group.Members, target, canonical)
		if !changed {
			continue
		}
		if err := c.store.UpdateGroupMembers(ctx, group.ID, members); err != nil {
			return fmt.Errorf("failed to rewrite group %q: %w", group.ID, err)
		}
		c.metrics.GroupsRewritten.Inc()
		slog.Info("Group roster rewritten",
			"group_id", group.ID,
			"target", target,
			"canonical", canonical,
			"members", len(members),
		)
	}
	return nil
}

func (c *CascadeRewriter) listGroups(ctx context.Context, target, canonical string) ([]models.Group, error) {
	groups, err := c.store.ListGroupsByMember(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups for %q: %w", target, err)
	}
	more, err := c.store.ListGroupsByMember(ctx, canonical)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups for %q: %w", canonical, err)
	}
	seen := map[string]bool{}
	for i := range groups {
		seen[groups[i].ID] = true
	}
	for i := range more {
		if !seen[more[i].ID] {
			groups = append(groups, more[i])
		}
	}
	return groups, nil
}

func (c *CascadeRewriter) rewriteExpenses(ctx context.Context, target, canonical string, link LinkInfo) error {
	expenses, err := c.listExpenses(ctx, target, canonical)
	if err != nil {
		return err
	}
	for i := range expenses {
		expense := &expenses[i]
		changed := false

		if rewritten := rewrite.MemberID(expense.PaidByMemberID, target, canonical); rewritten != expense.PaidByMemberID {
			expense.PaidByMemberID = rewritten
			changed = true
		}
		if involved, didChange := rewrite.MemberIDs(expense.InvolvedMemberIDs, target, canonical); didChange {
			expense.InvolvedMemberIDs = involved
			changed = true
		}
		if splits, didChange := rewrite.Splits(expense.Splits, target, canonical); didChange {
			expense.Splits = splits
			changed = true
		}
		if participants, didChange := rewrite.Participants(expense.Participants, target, canonical); didChange {
			expense.Participants = participants
			changed = true
		}
		changed = c.linkParticipant(expense, canonical, link) || changed
		if emails, didChange := c.unionEmails(expense.ParticipantEmails, link.Email); didChange {
			expense.ParticipantEmails = emails
			changed = true
		}

		if changed {
			if err := c.store.UpdateExpense(ctx, expense); err != nil {
				return fmt.Errorf("failed to rewrite expense %q: %w", expense.ID, err)
			}
			c.metrics.ExpensesRewritten.Inc()
			slog.Info("Expense rewritten",
				"expense_id", expense.ID,
				"target", target,
				"canonical", canonical,
			)
		}

		// Reconcile even when nothing changed: a retried cascade may have
		// written the expense last time and crashed before fan-out.
		if err := c.visibility.ReconcileExpense(ctx, expense); err != nil {
			return fmt.Errorf("failed to reconcile visibility for %q: %w", expense.ID, err)
		}
	}
	return nil
}

func (c *CascadeRewriter) listExpenses(ctx context.Context, target, canonical string) ([]models.Expense, error) {
	expenses, err := c.store.ListExpensesByMember(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses for %q: %w", target, err)
	}
	more, err := c.store.ListExpensesByMember(ctx, canonical)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses for %q: %w", canonical, err)
	}
	seen := map[string]bool{}
	for i := range expenses {
		seen[expenses[i].ID] = true
	}
	for i := range more {
		if !seen[more[i].ID] {
			expenses = append(expenses, more[i])
		}
	}
	return expenses, nil
}

// linkParticipant stamps the claiming account's link details onto the
// canonical participant row, if present.
func (c *CascadeRewriter) linkParticipant(expense *models.Expense, canonical string, link LinkInfo) bool {
	if link.AccountID == "" {
		return false
	}
	changed := false
	for i := range expense.Participants {
		if identity.Normalize(expense.Participants[i].MemberID) != canonical {
			continue
		}
		if expense.Participants[i].LinkedAccountID != link.AccountID {
			expense.Participants[i].LinkedAccountID = link.AccountID
			changed = true
		}
		if link.Email != "" && expense.Participants[i].Email != link.Email {
			expense.Participants[i].Email = link.Email
			changed = true
		}
	}
	return changed
}

func (c *CascadeRewriter) unionEmails(emails []string, claimerEmail string) ([]string, bool) {
	if claimerEmail == "" {
		return emails, false
	}
	return rewrite.Emails(emails, claimerEmail)
}

func (c *CascadeRewriter) rewriteFriends(ctx context.Context, target, canonical string, link LinkInfo) error {
	duplicates, err := c.store.ListFriendsByMember(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to list friends for %q: %w", target, err)
	}
	for i := range duplicates {
		friend := &duplicates[i]

		existing, err := c.store.GetFriend(ctx, friend.OwnerEmail, canonical)
		if err != nil {
			return err
		}
		if existing != nil {
			// The canonical row wins. Carry the discarded row's original
			// name over when the survivor has none, then drop the
			// duplicate: one person, one row per address book.
			if existing.OriginalName == "" && friend.OriginalName != "" {
				existing.OriginalName = friend.OriginalName
				if err := c.store.UpdateFriend(ctx, existing.OwnerEmail, existing.MemberID, existing); err != nil {
					return err
				}
			}
			if err := c.store.DeleteFriend(ctx, friend.OwnerEmail, friend.MemberID); err != nil {
				return fmt.Errorf("failed to delete duplicate friend %q/%q: %w", friend.OwnerEmail, friend.MemberID, err)
			}
			c.metrics.FriendsRewritten.Inc()
			slog.Info("Duplicate friend row collapsed",
				"owner", friend.OwnerEmail,
				"discarded", friend.MemberID,
				"kept", canonical,
			)
			continue
		}

		oldMemberID := friend.MemberID
		friend.MemberID = canonical
		if err := c.store.UpdateFriend(ctx, friend.OwnerEmail, oldMemberID, friend); err != nil {
			return fmt.Errorf("failed to re-key friend %q/%q: %w", friend.OwnerEmail, oldMemberID, err)
		}
		c.metrics.FriendsRewritten.Inc()
	}

	if link == (LinkInfo{}) {
		return nil
	}

	// Stamp link details on every row now keyed by the canonical id. Listed
	// fresh rather than reusing the rows above: rows rewritten by an
	// interrupted pass carry no link yet, and the collapse may have updated
	// the surviving row since it was read.
	linked, err := c.store.ListFriendsByMember(ctx, canonical)
	if err != nil {
		return fmt.Errorf("failed to list friends for %q: %w", canonical, err)
	}
	for i := range linked {
		friend := &linked[i]
		changed := false

		if link.AccountID != "" && (!friend.HasLinkedAccount ||
			friend.LinkedAccountID != link.AccountID ||
			friend.LinkedAccountEmail != link.Email ||
			friend.LinkedMemberID != canonical) {
			friend.HasLinkedAccount = true
			friend.LinkedAccountID = link.AccountID
			friend.LinkedAccountEmail = link.Email
			friend.LinkedMemberID = canonical
			changed = true
		}
		if link.DisplayName != "" && friend.Name != link.DisplayName {
			friend.Name = link.DisplayName
			changed = true
		}
		if friend.Nickname != "" && strings.EqualFold(friend.Nickname, link.DisplayName) {
			// The nickname is just the person's real name now; keep the
			// history under original_name ("originally called X").
			if friend.OriginalName == "" {
				friend.OriginalName = friend.Nickname
			}
			friend.Nickname = ""
			changed = true
		}
		if !changed {
			continue
		}
		if err := c.store.UpdateFriend(ctx, friend.OwnerEmail, friend.MemberID, friend); err != nil {
			return fmt.Errorf("failed to patch friend %q/%q: %w", friend.OwnerEmail, friend.MemberID, err)
		}
		c.metrics.FriendsRewritten.Inc()
	}
	return nil
}
