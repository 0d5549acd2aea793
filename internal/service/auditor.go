package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AnganSamadder/PayBack-sub004/internal/identity"
	"github.com/AnganSamadder/PayBack-sub004/internal/metrics"
	"github.com/AnganSamadder/PayBack-sub004/internal/models"
	"github.com/AnganSamadder/PayBack-sub004/internal/storage"
)

// IntegrityReport is the result of one audit pass.
type IntegrityReport struct {
	Issues  []models.Issue `json:"issues"`
	Summary string         `json:"summary"`
}

// Auditor runs read-only diagnostic scans over the identity data, looking
// for orphaned links and identity fragmentation. It never mutates state,
// and a bad record never aborts the pass: findings are aggregated and the
// scan continues.
type Auditor struct {
	store   storage.Store
	metrics *metrics.Metrics
}

// NewAuditor creates an Auditor over the given store.
func NewAuditor(store storage.Store, m *metrics.Metrics) *Auditor {
	return &Auditor{store: store, metrics: m}
}

// CheckDataIntegrity runs all scans and returns the aggregated findings.
func (a *Auditor) CheckDataIntegrity(ctx context.Context) (*IntegrityReport, error) {
	accounts, err := a.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	accountIDs := map[string]bool{}
	accountEmails := map[string]bool{}
	for _, account := range accounts {
		accountIDs[account.ID] = true
		accountEmails[identity.Normalize(account.Email)] = true
	}

	var issues []models.Issue
	issues = append(issues, a.scanFriendLinks(ctx, accountIDs, accountEmails)...)
	issues = append(issues, a.scanFragmentation(ctx, accounts)...)
	issues = append(issues, a.scanRosterCollisions(ctx, accounts)...)
	issues = append(issues, a.scanExpenseParticipants(ctx, accountIDs)...)

	errorCount, warningCount := 0, 0
	for _, issue := range issues {
		a.metrics.IntegrityIssues.WithLabelValues(string(issue.Severity)).Inc()
		if issue.Severity == models.SeverityError {
			errorCount++
		} else {
			warningCount++
		}
	}

	summary := fmt.Sprintf("integrity check complete: %d issues (%d errors, %d warnings) across %d accounts",
		len(issues), errorCount, warningCount, len(accounts))
	slog.Info("Integrity check finished", "errors", errorCount, "warnings", warningCount)
	return &IntegrityReport{Issues: issues, Summary: summary}, nil
}

// scanFriendLinks finds friend records whose linked account no longer
// exists.
func (a *Auditor) scanFriendLinks(ctx context.Context, accountIDs, accountEmails map[string]bool) []models.Issue {
	var issues []models.Issue
	cursor := ""
	for {
		friends, next, err := a.store.ListFriendsPage(ctx, cursor, 200)
		if err != nil {
			slog.Error("Friend link scan failed, skipping remainder", "error", err)
			return issues
		}
		for _, friend := range friends {
			if !friend.HasLinkedAccount {
				continue
			}
			idOK := friend.LinkedAccountID != "" && accountIDs[friend.LinkedAccountID]
			emailOK := friend.LinkedAccountEmail != "" && accountEmails[identity.Normalize(friend.LinkedAccountEmail)]
			if idOK || emailOK {
				continue
			}
			issues = append(issues, models.Issue{
				Kind:     "orphaned_friend_link",
				Severity: models.SeverityError,
				Detail: fmt.Sprintf("friend %q of %s links to missing account (id=%q email=%q)",
					friend.MemberID, friend.OwnerEmail, friend.LinkedAccountID, friend.LinkedAccountEmail),
				OwnerEmail: friend.OwnerEmail,
				MemberID:   friend.MemberID,
			})
		}
		if next == "" {
			return issues
		}
		cursor = next
	}
}

// scanFragmentation finds multiple distinct member ids sharing one
// normalized display name inside a single address book, which usually means
// one person was never merged.
func (a *Auditor) scanFragmentation(ctx context.Context, accounts []models.Account) []models.Issue {
	var issues []models.Issue
	for _, account := range accounts {
		friends, err := a.store.ListFriendsByOwner(ctx, account.Email)
		if err != nil {
			slog.Error("Fragmentation scan failed for account", "account", account.ID, "error", err)
			continue
		}
		byName := map[string][]string{}
		for _, friend := range friends {
			name := identity.Normalize(friend.Name)
			if name == "" {
				continue
			}
			byName[name] = append(byName[name], friend.MemberID)
		}
		for name, memberIDs := range byName {
			if len(memberIDs) < 2 {
				continue
			}
			issues = append(issues, models.Issue{
				Kind:     "fragmented_identity",
				Severity: models.SeverityWarning,
				Detail: fmt.Sprintf("account %s has %d member ids named %q: %v",
					account.Email, len(memberIDs), name, memberIDs),
				OwnerEmail: account.Email,
			})
		}
	}
	return issues
}

// scanRosterCollisions finds group roster entries whose display name matches
// a friend record of the group owner but whose member id differs - likely
// the same person under two identities.
func (a *Auditor) scanRosterCollisions(ctx context.Context, accounts []models.Account) []models.Issue {
	byID := map[string]models.Account{}
	for _, account := range accounts {
		byID[account.ID] = account
	}

	var issues []models.Issue
	for _, account := range accounts {
		friends, err := a.store.ListFriendsByOwner(ctx, account.Email)
		if err != nil {
			slog.Error("Roster collision scan failed for account", "account", account.ID, "error", err)
			continue
		}
		nameToMember := map[string]string{}
		for _, friend := range friends {
			nameToMember[identity.Normalize(friend.Name)] = identity.Normalize(friend.MemberID)
		}

		groups, err := a.store.ListGroupsByMember(ctx, identity.Normalize(account.CanonicalMemberID))
		if err != nil {
			slog.Error("Roster collision scan failed listing groups", "account", account.ID, "error", err)
			continue
		}
		for _, group := range groups {
			if group.OwnerAccount != account.ID {
				continue
			}
			for _, member := range group.Members {
				known, ok := nameToMember[identity.Normalize(member.Name)]
				if !ok || known == identity.Normalize(member.ID) {
					continue
				}
				issues = append(issues, models.Issue{
					Kind:     "roster_name_collision",
					Severity: models.SeverityWarning,
					Detail: fmt.Sprintf("group %s member %q (%s) shares a name with friend id %s of %s",
						group.ID, member.Name, member.ID, known, account.Email),
					OwnerEmail: account.Email,
					MemberID:   member.ID,
				})
			}
		}
	}
	return issues
}

// scanExpenseParticipants finds expense participants whose linked-account
// reference is dangling.
func (a *Auditor) scanExpenseParticipants(ctx context.Context, accountIDs map[string]bool) []models.Issue {
	expenses, err := a.store.ListExpenses(ctx)
	if err != nil {
		slog.Error("Expense participant scan failed", "error", err)
		return nil
	}
	var issues []models.Issue
	for _, expense := range expenses {
		for _, participant := range expense.Participants {
			if participant.LinkedAccountID == "" || accountIDs[participant.LinkedAccountID] {
				continue
			}
			issues = append(issues, models.Issue{
				Kind:     "dangling_participant_link",
				Severity: models.SeverityError,
				Detail: fmt.Sprintf("expense %s participant %q links to missing account %s",
					expense.ID, participant.MemberID, participant.LinkedAccountID),
				MemberID:  participant.MemberID,
				ExpenseID: expense.ID,
			})
		}
	}
	return issues
}
