// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/AnganSamadder/PayBack-sub004/internal/models"
)

// Store defines the interface for persisting identity-engine data. The
// contract deliberately mirrors an indexed document store: equality lookups
// on authored index keys, bounded pagination, and atomicity only within a
// single entity write. Nothing in the engine may assume a transaction
// spanning two entities; the claim pipeline is built from individually
// idempotent steps instead.
//
// Lookup conventions: GetAliasEdge and GetFriend return (nil, nil) when no
// row exists, because callers routinely probe for absence. GetAccount,
// GetGroup and GetExpense return a NOT_FOUND coded error instead.
type Store interface {
	// Accounts.
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	// GetAccountByCanonicalMember returns the account owning the given
	// member id as its canonical, or (nil, nil) when no account does.
	GetAccountByCanonicalMember(ctx context.Context, memberID string) (*models.Account, error)
	// UpdateAccountAliases replaces the denormalized alias cache in a
	// single write.
	UpdateAccountAliases(ctx context.Context, accountID string, aliases []string) error
	ListAccounts(ctx context.Context) ([]models.Account, error)
	DeleteAccount(ctx context.Context, id string) error

	// Alias edges. Append-only; there is deliberately no update or
	// delete. CreateAliasEdge must be idempotent for an identical
	// (alias, canonical) pair so a retried cascade converges.
	CreateAliasEdge(ctx context.Context, edge *models.AliasEdge) error
	GetAliasEdge(ctx context.Context, alias string) (*models.AliasEdge, error)
	ListAliasEdgesByCanonical(ctx context.Context, canonical string) ([]models.AliasEdge, error)
	ListAliasEdges(ctx context.Context) ([]models.AliasEdge, error)

	// Friend records, keyed by (owner email, member id).
	CreateFriend(ctx context.Context, friend *models.FriendRecord) error
	GetFriend(ctx context.Context, ownerEmail, memberID string) (*models.FriendRecord, error)
	ListFriendsByOwner(ctx context.Context, ownerEmail string) ([]models.FriendRecord, error)
	ListFriendsByMember(ctx context.Context, memberID string) ([]models.FriendRecord, error)
	// ListFriendsPage returns up to limit rows ordered by key, starting
	// after the given cursor ("" means from the beginning), plus the
	// cursor for the next page ("" when the scan is complete).
	ListFriendsPage(ctx context.Context, cursor string, limit int) ([]models.FriendRecord, string, error)
	// UpdateFriend rewrites the row currently keyed by oldMemberID; the
	// record may carry a new MemberID.
	UpdateFriend(ctx context.Context, ownerEmail, oldMemberID string, friend *models.FriendRecord) error
	DeleteFriend(ctx context.Context, ownerEmail, memberID string) error

	// Groups.
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, id string) (*models.Group, error)
	ListGroupsByMember(ctx context.Context, memberID string) ([]models.Group, error)
	UpdateGroupMembers(ctx context.Context, groupID string, members []models.GroupMember) error

	// Expenses.
	CreateExpense(ctx context.Context, expense *models.Expense) error
	GetExpense(ctx context.Context, id string) (*models.Expense, error)
	ListExpenses(ctx context.Context) ([]models.Expense, error)
	ListExpensesByMember(ctx context.Context, memberID string) ([]models.Expense, error)
	UpdateExpense(ctx context.Context, expense *models.Expense) error

	// Visibility fan-out rows.
	ListVisibilityByExpense(ctx context.Context, expenseID string) ([]models.VisibilityRow, error)
	CreateVisibilityRow(ctx context.Context, row *models.VisibilityRow) error
	DeleteVisibilityRow(ctx context.Context, accountID, expenseID string) error

	// Janitor sweep cursor, persisted between scheduled runs.
	GetJanitorCursor(ctx context.Context) (string, error)
	SetJanitorCursor(ctx context.Context, cursor string) error

	// Close releases any resources held by the store.
	Close() error
}
