// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/AnganSamadder/PayBack-sub004/internal/models"
	"github.com/AnganSamadder/PayBack-sub004/internal/storage"
	pkgerrors "github.com/AnganSamadder/PayBack-sub004/pkg/errors"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateAccount persists a new account, generating its id, canonical member
// id and timestamp when unset.
func (s *SQLiteStore) CreateAccount(ctx context.Context, account *models.Account) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.CanonicalMemberID == "" {
		account.CanonicalMemberID = uuid.New().String()
	}
	if account.CreatedAt == 0 {
		account.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO accounts (id, email, canonical_member_id, display_name, password_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		account.ID, account.Email, account.CanonicalMemberID, account.DisplayName, account.PasswordHash, account.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

func (s *SQLiteStore) scanAccount(ctx context.Context, row *sql.Row) (*models.Account, error) {
	account := &models.Account{}
	err := row.Scan(&account.ID, &account.Email, &account.CanonicalMemberID,
		&account.DisplayName, &account.PasswordHash, &account.CreatedAt)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT member_id FROM account_aliases WHERE account_id = ? ORDER BY member_id",
		account.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get account aliases: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var memberID string
		if err := rows.Scan(&memberID); err != nil {
			return nil, fmt.Errorf("failed to scan account alias: %w", err)
		}
		account.AliasMemberIDs = append(account.AliasMemberIDs, memberID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate account aliases: %w", err)
	}
	return account, nil
}

// GetAccount retrieves an account by id.
func (s *SQLiteStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, email, canonical_member_id, display_name, password_hash, created_at FROM accounts WHERE id = ?",
		id,
	)
	account, err := s.scanAccount(ctx, row)
	if err == sql.ErrNoRows {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "account not found", "id=%s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// GetAccountByEmail retrieves an account by its email address.
func (s *SQLiteStore) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, email, canonical_member_id, display_name, password_hash, created_at FROM accounts WHERE email = ?",
		email,
	)
	account, err := s.scanAccount(ctx, row)
	if err == sql.ErrNoRows {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "account not found", "email=%s", email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}
	return account, nil
}

// GetAccountByCanonicalMember returns the account owning memberID as its
// canonical id, or (nil, nil) when no account does.
func (s *SQLiteStore) GetAccountByCanonicalMember(ctx context.Context, memberID string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, email, canonical_member_id, display_name, password_hash, created_at FROM accounts WHERE canonical_member_id = ?",
		memberID,
	)
	account, err := s.scanAccount(ctx, row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by canonical member: %w", err)
	}
	return account, nil
}

// UpdateAccountAliases replaces the denormalized alias cache for an account.
func (s *SQLiteStore) UpdateAccountAliases(ctx context.Context, accountID string, aliases []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM account_aliases WHERE account_id = ?", accountID); err != nil {
		return fmt.Errorf("failed to clear account aliases: %w", err)
	}
	for _, alias := range aliases {
		_, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO account_aliases (account_id, member_id) VALUES (?, ?)",
			accountID, alias,
		)
		if err != nil {
			return fmt.Errorf("failed to insert account alias: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListAccounts returns every account.
func (s *SQLiteStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, email, canonical_member_id, display_name, password_hash, created_at FROM accounts ORDER BY email",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.Email, &a.CanonicalMemberID, &a.DisplayName, &a.PasswordHash, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

// DeleteAccount removes an account row. Alias cache rows go with it via the
// foreign key; everything else referencing the account is left for the
// janitor, matching the "erase all trace" cleanup model.
func (s *SQLiteStore) DeleteAccount(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "account not found", "id=%s", id)
	}
	return nil
}

// CreateAliasEdge persists an alias edge. Re-inserting an identical
// (alias, canonical) pair is a no-op so that retried cascades converge; an
// insert for an existing alias with a different canonical fails, preserving
// the one-outgoing-edge-per-alias invariant.
func (s *SQLiteStore) CreateAliasEdge(ctx context.Context, edge *models.AliasEdge) error {
	if edge.CreatedAt == 0 {
		edge.CreatedAt = time.Now().Unix()
	}

	existing, err := s.GetAliasEdge(ctx, edge.Alias)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.Canonical == edge.Canonical {
			return nil
		}
		return pkgerrors.Newf(pkgerrors.CodeAliasConflict, "alias already has an edge",
			"alias=%s existing_canonical=%s", edge.Alias, existing.Canonical)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO alias_edges (alias, canonical, owner_account, created_at) VALUES (?, ?, ?, ?)",
		edge.Alias, edge.Canonical, edge.OwnerAccount, edge.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alias edge: %w", err)
	}
	return nil
}

// GetAliasEdge returns the outgoing edge for an alias, or (nil, nil) when the
// alias has none.
func (s *SQLiteStore) GetAliasEdge(ctx context.Context, alias string) (*models.AliasEdge, error) {
	edge := &models.AliasEdge{}
	err := s.db.QueryRowContext(ctx,
		"SELECT alias, canonical, owner_account, created_at FROM alias_edges WHERE alias = ?",
		alias,
	).Scan(&edge.Alias, &edge.Canonical, &edge.OwnerAccount, &edge.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alias edge: %w", err)
	}
	return edge, nil
}

// ListAliasEdgesByCanonical returns every edge targeting the given canonical
// id, using the canonical index.
func (s *SQLiteStore) ListAliasEdgesByCanonical(ctx context.Context, canonical string) ([]models.AliasEdge, error) {
	return s.queryAliasEdges(ctx,
		"SELECT alias, canonical, owner_account, created_at FROM alias_edges WHERE canonical = ? ORDER BY alias",
		canonical,
	)
}

// ListAliasEdges returns the full edge table.
func (s *SQLiteStore) ListAliasEdges(ctx context.Context) ([]models.AliasEdge, error) {
	return s.queryAliasEdges(ctx,
		"SELECT alias, canonical, owner_account, created_at FROM alias_edges ORDER BY alias",
	)
}

func (s *SQLiteStore) queryAliasEdges(ctx context.Context, query string, args ...any) ([]models.AliasEdge, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alias edges: %w", err)
	}
	defer rows.Close()

	var edges []models.AliasEdge
	for rows.Next() {
		var e models.AliasEdge
		if err := rows.Scan(&e.Alias, &e.Canonical, &e.OwnerAccount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alias edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alias edges: %w", err)
	}
	return edges, nil
}

// GetJanitorCursor returns the persisted sweep cursor, or "" when no sweep
// has run yet.
func (s *SQLiteStore) GetJanitorCursor(ctx context.Context) (string, error) {
	var cursor string
	err := s.db.QueryRowContext(ctx, "SELECT cursor FROM janitor_state WHERE id = 1").Scan(&cursor)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get janitor cursor: %w", err)
	}
	return cursor, nil
}

// SetJanitorCursor persists the sweep cursor for the next scheduled run.
func (s *SQLiteStore) SetJanitorCursor(ctx context.Context, cursor string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO janitor_state (id, cursor) VALUES (1, ?) ON CONFLICT(id) DO UPDATE SET cursor = excluded.cursor",
		cursor,
	)
	if err != nil {
		return fmt.Errorf("failed to set janitor cursor: %w", err)
	}
	return nil
}
