package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/AnganSamadder/PayBack-sub004/internal/models"
	"github.com/AnganSamadder/PayBack-sub004/internal/storage"
)

const friendColumns = "owner_email, member_id, name, nickname, original_name, has_linked_account, linked_account_id, linked_account_email, linked_member_id, created_at"

func scanFriend(scanner interface{ Scan(...any) error }) (*models.FriendRecord, error) {
	f := &models.FriendRecord{}
	err := scanner.Scan(&f.OwnerEmail, &f.MemberID, &f.Name, &f.Nickname, &f.OriginalName,
		&f.HasLinkedAccount, &f.LinkedAccountID, &f.LinkedAccountEmail, &f.LinkedMemberID, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// CreateFriend persists a new address-book row.
func (s *SQLiteStore) CreateFriend(ctx context.Context, friend *models.FriendRecord) error {
	if friend.CreatedAt == 0 {
		friend.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO friends ("+friendColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		friend.OwnerEmail, friend.MemberID, friend.Name, friend.Nickname, friend.OriginalName,
		friend.HasLinkedAccount, friend.LinkedAccountID, friend.LinkedAccountEmail, friend.LinkedMemberID,
		friend.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert friend: %w", err)
	}
	return nil
}

// GetFriend retrieves one row by its (owner email, member id) key, returning
// (nil, nil) when absent.
func (s *SQLiteStore) GetFriend(ctx context.Context, ownerEmail, memberID string) (*models.FriendRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+friendColumns+" FROM friends WHERE owner_email = ? AND member_id = ?",
		ownerEmail, memberID,
	)
	friend, err := scanFriend(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get friend: %w", err)
	}
	return friend, nil
}

// ListFriendsByOwner returns one account's whole address book.
func (s *SQLiteStore) ListFriendsByOwner(ctx context.Context, ownerEmail string) ([]models.FriendRecord, error) {
	return s.queryFriends(ctx,
		"SELECT "+friendColumns+" FROM friends WHERE owner_email = ? ORDER BY member_id",
		ownerEmail,
	)
}

// ListFriendsByMember returns every row referencing a member id, across all
// owners.
func (s *SQLiteStore) ListFriendsByMember(ctx context.Context, memberID string) ([]models.FriendRecord, error) {
	return s.queryFriends(ctx,
		"SELECT "+friendColumns+" FROM friends WHERE member_id = ? ORDER BY owner_email",
		memberID,
	)
}

// ListFriendsPage returns up to limit rows in key order starting after
// cursor. The cursor encodes the last key seen (storage.EncodeFriendCursor);
// an empty return cursor means the scan reached the end of the table.
func (s *SQLiteStore) ListFriendsPage(ctx context.Context, cursor string, limit int) ([]models.FriendRecord, string, error) {
	afterOwner, afterMember := storage.DecodeFriendCursor(cursor)

	friends, err := s.queryFriends(ctx,
		`SELECT `+friendColumns+` FROM friends
		 WHERE owner_email > ? OR (owner_email = ? AND member_id > ?)
		 ORDER BY owner_email, member_id LIMIT ?`,
		afterOwner, afterOwner, afterMember, limit,
	)
	if err != nil {
		return nil, "", err
	}
	if len(friends) < limit {
		return friends, "", nil
	}
	last := friends[len(friends)-1]
	return friends, storage.EncodeFriendCursor(last.OwnerEmail, last.MemberID), nil
}

// UpdateFriend rewrites the row currently keyed by oldMemberID. The record
// may carry a new member id, so the key columns are updated too.
func (s *SQLiteStore) UpdateFriend(ctx context.Context, ownerEmail, oldMemberID string, friend *models.FriendRecord) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE friends SET member_id = ?, name = ?, nickname = ?, original_name = ?,
		 has_linked_account = ?, linked_account_id = ?, linked_account_email = ?, linked_member_id = ?
		 WHERE owner_email = ? AND member_id = ?`,
		friend.MemberID, friend.Name, friend.Nickname, friend.OriginalName,
		friend.HasLinkedAccount, friend.LinkedAccountID, friend.LinkedAccountEmail, friend.LinkedMemberID,
		ownerEmail, oldMemberID,
	)
	if err != nil {
		return fmt.Errorf("failed to update friend: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("friend not found: %s/%s", ownerEmail, oldMemberID)
	}
	return nil
}

// DeleteFriend hard-deletes one address-book row. Deleting an absent row is
// a no-op so that retried cascades converge.
func (s *SQLiteStore) DeleteFriend(ctx context.Context, ownerEmail, memberID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM friends WHERE owner_email = ? AND member_id = ?",
		ownerEmail, memberID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete friend: %w", err)
	}
	return nil
}

func (s *SQLiteStore) queryFriends(ctx context.Context, query string, args ...any) ([]models.FriendRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query friends: %w", err)
	}
	defer rows.Close()

	var friends []models.FriendRecord
	for rows.Next() {
		f, err := scanFriend(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan friend: %w", err)
		}
		friends = append(friends, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate friends: %w", err)
	}
	return friends, nil
}
