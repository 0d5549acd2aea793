package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AnganSamadder/PayBack-sub004/internal/models"
	pkgerrors "github.com/AnganSamadder/PayBack-sub004/pkg/errors"
)

// CreateExpense persists a new expense with its splits, participants and
// email set. One expense is one document: the write is a single transaction,
// and no expense write spans any other entity.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO expenses (id, group_id, description, total, paid_by_member_id, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		expense.ID, expense.GroupID, expense.Description, expense.Total, expense.PaidByMemberID, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	if err := insertExpenseChildren(ctx, tx, expense); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateExpense replaces an expense and all its child rows in one write.
func (s *SQLiteStore) UpdateExpense(ctx context.Context, expense *models.Expense) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE expenses SET group_id = ?, description = ?, total = ?, paid_by_member_id = ? WHERE id = ?",
		expense.GroupID, expense.Description, expense.Total, expense.PaidByMemberID, expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "expense not found", "id=%s", expense.ID)
	}

	for _, table := range []string{"expense_involved", "expense_splits", "expense_participants", "expense_emails"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE expense_id = ?", expense.ID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if err := insertExpenseChildren(ctx, tx, expense); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertExpenseChildren(ctx context.Context, tx *sql.Tx, expense *models.Expense) error {
	for _, memberID := range expense.InvolvedMemberIDs {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO expense_involved (expense_id, member_id) VALUES (?, ?)",
			expense.ID, memberID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert involved member: %w", err)
		}
	}
	for _, split := range expense.Splits {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO expense_splits (expense_id, member_id, amount, is_settled) VALUES (?, ?, ?, ?)",
			expense.ID, split.MemberID, split.Amount, split.IsSettled,
		)
		if err != nil {
			return fmt.Errorf("failed to insert split: %w", err)
		}
	}
	for _, p := range expense.Participants {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO expense_participants (expense_id, member_id, name, linked_account_id, email) VALUES (?, ?, ?, ?, ?)",
			expense.ID, p.MemberID, p.Name, p.LinkedAccountID, p.Email,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}
	for _, email := range expense.ParticipantEmails {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO expense_emails (expense_id, email) VALUES (?, ?)",
			expense.ID, email,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant email: %w", err)
		}
	}
	return nil
}

// GetExpense retrieves an expense by id, including splits, participants and
// the participant email set.
func (s *SQLiteStore) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	expense := &models.Expense{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, group_id, description, total, paid_by_member_id, created_at FROM expenses WHERE id = ?",
		id,
	).Scan(&expense.ID, &expense.GroupID, &expense.Description, &expense.Total, &expense.PaidByMemberID, &expense.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "expense not found", "id=%s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	if err := s.loadExpenseChildren(ctx, expense); err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *SQLiteStore) loadExpenseChildren(ctx context.Context, expense *models.Expense) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT member_id FROM expense_involved WHERE expense_id = ? ORDER BY rowid", expense.ID)
	if err != nil {
		return fmt.Errorf("failed to get involved members: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var memberID string
		if err := rows.Scan(&memberID); err != nil {
			return fmt.Errorf("failed to scan involved member: %w", err)
		}
		expense.InvolvedMemberIDs = append(expense.InvolvedMemberIDs, memberID)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate involved members: %w", err)
	}

	splitRows, err := s.db.QueryContext(ctx,
		"SELECT member_id, amount, is_settled FROM expense_splits WHERE expense_id = ? ORDER BY rowid", expense.ID)
	if err != nil {
		return fmt.Errorf("failed to get splits: %w", err)
	}
	defer splitRows.Close()
	for splitRows.Next() {
		var split models.Split
		if err := splitRows.Scan(&split.MemberID, &split.Amount, &split.IsSettled); err != nil {
			return fmt.Errorf("failed to scan split: %w", err)
		}
		expense.Splits = append(expense.Splits, split)
	}
	if err := splitRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate splits: %w", err)
	}

	pRows, err := s.db.QueryContext(ctx,
		"SELECT member_id, name, linked_account_id, email FROM expense_participants WHERE expense_id = ? ORDER BY rowid", expense.ID)
	if err != nil {
		return fmt.Errorf("failed to get participants: %w", err)
	}
	defer pRows.Close()
	for pRows.Next() {
		var p models.Participant
		if err := pRows.Scan(&p.MemberID, &p.Name, &p.LinkedAccountID, &p.Email); err != nil {
			return fmt.Errorf("failed to scan participant: %w", err)
		}
		expense.Participants = append(expense.Participants, p)
	}
	if err := pRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate participants: %w", err)
	}

	emailRows, err := s.db.QueryContext(ctx,
		"SELECT email FROM expense_emails WHERE expense_id = ? ORDER BY email", expense.ID)
	if err != nil {
		return fmt.Errorf("failed to get participant emails: %w", err)
	}
	defer emailRows.Close()
	for emailRows.Next() {
		var email string
		if err := emailRows.Scan(&email); err != nil {
			return fmt.Errorf("failed to scan participant email: %w", err)
		}
		expense.ParticipantEmails = append(expense.ParticipantEmails, email)
	}
	if err := emailRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate participant emails: %w", err)
	}
	return nil
}

// ListExpenses returns every expense. Used by the integrity auditor; the
// engine itself only ever queries by member.
func (s *SQLiteStore) ListExpenses(ctx context.Context) ([]models.Expense, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM expenses ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan expense id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expense ids: %w", err)
	}

	var expenses []models.Expense
	for _, id := range ids {
		expense, err := s.GetExpense(ctx, id)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *expense)
	}
	return expenses, nil
}

// ListExpensesByMember returns every expense touching the member id as
// payer, involved member, split member or participant.
func (s *SQLiteStore) ListExpensesByMember(ctx context.Context, memberID string) ([]models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM expenses WHERE paid_by_member_id = ?
		 UNION SELECT expense_id FROM expense_involved WHERE member_id = ?
		 UNION SELECT expense_id FROM expense_splits WHERE member_id = ?
		 UNION SELECT expense_id FROM expense_participants WHERE member_id = ?
		 ORDER BY 1`,
		memberID, memberID, memberID, memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses by member: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan expense id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expense ids: %w", err)
	}

	var expenses []models.Expense
	for _, id := range ids {
		expense, err := s.GetExpense(ctx, id)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *expense)
	}
	return expenses, nil
}

// ListVisibilityByExpense returns the current fan-out rows for an expense.
func (s *SQLiteStore) ListVisibilityByExpense(ctx context.Context, expenseID string) ([]models.VisibilityRow, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT account_id, expense_id FROM user_expenses WHERE expense_id = ? ORDER BY account_id",
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query visibility rows: %w", err)
	}
	defer rows.Close()

	var result []models.VisibilityRow
	for rows.Next() {
		var r models.VisibilityRow
		if err := rows.Scan(&r.AccountID, &r.ExpenseID); err != nil {
			return nil, fmt.Errorf("failed to scan visibility row: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate visibility rows: %w", err)
	}
	return result, nil
}

// CreateVisibilityRow inserts a fan-out row; inserting an existing row is a
// no-op so reconciliation stays idempotent.
func (s *SQLiteStore) CreateVisibilityRow(ctx context.Context, row *models.VisibilityRow) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO user_expenses (account_id, expense_id) VALUES (?, ?)",
		row.AccountID, row.ExpenseID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert visibility row: %w", err)
	}
	return nil
}

// DeleteVisibilityRow removes a fan-out row; deleting an absent row is a
// no-op.
func (s *SQLiteStore) DeleteVisibilityRow(ctx context.Context, accountID, expenseID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM user_expenses WHERE account_id = ? AND expense_id = ?",
		accountID, expenseID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete visibility row: %w", err)
	}
	return nil
}
