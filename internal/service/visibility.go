package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AnganSamadder/PayBack-sub004/internal/metrics"
	"github.com/AnganSamadder/PayBack-sub004/internal/models"
	"github.com/AnganSamadder/PayBack-sub004/internal/storage"
	pkgerrors "github.com/AnganSamadder/PayBack-sub004/pkg/errors"
)

// VisibilityReconciler keeps the user_expenses fan-out index consistent with
// an expense's participant set. Rows are derived state: the reconciler may
// insert and delete them freely, and reconciling twice with the same input
// is a no-op the second time.
type VisibilityReconciler struct {
	store   storage.Store
	metrics *metrics.Metrics
}

// NewVisibilityReconciler creates a reconciler over the given store.
func NewVisibilityReconciler(store storage.Store, m *metrics.Metrics) *VisibilityReconciler {
	return &VisibilityReconciler{store: store, metrics: m}
}

// Reconcile computes the symmetric difference between the current visibility
// rows for the expense and expectedAccountIDs, inserting missing rows and
// deleting extra ones.
func (r *VisibilityReconciler) Reconcile(ctx context.Context, expenseID string, expectedAccountIDs []string) error {
	current, err := r.store.ListVisibilityByExpense(ctx, expenseID)
	if err != nil {
		return fmt.Errorf("failed to list visibility rows: %w", err)
	}

	expected := map[string]bool{}
	for _, accountID := range expectedAccountIDs {
		expected[accountID] = true
	}
	have := map[string]bool{}
	for _, row := range current {
		have[row.AccountID] = true
	}

	inserted, deleted := 0, 0
	for accountID := range expected {
		if have[accountID] {
			continue
		}
		row := &models.VisibilityRow{AccountID: accountID, ExpenseID: expenseID}
		if err := r.store.CreateVisibilityRow(ctx, row); err != nil {
			return fmt.Errorf("failed to insert visibility row: %w", err)
		}
		r.metrics.VisibilityInserts.Inc()
		inserted++
	}
	for _, row := range current {
		if expected[row.AccountID] {
			continue
		}
		if err := r.store.DeleteVisibilityRow(ctx, row.AccountID, expenseID); err != nil {
			return fmt.Errorf("failed to delete visibility row: %w", err)
		}
		r.metrics.VisibilityDeletes.Inc()
		deleted++
	}

	if inserted > 0 || deleted > 0 {
		slog.Info("Visibility reconciled",
			"expense_id", expenseID,
			"inserted", inserted,
			"deleted", deleted,
		)
	}
	return nil
}

// ReconcileExpense derives the expected account set from the expense's
// participant emails and reconciles against it. Emails without a registered
// account simply contribute no row.
func (r *VisibilityReconciler) ReconcileExpense(ctx context.Context, expense *models.Expense) error {
	var expected []string
	for _, email := range expense.ParticipantEmails {
		account, err := r.store.GetAccountByEmail(ctx, email)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				continue
			}
			return err
		}
		expected = append(expected, account.ID)
	}
	return r.Reconcile(ctx, expense.ID, expected)
}
