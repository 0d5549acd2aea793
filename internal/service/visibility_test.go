package service

import (
	"context"
	"sort"
	"testing"

	"github.com/AnganSamadder/PayBack-sub004/internal/models"
)

func visibleAccounts(t *testing.T, env *testEnv, expenseID string) []string {
	t.Helper()
	rows, err := env.store.ListVisibilityByExpense(context.Background(), expenseID)
	if err != nil {
		t.Fatalf("ListVisibilityByExpense failed: %v", err)
	}
	var ids []string
	for _, row := range rows {
		ids = append(ids, row.AccountID)
	}
	sort.Strings(ids)
	return ids
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("converges and stays converged", func(t *testing.T) {
		env := newTestEnv(t)
		expense := env.createExpense(t, models.Expense{Description: "Dinner", Total: 10, PaidByMemberID: "m1"})

		// Seed stale state: one row that should survive, one that should go.
		if err := env.store.CreateVisibilityRow(ctx, &models.VisibilityRow{AccountID: "acc-1", ExpenseID: expense.ID}); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
		if err := env.store.CreateVisibilityRow(ctx, &models.VisibilityRow{AccountID: "acc-stale", ExpenseID: expense.ID}); err != nil {
			t.Fatalf("seed failed: %v", err)
		}

		want := []string{"acc-1", "acc-2"}
		for i := 0; i < 2; i++ {
			if err := env.visibility.Reconcile(ctx, expense.ID, want); err != nil {
				t.Fatalf("reconcile pass %d failed: %v", i+1, err)
			}
			got := visibleAccounts(t, env, expense.ID)
			if len(got) != 2 || got[0] != "acc-1" || got[1] != "acc-2" {
				t.Errorf("pass %d: expected %v, got %v", i+1, want, got)
			}
		}
	})

	t.Run("empty expectation clears all rows", func(t *testing.T) {
		env := newTestEnv(t)
		expense := env.createExpense(t, models.Expense{Description: "Solo", Total: 5, PaidByMemberID: "m1"})
		if err := env.store.CreateVisibilityRow(ctx, &models.VisibilityRow{AccountID: "acc-1", ExpenseID: expense.ID}); err != nil {
			t.Fatalf("seed failed: %v", err)
		}

		if err := env.visibility.Reconcile(ctx, expense.ID, nil); err != nil {
			t.Fatalf("reconcile failed: %v", err)
		}
		if got := visibleAccounts(t, env, expense.ID); len(got) != 0 {
			t.Errorf("expected no rows, got %v", got)
		}
	})

	t.Run("ReconcileExpense ignores emails without accounts", func(t *testing.T) {
		env := newTestEnv(t)
		alice := env.createAccount(t, "alice@example.com", "Alice")
		expense := env.createExpense(t, models.Expense{
			Description:       "Lunch",
			Total:             12,
			PaidByMemberID:    "m1",
			ParticipantEmails: []string{"alice@example.com", "ghost@example.com"},
		})

		if err := env.visibility.ReconcileExpense(ctx, expense); err != nil {
			t.Fatalf("ReconcileExpense failed: %v", err)
		}
		got := visibleAccounts(t, env, expense.ID)
		if len(got) != 1 || got[0] != alice.ID {
			t.Errorf("expected only alice's row, got %v", got)
		}
	})
}
