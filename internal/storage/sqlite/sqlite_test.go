package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/AnganSamadder/PayBack-sub004/internal/models"
	"github.com/AnganSamadder/PayBack-sub004/internal/storage"
	pkgerrors "github.com/AnganSamadder/PayBack-sub004/pkg/errors"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "payback-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAccounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateAccount generates id and canonical member id", func(t *testing.T) {
		account := &models.Account{Email: "alice@example.com", DisplayName: "Alice"}
		if err := store.CreateAccount(ctx, account); err != nil {
			t.Fatalf("CreateAccount failed: %v", err)
		}
		if account.ID == "" {
			t.Error("Expected account ID to be generated")
		}
		if account.CanonicalMemberID == "" {
			t.Error("Expected canonical member ID to be generated")
		}
		if account.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}
	})

	t.Run("lookup by email and canonical member", func(t *testing.T) {
		account := &models.Account{Email: "bob@example.com", DisplayName: "Bob"}
		if err := store.CreateAccount(ctx, account); err != nil {
			t.Fatalf("CreateAccount failed: %v", err)
		}

		byEmail, err := store.GetAccountByEmail(ctx, "bob@example.com")
		if err != nil {
			t.Fatalf("GetAccountByEmail failed: %v", err)
		}
		if byEmail.ID != account.ID {
			t.Errorf("expected account %s, got %s", account.ID, byEmail.ID)
		}

		byMember, err := store.GetAccountByCanonicalMember(ctx, account.CanonicalMemberID)
		if err != nil {
			t.Fatalf("GetAccountByCanonicalMember failed: %v", err)
		}
		if byMember == nil || byMember.ID != account.ID {
			t.Errorf("expected account %s, got %+v", account.ID, byMember)
		}

		missing, err := store.GetAccountByCanonicalMember(ctx, "nobody")
		if err != nil {
			t.Fatalf("GetAccountByCanonicalMember failed: %v", err)
		}
		if missing != nil {
			t.Errorf("expected nil for unknown canonical member, got %+v", missing)
		}
	})

	t.Run("missing account is a coded not-found", func(t *testing.T) {
		_, err := store.GetAccount(ctx, "missing")
		if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			t.Errorf("expected NOT_FOUND, got %v", err)
		}
	})

	t.Run("UpdateAccountAliases replaces the cache", func(t *testing.T) {
		account := &models.Account{Email: "carol@example.com", DisplayName: "Carol"}
		if err := store.CreateAccount(ctx, account); err != nil {
			t.Fatalf("CreateAccount failed: %v", err)
		}

		if err := store.UpdateAccountAliases(ctx, account.ID, []string{"old-carol", "guest-carol"}); err != nil {
			t.Fatalf("UpdateAccountAliases failed: %v", err)
		}
		if err := store.UpdateAccountAliases(ctx, account.ID, []string{"old-carol"}); err != nil {
			t.Fatalf("UpdateAccountAliases failed: %v", err)
		}

		got, err := store.GetAccount(ctx, account.ID)
		if err != nil {
			t.Fatalf("GetAccount failed: %v", err)
		}
		if len(got.AliasMemberIDs) != 1 || got.AliasMemberIDs[0] != "old-carol" {
			t.Errorf("expected [old-carol], got %v", got.AliasMemberIDs)
		}
	})
}

func TestAliasEdges(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		edge := &models.AliasEdge{Alias: "old-alice", Canonical: "alice-c", OwnerAccount: "acc-1"}
		if err := store.CreateAliasEdge(ctx, edge); err != nil {
			t.Fatalf("CreateAliasEdge failed: %v", err)
		}

		got, err := store.GetAliasEdge(ctx, "old-alice")
		if err != nil {
			t.Fatalf("GetAliasEdge failed: %v", err)
		}
		if got == nil || got.Canonical != "alice-c" {
			t.Errorf("expected canonical alice-c, got %+v", got)
		}
	})

	t.Run("identical re-insert is a no-op", func(t *testing.T) {
		edge := &models.AliasEdge{Alias: "old-alice", Canonical: "alice-c", OwnerAccount: "acc-1"}
		if err := store.CreateAliasEdge(ctx, edge); err != nil {
			t.Fatalf("expected idempotent insert to succeed, got %v", err)
		}

		edges, err := store.ListAliasEdges(ctx)
		if err != nil {
			t.Fatalf("ListAliasEdges failed: %v", err)
		}
		if len(edges) != 1 {
			t.Errorf("expected 1 edge, got %d", len(edges))
		}
	})

	t.Run("conflicting insert fails", func(t *testing.T) {
		edge := &models.AliasEdge{Alias: "old-alice", Canonical: "someone-else", OwnerAccount: "acc-2"}
		err := store.CreateAliasEdge(ctx, edge)
		if !pkgerrors.IsCode(err, pkgerrors.CodeAliasConflict) {
			t.Errorf("expected ALIAS_CONFLICT, got %v", err)
		}
	})

	t.Run("list by canonical", func(t *testing.T) {
		if err := store.CreateAliasEdge(ctx, &models.AliasEdge{Alias: "guest-alice", Canonical: "alice-c"}); err != nil {
			t.Fatalf("CreateAliasEdge failed: %v", err)
		}
		edges, err := store.ListAliasEdgesByCanonical(ctx, "alice-c")
		if err != nil {
			t.Fatalf("ListAliasEdgesByCanonical failed: %v", err)
		}
		if len(edges) != 2 {
			t.Errorf("expected 2 edges, got %d", len(edges))
		}
	})

	t.Run("missing edge is nil not error", func(t *testing.T) {
		got, err := store.GetAliasEdge(ctx, "nobody")
		if err != nil {
			t.Fatalf("GetAliasEdge failed: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})
}

func TestFriends(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seed := []models.FriendRecord{
		{OwnerEmail: "a@example.com", MemberID: "m1", Name: "One"},
		{OwnerEmail: "a@example.com", MemberID: "m2", Name: "Two"},
		{OwnerEmail: "b@example.com", MemberID: "m1", Name: "One"},
		{OwnerEmail: "b@example.com", MemberID: "m3", Name: "Three"},
	}
	for i := range seed {
		if err := store.CreateFriend(ctx, &seed[i]); err != nil {
			t.Fatalf("CreateFriend failed: %v", err)
		}
	}

	t.Run("get and list by member", func(t *testing.T) {
		got, err := store.GetFriend(ctx, "a@example.com", "m1")
		if err != nil {
			t.Fatalf("GetFriend failed: %v", err)
		}
		if got == nil || got.Name != "One" {
			t.Errorf("unexpected friend: %+v", got)
		}

		byMember, err := store.ListFriendsByMember(ctx, "m1")
		if err != nil {
			t.Fatalf("ListFriendsByMember failed: %v", err)
		}
		if len(byMember) != 2 {
			t.Errorf("expected 2 rows for m1, got %d", len(byMember))
		}
	})

	t.Run("pagination walks the whole table", func(t *testing.T) {
		var all []models.FriendRecord
		cursor := ""
		pages := 0
		for {
			page, next, err := store.ListFriendsPage(ctx, cursor, 3)
			if err != nil {
				t.Fatalf("ListFriendsPage failed: %v", err)
			}
			all = append(all, page...)
			pages++
			if next == "" {
				break
			}
			cursor = next
		}
		if len(all) != 4 {
			t.Errorf("expected 4 rows total, got %d", len(all))
		}
		if pages < 2 {
			t.Errorf("expected at least 2 pages with page size 3, got %d", pages)
		}
	})

	t.Run("update can change the member id key", func(t *testing.T) {
		friend, err := store.GetFriend(ctx, "a@example.com", "m2")
		if err != nil {
			t.Fatalf("GetFriend failed: %v", err)
		}
		friend.MemberID = "m2-canonical"
		friend.HasLinkedAccount = true
		friend.LinkedAccountID = "acc-9"
		if err := store.UpdateFriend(ctx, "a@example.com", "m2", friend); err != nil {
			t.Fatalf("UpdateFriend failed: %v", err)
		}

		old, err := store.GetFriend(ctx, "a@example.com", "m2")
		if err != nil {
			t.Fatalf("GetFriend failed: %v", err)
		}
		if old != nil {
			t.Error("expected old key to be gone")
		}
		updated, err := store.GetFriend(ctx, "a@example.com", "m2-canonical")
		if err != nil {
			t.Fatalf("GetFriend failed: %v", err)
		}
		if updated == nil || !updated.HasLinkedAccount || updated.LinkedAccountID != "acc-9" {
			t.Errorf("unexpected updated friend: %+v", updated)
		}
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		if err := store.DeleteFriend(ctx, "b@example.com", "m3"); err != nil {
			t.Fatalf("DeleteFriend failed: %v", err)
		}
		if err := store.DeleteFriend(ctx, "b@example.com", "m3"); err != nil {
			t.Fatalf("second DeleteFriend failed: %v", err)
		}
	})
}

func TestGroupsAndExpenses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := &models.Group{
		Name:         "Roommates",
		OwnerAccount: "acc-1",
		Members: []models.GroupMember{
			{ID: "cx", Name: "Alice", IsCurrentUser: true},
			{ID: "t1", Name: "Old Bob"},
		},
	}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	t.Run("groups round trip with roster", func(t *testing.T) {
		got, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if len(got.Members) != 2 || got.Members[0].ID != "cx" {
			t.Errorf("unexpected roster: %+v", got.Members)
		}

		byMember, err := store.ListGroupsByMember(ctx, "t1")
		if err != nil {
			t.Fatalf("ListGroupsByMember failed: %v", err)
		}
		if len(byMember) != 1 || byMember[0].ID != group.ID {
			t.Errorf("expected group %s, got %+v", group.ID, byMember)
		}
	})

	expense := &models.Expense{
		GroupID:           group.ID,
		Description:       "Dinner",
		Total:             20,
		PaidByMemberID:    "t1",
		InvolvedMemberIDs: []string{"t1", "cx"},
		Splits: []models.Split{
			{MemberID: "t1", Amount: 12},
			{MemberID: "cx", Amount: 8, IsSettled: true},
		},
		Participants: []models.Participant{
			{MemberID: "t1", Name: "Old Bob"},
			{MemberID: "cx", Name: "Alice", LinkedAccountID: "acc-1", Email: "alice@example.com"},
		},
		ParticipantEmails: []string{"alice@example.com"},
	}
	if err := store.CreateExpense(ctx, expense); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	t.Run("expenses round trip", func(t *testing.T) {
		got, err := store.GetExpense(ctx, expense.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if got.PaidByMemberID != "t1" || len(got.Splits) != 2 || len(got.Participants) != 2 {
			t.Errorf("unexpected expense: %+v", got)
		}
		if len(got.ParticipantEmails) != 1 || got.ParticipantEmails[0] != "alice@example.com" {
			t.Errorf("unexpected emails: %v", got.ParticipantEmails)
		}
	})

	t.Run("ListExpensesByMember finds payer and split member", func(t *testing.T) {
		for _, memberID := range []string{"t1", "cx"} {
			expenses, err := store.ListExpensesByMember(ctx, memberID)
			if err != nil {
				t.Fatalf("ListExpensesByMember(%s) failed: %v", memberID, err)
			}
			if len(expenses) != 1 || expenses[0].ID != expense.ID {
				t.Errorf("expected expense %s for %s, got %+v", expense.ID, memberID, expenses)
			}
		}
	})

	t.Run("UpdateExpense replaces children", func(t *testing.T) {
		expense.PaidByMemberID = "cx"
		expense.Splits = []models.Split{{MemberID: "cx", Amount: 20}}
		if err := store.UpdateExpense(ctx, expense); err != nil {
			t.Fatalf("UpdateExpense failed: %v", err)
		}
		got, err := store.GetExpense(ctx, expense.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if got.PaidByMemberID != "cx" || len(got.Splits) != 1 {
			t.Errorf("unexpected expense after update: %+v", got)
		}
	})

	t.Run("visibility rows insert idempotently", func(t *testing.T) {
		row := &models.VisibilityRow{AccountID: "acc-1", ExpenseID: expense.ID}
		if err := store.CreateVisibilityRow(ctx, row); err != nil {
			t.Fatalf("CreateVisibilityRow failed: %v", err)
		}
		if err := store.CreateVisibilityRow(ctx, row); err != nil {
			t.Fatalf("second CreateVisibilityRow failed: %v", err)
		}
		rows, err := store.ListVisibilityByExpense(ctx, expense.ID)
		if err != nil {
			t.Fatalf("ListVisibilityByExpense failed: %v", err)
		}
		if len(rows) != 1 {
			t.Errorf("expected 1 row, got %d", len(rows))
		}
	})
}

func TestJanitorCursor(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cursor, err := store.GetJanitorCursor(ctx)
	if err != nil {
		t.Fatalf("GetJanitorCursor failed: %v", err)
	}
	if cursor != "" {
		t.Errorf("expected empty initial cursor, got %q", cursor)
	}

	first := storage.EncodeFriendCursor("a@example.com", "m5")
	second := storage.EncodeFriendCursor("b@example.com", "m1")
	if err := store.SetJanitorCursor(ctx, first); err != nil {
		t.Fatalf("SetJanitorCursor failed: %v", err)
	}
	if err := store.SetJanitorCursor(ctx, second); err != nil {
		t.Fatalf("second SetJanitorCursor failed: %v", err)
	}

	cursor, err = store.GetJanitorCursor(ctx)
	if err != nil {
		t.Fatalf("GetJanitorCursor failed: %v", err)
	}
	if cursor != second {
		t.Errorf("expected latest cursor, got %q", cursor)
	}
}

func TestFriendsPageCursorWithPipeInKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// A quoted local part may legally contain "|"; the cursor encoding must
	// not split on it.
	seed := []models.FriendRecord{
		{OwnerEmail: `"a|b"@example.com`, MemberID: "m1", Name: "One"},
		{OwnerEmail: `"a|b"@example.com`, MemberID: "m2", Name: "Two"},
		{OwnerEmail: "c@example.com", MemberID: "m1", Name: "One"},
	}
	for i := range seed {
		if err := store.CreateFriend(ctx, &seed[i]); err != nil {
			t.Fatalf("CreateFriend failed: %v", err)
		}
	}

	var all []models.FriendRecord
	cursor := ""
	for {
		page, next, err := store.ListFriendsPage(ctx, cursor, 1)
		if err != nil {
			t.Fatalf("ListFriendsPage failed: %v", err)
		}
		all = append(all, page...)
		if next == "" {
			break
		}
		cursor = next
	}

	if len(all) != 3 {
		t.Fatalf("expected 3 rows across pages, got %d", len(all))
	}
	seen := map[string]bool{}
	for _, row := range all {
		key := row.OwnerEmail + "/" + row.MemberID
		if seen[key] {
			t.Errorf("row %s returned twice", key)
		}
		seen[key] = true
	}
}
