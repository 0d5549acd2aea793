package rewrite

import (
	"math"
	"testing"

	"github.com/AnganSamadder/PayBack-sub004/internal/models"
)

func TestMemberIDs(t *testing.T) {
	t.Run("rewrites and dedupes", func(t *testing.T) {
		ids, changed := MemberIDs([]string{"t1", "cx", "t2"}, "t1", "cx")
		if !changed {
			t.Error("expected change")
		}
		if len(ids) != 2 || ids[0] != "cx" || ids[1] != "t2" {
			t.Errorf("expected [cx t2], got %v", ids)
		}
	})

	t.Run("no match means no change", func(t *testing.T) {
		ids, changed := MemberIDs([]string{"a", "b"}, "t1", "cx")
		if changed {
			t.Errorf("expected no change, got %v", ids)
		}
	})
}

func TestGroupMembers(t *testing.T) {
	t.Run("duplicate collapses keeping current user entry", func(t *testing.T) {
		members, changed := GroupMembers([]models.GroupMember{
			{ID: "t1", Name: "Old Alice"},
			{ID: "cx", Name: "Alice", IsCurrentUser: true},
		}, "t1", "cx")
		if !changed {
			t.Fatal("expected change")
		}
		if len(members) != 1 {
			t.Fatalf("expected 1 member, got %d", len(members))
		}
		// The rewritten t1 entry lands first; the current-user entry must
		// replace it, not the other way around.
		if members[0].Name != "Alice" || !members[0].IsCurrentUser {
			t.Errorf("expected the current-user entry to win, got %+v", members[0])
		}
	})

	t.Run("neither flagged keeps the first", func(t *testing.T) {
		members, _ := GroupMembers([]models.GroupMember{
			{ID: "t1", Name: "First"},
			{ID: "cx", Name: "Second"},
		}, "t1", "cx")
		if len(members) != 1 || members[0].Name != "First" {
			t.Errorf("expected the first entry to win, got %+v", members)
		}
	})

	t.Run("unrelated members untouched", func(t *testing.T) {
		members, changed := GroupMembers([]models.GroupMember{
			{ID: "bob", Name: "Bob"},
			{ID: "t1", Name: "Alice"},
		}, "t1", "cx")
		if !changed {
			t.Fatal("expected change")
		}
		if len(members) != 2 || members[0].ID != "bob" || members[1].ID != "cx" {
			t.Errorf("unexpected roster: %+v", members)
		}
	})
}

func TestSplits(t *testing.T) {
	t.Run("merge sums amounts", func(t *testing.T) {
		splits, changed := Splits([]models.Split{
			{MemberID: "t1", Amount: 12.5, IsSettled: true},
			{MemberID: "cx", Amount: 7.5, IsSettled: true},
			{MemberID: "bob", Amount: 10, IsSettled: false},
		}, "t1", "cx")
		if !changed {
			t.Fatal("expected change")
		}
		if len(splits) != 2 {
			t.Fatalf("expected 2 splits, got %d", len(splits))
		}
		if splits[0].MemberID != "cx" || math.Abs(splits[0].Amount-20) > 1e-9 {
			t.Errorf("expected merged cx split of 20, got %+v", splits[0])
		}
		if !splits[0].IsSettled {
			t.Error("both constituent splits settled, merged split must be settled")
		}
	})

	t.Run("settled AND unsettled merges to unsettled", func(t *testing.T) {
		splits, _ := Splits([]models.Split{
			{MemberID: "t1", Amount: 5, IsSettled: true},
			{MemberID: "cx", Amount: 3, IsSettled: false},
		}, "t1", "cx")
		if len(splits) != 1 {
			t.Fatalf("expected 1 split, got %d", len(splits))
		}
		if math.Abs(splits[0].Amount-8) > 1e-9 || splits[0].IsSettled {
			t.Errorf("expected {amount: 8, settled: false}, got %+v", splits[0])
		}
	})

	t.Run("conservation across any merge", func(t *testing.T) {
		original := []models.Split{
			{MemberID: "t1", Amount: 20},
			{MemberID: "bob", Amount: 30},
			{MemberID: "cx", Amount: 50},
		}
		var totalBefore float64
		for _, s := range original {
			totalBefore += s.Amount
		}

		splits, _ := Splits(original, "t1", "cx")
		var totalAfter float64
		seen := map[string]bool{}
		for _, s := range splits {
			totalAfter += s.Amount
			if seen[s.MemberID] {
				t.Errorf("duplicate post-merge split for %q", s.MemberID)
			}
			seen[s.MemberID] = true
		}
		if math.Abs(totalBefore-totalAfter) > 1e-9 {
			t.Errorf("split total changed: before=%v after=%v", totalBefore, totalAfter)
		}
	})
}

func TestParticipants(t *testing.T) {
	t.Run("merge prefers linked entry", func(t *testing.T) {
		participants, changed := Participants([]models.Participant{
			{MemberID: "t1", Name: "Old Alice"},
			{MemberID: "cx", Name: "Alice", LinkedAccountID: "acc-1", Email: "alice@example.com"},
		}, "t1", "cx")
		if !changed {
			t.Fatal("expected change")
		}
		if len(participants) != 1 {
			t.Fatalf("expected 1 participant, got %d", len(participants))
		}
		p := participants[0]
		if p.LinkedAccountID != "acc-1" || p.Email != "alice@example.com" {
			t.Errorf("expected link details preserved, got %+v", p)
		}
	})

	t.Run("link details fill in from the discarded entry", func(t *testing.T) {
		participants, _ := Participants([]models.Participant{
			{MemberID: "t1", Name: "Alice", LinkedAccountID: "acc-1"},
			{MemberID: "cx", Name: ""},
		}, "cx", "t1")
		if len(participants) != 1 {
			t.Fatalf("expected 1 participant, got %d", len(participants))
		}
		if participants[0].LinkedAccountID != "acc-1" || participants[0].Name != "Alice" {
			t.Errorf("unexpected merged participant: %+v", participants[0])
		}
	})
}

func TestEmails(t *testing.T) {
	t.Run("union with new email", func(t *testing.T) {
		emails, changed := Emails([]string{"a@example.com"}, "b@example.com")
		if !changed || len(emails) != 2 {
			t.Fatalf("expected 2 emails, got %v", emails)
		}
	})

	t.Run("existing email is a no-op", func(t *testing.T) {
		emails, changed := Emails([]string{"a@example.com"}, "A@Example.com")
		if changed {
			t.Errorf("expected no change, got %v", emails)
		}
	})

	t.Run("empty extra ignored", func(t *testing.T) {
		_, changed := Emails([]string{"a@example.com"}, "")
		if changed {
			t.Error("expected no change for empty email")
		}
	})
}
