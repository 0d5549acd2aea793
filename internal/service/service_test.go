package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AnganSamadder/PayBack-sub004/internal/identity"
	"github.com/AnganSamadder/PayBack-sub004/internal/metrics"
	"github.com/AnganSamadder/PayBack-sub004/internal/models"
	"github.com/AnganSamadder/PayBack-sub004/internal/storage/sqlite"
)

// testEnv wires the full engine over a temp sqlite store.
type testEnv struct {
	store      *sqlite.SQLiteStore
	graph      *identity.Graph
	visibility *VisibilityReconciler
	cascade    *CascadeRewriter
	claims     *ClaimService
	metrics    *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "payback-service-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	m := metrics.New(prometheus.NewRegistry())
	graph := identity.NewGraph(store)
	visibility := NewVisibilityReconciler(store, m)
	cascade := NewCascadeRewriter(store, visibility, m)
	claims := NewClaimService(store, graph, cascade, m)

	return &testEnv{
		store:      store,
		graph:      graph,
		visibility: visibility,
		cascade:    cascade,
		claims:     claims,
		metrics:    m,
	}
}

func (e *testEnv) createAccount(t *testing.T, email, displayName string) *models.Account {
	t.Helper()
	account := &models.Account{Email: email, DisplayName: displayName}
	if err := e.store.CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("failed to create account %s: %v", email, err)
	}
	return account
}

func (e *testEnv) createFriend(t *testing.T, friend models.FriendRecord) *models.FriendRecord {
	t.Helper()
	if err := e.store.CreateFriend(context.Background(), &friend); err != nil {
		t.Fatalf("failed to create friend %s/%s: %v", friend.OwnerEmail, friend.MemberID, err)
	}
	return &friend
}

func (e *testEnv) createGroup(t *testing.T, group models.Group) *models.Group {
	t.Helper()
	if err := e.store.CreateGroup(context.Background(), &group); err != nil {
		t.Fatalf("failed to create group: %v", err)
	}
	return &group
}

func (e *testEnv) createExpense(t *testing.T, expense models.Expense) *models.Expense {
	t.Helper()
	if err := e.store.CreateExpense(context.Background(), &expense); err != nil {
		t.Fatalf("failed to create expense: %v", err)
	}
	return &expense
}
