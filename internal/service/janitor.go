package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AnganSamadder/PayBack-sub004/internal/identity"
	"github.com/AnganSamadder/PayBack-sub004/internal/metrics"
	"github.com/AnganSamadder/PayBack-sub004/internal/models"
	"github.com/AnganSamadder/PayBack-sub004/internal/storage"
	pkgerrors "github.com/AnganSamadder/PayBack-sub004/pkg/errors"
)

// CleanupResult summarizes one janitor run.
type CleanupResult struct {
	OrphansFound     int `json:"orphans_found"`
	OrphansCleaned   int `json:"orphans_cleaned"`
	RemainingOrphans int `json:"remaining_orphans"`
}

// Janitor sweeps the friend table for rows whose linked account no longer
// exists and hard-deletes them. An account deleted outside the normal flows
// means "erase all trace", which is distinct from a graceful unlink - the
// row is removed, not patched.
//
// Each run is bounded: pages of pageSize rows, at most maxDeletes deletions,
// with a persistent cursor so the next scheduled run resumes where this one
// stopped.
type Janitor struct {
	store      storage.Store
	metrics    *metrics.Metrics
	pageSize   int
	maxDeletes int
}

// NewJanitor creates a Janitor. pageSize and maxDeletes fall back to 100 and
// 5 when non-positive.
func NewJanitor(store storage.Store, m *metrics.Metrics, pageSize, maxDeletes int) *Janitor {
	if pageSize <= 0 {
		pageSize = 100
	}
	if maxDeletes <= 0 {
		maxDeletes = 5
	}
	return &Janitor{store: store, metrics: m, pageSize: pageSize, maxDeletes: maxDeletes}
}

// CleanupOrphans runs one bounded sweep. Per-row failures are logged and
// skipped; one bad record never aborts the run.
func (j *Janitor) CleanupOrphans(ctx context.Context) (*CleanupResult, error) {
	cursor, err := j.store.GetJanitorCursor(ctx)
	if err != nil {
		return nil, err
	}

	result := &CleanupResult{}
	// resume points just before the first orphan we could not delete this
	// run, so the next run picks it up instead of skipping past it.
	resume := ""
	capped := false
	for {
		friends, next, err := j.store.ListFriendsPage(ctx, cursor, j.pageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to page friends: %w", err)
		}

		for _, friend := range friends {
			prev := cursor
			cursor = storage.EncodeFriendCursor(friend.OwnerEmail, friend.MemberID)
			if !friend.HasLinkedAccount {
				continue
			}

			exists, err := j.linkTargetExists(ctx, &friend)
			if err != nil {
				slog.Error("Janitor could not verify link target, skipping row",
					"owner", friend.OwnerEmail, "member", friend.MemberID, "error", err)
				continue
			}
			if exists {
				continue
			}

			result.OrphansFound++
			if result.OrphansCleaned >= j.maxDeletes {
				result.RemainingOrphans++
				if !capped {
					capped = true
					resume = prev
				}
				continue
			}
			if err := j.store.DeleteFriend(ctx, friend.OwnerEmail, friend.MemberID); err != nil {
				slog.Error("Janitor failed to delete orphan, skipping row",
					"owner", friend.OwnerEmail, "member", friend.MemberID, "error", err)
				continue
			}
			j.metrics.OrphansDeleted.Inc()
			result.OrphansCleaned++
			slog.Info("Orphaned friend record deleted",
				"owner", friend.OwnerEmail,
				"member", friend.MemberID,
				"linked_account", friend.LinkedAccountID,
			)
		}

		if next == "" {
			// Full table covered; restart from the top next run.
			cursor = ""
			break
		}
		if result.OrphansCleaned >= j.maxDeletes {
			break
		}
		cursor = next
	}

	if capped {
		cursor = resume
	}
	if err := j.store.SetJanitorCursor(ctx, cursor); err != nil {
		return nil, err
	}
	slog.Info("Janitor run complete",
		"found", result.OrphansFound,
		"cleaned", result.OrphansCleaned,
		"remaining", result.RemainingOrphans,
	)
	return result, nil
}

func (j *Janitor) linkTargetExists(ctx context.Context, friend *models.FriendRecord) (bool, error) {
	if friend.LinkedAccountID != "" {
		_, err := j.store.GetAccount(ctx, friend.LinkedAccountID)
		if err == nil {
			return true, nil
		}
		if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return false, err
		}
	}
	if friend.LinkedAccountEmail != "" {
		_, err := j.store.GetAccountByEmail(ctx, identity.Normalize(friend.LinkedAccountEmail))
		if err == nil {
			return true, nil
		}
		if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return false, err
		}
	}
	if friend.LinkedMemberID != "" {
		account, err := j.store.GetAccountByCanonicalMember(ctx, identity.Normalize(friend.LinkedMemberID))
		if err != nil {
			return false, err
		}
		if account != nil {
			return true, nil
		}
	}
	return false, nil
}
