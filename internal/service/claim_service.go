package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AnganSamadder/PayBack-sub004/internal/identity"
	"github.com/AnganSamadder/PayBack-sub004/internal/metrics"
	"github.com/AnganSamadder/PayBack-sub004/internal/models"
	"github.com/AnganSamadder/PayBack-sub004/internal/storage"
	pkgerrors "github.com/AnganSamadder/PayBack-sub004/pkg/errors"
)

// ClaimContext describes who is claiming and where the claimed identity came
// from. CreatorAccountID and CreatorEmail identify whoever issued the invite
// (or created the identity) and drive the self-claim check; either may be
// empty when unknown.
type ClaimContext struct {
	Account          *models.Account
	CreatorAccountID string
	CreatorEmail     string
}

// ClaimResult is returned by a successful (or idempotently re-applied)
// claim.
type ClaimResult struct {
	CanonicalMemberID  string   `json:"canonical_member_id"`
	AliasMemberIDs     []string `json:"alias_member_ids"`
	LinkedAccountID    string   `json:"linked_account_id"`
	LinkedAccountEmail string   `json:"linked_account_email"`
}

// MergeResult is returned by MergeMemberIDs.
type MergeResult struct {
	Success        bool              `json:"success"`
	AlreadyExisted bool              `json:"already_existed"`
	Alias          *models.AliasEdge `json:"alias,omitempty"`
}

// ClaimService is the state machine that turns "account X claims identity T"
// into a validated alias edge plus the cascade that follows. Every
// validation failure is rejected before any write happens, and re-submitting
// an already-applied claim succeeds idempotently: the pipeline is built from
// individually retriable steps so a crash mid-cascade converges on retry
// rather than duplicating aliases or split rows.
type ClaimService struct {
	store   storage.Store
	graph   *identity.Graph
	cascade *CascadeRewriter
	metrics *metrics.Metrics
}

// NewClaimService creates a ClaimService.
func NewClaimService(store storage.Store, graph *identity.Graph, cascade *CascadeRewriter, m *metrics.Metrics) *ClaimService {
	return &ClaimService{store: store, graph: graph, cascade: cascade, metrics: m}
}

// ResolveCanonicalMemberID resolves any member id to its canonical identity.
func (s *ClaimService) ResolveCanonicalMemberID(ctx context.Context, memberID string) (string, error) {
	return s.graph.ResolveCanonical(ctx, memberID)
}

// GetAliasesForMember returns the full equivalence class of a canonical id.
func (s *ClaimService) GetAliasesForMember(ctx context.Context, canonicalID string) ([]string, error) {
	return s.graph.EquivalenceClass(ctx, canonicalID)
}

// Claim validates and applies a claim of targetID by the account in cc.
//
// Validation order (first failing check wins):
//  1. self-claim: the invite's creator is the claiming account
//  2. missing canonical id on the claiming account (fatal precondition)
//  3. another account already owns target as its canonical id
//  4. target already resolves to some other account's canonical
//  5. an alias edge for target points at a different canonical
//
// An existing edge pointing at the claimer's own canonical is idempotent
// success: no new edge is written, but the alias cache and cascade still
// re-run so a previously interrupted claim converges.
func (s *ClaimService) Claim(ctx context.Context, targetID string, cc ClaimContext) (*ClaimResult, error) {
	account := cc.Account

	if (cc.CreatorEmail != "" && identity.Normalize(cc.CreatorEmail) == identity.Normalize(account.Email)) ||
		(cc.CreatorAccountID != "" && cc.CreatorAccountID == account.ID) {
		return nil, s.reject(pkgerrors.Newf(pkgerrors.CodeSelfClaim,
			"cannot claim an identity you created", "account=%s target=%s", account.ID, targetID))
	}

	if account.CanonicalMemberID == "" {
		return nil, s.reject(pkgerrors.Newf(pkgerrors.CodePreconditionMissing,
			"claiming account has no canonical member id", "account=%s", account.ID))
	}

	target := identity.Normalize(targetID)
	canonical := identity.Normalize(account.CanonicalMemberID)

	owner, err := s.store.GetAccountByCanonicalMember(ctx, target)
	if err != nil {
		return nil, err
	}
	if owner != nil && owner.ID != account.ID {
		return nil, s.reject(pkgerrors.Newf(pkgerrors.CodeAliasConflict,
			"identity is another account's canonical id", "target=%s owner=%s", target, owner.ID))
	}

	resolved, err := s.graph.ResolveCanonical(ctx, target)
	if err != nil {
		return nil, err
	}
	if resolved != target && resolved != canonical {
		return nil, s.reject(pkgerrors.Newf(pkgerrors.CodeAliasConflict,
			"identity already resolves elsewhere", "target=%s resolves_to=%s", target, resolved))
	}

	existing, err := s.store.GetAliasEdge(ctx, target)
	if err != nil {
		return nil, err
	}
	alreadyExisted := false
	if existing != nil {
		if identity.Normalize(existing.Canonical) != canonical {
			return nil, s.reject(pkgerrors.Newf(pkgerrors.CodeAliasConflict,
				"identity already aliased to a different canonical", "target=%s canonical=%s", target, existing.Canonical))
		}
		alreadyExisted = true
	}

	if err := s.apply(ctx, target, canonical, account, LinkInfo{
		AccountID:   account.ID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
	}, !alreadyExisted); err != nil {
		return nil, err
	}

	s.metrics.ClaimsApplied.Inc()
	slog.Info("Claim applied",
		"account", account.ID,
		"target", target,
		"canonical", canonical,
		"already_existed", alreadyExisted,
	)

	refreshed, err := s.store.GetAccount(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	return &ClaimResult{
		CanonicalMemberID:  refreshed.CanonicalMemberID,
		AliasMemberIDs:     refreshed.AliasMemberIDs,
		LinkedAccountID:    refreshed.ID,
		LinkedAccountEmail: refreshed.Email,
	}, nil
}

// MergeMemberIDs is the manual entry point into the claim pipeline, used
// when a user recognizes a duplicate identity without an invite in play:
// sourceID becomes an alias of targetCanonicalID.
func (s *ClaimService) MergeMemberIDs(ctx context.Context, sourceID, targetCanonicalID string) (*MergeResult, error) {
	source := identity.Normalize(sourceID)
	target := identity.Normalize(targetCanonicalID)

	if source == target {
		return &MergeResult{Success: true, AlreadyExisted: true}, nil
	}

	owner, err := s.store.GetAccountByCanonicalMember(ctx, source)
	if err != nil {
		return nil, err
	}
	targetOwner, err := s.store.GetAccountByCanonicalMember(ctx, target)
	if err != nil {
		return nil, err
	}
	if owner != nil && (targetOwner == nil || owner.ID != targetOwner.ID) {
		return nil, s.reject(pkgerrors.Newf(pkgerrors.CodeAliasConflict,
			"source is another account's canonical id", "source=%s owner=%s", source, owner.ID))
	}

	existing, err := s.store.GetAliasEdge(ctx, source)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if identity.Normalize(existing.Canonical) != target {
			return nil, s.reject(pkgerrors.Newf(pkgerrors.CodeAliasConflict,
				"source already aliased to a different canonical", "source=%s canonical=%s", source, existing.Canonical))
		}
		return &MergeResult{Success: true, AlreadyExisted: true, Alias: existing}, nil
	}

	link := LinkInfo{}
	var ownerAccount *models.Account
	if targetOwner != nil {
		ownerAccount = targetOwner
		link = LinkInfo{AccountID: targetOwner.ID, Email: targetOwner.Email, DisplayName: targetOwner.DisplayName}
	}
	if err := s.apply(ctx, source, target, ownerAccount, link, true); err != nil {
		return nil, err
	}

	edge, err := s.store.GetAliasEdge(ctx, source)
	if err != nil {
		return nil, err
	}
	s.metrics.MergesApplied.Inc()
	slog.Info("Member ids merged", "source", source, "canonical", target)
	return &MergeResult{Success: true, Alias: edge}, nil
}

// MergeUnlinkedFriends merges two address-book rows that the owner has
// recognized as the same person. Neither row may be linked to a registered
// account; linked identities must go through Claim so the owning account
// stays in control. Nothing is mutated on rejection.
func (s *ClaimService) MergeUnlinkedFriends(ctx context.Context, ownerEmail, friendID1, friendID2 string) error {
	first, err := s.mustGetFriend(ctx, ownerEmail, friendID1)
	if err != nil {
		return err
	}
	second, err := s.mustGetFriend(ctx, ownerEmail, friendID2)
	if err != nil {
		return err
	}

	if first.HasLinkedAccount || second.HasLinkedAccount {
		return s.reject(pkgerrors.Newf(pkgerrors.CodeAliasConflict,
			"cannot merge friends with linked accounts", "owner=%s friend1=%s friend2=%s", ownerEmail, friendID1, friendID2))
	}

	// The first friend survives; the second collapses into it.
	result, err := s.MergeMemberIDs(ctx, second.MemberID, first.MemberID)
	if err != nil {
		return err
	}
	slog.Info("Unlinked friends merged",
		"owner", ownerEmail,
		"kept", first.MemberID,
		"merged", second.MemberID,
		"already_existed", result.AlreadyExisted,
	)
	return nil
}

func (s *ClaimService) mustGetFriend(ctx context.Context, ownerEmail, memberID string) (*models.FriendRecord, error) {
	friend, err := s.store.GetFriend(ctx, ownerEmail, identity.Normalize(memberID))
	if err != nil {
		return nil, err
	}
	if friend == nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "friend not found", "owner=%s member=%s", ownerEmail, memberID)
	}
	return friend, nil
}

// apply runs the write half of the pipeline: cycle check, edge write, alias
// cache refresh, cascade. Each step is idempotent with respect to the same
// (target, canonical) pair.
func (s *ClaimService) apply(ctx context.Context, target, canonical string, owner *models.Account, link LinkInfo, writeEdge bool) error {
	if target != canonical && writeEdge {
		cyclic, err := s.graph.WouldCreateCycle(ctx, target, canonical)
		if err != nil {
			return err
		}
		if cyclic {
			return s.reject(pkgerrors.Newf(pkgerrors.CodeAliasCycle,
				"edge would create a resolution cycle", "alias=%s canonical=%s", target, canonical))
		}

		ownerID := ""
		if owner != nil {
			ownerID = owner.ID
		}
		edge := &models.AliasEdge{
			Alias:        target,
			Canonical:    canonical,
			OwnerAccount: ownerID,
			CreatedAt:    time.Now().Unix(),
		}
		if err := s.store.CreateAliasEdge(ctx, edge); err != nil {
			return err
		}
	}

	// Rebuild the denormalized alias cache from the graph inside the same
	// write path that created the edge; it is never updated independently.
	if owner != nil {
		if err := s.refreshAliasCache(ctx, owner, canonical); err != nil {
			return err
		}
	}

	if target != canonical {
		if err := s.cascade.Rewrite(ctx, target, canonical, link); err != nil {
			return fmt.Errorf("cascade failed for %s -> %s: %w", target, canonical, err)
		}
	}
	return nil
}

func (s *ClaimService) refreshAliasCache(ctx context.Context, account *models.Account, canonical string) error {
	class, err := s.graph.EquivalenceClass(ctx, canonical)
	if err != nil {
		return err
	}
	var aliases []string
	seen := map[string]bool{}
	for _, member := range class {
		normalized := identity.Normalize(member)
		if normalized == canonical || seen[normalized] {
			continue
		}
		seen[normalized] = true
		aliases = append(aliases, normalized)
	}
	return s.store.UpdateAccountAliases(ctx, account.ID, aliases)
}

func (s *ClaimService) reject(err *pkgerrors.Error) error {
	s.metrics.ClaimsRejected.WithLabelValues(string(err.Code)).Inc()
	slog.Warn("Claim rejected", "code", err.Code, "context", err.Context)
	return err
}
