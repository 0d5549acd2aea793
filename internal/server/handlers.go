package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AnganSamadder/PayBack-sub004/internal/auth"
	"github.com/AnganSamadder/PayBack-sub004/internal/middleware"
	"github.com/AnganSamadder/PayBack-sub004/internal/service"
	pkgerrors "github.com/AnganSamadder/PayBack-sub004/pkg/errors"
)

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	AccountID         string `json:"account_id"`
	Email             string `json:"email"`
	DisplayName       string `json:"display_name"`
	CanonicalMemberID string `json:"canonical_member_id"`
	Token             string `json:"token"`
}

type claimRequest struct {
	TargetID         string `json:"target_id"`
	CreatorAccountID string `json:"creator_account_id"`
	CreatorEmail     string `json:"creator_email"`
}

type mergeMembersRequest struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
}

type mergeFriendsRequest struct {
	FriendID1 string `json:"friend_id_1"`
	FriendID2 string `json:"friend_id_2"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	account, err := s.authenticator.Register(r.Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailExists) || errors.Is(err, auth.ErrWeakPassword) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeError(w, err)
		return
	}

	token, err := s.jwt.Generate(account)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{
		AccountID:         account.ID,
		Email:             account.Email,
		DisplayName:       account.DisplayName,
		CanonicalMemberID: account.CanonicalMemberID,
		Token:             token,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	account, err := s.authenticator.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		http.Error(w, auth.ErrInvalidCredentials.Error(), http.StatusUnauthorized)
		return
	}

	token, err := s.jwt.Generate(account)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{
		AccountID:         account.ID,
		Email:             account.Email,
		DisplayName:       account.DisplayName,
		CanonicalMemberID: account.CanonicalMemberID,
		Token:             token,
	})
}

func (s *Server) handleResolveCanonical(w http.ResponseWriter, r *http.Request) {
	memberID := chi.URLParam(r, "memberID")
	canonical, err := s.claims.ResolveCanonicalMemberID(r.Context(), memberID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"member_id": memberID, "canonical_member_id": canonical})
}

func (s *Server) handleGetAliases(w http.ResponseWriter, r *http.Request) {
	memberID := chi.URLParam(r, "memberID")
	aliases, err := s.claims.GetAliasesForMember(r.Context(), memberID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"canonical_member_id": aliases[0], "members": aliases})
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.TargetID == "" {
		http.Error(w, "target_id required", http.StatusBadRequest)
		return
	}

	account, err := s.store.GetAccount(r.Context(), middleware.GetAccountID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := s.claims.Claim(r.Context(), req.TargetID, service.ClaimContext{
		Account:          account,
		CreatorAccountID: req.CreatorAccountID,
		CreatorEmail:     req.CreatorEmail,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMergeMembers(w http.ResponseWriter, r *http.Request) {
	var req mergeMembersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SourceID == "" || req.TargetID == "" {
		http.Error(w, "source_id and target_id required", http.StatusBadRequest)
		return
	}

	result, err := s.claims.MergeMemberIDs(r.Context(), req.SourceID, req.TargetID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMergeFriends(w http.ResponseWriter, r *http.Request) {
	var req mergeFriendsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.FriendID1 == "" || req.FriendID2 == "" {
		http.Error(w, "friend_id_1 and friend_id_2 required", http.StatusBadRequest)
		return
	}

	ownerEmail := middleware.GetEmail(r.Context())
	if err := s.claims.MergeUnlinkedFriends(r.Context(), ownerEmail, req.FriendID1, req.FriendID2); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleIntegrity(w http.ResponseWriter, r *http.Request) {
	report, err := s.auditor.CheckDataIntegrity(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleJanitor(w http.ResponseWriter, r *http.Request) {
	result, err := s.janitor.CleanupOrphans(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps coded errors to HTTP statuses and always surfaces the
// machine-checkable code alongside the human message.
func writeError(w http.ResponseWriter, err error) {
	code := pkgerrors.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case pkgerrors.CodeSelfClaim:
		status = http.StatusBadRequest
	case pkgerrors.CodeAliasConflict, pkgerrors.CodeAliasCycle:
		status = http.StatusConflict
	case pkgerrors.CodeNotFound:
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{
		"code":  string(code),
		"error": err.Error(),
	})
}
