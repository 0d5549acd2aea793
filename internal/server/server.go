// Package server exposes the identity engine's inbound operations over
// HTTP. The wire format is plain JSON around the entity shapes; no richer
// protocol is defined by the core.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AnganSamadder/PayBack-sub004/internal/auth"
	"github.com/AnganSamadder/PayBack-sub004/internal/middleware"
	"github.com/AnganSamadder/PayBack-sub004/internal/service"
	"github.com/AnganSamadder/PayBack-sub004/internal/storage"
)

// Server wires the engine services to HTTP routes.
type Server struct {
	store         storage.Store
	claims        *service.ClaimService
	auditor       *service.Auditor
	janitor       *service.Janitor
	authenticator auth.Authenticator
	jwt           *auth.JWTManager
}

// New creates a Server.
func New(
	store storage.Store,
	claims *service.ClaimService,
	auditor *service.Auditor,
	janitor *service.Janitor,
	authenticator auth.Authenticator,
	jwtManager *auth.JWTManager,
) *Server {
	return &Server{
		store:         store,
		claims:        claims,
		auditor:       auditor,
		janitor:       janitor,
		authenticator: authenticator,
		jwt:           jwtManager,
	}
}

// Router builds the HTTP route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logging)

	r.Post("/v1/auth/register", s.handleRegister)
	r.Post("/v1/auth/login", s.handleLogin)

	r.Get("/v1/members/{memberID}/canonical", s.handleResolveCanonical)
	r.Get("/v1/members/{memberID}/aliases", s.handleGetAliases)
	r.Get("/v1/integrity", s.handleIntegrity)
	r.Post("/v1/janitor/cleanup", s.handleJanitor)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(s.jwt))
		r.Post("/v1/claims", s.handleClaim)
		r.Post("/v1/members/merge", s.handleMergeMembers)
		r.Post("/v1/friends/merge", s.handleMergeFriends)
	})

	r.Handle("/metrics", promhttp.Handler())
	return r
}
