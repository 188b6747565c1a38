// Package httpserver exposes the domain auth HTTP API.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/duersjefen/filter-ical-sub004/internal/model"
	"github.com/duersjefen/filter-ical-sub004/internal/service"
)

// RequestLimiter is the endpoint-level rate limiter applied to login routes.
// Implemented by ratelimit.Limiter.
type RequestLimiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// Server wires services into HTTP handlers.
type Server struct {
	resolver service.AccessResolver
	admin    service.PasswordAdmin
	tokens   service.TokenService
	limiter  RequestLimiter
	log      *zap.Logger
}

// New constructs an HTTP server with injected services.
func New(resolver service.AccessResolver, admin service.PasswordAdmin, tokens service.TokenService, limiter RequestLimiter, log *zap.Logger) *Server {
	return &Server{resolver: resolver, admin: admin, tokens: tokens, limiter: limiter, log: log}
}

// Router builds the route table with the middleware chain.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.recoverMiddleware, s.loggingMiddleware)

	auth := r.PathPrefix("/domains/{key}/auth").Subrouter()
	auth.Use(s.rateLimitMiddleware)
	auth.HandleFunc("/verify-admin", s.handleVerify(model.TierAdmin)).Methods(http.MethodPost)
	auth.HandleFunc("/verify-user", s.handleVerify(model.TierUser)).Methods(http.MethodPost)

	r.HandleFunc("/auth/refresh", s.handleRefresh).Methods(http.MethodPost)

	r.HandleFunc("/domains", s.handleCreateDomain).Methods(http.MethodPost)
	r.HandleFunc("/domains/{key}/access", s.handleAccess).Methods(http.MethodGet)
	r.HandleFunc("/domains/{key}/passwords", s.requireAdmin(s.handlePatchPasswords)).Methods(http.MethodPatch)
	r.HandleFunc("/domains/{key}/passwords/{tier}", s.requireAdmin(s.handleDeletePassword)).Methods(http.MethodDelete)
	r.HandleFunc("/domains/{key}/grants/{user_id}", s.requireAdmin(s.handleGrant)).Methods(http.MethodPut)
	r.HandleFunc("/domains/{key}/grants/{user_id}", s.requireAdmin(s.handleRevoke)).Methods(http.MethodDelete)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}
