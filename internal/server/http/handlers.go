package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/gorilla/mux"

	"github.com/duersjefen/filter-ical-sub004/internal/errs"
	"github.com/duersjefen/filter-ical-sub004/internal/model"
	"github.com/duersjefen/filter-ical-sub004/internal/observability/metrics"
	"github.com/duersjefen/filter-ical-sub004/internal/service"
)

// bearerToken extracts the token from an "Authorization: Bearer ..." header.
func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// callerID reads the upstream-authenticated user ID, if any.
func callerID(r *http.Request) *uuid.UUID {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return nil
	}
	id, err := uuid.FromString(raw)
	if err != nil {
		return nil
	}
	return &id
}

// requestFrom assembles the resolver input for a protected endpoint.
func requestFrom(r *http.Request, tier model.Tier) service.Request {
	return service.Request{
		DomainKey:   mux.Vars(r)["key"],
		Tier:        tier,
		BearerToken: bearerToken(r),
		UserID:      callerID(r),
	}
}

// requireAdmin guards administrative endpoints behind an admin-level decision
// for the requested domain.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dec, err := s.resolver.Resolve(r.Context(), requestFrom(r, model.TierAdmin))
		if err != nil {
			s.writeError(w, err)
			return
		}
		if err := service.RequireAtLeast(dec, model.LevelAdmin); err != nil {
			s.writeError(w, err)
			return
		}
		next(w, r)
	}
}

type verifyRequest struct {
	Password string `json:"password"`
}

type sessionResponse struct {
	AccessLevel string    `json:"access_level"`
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// handleVerify is the login flow for one tier.
func (s *Server) handleVerify(tier model.Tier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body verifyRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Password == "" {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "password required"})
			return
		}

		sess, err := s.resolver.Login(r.Context(), mux.Vars(r)["key"], tier, body.Password)
		if err != nil {
			metrics.ObserveLogin(string(tier), loginResult(err))
			s.writeError(w, err)
			return
		}
		metrics.ObserveLogin(string(tier), "success")
		metrics.ObserveMint("login")

		w.Header().Set("X-Auth-Token", sess.Token)
		writeJSON(w, http.StatusOK, sessionResponse{
			AccessLevel: string(sess.Level),
			Token:       sess.Token,
			ExpiresAt:   sess.ExpiresAt,
		})
	}
}

func loginResult(err error) string {
	var locked *errs.LockedError
	switch {
	case errors.As(err, &locked):
		return "locked"
	case errors.Is(err, errs.ErrInvalidCredentials):
		return "invalid"
	default:
		return "error"
	}
}

type refreshResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleRefresh renews a token past its sliding-window threshold.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	raw := bearerToken(r)
	if raw == "" {
		s.writeError(w, errs.ErrTokenMalformed)
		return
	}
	renewed, exp, err := s.tokens.Refresh(r.Context(), raw)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if renewed != raw {
		metrics.ObserveMint("refresh")
	}
	writeJSON(w, http.StatusOK, refreshResponse{Token: renewed, ExpiresAt: exp})
}

// handleAccess resolves the caller's current level for a domain tier.
func (s *Server) handleAccess(w http.ResponseWriter, r *http.Request) {
	tier := model.TierUser
	if raw := r.URL.Query().Get("tier"); raw != "" {
		var err error
		if tier, err = model.ParseTier(raw); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "unknown tier"})
			return
		}
	}
	dec, err := s.resolver.Resolve(r.Context(), requestFrom(r, tier))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_level": string(dec.Level)})
}

type patchPasswordsRequest struct {
	AdminPassword *string `json:"admin_password"`
	UserPassword  *string `json:"user_password"`
}

type versionResponse struct {
	TokenVersion int64 `json:"token_version"`
}

// handlePatchPasswords sets or clears tier passwords. An empty string clears
// the tier; an absent field leaves it untouched. Each mutation bumps the
// domain's token version.
func (s *Server) handlePatchPasswords(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	var body patchPasswordsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid body"})
		return
	}
	if body.AdminPassword == nil && body.UserPassword == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "no passwords supplied"})
		return
	}

	var ver int64
	apply := func(tier model.Tier, pw *string) error {
		if pw == nil {
			return nil
		}
		var err error
		if *pw == "" {
			ver, err = s.admin.Remove(r.Context(), key, tier)
		} else {
			ver, err = s.admin.Set(r.Context(), key, tier, *pw)
		}
		return err
	}
	if err := apply(model.TierAdmin, body.AdminPassword); err != nil {
		s.writeError(w, err)
		return
	}
	if err := apply(model.TierUser, body.UserPassword); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, versionResponse{TokenVersion: ver})
}

// handleDeletePassword clears one tier's password.
func (s *Server) handleDeletePassword(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tier, err := model.ParseTier(vars["tier"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "unknown tier"})
		return
	}
	ver, err := s.admin.Remove(r.Context(), vars["key"], tier)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, versionResponse{TokenVersion: ver})
}

type grantRequest struct {
	AccessLevel string `json:"access_level"`
}

// handleGrant upserts a persistent user grant.
func (s *Server) handleGrant(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, err := uuid.FromString(vars["user_id"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid user id"})
		return
	}
	var body grantRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid body"})
		return
	}
	level, err := model.ParseAccessLevel(body.AccessLevel)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid access level"})
		return
	}
	if err := s.admin.Grant(r.Context(), userID, vars["key"], level); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRevoke removes a persistent user grant.
func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, err := uuid.FromString(vars["user_id"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid user id"})
		return
	}
	if err := s.admin.Revoke(r.Context(), userID, vars["key"]); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createDomainRequest struct {
	Key string `json:"key"`
}

// handleCreateDomain registers a domain's auth state row.
func (s *Server) handleCreateDomain(w http.ResponseWriter, r *http.Request) {
	var body createDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Key == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "domain key required"})
		return
	}
	if err := s.admin.CreateDomain(r.Context(), body.Key); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"key": body.Key})
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
