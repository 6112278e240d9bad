package httpapi

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrEthical07/passport"
	authmw "github.com/MrEthical07/passport/middleware"
)

const maxSigninBody = 1 << 16

type signinRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondOK(w, r, "ok", nil)
}

// handleSignin accepts form fields or a JSON body.
func (s *Server) handleSignin(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSignin(w, r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "malformed request")
		return
	}

	res, err := s.engine.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondError(w, r, signinStatus(err), passport.Message(err))
		return
	}
	respondOK(w, r, passport.MessageSignedIn, res)
}

func decodeSignin(w http.ResponseWriter, r *http.Request) (signinRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSigninBody)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req signinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return signinRequest{}, err
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return signinRequest{}, err
	}
	return signinRequest{
		Username: r.PostForm.Get("username"),
		Password: r.PostForm.Get("password"),
	}, nil
}

func signinStatus(err error) int {
	switch {
	case errors.Is(err, passport.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, passport.ErrAccountLocked):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// handleSignout always acknowledges; a missing or stale token has nothing to end.
func (s *Server) handleSignout(w http.ResponseWriter, r *http.Request) {
	if tok, ok := authmw.TokenFromHeader(r.Header.Get("Authorization")); ok {
		if err := s.engine.Logout(r.Context(), tok); err != nil {
			s.logger.WarnContext(r.Context(), "signout failed", "error", err)
		}
	}
	respondOK(w, r, passport.MessageSignedOut, nil)
}

func (s *Server) handleAuthorization(w http.ResponseWriter, r *http.Request) {
	id, _ := authmw.IdentityFromContext(r.Context())
	view, err := s.engine.Authorization(r.Context(), id.Username)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "authorization lookup failed", "error", err)
		respondError(w, r, http.StatusInternalServerError, passport.Message(err))
		return
	}
	respondOK(w, r, "", view)
}

type sessionView struct {
	passport.SessionInfo
	Current bool `json:"current"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	id, _ := authmw.IdentityFromContext(r.Context())
	sessions, err := s.engine.ActiveSessions(r.Context(), id.Username)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "session listing failed", "error", err)
		respondError(w, r, http.StatusInternalServerError, passport.Message(err))
		return
	}

	out := make([]sessionView, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sessionView{SessionInfo: sess, Current: sess.ID == id.SessionID})
	}
	respondOK(w, r, "", out)
}

// handleDeleteSession ends one of the caller's own sessions.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, _ := authmw.IdentityFromContext(r.Context())
	target := chi.URLParam(r, "id")

	sessions, err := s.engine.ActiveSessions(r.Context(), id.Username)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "session listing failed", "error", err)
		respondError(w, r, http.StatusInternalServerError, passport.Message(err))
		return
	}
	owned := false
	for _, sess := range sessions {
		if sess.ID == target {
			owned = true
			break
		}
	}
	if !owned {
		respondError(w, r, http.StatusNotFound, "session not found")
		return
	}

	if err := s.engine.LogoutSession(r.Context(), target); err != nil {
		s.logger.ErrorContext(r.Context(), "session logout failed", "error", err)
		respondError(w, r, http.StatusInternalServerError, passport.Message(err))
		return
	}
	respondOK(w, r, passport.MessageSignedOut, nil)
}
