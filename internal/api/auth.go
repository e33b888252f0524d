package api

import (
	"errors"
	"net/http"
	"strings"

	"jobtracker/internal/domain"
)

type signInRequest struct {
	Token string `json:"token"`
}

type sessionResponse struct {
	SessionID     string `json:"sessionId"`
	Authenticated bool   `json:"authenticated"`
}

func (s *HTTPServer) sessionID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(s.cfg.Auth.SessionHeader))
}

func (s *HTTPServer) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeServiceError(w, r, err, "Failed to sign in")
		return
	}

	id := s.sessionID(r)
	sess, err := s.sessions.SignIn(r.Context(), id, req.Token)
	var nf *domain.NotFoundError
	if errors.As(err, &nf) && id != "" {
		// сессия истекла: заводим новую
		sess, err = s.sessions.SignIn(r.Context(), "", req.Token)
	}
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to sign in")
		return
	}

	w.Header().Set(s.cfg.Auth.SessionHeader, sess.ID())
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: sess.ID(), Authenticated: sess.IsAuthenticated()})
}

func (s *HTTPServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.Context(), s.sessionID(r))
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			writeJSON(w, http.StatusOK, sessionResponse{})
			return
		}
		s.writeServiceError(w, r, err, "Failed to load session")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: sess.ID(), Authenticated: sess.IsAuthenticated()})
}

func (s *HTTPServer) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.SignOut(r.Context(), s.sessionID(r)); err != nil {
		s.writeServiceError(w, r, err, "Failed to sign out")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
