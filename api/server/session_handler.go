package server

import (
	"net/http"

	"medmarket/core/audit"
	"medmarket/core/session"
)

type sessionResponse struct {
	OK           bool          `json:"ok"`
	Error        string        `json:"error,omitempty"`
	User         *session.User `json:"user"`
	Token        string        `json:"token,omitempty"`
	IsPatient    bool          `json:"isPatient"`
	IsResearcher bool          `json:"isResearcher"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) sessionBody(user *session.User, withToken bool) (sessionResponse, error) {
	resp := sessionResponse{
		OK:           true,
		User:         user,
		IsPatient:    user != nil && user.Role == session.RolePatient,
		IsResearcher: user != nil && user.Role == session.RoleResearcher,
	}
	if withToken && user != nil {
		tok, err := s.tokens.Issue(user)
		if err != nil {
			return sessionResponse{}, err
		}
		resp.Token = tok
	}
	return resp, nil
}

func (s *Server) respondWithSession(w http.ResponseWriter, status int, user *session.User) {
	resp, err := s.sessionBody(user, true)
	if err != nil {
		s.log.Error("[API] issuing session token failed", "err", err)
		writeError(w, http.StatusInternalServerError, "could not issue session token")
		return
	}
	if a := s.authz.AuditLogger; a != nil && resp.Token != "" {
		a.LogEvent(audit.New(audit.EventTokenIssued, user.ID, audit.ResultSuccess, "Session token issued", map[string]string{
			"role": string(user.Role),
		}))
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if !s.sessions.Login(req.Email, req.Password) {
		msg := s.sessions.LastError()
		status := http.StatusUnauthorized
		if msg == session.ErrMissingLoginFields {
			status = http.StatusBadRequest
		}
		writeError(w, status, msg)
		return
	}
	s.respondWithSession(w, http.StatusOK, s.sessions.Current())
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req session.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if !s.sessions.Register(req) {
		msg := s.sessions.LastError()
		status := http.StatusBadRequest
		if msg == session.ErrEmailInUse {
			status = http.StatusConflict
		}
		writeError(w, status, msg)
		return
	}
	s.respondWithSession(w, http.StatusCreated, s.sessions.Current())
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Logout()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleCurrentSession(w http.ResponseWriter, r *http.Request) {
	resp, _ := s.sessionBody(currentUser(r.Context()), false)
	writeJSON(w, http.StatusOK, resp)
}

// handleUpdateProfile merges the patch into the session user. A new token is
// returned because the email claim may have changed.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var update session.ProfileUpdate
	if err := decodeJSON(r, &update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if !s.sessions.UpdateProfile(update) {
		msg := s.sessions.LastError()
		status := http.StatusBadRequest
		if msg == session.ErrNotLoggedIn {
			status = http.StatusUnauthorized
		}
		writeError(w, status, msg)
		return
	}
	s.respondWithSession(w, http.StatusOK, s.sessions.Current())
}
