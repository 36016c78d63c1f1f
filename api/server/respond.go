package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"medmarket/core/auth"
	"medmarket/core/session"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{OK: false, Error: msg})
}

// readBody reads a bounded request body.
func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return err
	}
	return nil
}

type userKey struct{}

// currentUser returns the session user stored by requireSession.
func currentUser(ctx context.Context) *session.User {
	u, _ := ctx.Value(userKey{}).(*session.User)
	return u
}

// requireSession rejects requests whose bearer token does not match the
// active session or whose role is not in roles.
func (s *Server) requireSession(next http.HandlerFunc, roles ...session.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := auth.BearerToken(r.Header.Get("Authorization"))
		user := s.sessions.Current()
		res := s.authz.Authorize(token, user, roles...)
		if !res.Authorized {
			status := http.StatusUnauthorized
			if res.Reason == auth.ReasonForbidden {
				status = http.StatusForbidden
			}
			s.log.Warn("[API] unauthorized request", "path", r.URL.Path, "reason", res.Reason)
			writeError(w, status, res.Reason)
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, user)
		next(w, r.WithContext(ctx))
	}
}
