// Package auth issues session bearer tokens and authorizes requests against
// the active session.
package auth

import (
	"strings"

	"medmarket/core/audit"
	"medmarket/core/session"
)

// Authorization failure reasons.
const (
	ReasonMissingToken = "Missing bearer token"
	ReasonInvalidToken = "Invalid session token"
	ReasonNoSession    = "User not logged in"
	ReasonStaleToken   = "Token does not match the active session"
	ReasonForbidden    = "Role not permitted"
)

type Authorizer struct {
	Tokens      *TokenService
	AuditLogger audit.AuditLogger
}

type AuthorizationResult struct {
	Authorized bool
	Reason     string
	Claims     *SessionClaims
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// Authorize checks that token is valid, belongs to current and, when roles are
// given, that the session role is one of them.
func (a *Authorizer) Authorize(token string, current *session.User, roles ...session.Role) AuthorizationResult {
	if token == "" {
		return a.deny("", ReasonMissingToken)
	}
	claims, err := a.Tokens.Verify(token)
	if err != nil {
		return a.deny("", ReasonInvalidToken+": "+err.Error())
	}
	if current == nil {
		return a.deny(claims.Subject, ReasonNoSession)
	}
	if claims.Subject != current.ID || claims.Email != current.Email {
		return a.deny(claims.Subject, ReasonStaleToken)
	}
	if len(roles) > 0 && !roleIn(current.Role, roles) {
		return a.deny(claims.Subject, ReasonForbidden)
	}
	return AuthorizationResult{Authorized: true, Reason: "Authorized", Claims: claims}
}

func (a *Authorizer) deny(subject, reason string) AuthorizationResult {
	if a.AuditLogger != nil {
		a.AuditLogger.LogEvent(audit.New(audit.EventAuthorization, subject, audit.ResultFailure, reason, nil))
	}
	return AuthorizationResult{Authorized: false, Reason: reason}
}

func roleIn(r session.Role, roles []session.Role) bool {
	for _, allowed := range roles {
		if r == allowed {
			return true
		}
	}
	return false
}
