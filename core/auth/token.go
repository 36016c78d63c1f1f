package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"medmarket/core/session"
)

// DefaultIssuer is the iss claim of session tokens.
const DefaultIssuer = "medmarket"

// SessionClaims bind a bearer token to a session user.
type SessionClaims struct {
	Role  session.Role `json:"role"`
	Email string       `json:"email"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 session tokens.
type TokenService struct {
	Keys   KeyProvider
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

// NewTokenService returns a service signing with secret.
func NewTokenService(secret []byte, ttl time.Duration) *TokenService {
	return &TokenService{
		Keys:   &StaticKeyProvider{KID: "v1", Secret: secret},
		Issuer: DefaultIssuer,
		TTL:    ttl,
		Now:    time.Now,
	}
}

// Issue signs a token for u.
func (s *TokenService) Issue(u *session.User) (string, error) {
	if u == nil {
		return "", errors.New("no user to issue a token for")
	}
	kid := s.Keys.CurrentKID()
	key, err := s.Keys.GetKey(kid)
	if err != nil {
		return "", err
	}
	now := s.Now()
	claims := SessionClaims{
		Role:  u.Role,
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    s.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses tokenString and checks its signature, issuer and expiry.
func (s *TokenService) Verify(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		return s.Keys.GetKey(kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.Now),
	)
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid session token or claims")
}
