package auth

import (
	"errors"
	"fmt"
)

var ErrNoSigningKey = errors.New("no signing key set")

// KeyProvider resolves the HMAC secret for a key id.
type KeyProvider interface {
	GetKey(kid string) ([]byte, error)
	// CurrentKID is the key id new tokens are signed with.
	CurrentKID() string
}

// StaticKeyProvider serves a single secret loaded from configuration.
type StaticKeyProvider struct {
	KID    string
	Secret []byte
}

func (s *StaticKeyProvider) GetKey(kid string) ([]byte, error) {
	if len(s.Secret) == 0 {
		return nil, ErrNoSigningKey
	}
	if kid != "" && kid != s.KID {
		return nil, fmt.Errorf("unknown key id %q", kid)
	}
	return s.Secret, nil
}

func (s *StaticKeyProvider) CurrentKID() string {
	return s.KID
}
