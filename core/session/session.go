// Package session holds the signed-in identity, matched against a static
// credential table and mirrored to the local key-value store.
package session

import (
	"log/slog"
	"net/mail"
	"strconv"
	"sync"

	"medmarket/core/audit"
	"medmarket/core/logging"
	"medmarket/core/random"
	"medmarket/core/storage"
	"medmarket/types/ids"
)

// Error messages reported through LastError.
const (
	ErrMissingLoginFields    = "Please fill in all fields"
	ErrInvalidCredentials    = "Invalid email or password"
	ErrMissingRequiredFields = "Please fill in all required fields"
	ErrEmailInUse            = "Email already in use"
	ErrInvalidEmail          = "Please enter a valid email address"
	ErrInvalidRole           = "Invalid role"
	ErrNotLoggedIn           = "User not logged in"
	ErrRegistrationFailed    = "Registration failed"
	ErrSaveFailed            = "Unable to save session"
)

// Listener observes session changes. prev and next are copies; either may be nil.
type Listener func(prev, next *User)

type subscription struct {
	id int
	fn Listener
}

// Store is the session state container. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	db      storage.StateBackend
	creds   []Credential
	current *User
	lastErr string

	rand  random.Source
	audit audit.AuditLogger
	log   *slog.Logger

	subMu  sync.Mutex
	subs   []subscription
	nextID int
}

// Option configures a Store.
type Option func(*Store)

// WithCredentials replaces the seeded credential table.
func WithCredentials(creds []Credential) Option {
	return func(s *Store) { s.creds = creds }
}

// WithRandom sets the source used for wallet addresses.
func WithRandom(r random.Source) Option {
	return func(s *Store) { s.rand = r }
}

func WithAuditLogger(a audit.AuditLogger) Option {
	return func(s *Store) { s.audit = a }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Open creates a Store and rehydrates any persisted session from db.
func Open(db storage.StateBackend, opts ...Option) (*Store, error) {
	s := &Store{
		db:    db,
		creds: DefaultCredentials(),
		rand:  random.NewCryptoSource(),
		audit: audit.Nop{},
		log:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	u, err := loadSnapshot(db)
	if err != nil {
		return nil, err
	}
	s.current = u
	if u != nil {
		s.log.Info("[SESSION] restored", "user", u.ID, "role", u.Role)
	}
	return s, nil
}

// Current returns a copy of the signed-in user, or nil.
func (s *Store) Current() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// LastError returns the message of the most recent failed call, or "".
func (s *Store) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Store) IsPatient() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && s.current.Role == RolePatient
}

func (s *Store) IsResearcher() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && s.current.Role == RoleResearcher
}

// Subscribe registers fn for change notifications. Listeners run synchronously,
// in registration order, after the mutation is persisted.
func (s *Store) Subscribe(fn Listener) (cancel func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notify(prev, next *User) {
	s.subMu.Lock()
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()
	for _, sub := range subs {
		sub.fn(prev.Clone(), next.Clone())
	}
}

// Login matches (email, password) against the credential table.
func (s *Store) Login(email, password string) bool {
	s.mu.Lock()
	s.lastErr = ""
	if email == "" || password == "" {
		s.lastErr = ErrMissingLoginFields
		s.mu.Unlock()
		s.audit.LogEvent(audit.New(audit.EventLogin, email, audit.ResultFailure, ErrMissingLoginFields, nil))
		return false
	}
	var match *Credential
	for i := range s.creds {
		if s.creds[i].Email == email && s.creds[i].Password == password {
			match = &s.creds[i]
			break
		}
	}
	if match == nil {
		s.lastErr = ErrInvalidCredentials
		s.mu.Unlock()
		s.log.Warn("[SESSION] login rejected", "email", email)
		s.audit.LogEvent(audit.New(audit.EventLogin, email, audit.ResultFailure, ErrInvalidCredentials, nil))
		return false
	}
	user := match.User.Clone()
	prev, ok := s.replaceLocked(user)
	s.mu.Unlock()
	if !ok {
		return false
	}
	s.log.Info("[SESSION] login", "user", user.ID, "role", user.Role)
	s.audit.LogEvent(audit.New(audit.EventLogin, email, audit.ResultSuccess, "Authenticated", map[string]string{"role": string(user.Role)}))
	s.notify(prev, user)
	return true
}

// Register creates a session for a new user. The user is not added to the
// credential table, so the same credentials will not log in again.
func (s *Store) Register(req RegisterRequest) bool {
	s.mu.Lock()
	s.lastErr = ""
	if s.emailTakenLocked(req.Email) {
		return s.failRegisterLocked(req.Email, ErrEmailInUse)
	}
	if req.Email == "" || req.Password == "" || req.Role == "" {
		return s.failRegisterLocked(req.Email, ErrMissingRequiredFields)
	}
	if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
		return s.failRegisterLocked(req.Email, ErrInvalidEmail)
	}
	if !req.Role.Valid() {
		return s.failRegisterLocked(req.Email, ErrInvalidRole)
	}
	wallet, err := ids.NewAddress(s.rand)
	if err != nil {
		s.log.Error("[SESSION] wallet address generation failed", "err", err)
		return s.failRegisterLocked(req.Email, ErrRegistrationFailed)
	}
	consent := DefaultConsent()
	user := &User{
		ID:                 strconv.Itoa(len(s.creds) + 1),
		Email:              req.Email,
		Name:               req.Name,
		Role:               req.Role,
		Institution:        req.Institution,
		WalletAddress:      wallet.String(),
		ConsentPreferences: &consent,
	}
	prev, ok := s.replaceLocked(user)
	s.mu.Unlock()
	if !ok {
		return false
	}
	s.log.Info("[SESSION] registered", "user", user.ID, "role", user.Role, "wallet", user.WalletAddress)
	s.audit.LogEvent(audit.New(audit.EventRegister, req.Email, audit.ResultSuccess, "Registered", map[string]string{"role": string(user.Role)}))
	s.notify(prev, user)
	return true
}

// Logout clears the session and its persisted snapshot.
func (s *Store) Logout() {
	s.mu.Lock()
	s.lastErr = ""
	prev := s.current
	s.current = nil
	if err := saveSnapshot(s.db, nil); err != nil {
		s.log.Error("[SESSION] clearing snapshot failed", "err", err)
	}
	s.mu.Unlock()
	entity := ""
	if prev != nil {
		entity = prev.Email
	}
	s.log.Info("[SESSION] logout", "email", entity)
	s.audit.LogEvent(audit.New(audit.EventLogout, entity, audit.ResultSuccess, "Signed out", nil))
	if prev != nil {
		s.notify(prev, nil)
	}
}

// UpdateProfile merges update into the current session and persists it.
func (s *Store) UpdateProfile(update ProfileUpdate) bool {
	s.mu.Lock()
	s.lastErr = ""
	if s.current == nil {
		s.lastErr = ErrNotLoggedIn
		s.mu.Unlock()
		s.audit.LogEvent(audit.New(audit.EventProfileUpdate, "", audit.ResultFailure, ErrNotLoggedIn, nil))
		return false
	}
	next := s.current.Clone()
	if update.Email != nil {
		if addr, err := mail.ParseAddress(*update.Email); err != nil || addr.Address != *update.Email {
			s.lastErr = ErrInvalidEmail
			s.mu.Unlock()
			return false
		}
		next.Email = *update.Email
	}
	if update.Name != nil {
		next.Name = *update.Name
	}
	if update.Institution != nil {
		next.Institution = *update.Institution
	}
	if update.ConsentPreferences != nil {
		cp := *update.ConsentPreferences
		next.ConsentPreferences = &cp
	}
	prev, ok := s.replaceLocked(next)
	s.mu.Unlock()
	if !ok {
		return false
	}
	s.audit.LogEvent(audit.New(audit.EventProfileUpdate, next.Email, audit.ResultSuccess, "Profile updated", nil))
	s.notify(prev, next)
	return true
}

// replaceLocked persists next and makes it current. On a storage failure the
// previous session is kept and ok is false.
func (s *Store) replaceLocked(next *User) (prev *User, ok bool) {
	if err := saveSnapshot(s.db, next); err != nil {
		s.log.Error("[SESSION] persisting snapshot failed", "err", err)
		s.lastErr = ErrSaveFailed
		return nil, false
	}
	prev = s.current
	s.current = next.Clone()
	return prev, true
}

func (s *Store) emailTakenLocked(email string) bool {
	if email == "" {
		return false
	}
	for _, c := range s.creds {
		if c.Email == email {
			return true
		}
	}
	return false
}

// failRegisterLocked records msg, releases the lock and reports failure.
func (s *Store) failRegisterLocked(email, msg string) bool {
	s.lastErr = msg
	s.mu.Unlock()
	s.audit.LogEvent(audit.New(audit.EventRegister, email, audit.ResultFailure, msg, nil))
	return false
}
