package session

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medmarket/core/audit"
	"medmarket/core/random"
	"medmarket/core/storage"
)

var walletPattern = regexp.MustCompile(`^0x[0-9a-f]{40}$`)

func newStore(t *testing.T, opts ...Option) (*Store, *storage.Storage) {
	t.Helper()
	db, err := storage.NewMemStorage(nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s, err := Open(db, opts...)
	require.NoError(t, err)
	return s, db
}

func TestLoginSeededAccounts(t *testing.T) {
	for _, c := range DefaultCredentials() {
		s, db := newStore(t)
		require.True(t, s.Login(c.Email, c.Password), c.Email)
		assert.Empty(t, s.LastError())

		u := s.Current()
		require.NotNil(t, u)
		assert.Equal(t, c.ID, u.ID)
		assert.Equal(t, c.Role, u.Role)

		raw, err := db.Get(storage.KeyCurrentUser)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "password")
		assert.NotContains(t, string(raw), c.Password)
	}
}

func TestLoginFailures(t *testing.T) {
	cases := []struct {
		email, password, msg string
	}{
		{"", "password123", ErrMissingLoginFields},
		{"patient@example.com", "", ErrMissingLoginFields},
		{"patient@example.com", "wrong", ErrInvalidCredentials},
		{"nobody@example.com", "password123", ErrInvalidCredentials},
		{"PATIENT@example.com", "password123", ErrInvalidCredentials},
	}
	for _, tc := range cases {
		s, _ := newStore(t)
		assert.False(t, s.Login(tc.email, tc.password))
		assert.Equal(t, tc.msg, s.LastError())
		assert.Nil(t, s.Current())
	}
}

func TestFailedLoginKeepsPreviousSession(t *testing.T) {
	s, _ := newStore(t)
	require.True(t, s.Login("researcher@example.com", "password123"))
	assert.False(t, s.Login("patient@example.com", "nope"))
	require.NotNil(t, s.Current())
	assert.Equal(t, "2", s.Current().ID)
	assert.True(t, s.IsResearcher())
}

func TestRoleFlags(t *testing.T) {
	s, _ := newStore(t)
	assert.False(t, s.IsPatient())
	assert.False(t, s.IsResearcher())

	require.True(t, s.Login("patient@example.com", "password123"))
	assert.True(t, s.IsPatient())
	assert.False(t, s.IsResearcher())
}

func TestRegisterExistingEmailAlwaysFails(t *testing.T) {
	requests := []RegisterRequest{
		{Email: "patient@example.com", Password: "x", Role: RolePatient},
		{Email: "patient@example.com"},
		{Email: "researcher@example.com", Password: "x", Role: "admin"},
	}
	for _, req := range requests {
		s, _ := newStore(t)
		assert.False(t, s.Register(req))
		assert.Equal(t, ErrEmailInUse, s.LastError())
		assert.Nil(t, s.Current())
	}
}

func TestRegisterValidation(t *testing.T) {
	cases := []struct {
		req RegisterRequest
		msg string
	}{
		{RegisterRequest{Password: "x", Role: RolePatient}, ErrMissingRequiredFields},
		{RegisterRequest{Email: "new@example.com", Role: RolePatient}, ErrMissingRequiredFields},
		{RegisterRequest{Email: "new@example.com", Password: "x"}, ErrMissingRequiredFields},
		{RegisterRequest{Email: "not-an-email", Password: "x", Role: RolePatient}, ErrInvalidEmail},
		{RegisterRequest{Email: "new@example.com", Password: "x", Role: "admin"}, ErrInvalidRole},
	}
	for _, tc := range cases {
		s, _ := newStore(t)
		assert.False(t, s.Register(tc.req))
		assert.Equal(t, tc.msg, s.LastError())
	}
}

func TestRegisterCreatesSession(t *testing.T) {
	s, _ := newStore(t, WithRandom(random.NewSeeded(1)))
	ok := s.Register(RegisterRequest{
		Email:    "new@example.com",
		Password: "secret",
		Role:     RoleResearcher,
		Name:     "New Researcher",
	})
	require.True(t, ok)

	u := s.Current()
	require.NotNil(t, u)
	assert.Equal(t, "3", u.ID)
	assert.Equal(t, RoleResearcher, u.Role)
	assert.Regexp(t, walletPattern, u.WalletAddress)
	require.NotNil(t, u.ConsentPreferences)
	assert.Equal(t, DefaultConsent(), *u.ConsentPreferences)
}

func TestRegisterWalletAddressesDiffer(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		s, _ := newStore(t)
		require.True(t, s.Register(RegisterRequest{Email: "new@example.com", Password: "x", Role: RolePatient}))
		addr := s.Current().WalletAddress
		assert.Regexp(t, walletPattern, addr)
		assert.False(t, seen[addr], "duplicate address %s", addr)
		seen[addr] = true
	}
}

func TestRegisteredUserCannotLogInAgain(t *testing.T) {
	s, _ := newStore(t)
	require.True(t, s.Register(RegisterRequest{Email: "new@example.com", Password: "secret", Role: RolePatient}))
	s.Logout()
	assert.False(t, s.Login("new@example.com", "secret"))
	assert.Equal(t, ErrInvalidCredentials, s.LastError())
}

func TestLogoutThenUpdateProfile(t *testing.T) {
	s, db := newStore(t)
	require.True(t, s.Login("patient@example.com", "password123"))
	s.Logout()
	assert.Nil(t, s.Current())

	_, err := db.Get(storage.KeyCurrentUser)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	name := "Changed"
	assert.False(t, s.UpdateProfile(ProfileUpdate{Name: &name}))
	assert.Equal(t, ErrNotLoggedIn, s.LastError())
	_, err = db.Get(storage.KeyCurrentUser)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateProfileMergesAndPersists(t *testing.T) {
	s, db := newStore(t)
	require.True(t, s.Login("patient@example.com", "password123"))

	name := "Jane Q. Smith"
	consent := ConsentPreferences{AllowContactForStudies: true}
	require.True(t, s.UpdateProfile(ProfileUpdate{Name: &name, ConsentPreferences: &consent}))

	u := s.Current()
	assert.Equal(t, "Jane Q. Smith", u.Name)
	assert.Equal(t, "patient@example.com", u.Email)
	assert.Equal(t, RolePatient, u.Role)
	assert.Equal(t, consent, *u.ConsentPreferences)

	reopened, err := Open(db)
	require.NoError(t, err)
	assert.Equal(t, u, reopened.Current())
}

func TestUpdateProfileRejectsBadEmail(t *testing.T) {
	s, _ := newStore(t)
	require.True(t, s.Login("patient@example.com", "password123"))
	bad := "nope"
	assert.False(t, s.UpdateProfile(ProfileUpdate{Email: &bad}))
	assert.Equal(t, ErrInvalidEmail, s.LastError())
	assert.Equal(t, "patient@example.com", s.Current().Email)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s, db := newStore(t)
	require.True(t, s.Login("researcher@example.com", "password123"))
	before := s.Current()

	reopened, err := Open(db)
	require.NoError(t, err)
	assert.Equal(t, before, reopened.Current())

	require.NoError(t, saveSnapshot(db, reopened.Current()))
	again, err := Open(db)
	require.NoError(t, err)
	assert.Equal(t, before, again.Current())
}

func TestOpenCorruptSnapshot(t *testing.T) {
	db, err := storage.NewMemStorage(nil)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Put(storage.KeyCurrentUser, []byte("{not json")))

	_, err = Open(db)
	assert.True(t, errors.Is(err, ErrCorruptSnapshot))

	require.NoError(t, ClearSnapshot(db))
	s, err := Open(db)
	require.NoError(t, err)
	assert.Nil(t, s.Current())
}

func TestSubscribeSeesTransitions(t *testing.T) {
	s, _ := newStore(t)
	type change struct{ prev, next *User }
	var changes []change
	cancel := s.Subscribe(func(prev, next *User) {
		changes = append(changes, change{prev, next})
	})

	require.True(t, s.Login("patient@example.com", "password123"))
	s.Logout()
	cancel()
	require.True(t, s.Login("patient@example.com", "password123"))

	require.Len(t, changes, 2)
	assert.Nil(t, changes[0].prev)
	assert.Equal(t, "1", changes[0].next.ID)
	assert.Equal(t, "1", changes[1].prev.ID)
	assert.Nil(t, changes[1].next)
}

func TestCurrentReturnsCopy(t *testing.T) {
	s, _ := newStore(t)
	require.True(t, s.Login("patient@example.com", "password123"))
	u := s.Current()
	u.Role = RoleResearcher
	u.ConsentPreferences.AllowContactForStudies = true
	assert.True(t, s.IsPatient())
	assert.False(t, s.Current().ConsentPreferences.AllowContactForStudies)
}

func TestAuditEvents(t *testing.T) {
	rec := &audit.MemoryAuditLogger{}
	s, _ := newStore(t, WithAuditLogger(rec))
	s.Login("patient@example.com", "bad")
	ev, ok := rec.Last(audit.EventLogin)
	require.True(t, ok)
	assert.Equal(t, audit.ResultFailure, ev.Result)

	s.Login("patient@example.com", "password123")
	ev, _ = rec.Last(audit.EventLogin)
	assert.Equal(t, audit.ResultSuccess, ev.Result)
	assert.Equal(t, "patient", ev.Metadata["role"])
}
