package prefs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medmarket/core/storage"
)

func newPrefs(t *testing.T) (*Preferences, *storage.Storage) {
	t.Helper()
	db, err := storage.NewMemStorage(nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), db
}

func TestThemeDefaultsToLight(t *testing.T) {
	p, _ := newPrefs(t)
	theme, err := p.Theme()
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, theme)
}

func TestToggleThemePersists(t *testing.T) {
	p, db := newPrefs(t)
	theme, err := p.ToggleTheme()
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, theme)

	raw, err := db.Get(storage.KeyTheme)
	require.NoError(t, err)
	assert.Equal(t, "dark", string(raw))

	theme, err = New(db).ToggleTheme()
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, theme)
}

func TestSetThemeRejectsUnknown(t *testing.T) {
	p, _ := newPrefs(t)
	assert.ErrorIs(t, p.SetTheme("sepia"), ErrInvalidTheme)
}

func TestUnknownStoredThemeReadsAsLight(t *testing.T) {
	p, db := newPrefs(t)
	require.NoError(t, db.Put(storage.KeyTheme, []byte("neon")))
	theme, err := p.Theme()
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, theme)
}
