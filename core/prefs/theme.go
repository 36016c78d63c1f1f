// Package prefs persists display preferences next to the session snapshot.
package prefs

import (
	"errors"
	"fmt"

	"medmarket/core/storage"
)

// Theme values.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// ErrInvalidTheme is returned when a theme other than light or dark is set.
var ErrInvalidTheme = errors.New("theme must be light or dark")

// Preferences reads and writes the theme key.
type Preferences struct {
	db storage.StateBackend
}

func New(db storage.StateBackend) *Preferences {
	return &Preferences{db: db}
}

// Theme returns the stored theme, defaulting to light when unset or unknown.
func (p *Preferences) Theme() (string, error) {
	v, err := p.db.Get(storage.KeyTheme)
	if errors.Is(err, storage.ErrNotFound) {
		return ThemeLight, nil
	}
	if err != nil {
		return "", fmt.Errorf("read theme: %w", err)
	}
	switch t := string(v); t {
	case ThemeLight, ThemeDark:
		return t, nil
	default:
		return ThemeLight, nil
	}
}

func (p *Preferences) SetTheme(theme string) error {
	if theme != ThemeLight && theme != ThemeDark {
		return ErrInvalidTheme
	}
	if err := p.db.Put(storage.KeyTheme, []byte(theme)); err != nil {
		return fmt.Errorf("write theme: %w", err)
	}
	return nil
}

// ToggleTheme flips between light and dark and returns the new value.
func (p *Preferences) ToggleTheme() (string, error) {
	cur, err := p.Theme()
	if err != nil {
		return "", err
	}
	next := ThemeDark
	if cur == ThemeDark {
		next = ThemeLight
	}
	return next, p.SetTheme(next)
}
