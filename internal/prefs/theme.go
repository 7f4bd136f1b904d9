// Package prefs persists the reader's theme choice, the only state that
// outlives a session.
package prefs

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	ThemeDark  = "dark"
	ThemeLight = "light"

	themeKey = "theme"
)

var ErrUnknownTheme = errors.New("theme must be dark or light")

func NormalizeTheme(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ThemeDark:
		return ThemeDark, true
	case ThemeLight:
		return ThemeLight, true
	default:
		return "", false
	}
}

// SystemTheme reads the Sec-CH-Prefers-Color-Scheme client hint. Browsers
// that send nothing get the light theme.
func SystemTheme(hint string) string {
	if strings.EqualFold(strings.Trim(strings.TrimSpace(hint), `"`), ThemeDark) {
		return ThemeDark
	}
	return ThemeLight
}

func Toggle(theme string) string {
	if theme == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

type Service struct {
	Repo *Repo
}

func NewService(repo *Repo) *Service {
	return &Service{Repo: repo}
}

// Theme returns the stored theme for clientID, or the system preference
// when nothing valid is stored.
func (s *Service) Theme(ctx context.Context, clientID, systemHint string) (string, error) {
	if clientID != "" {
		value, ok, err := s.Repo.Get(ctx, clientID, themeKey)
		if err != nil {
			return SystemTheme(systemHint), err
		}
		if theme, valid := NormalizeTheme(value); ok && valid {
			return theme, nil
		}
		if ok {
			log.WithFields(log.Fields{"client": clientID, "value": value}).Warn("Ignoring stored theme")
		}
	}
	return SystemTheme(systemHint), nil
}

func (s *Service) SetTheme(ctx context.Context, clientID, theme string) error {
	normalized, ok := NormalizeTheme(theme)
	if !ok {
		return ErrUnknownTheme
	}
	return s.Repo.Set(ctx, clientID, themeKey, normalized)
}
