// Package session tracks who is signed in and ends sessions that have been
// idle for longer than the user allows.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ukydev/luxury-rentals/internal/kvstore"
	"github.com/ukydev/luxury-rentals/internal/models"
)

// MaxTimeoutMinutes bounds the configurable inactivity threshold (one day).
const MaxTimeoutMinutes = 24 * 60

// ErrInvalidSettings is returned for out of range timeout settings.
var ErrInvalidSettings = errors.New("invalid session timeout settings")

const (
	enabledKey = "sessionTimeoutEnabled"
	minutesKey = "sessionTimeoutMinutes"
)

// Settings reads and writes per-user inactivity settings in a key-value store.
type Settings struct {
	store    kvstore.Store
	defaults models.TimeoutSettings
}

// NewSettings wraps store. defaults apply to keys that are absent.
func NewSettings(store kvstore.Store, defaults models.TimeoutSettings) *Settings {
	if defaults.Minutes <= 0 {
		defaults.Minutes = 30
	}
	return &Settings{store: store, defaults: defaults}
}

func settingsKey(userID, name string) string {
	return userID + ":" + name
}

// Get returns the settings of userID, falling back to the defaults for
// missing or unparsable values.
func (s *Settings) Get(ctx context.Context, userID string) (models.TimeoutSettings, error) {
	out := s.defaults

	v, ok, err := s.store.Get(ctx, settingsKey(userID, enabledKey))
	if err != nil {
		return out, fmt.Errorf("read %s: %w", enabledKey, err)
	}
	if ok {
		if b, perr := strconv.ParseBool(v); perr == nil {
			out.Enabled = b
		}
	}

	v, ok, err = s.store.Get(ctx, settingsKey(userID, minutesKey))
	if err != nil {
		return out, fmt.Errorf("read %s: %w", minutesKey, err)
	}
	if ok {
		if n, perr := strconv.Atoi(v); perr == nil && n > 0 && n <= MaxTimeoutMinutes {
			out.Minutes = n
		}
	}
	return out, nil
}

// Set stores the settings of userID.
func (s *Settings) Set(ctx context.Context, userID string, ts models.TimeoutSettings) error {
	if ts.Minutes < 1 || ts.Minutes > MaxTimeoutMinutes {
		return fmt.Errorf("%w: minutes must be between 1 and %d", ErrInvalidSettings, MaxTimeoutMinutes)
	}
	if err := s.store.Set(ctx, settingsKey(userID, enabledKey), strconv.FormatBool(ts.Enabled)); err != nil {
		return err
	}
	return s.store.Set(ctx, settingsKey(userID, minutesKey), strconv.Itoa(ts.Minutes))
}

// Reset removes the stored settings of userID so the defaults apply again.
func (s *Settings) Reset(ctx context.Context, userID string) error {
	if err := s.store.Remove(ctx, settingsKey(userID, enabledKey)); err != nil {
		return err
	}
	return s.store.Remove(ctx, settingsKey(userID, minutesKey))
}

// Defaults returns the settings used for users with nothing stored.
func (s *Settings) Defaults() models.TimeoutSettings {
	return s.defaults
}
