// Package keyring rotates API keys for the external analysis collaborator.
//
// The request counter lives in the store's settings table rather than in a
// process global, so rotation position survives restarts and the ring can
// be injected wherever outbound analysis calls are made.
package keyring

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
)

const counterKey = "api_request_count"

// SettingsStore persists the shared request counter.
type SettingsStore interface {
	Setting(ctx context.Context, key, def string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Config configures a Ring.
type Config struct {
	// Keys are candidate API keys; empty entries are dropped.
	Keys []string
	// RotationThreshold is how many requests each key serves before the
	// ring advances. Default: 40.
	RotationThreshold int
}

// Ring selects the active key from the persisted request counter.
type Ring struct {
	settings  SettingsStore
	keys      []string
	threshold int
	logger    *slog.Logger
}

// New creates a Ring. A ring without usable keys is valid: ActiveKey
// returns "" and the caller decides whether that is fatal.
func New(settings SettingsStore, cfg Config, logger *slog.Logger) *Ring {
	if logger == nil {
		logger = slog.Default()
	}
	keys := make([]string, 0, len(cfg.Keys))
	for _, k := range cfg.Keys {
		if k != "" {
			keys = append(keys, k)
		}
	}
	threshold := cfg.RotationThreshold
	if threshold <= 0 {
		threshold = 40
	}
	return &Ring{settings: settings, keys: keys, threshold: threshold, logger: logger}
}

// Len reports how many usable keys the ring holds.
func (r *Ring) Len() int { return len(r.keys) }

// ActiveKey returns the key selected by the current request count, or ""
// when no keys are configured.
func (r *Ring) ActiveKey(ctx context.Context) (string, error) {
	if len(r.keys) == 0 {
		return "", nil
	}
	count, err := r.count(ctx)
	if err != nil {
		return "", err
	}
	idx := (count / r.threshold) % len(r.keys)
	r.logger.Debug("keyring: active key", "index", idx+1, "requests", count, "key", mask(r.keys[idx]))
	return r.keys[idx], nil
}

// Increment advances the shared request counter by one.
func (r *Ring) Increment(ctx context.Context) error {
	count, err := r.count(ctx)
	if err != nil {
		return err
	}
	return r.settings.SetSetting(ctx, counterKey, strconv.Itoa(count+1))
}

func (r *Ring) count(ctx context.Context) (int, error) {
	raw, err := r.settings.Setting(ctx, counterKey, "0")
	if err != nil {
		return 0, fmt.Errorf("keyring: read counter: %w", err)
	}
	count, err := strconv.Atoi(raw)
	if err != nil {
		// A corrupt counter resets rotation, never blocks requests.
		return 0, nil
	}
	return count, nil
}

// mask hides all but the edges of a key for logging.
func mask(key string) string {
	if len(key) < 13 {
		return "***"
	}
	return key[:8] + "..." + key[len(key)-4:]
}
