package horum

import (
	"time"

	"github.com/hazyhaar/horum/internal/fetch"
	"github.com/hazyhaar/horum/internal/keyring"
	"github.com/hazyhaar/horum/internal/monitor"
	"github.com/hazyhaar/horum/internal/track"
)

// Config configures the horum service.
type Config struct {
	// UpstreamURL is the imageboard API root, without trailing slash.
	UpstreamURL string

	// Boards to archive. Empty means discover the full list upstream at
	// each cycle.
	Boards []string

	// Fetch settings (timeout, body cap, courtesy interval, user agent).
	Fetch fetch.Config

	// Track settings (per-assignment sweep cap).
	Track track.Config

	// Monitor settings (cycle interval).
	Monitor monitor.Config

	// Keyring settings for the analysis collaborator's API keys.
	Keyring keyring.Config
}

func (c *Config) defaults() {
	if c.UpstreamURL == "" {
		c.UpstreamURL = "https://a.4cdn.org"
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = 30 * time.Second
	}
	if c.Fetch.MinInterval <= 0 {
		c.Fetch.MinInterval = 1100 * time.Millisecond
	}
	if c.Track.MatchLimit <= 0 {
		c.Track.MatchLimit = 100
	}
	if c.Monitor.Interval <= 0 {
		c.Monitor.Interval = 5 * time.Minute
	}
}

func defaultConfig() *Config {
	return &Config{
		UpstreamURL: "https://a.4cdn.org",
		Fetch: fetch.Config{
			Timeout:     30 * time.Second,
			MinInterval: 1100 * time.Millisecond,
		},
		Track:   track.Config{MatchLimit: 100},
		Monitor: monitor.Config{Interval: 5 * time.Minute},
	}
}
