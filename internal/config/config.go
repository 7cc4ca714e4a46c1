// Package config loads a replica's process-wide configuration: its own
// identity and the view it should start with. Configuration is read once
// at startup from the environment, with flags available for local runs and
// tests — there is no hot reload.
package config

import (
	"fmt"
	"os"
	"strings"
)

// Config is a single replica's startup configuration.
type Config struct {
	// Self is this replica's own identity (SOCKET_ADDRESS), form host:port.
	Self string
	// Seeds are the other replica identities this node should start with,
	// derived from VIEW with Self removed and duplicates dropped.
	Seeds []string
}

// Load resolves Self/Seeds from flags first, falling back to the
// SOCKET_ADDRESS and VIEW environment variables. Passing "" for either flag
// falls through to its environment variable.
func Load(flagAddr, flagView string) (*Config, error) {
	self := flagAddr
	if self == "" {
		self = os.Getenv("SOCKET_ADDRESS")
	}
	if self == "" {
		return nil, fmt.Errorf("replica identity is required: set SOCKET_ADDRESS or pass -addr")
	}

	view := flagView
	if view == "" {
		view = os.Getenv("VIEW")
	}

	return &Config{Self: self, Seeds: parseSeeds(view, self)}, nil
}

// parseSeeds splits a comma-separated VIEW value into a deduplicated list
// of peer identities, excluding self. An empty view yields no seeds —
// "self-only" — per the documented resolution of the VIEW_ADDRESS-empty
// open question.
func parseSeeds(view, self string) []string {
	if strings.TrimSpace(view) == "" {
		return nil
	}

	seen := make(map[string]bool)
	var out []string
	for _, raw := range strings.Split(view, ",") {
		addr := strings.TrimSpace(raw)
		if addr == "" || addr == self || seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, addr)
	}
	return out
}
