// Package store defines the interface for persisting the prbuild configuration.
package store

import (
	"context"
	"errors"

	"prbuild-agent/src/config"
)

// ErrNotFound is returned by Get when no configuration has been stored yet.
var ErrNotFound = errors.New("configuration not found")

// SettingsKey is the key the configuration blob is stored under.
const SettingsKey = "options"

// Store holds the single configuration blob: server URL, credentials and the
// repository to build-definition mapping.
type Store interface {
	// Get returns the stored configuration, or ErrNotFound.
	Get(ctx context.Context) (*config.Config, error)

	// Set replaces the stored configuration.
	Set(ctx context.Context, cfg *config.Config) error

	// Close closes the store connection
	Close() error
}
