// Package pipeline turns a change-request page into a build panel: it fans
// the configured definitions out to the CI provider, classifies and orders
// the results, and runs builds on request. It also wires the broker and
// config store the agents share. Used by the CLI, the agents and the MCP server.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"prbuild-agent/src/broker"
	"prbuild-agent/src/config"
	"prbuild-agent/src/logger"
	"prbuild-agent/src/store"
)

// Mode selects the infrastructure backing the agents.
type Mode int

const (
	// LocalMode keeps messages and configuration in memory.
	LocalMode Mode = iota
	// DistributedMode uses Redpanda for messages and Postgres for configuration.
	DistributedMode
)

func (m Mode) String() string {
	if m == DistributedMode {
		return "distributed"
	}
	return "local"
}

// Options locate the shared infrastructure.
type Options struct {
	RedpandaBrokers []string
	PostgresDSN     string
}

// DetectMode picks DistributedMode when brokers are configured.
func DetectMode(opts Options) Mode {
	if len(opts.RedpandaBrokers) > 0 {
		return DistributedMode
	}
	return LocalMode
}

// Runtime is the broker and store shared by the agents of one process.
type Runtime struct {
	Mode   Mode
	Broker broker.Broker
	Store  store.Store
}

// NewRuntime connects to the infrastructure selected by opts.
func NewRuntime(ctx context.Context, opts Options, log logger.Logger) (*Runtime, error) {
	mode := DetectMode(opts)
	if mode == LocalMode {
		return &Runtime{Mode: mode, Broker: broker.NewInMemoryBroker(), Store: store.NewMemoryStore()}, nil
	}

	if opts.PostgresDSN == "" {
		return nil, fmt.Errorf("distributed mode requires a Postgres DSN")
	}

	redpandaBroker, err := broker.NewRedpandaBroker(opts.RedpandaBrokers, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redpanda broker: %w", err)
	}

	postgresStore, err := store.NewPostgresStore(ctx, opts.PostgresDSN)
	if err != nil {
		redpandaBroker.Close()
		return nil, fmt.Errorf("failed to create Postgres store: %w", err)
	}

	return &Runtime{Mode: mode, Broker: redpandaBroker, Store: postgresStore}, nil
}

// LoadConfig returns the stored configuration, seeding the store from
// fallback when it is empty. A nil result with a nil error means nothing is
// configured anywhere.
func (r *Runtime) LoadConfig(ctx context.Context, fallback *config.Config) (*config.Config, error) {
	cfg, err := r.Store.Get(ctx)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if fallback == nil {
		return nil, nil
	}
	if err := r.Store.Set(ctx, fallback); err != nil {
		return nil, err
	}
	return fallback, nil
}

// Close shuts down the broker and the store.
func (r *Runtime) Close() error {
	if err := r.Broker.Close(); err != nil {
		return err
	}
	return r.Store.Close()
}
