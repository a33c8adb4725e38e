package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"prbuild-agent/src/config"
	"prbuild-agent/src/host"
	"prbuild-agent/src/logger"
	"prbuild-agent/src/provider"
)

// PanelKind is what the panel shows for a page.
type PanelKind string

const (
	PanelReady           PanelKind = "ready"
	PanelNotApplicable   PanelKind = "not_applicable"
	PanelNoConfig        PanelKind = "no_config"
	PanelInvalidConfig   PanelKind = "invalid_config"
	PanelConnectionError PanelKind = "connection_error"
	PanelUnauthorized    PanelKind = "unauthorized"
)

// PanelState is the outcome of rendering one page. Panel is set only when
// Kind is PanelReady; LoginURL only when Kind is PanelUnauthorized.
type PanelState struct {
	Kind       PanelKind
	PageURL    string
	Host       string
	Repository string
	ChangeRef  string
	Panel      *Panel
	LoginURL   string
	Err        error
}

// ProviderFactory builds the CI provider for a configuration snapshot.
type ProviderFactory func(cfg *config.Config) provider.Provider

// Service turns page URLs into panels. It holds the active configuration as
// an immutable snapshot; every render works on the snapshot it started with.
type Service struct {
	cfg         atomic.Pointer[config.Config]
	newProvider ProviderFactory
	logger      logger.Logger
}

// NewService creates a service. cfg may be nil until the first Reload.
func NewService(cfg *config.Config, newProvider ProviderFactory, log logger.Logger) *Service {
	s := &Service{newProvider: newProvider, logger: log}
	s.Reload(cfg)
	return s
}

// Config returns the current snapshot. Callers must not modify it.
func (s *Service) Config() *config.Config {
	return s.cfg.Load()
}

// Reload replaces the configuration. Renders already in flight keep theirs.
func (s *Service) Reload(cfg *config.Config) {
	s.cfg.Store(cfg.Snapshot())
}

// Render builds the panel state for a change-request page. The returned error
// is only set when ctx is already done; every other failure is a PanelState.
func (s *Service) Render(ctx context.Context, pageURL string) (*PanelState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := s.Config()
	state := &PanelState{PageURL: pageURL}

	if cfg == nil {
		return s.fail(state, PanelNoConfig, fmt.Errorf("%w: nothing stored", provider.ErrNoConfig)), nil
	}

	reg, err := host.NewRegistry(cfg.Hosts)
	if err != nil {
		return s.fail(state, PanelInvalidConfig, err), nil
	}
	page, err := reg.Detect(pageURL)
	if err != nil {
		return s.fail(state, PanelNotApplicable, err), nil
	}
	state.Host = page.Adapter.Name()
	state.Repository = page.Repository
	state.ChangeRef = page.ChangeRef

	defs, err := config.Resolve(cfg, page.Repository)
	switch {
	case errors.Is(err, provider.ErrInvalidConfig):
		return s.fail(state, PanelInvalidConfig, err), nil
	case err != nil:
		return s.fail(state, PanelNoConfig, err), nil
	}

	p := s.newProvider(cfg)
	panel, err := NewAggregator(p, s.logger).Aggregate(ctx, defs, page.ChangeRef)
	if err != nil {
		if IsUnauthorized(err) {
			if linker, ok := p.(provider.Linker); ok {
				state.LoginURL = linker.LoginURL()
			}
			return s.fail(state, PanelUnauthorized, err), nil
		}
		return s.fail(state, PanelConnectionError, err), nil
	}

	state.Kind = PanelReady
	state.Panel = panel
	s.logger.Debug("[Service] %s #%s: %d rows", page.Repository, page.ChangeRef, len(panel.Rows))
	return state, nil
}

func (s *Service) fail(state *PanelState, kind PanelKind, err error) *PanelState {
	state.Kind = kind
	state.Err = err
	if kind != PanelNotApplicable {
		s.logger.Debug("[Service] %s: %s: %v", state.PageURL, kind, err)
	}
	return state
}

// RunBuild enqueues buildTypeID for the change request shown at pageURL.
// The build type must be configured for the page's repository.
func (s *Service) RunBuild(ctx context.Context, pageURL, buildTypeID string) (*RunOutcome, error) {
	cfg := s.Config()
	if cfg == nil {
		return nil, fmt.Errorf("%w: nothing stored", provider.ErrNoConfig)
	}

	reg, err := host.NewRegistry(cfg.Hosts)
	if err != nil {
		return nil, err
	}
	page, err := reg.Detect(pageURL)
	if err != nil {
		return nil, err
	}
	defs, err := config.Resolve(cfg, page.Repository)
	if err != nil {
		return nil, err
	}

	for _, def := range defs {
		if def.BuildTypeID == buildTypeID {
			return NewRunner(s.newProvider(cfg), s.logger).RunBuild(ctx, def, page.ChangeRef)
		}
	}
	return nil, fmt.Errorf("%w: %s is not configured for %s", provider.ErrNoConfig, buildTypeID, page.Repository)
}
