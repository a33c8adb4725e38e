// Package messaging carries the panel's CI operations over the broker. The
// Agent owns the TeamCity credentials and answers requests. The Client sits
// next to the panel and implements provider.Provider, so the aggregation
// engine runs against it unchanged.
package messaging

import (
	"context"
	"fmt"

	"prbuild-agent/src/config"
	"prbuild-agent/src/contracts"
	"prbuild-agent/src/logger"
	"prbuild-agent/src/pipeline"
	"prbuild-agent/src/provider"
	"prbuild-agent/src/store"
)

// Handler answers a single request against the current configuration.
type Handler struct {
	service     *pipeline.Service
	newProvider pipeline.ProviderFactory
	store       store.Store
	logger      logger.Logger
}

// NewHandler creates a handler. The service holds the configuration snapshot;
// st is where RELOAD_CONFIG re-reads it from.
func NewHandler(svc *pipeline.Service, newProvider pipeline.ProviderFactory, st store.Store, log logger.Logger) *Handler {
	return &Handler{service: svc, newProvider: newProvider, store: st, logger: log}
}

// Handle never fails: problems become a Response with a nil payload.
func (h *Handler) Handle(ctx context.Context, req contracts.Request) contracts.Response {
	resp := contracts.Response{ID: req.ID}

	switch req.Kind {
	case contracts.KindGetBuild, contracts.KindRunBuild:
		br, err := h.build(ctx, req)
		if err != nil {
			h.logger.Error("[Handler] %s %s #%s: %v", req.Kind, req.BuildType, req.Pull, err)
			resp.Error = err.Error()
			return resp
		}
		resp.Response = br

	case contracts.KindReloadConfig:
		if err := h.reload(ctx); err != nil {
			h.logger.Error("[Handler] reload failed: %v", err)
			resp.Error = err.Error()
		}

	default:
		resp.Error = fmt.Sprintf("unknown request kind %q", req.Kind)
		h.logger.Warn("[Handler] %s", resp.Error)
	}

	return resp
}

func (h *Handler) build(ctx context.Context, req contracts.Request) (*contracts.BuildResponse, error) {
	if req.BuildType == "" || req.Pull == "" {
		return nil, fmt.Errorf("request needs buildType and pull")
	}

	cfg := h.service.Config()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	def := h.definition(cfg, req)
	p := h.newProvider(cfg)

	var (
		res *provider.QueryResult
		err error
	)
	if req.Kind == contracts.KindRunBuild {
		res, err = p.EnqueueBuild(ctx, def, req.Pull)
	} else {
		res, err = p.QueryBuild(ctx, def, req.Pull)
	}
	if err != nil {
		return nil, err
	}

	return &contracts.BuildResponse{IsAuthorized: res.Authorized, Data: res.Payload}, nil
}

// definition builds the definition to query. The prefix carried by the
// request is authoritative; only a request without one falls back to the
// configured definition.
func (h *Handler) definition(cfg *config.Config, req contracts.Request) provider.BuildDefinition {
	def, ok := cfg.FindDefinition(req.BuildType)
	if !ok {
		def = provider.BuildDefinition{BuildTypeID: req.BuildType, DisplayName: req.BuildType}
	}
	if req.BranchPrefix != "" {
		def.BranchPrefix = req.BranchPrefix
	}
	return def
}

func (h *Handler) reload(ctx context.Context) error {
	if h.store == nil {
		return fmt.Errorf("no configuration store")
	}
	cfg, err := h.store.Get(ctx)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	h.service.Reload(cfg)
	h.logger.Info("[Handler] configuration reloaded")
	return nil
}
