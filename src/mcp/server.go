// Package mcp exposes the build panel as Model Context Protocol tools, so an
// assistant can read and trigger change-request builds.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"prbuild-agent/src/contracts"
	"prbuild-agent/src/logger"
	"prbuild-agent/src/navigation"
	"prbuild-agent/src/pipeline"
	"prbuild-agent/src/provider"
	"prbuild-agent/src/store"
)

// Server is the MCP server for prbuild.
type Server struct {
	mcpServer   *server.MCPServer
	service     *pipeline.Service
	newProvider pipeline.ProviderFactory
	settings    store.Store
	panels      PanelStore
	logger      logger.Logger
}

// NewServer creates a new MCP server. settings may be nil, in which case
// reload_config reports an error.
func NewServer(svc *pipeline.Service, newProvider pipeline.ProviderFactory, settings store.Store, log logger.Logger) *Server {
	s := server.NewMCPServer(
		"prbuild",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer:   s,
		service:     svc,
		newProvider: newProvider,
		settings:    settings,
		panels:      NewInMemoryPanelStore(),
		logger:      log,
	}
	srv.registerTools()

	return srv
}

// registerTools registers all available tools.
func (s *Server) registerTools() {
	renderTool := mcp.NewTool("render_panel",
		mcp.WithDescription("Show the TeamCity build panel for a pull or merge request page. Returns one row per configured build definition with its status (NO_BUILD, SUCCESS, FAILURE, RUNNING, QUEUED), whether it is stale against the build it depends on, and a link to the build. If the panel kind is 'unauthorized', the user must log in at login_url."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Pull request URL, e.g. https://github.com/org/repo/pull/42"),
		),
	)

	rowTool := mcp.NewTool("get_build_row",
		mcp.WithDescription("Get one row of the panel last rendered for a page, without querying TeamCity again. Use after render_panel."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Page URL passed to render_panel"),
		),
		mcp.WithString("build_type",
			mcp.Required(),
			mcp.Description("TeamCity build configuration ID"),
		),
	)

	runTool := mcp.NewTool("run_build",
		mcp.WithDescription("Queue a TeamCity build of one configured build definition for the change request at the page URL. Call render_panel afterwards to see the new state."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Pull request URL"),
		),
		mcp.WithString("build_type",
			mcp.Required(),
			mcp.Description("TeamCity build configuration ID, as listed by render_panel"),
		),
	)

	getBuildTool := mcp.NewTool("get_build",
		mcp.WithDescription("Return the raw TeamCity answer for one build configuration and change-request number: the queued entry if there is one, otherwise the latest build."),
		mcp.WithString("build_type",
			mcp.Required(),
			mcp.Description("TeamCity build configuration ID"),
		),
		mcp.WithString("pull",
			mcp.Required(),
			mcp.Description("Change-request number"),
		),
		mcp.WithString("repository",
			mcp.Description("Repository whose definition supplies the branch prefix; the same build type may use different prefixes in different repositories"),
		),
		mcp.WithString("branch_prefix",
			mcp.Description("Branch prefix; overrides the repository's (default: 'requests')"),
		),
	)

	reloadTool := mcp.NewTool("reload_config",
		mcp.WithDescription("Re-read the stored prbuild configuration."),
	)

	s.mcpServer.AddTool(renderTool, s.handleRenderPanel)
	s.mcpServer.AddTool(rowTool, s.handleGetBuildRow)
	s.mcpServer.AddTool(runTool, s.handleRunBuild)
	s.mcpServer.AddTool(getBuildTool, s.handleGetBuild)
	s.mcpServer.AddTool(reloadTool, s.handleReloadConfig)
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) handleRenderPanel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url := request.GetString("url", "")
	if url == "" {
		return mcp.NewToolResultError("url parameter is required"), nil
	}

	state, err := s.service.Render(ctx, url)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("render failed: %v", err)), nil
	}

	panel := navigation.Rendered(state, time.Now())
	if state.Kind == pipeline.PanelReady {
		s.panels.Put(panel)
	}
	return jsonResult(panel)
}

func (s *Server) handleGetBuildRow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url := request.GetString("url", "")
	if url == "" {
		return mcp.NewToolResultError("url parameter is required"), nil
	}
	buildType := request.GetString("build_type", "")
	if buildType == "" {
		return mcp.NewToolResultError("build_type parameter is required"), nil
	}

	row, found := s.panels.Row(url, buildType)
	if !found {
		return mcp.NewToolResultError(fmt.Sprintf("no row %s for %s; call render_panel first", buildType, url)), nil
	}
	return jsonResult(row)
}

func (s *Server) handleRunBuild(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url := request.GetString("url", "")
	if url == "" {
		return mcp.NewToolResultError("url parameter is required"), nil
	}
	buildType := request.GetString("build_type", "")
	if buildType == "" {
		return mcp.NewToolResultError("build_type parameter is required"), nil
	}

	outcome, err := s.service.RunBuild(ctx, url, buildType)
	if err != nil {
		return mcp.NewToolResultError(provider.WrapError(err).Error()), nil
	}
	return jsonResult(outcome)
}

func (s *Server) handleGetBuild(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	buildType := request.GetString("build_type", "")
	pull := request.GetString("pull", "")
	if buildType == "" || pull == "" {
		return mcp.NewToolResultError("build_type and pull parameters are required"), nil
	}

	cfg := s.service.Config()
	if err := cfg.Validate(); err != nil {
		return mcp.NewToolResultError(provider.WrapError(err).Error()), nil
	}

	repo := request.GetString("repository", "")
	prefix := request.GetString("branch_prefix", "")
	var def provider.BuildDefinition
	var ok bool
	switch {
	case repo != "":
		def, ok = cfg.RepositoryDefinition(repo, buildType)
		if !ok {
			return mcp.NewToolResultError(provider.WrapError(fmt.Errorf("%w: %s is not configured for %s", provider.ErrNoConfig, buildType, repo)).Error()), nil
		}
	case prefix == "":
		// Without a repository or prefix the first configured match decides.
		def, ok = cfg.FindDefinition(buildType)
	}
	if !ok {
		def = provider.BuildDefinition{BuildTypeID: buildType, DisplayName: buildType}
	}
	if prefix != "" {
		def.BranchPrefix = prefix
	}

	res, err := s.newProvider(cfg).QueryBuild(ctx, def, pull)
	if err != nil {
		return mcp.NewToolResultError(provider.WrapError(err).Error()), nil
	}
	return jsonResult(contracts.BuildResponse{IsAuthorized: res.Authorized, Data: res.Payload})
}

func (s *Server) handleReloadConfig(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.settings == nil {
		return mcp.NewToolResultError("no configuration store"), nil
	}
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reload failed: %v", err)), nil
	}
	if err := cfg.Validate(); err != nil {
		return mcp.NewToolResultError(provider.WrapError(err).Error()), nil
	}
	s.service.Reload(cfg)
	s.logger.Info("[MCP] configuration reloaded")

	return mcp.NewToolResultText(fmt.Sprintf("loaded %d repositories", len(cfg.Repository))), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
