package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prbuild-agent/src/config"
	"prbuild-agent/src/contracts"
	"prbuild-agent/src/logger"
	"prbuild-agent/src/pipeline"
	"prbuild-agent/src/provider"
	"prbuild-agent/src/store"
	"prbuild-agent/src/teamcity"
	"prbuild-agent/src/teamcity/teamcitytest"
)

const pageURL = "https://github.com/acme/CasePro/pull/42"

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		BaseURL:  baseURL,
		Username: teamcitytest.Username,
		Password: teamcitytest.Password,
		Repository: map[string][]config.BuildDefinitionRecord{
			"CasePro": {
				{BuildType: "CasePro_Pulls", Name: "Pulls"},
				{BuildType: "CasePro_Linux", Name: "Linux", BranchPrefix: "pull"},
			},
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, settings store.Store) *Server {
	t.Helper()
	factory := func(c *config.Config) provider.Provider { return teamcity.NewProviderFromConfig(c) }
	log := logger.NewSilentLogger()
	return NewServer(pipeline.NewService(cfg, factory, log), factory, settings, log)
}

func toolRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return text.Text
}

func TestRenderPanelAndRow(t *testing.T) {
	srv := teamcitytest.NewServer()
	defer srv.Close()
	srv.AddBuild("CasePro_Pulls", "requests/42", provider.Build{Number: "1.0.0", Status: "FAILURE", State: "finished"})

	s := newTestServer(t, testConfig(srv.BaseURL()), nil)

	res, err := s.handleRenderPanel(context.Background(), toolRequest(map[string]any{"url": pageURL}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	var panel contracts.PanelRendered
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &panel))
	assert.Equal(t, "ready", panel.Kind)
	require.Len(t, panel.Rows, 2)

	res, err = s.handleGetBuildRow(context.Background(), toolRequest(map[string]any{"url": pageURL, "build_type": "CasePro_Pulls"}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var row contracts.PanelRow
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &row))
	assert.Equal(t, "FAILURE", row.Status)
	assert.Equal(t, "1.0.0", row.BuildNumber)
}

func TestGetBuildRow_BeforeRender(t *testing.T) {
	s := newTestServer(t, testConfig("https://ci/"), nil)

	res, err := s.handleGetBuildRow(context.Background(), toolRequest(map[string]any{"url": pageURL, "build_type": "CasePro_Pulls"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestRunBuild(t *testing.T) {
	srv := teamcitytest.NewServer()
	defer srv.Close()

	s := newTestServer(t, testConfig(srv.BaseURL()), nil)

	res, err := s.handleRunBuild(context.Background(), toolRequest(map[string]any{"url": pageURL, "build_type": "CasePro_Linux"}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	var outcome pipeline.RunOutcome
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &outcome))
	assert.True(t, outcome.Queued)

	res, err = s.handleGetBuild(context.Background(), toolRequest(map[string]any{"build_type": "CasePro_Linux", "pull": "42"}))
	require.NoError(t, err)

	var br contracts.BuildResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &br))
	assert.True(t, br.IsAuthorized)
	require.NotNil(t, br.Data)
	assert.Equal(t, "pull/42", br.Data.Builds[0].BranchName)
}

func TestGetBuild_RepositorySelectsPrefix(t *testing.T) {
	srv := teamcitytest.NewServer()
	defer srv.Close()
	srv.AddBuild("Shared_Build", "requests/42", provider.Build{Number: "3.1.0", Status: "SUCCESS", State: "finished"})

	cfg := &config.Config{
		BaseURL:  srv.BaseURL(),
		Username: teamcitytest.Username,
		Password: teamcitytest.Password,
		Repository: map[string][]config.BuildDefinitionRecord{
			"Alpha": {{BuildType: "Shared_Build", BranchPrefix: "pull"}},
			"Beta":  {{BuildType: "Shared_Build"}},
		},
	}
	s := newTestServer(t, cfg, nil)

	tests := []struct {
		repo  string
		count int
	}{
		{"Beta", 1},
		{"Alpha", 0},
	}
	for _, tt := range tests {
		t.Run(tt.repo, func(t *testing.T) {
			res, err := s.handleGetBuild(context.Background(), toolRequest(map[string]any{"build_type": "Shared_Build", "pull": "42", "repository": tt.repo}))
			require.NoError(t, err)
			require.False(t, res.IsError, resultText(t, res))

			var br contracts.BuildResponse
			require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &br))
			require.NotNil(t, br.Data)
			assert.Equal(t, tt.count, br.Data.Count)
		})
	}

	res, err := s.handleGetBuild(context.Background(), toolRequest(map[string]any{"build_type": "Shared_Build", "pull": "42", "repository": "Gamma"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestRunBuild_UnknownBuildType(t *testing.T) {
	s := newTestServer(t, testConfig("https://ci/"), nil)

	res, err := s.handleRunBuild(context.Background(), toolRequest(map[string]any{"url": pageURL, "build_type": "Nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestMissingParameters(t *testing.T) {
	s := newTestServer(t, testConfig("https://ci/"), nil)
	ctx := context.Background()
	empty := toolRequest(map[string]any{})

	for name, handle := range map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"render_panel":  s.handleRenderPanel,
		"get_build_row": s.handleGetBuildRow,
		"run_build":     s.handleRunBuild,
		"get_build":     s.handleGetBuild,
	} {
		res, err := handle(ctx, empty)
		require.NoError(t, err, name)
		assert.True(t, res.IsError, name)
	}
}

func TestReloadConfig(t *testing.T) {
	settings := store.NewMemoryStore()
	s := newTestServer(t, nil, settings)
	ctx := context.Background()

	res, err := s.handleReloadConfig(ctx, toolRequest(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError, "nothing stored yet")

	require.NoError(t, settings.Set(ctx, testConfig("https://ci/")))
	res, err = s.handleReloadConfig(ctx, toolRequest(nil))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))
	assert.Equal(t, "loaded 1 repositories", resultText(t, res))
	assert.NotNil(t, s.service.Config())
}

func TestReloadConfig_NoStore(t *testing.T) {
	s := newTestServer(t, nil, nil)
	res, err := s.handleReloadConfig(context.Background(), toolRequest(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
