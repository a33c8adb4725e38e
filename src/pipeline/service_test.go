package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prbuild-agent/src/config"
	"prbuild-agent/src/logger"
	"prbuild-agent/src/provider"
	"prbuild-agent/src/ranking"
)

func testConfig() *config.Config {
	return &config.Config{
		BaseURL:  "https://ci.example.org/",
		Username: "robot",
		Password: "secret",
		Repository: map[string][]config.BuildDefinitionRecord{
			"CasePro": {
				{BuildType: "CasePro_Pulls", Name: "Pull build"},
				{BuildType: "CasePro_Linux", Name: "Linux image", BranchPrefix: "pull", Depends: "CasePro_Pulls"},
			},
		},
		Hosts: config.DefaultHosts(),
	}
}

func newTestService(cfg *config.Config, fp *fakeProvider) *Service {
	return NewService(cfg, func(*config.Config) provider.Provider { return fp }, logger.NewSilentLogger())
}

func TestService_RenderReady(t *testing.T) {
	fp := newFakeProvider()
	fp.set("CasePro_Pulls", provider.Build{Number: "1.4.0", Status: "SUCCESS", State: "finished"})
	fp.set("CasePro_Linux", provider.Build{Number: "1.3.9", Status: "SUCCESS", State: "running"})

	state, err := newTestService(testConfig(), fp).Render(context.Background(), "https://github.com/Keepteam/CasePro/pull/42")
	require.NoError(t, err)

	require.Equal(t, PanelReady, state.Kind, "err: %v", state.Err)
	assert.Equal(t, "github", state.Host)
	assert.Equal(t, "CasePro", state.Repository)
	assert.Equal(t, "42", state.ChangeRef)
	require.Len(t, state.Panel.Rows, 2)
	assert.Equal(t, ranking.StatusRunning, state.Panel.Rows[1].Status)
	assert.True(t, state.Panel.Rows[1].Stale)
}

func TestService_RenderStates(t *testing.T) {
	invalid := testConfig()
	invalid.BaseURL = "https://ci.example.org"

	tests := []struct {
		name    string
		cfg     *config.Config
		setup   func(*fakeProvider)
		url     string
		want    PanelKind
		wantURL string
	}{
		{name: "no config stored", cfg: nil, url: "https://github.com/Keepteam/CasePro/pull/1", want: PanelNoConfig},
		{name: "repository not configured", cfg: testConfig(), url: "https://github.com/Keepteam/Other/pull/1", want: PanelNoConfig},
		{name: "repository name is case sensitive", cfg: testConfig(), url: "https://github.com/Keepteam/casepro/pull/1", want: PanelNoConfig},
		{name: "invalid config", cfg: invalid, url: "https://github.com/Keepteam/CasePro/pull/1", want: PanelInvalidConfig},
		{name: "files tab", cfg: testConfig(), url: "https://github.com/Keepteam/CasePro/pull/1/files", want: PanelNotApplicable},
		{name: "unknown host", cfg: testConfig(), url: "https://example.com/Keepteam/CasePro/pull/1", want: PanelNotApplicable},
		{
			name:  "connection error",
			cfg:   testConfig(),
			setup: func(fp *fakeProvider) { fp.failures["CasePro_Linux"] = provider.ErrTransport },
			url:   "https://github.com/Keepteam/CasePro/pull/1",
			want:  PanelConnectionError,
		},
		{
			name:    "unauthorized",
			cfg:     testConfig(),
			setup:   func(fp *fakeProvider) { fp.denied["CasePro_Pulls"] = true },
			url:     "https://github.com/Keepteam/CasePro/pull/1",
			want:    PanelUnauthorized,
			wantURL: "https://ci/login.html",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := newFakeProvider()
			if tt.setup != nil {
				tt.setup(fp)
			}
			state, err := newTestService(tt.cfg, fp).Render(context.Background(), tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, state.Kind)
			assert.Nil(t, state.Panel)
			assert.Error(t, state.Err)
			assert.Equal(t, tt.wantURL, state.LoginURL)
		})
	}
}

func TestService_RenderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestService(testConfig(), newFakeProvider()).Render(ctx, "https://github.com/Keepteam/CasePro/pull/1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_ReloadSnapshots(t *testing.T) {
	cfg := testConfig()
	svc := newTestService(cfg, newFakeProvider())

	cfg.Repository["Late"] = []config.BuildDefinitionRecord{{BuildType: "Late_Build"}}
	_, found := svc.Config().FindDefinition("Late_Build")
	assert.False(t, found, "service must not observe edits to the caller's config")

	svc.Reload(cfg)
	_, found = svc.Config().FindDefinition("Late_Build")
	assert.True(t, found)
}

func TestService_RunBuild(t *testing.T) {
	fp := newFakeProvider()
	svc := newTestService(testConfig(), fp)

	outcome, err := svc.RunBuild(context.Background(), "https://github.com/Keepteam/CasePro/pull/8", "CasePro_Linux")
	require.NoError(t, err)
	assert.True(t, outcome.Queued)
	assert.Equal(t, []string{"pull/8"}, fp.enqueued)

	_, err = svc.RunBuild(context.Background(), "https://github.com/Keepteam/CasePro/pull/8", "Nope")
	assert.ErrorIs(t, err, provider.ErrNoConfig)

	_, err = svc.RunBuild(context.Background(), "https://github.com/Keepteam/CasePro", "CasePro_Linux")
	assert.ErrorIs(t, err, provider.ErrInvalidURL)
}
