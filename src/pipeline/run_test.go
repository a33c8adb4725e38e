package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prbuild-agent/src/logger"
	"prbuild-agent/src/provider"
	"prbuild-agent/src/ranking"
	"prbuild-agent/src/teamcity"
	"prbuild-agent/src/teamcity/teamcitytest"
)

func TestRunner_RunBuild(t *testing.T) {
	fp := newFakeProvider()
	runner := NewRunner(fp, logger.NewSilentLogger())

	outcome, err := runner.RunBuild(context.Background(), provider.BuildDefinition{BuildTypeID: "App"}, "12")
	require.NoError(t, err)

	assert.True(t, outcome.Queued)
	assert.Equal(t, provider.StateQueued, outcome.State)
	assert.Equal(t, "https://ci/queued", outcome.WebURL)
	assert.Equal(t, []string{"requests/12"}, fp.enqueued)
}

func TestRunOutcome_Message(t *testing.T) {
	assert.Equal(t, "Build in queue", (&RunOutcome{Queued: true, State: provider.StateQueued}).Message())
	assert.Equal(t, "Build started", (&RunOutcome{State: provider.StateRunning}).Message())
}

func TestRunner_RunBuildError(t *testing.T) {
	fp := newFakeProvider()
	fp.failures["enqueue"] = provider.ErrTransport

	_, err := NewRunner(fp, logger.NewSilentLogger()).RunBuild(context.Background(), provider.BuildDefinition{BuildTypeID: "App"}, "12")
	assert.ErrorIs(t, err, provider.ErrTransport)
}

// Enqueue followed by a query against the fake server must never read as NO_BUILD.
func TestRunThenAggregate(t *testing.T) {
	srv := teamcitytest.NewServer()
	defer srv.Close()

	tc := teamcity.NewProvider(teamcity.NewClient(srv.BaseURL(), teamcity.BasicAuth(teamcitytest.Username, teamcitytest.Password)))
	log := logger.NewSilentLogger()
	defs := []provider.BuildDefinition{{BuildTypeID: "Pulls"}, {BuildTypeID: "Linux", BranchPrefix: "pull"}}

	before, err := NewAggregator(tc, log).Aggregate(context.Background(), defs, "5")
	require.NoError(t, err)
	for _, row := range before.Rows {
		assert.Equal(t, ranking.StatusNoBuild, row.Status)
	}

	for _, def := range defs {
		outcome, err := NewRunner(tc, log).RunBuild(context.Background(), def, "5")
		require.NoError(t, err)
		assert.True(t, outcome.Queued)
	}

	after, err := NewAggregator(tc, log).Aggregate(context.Background(), defs, "5")
	require.NoError(t, err)
	for _, row := range after.Rows {
		assert.Equal(t, ranking.StatusQueued, row.Status, row.Definition.BuildTypeID)
	}
}
