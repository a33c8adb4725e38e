package pipeline

import (
	"context"
	"fmt"

	"prbuild-agent/src/logger"
	"prbuild-agent/src/provider"
)

// RunOutcome describes the build the server accepted.
type RunOutcome struct {
	Queued      bool
	State       string
	WebURL      string
	BuildNumber string
}

// Message is the one-line acknowledgement shown after a run request.
func (o *RunOutcome) Message() string {
	if o.Queued {
		return "Build in queue"
	}
	return "Build started"
}

// Runner submits builds on user request. It does not wait for the build;
// callers re-aggregate to see the new state.
type Runner struct {
	provider provider.Provider
	logger   logger.Logger
}

// NewRunner creates a runner over p.
func NewRunner(p provider.Provider, log logger.Logger) *Runner {
	return &Runner{provider: p, logger: log}
}

// RunBuild enqueues a build of def for the change request.
func (r *Runner) RunBuild(ctx context.Context, def provider.BuildDefinition, changeRef string) (*RunOutcome, error) {
	res, err := r.provider.EnqueueBuild(ctx, def, changeRef)
	if err != nil {
		return nil, fmt.Errorf("run %s for %s: %w", def.BuildTypeID, def.Branch(changeRef), err)
	}
	if res == nil || !res.Authorized {
		return nil, fmt.Errorf("run %s: %w", def.BuildTypeID, provider.ErrUnauthorized)
	}

	outcome := &RunOutcome{}
	if build, ok := res.Payload.Latest(); ok {
		outcome.State = build.State
		outcome.WebURL = build.WebURL
		outcome.BuildNumber = build.Number
	}
	outcome.Queued = outcome.State == provider.StateQueued

	r.logger.Info("[Runner] %s on %s: state %q", def.BuildTypeID, def.Branch(changeRef), outcome.State)
	return outcome, nil
}
