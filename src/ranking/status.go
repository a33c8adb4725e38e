// Package ranking classifies build results and orders them for display.
// The pipeline, the MCP server and the TUI all go through this package so a
// build reads the same everywhere.
package ranking

import (
	"fmt"

	"prbuild-agent/src/provider"
)

// Status is the semantic state of a build definition for one change request.
type Status string

const (
	StatusNoBuild Status = "NO_BUILD"
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
	StatusRunning Status = "RUNNING"
	StatusQueued  Status = "QUEUED"

	// StatusUnknown is only ever returned together with ErrUnknownBuildState.
	StatusUnknown Status = "UNKNOWN"
)

// Classify maps a payload to a Status by inspecting its most recent build.
// FAILURE wins over the build state, so a running build the server already
// flagged as failed reads as failed.
func Classify(payload *provider.BuildPayload) (Status, error) {
	if payload == nil {
		return StatusUnknown, fmt.Errorf("%w: no payload", provider.ErrUnknownBuildState)
	}
	if payload.Count == 0 {
		return StatusNoBuild, nil
	}

	build, ok := payload.Latest()
	if !ok {
		return StatusUnknown, fmt.Errorf("%w: count %d with no builds", provider.ErrUnknownBuildState, payload.Count)
	}

	switch {
	case build.State == provider.StateQueued:
		return StatusQueued, nil
	case build.Status == provider.StatusSuccess && build.State == provider.StateFinished:
		return StatusSuccess, nil
	case build.Status == provider.StatusSuccess && build.State == provider.StateRunning:
		return StatusRunning, nil
	case build.Status == provider.StatusFailure:
		return StatusFailure, nil
	}

	return StatusUnknown, fmt.Errorf("%w: status %q state %q", provider.ErrUnknownBuildState, build.Status, build.State)
}

// Label returns the text shown in the panel for a status.
func (s Status) Label() string {
	switch s {
	case StatusNoBuild:
		return "No build"
	case StatusSuccess:
		return "Success"
	case StatusFailure:
		return "Failed"
	case StatusRunning:
		return "Running"
	case StatusQueued:
		return "Queued"
	default:
		return "Unknown"
	}
}

// Runnable reports whether a new build may be requested from this state.
// Queued builds are already waiting, so the run action is hidden for them.
func (s Status) Runnable() bool {
	return s != StatusQueued
}
