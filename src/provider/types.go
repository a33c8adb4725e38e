package provider

import "strings"

// DefaultBranchPrefix is prepended to a change-request number when a build
// definition does not name its own prefix.
const DefaultBranchPrefix = "requests"

// Build states reported by the CI server.
const (
	StateFinished = "finished"
	StateRunning  = "running"
	StateQueued   = "queued"
)

// Build statuses reported by the CI server.
const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

// BuildDefinition is one configured CI pipeline shown on a change-request page.
type BuildDefinition struct {
	BuildTypeID  string
	DisplayName  string
	Group        string // empty means ungrouped
	Order        *int   // nil sorts last within its group
	BranchPrefix string // empty means DefaultBranchPrefix
	DependsOn    string // BuildTypeID of a sibling definition
}

// EffectiveBranchPrefix returns BranchPrefix without slashes, or
// DefaultBranchPrefix when none is set.
func (d BuildDefinition) EffectiveBranchPrefix() string {
	prefix := strings.Trim(d.BranchPrefix, "/")
	if prefix == "" {
		return DefaultBranchPrefix
	}
	return prefix
}

// Branch returns the CI-visible branch name for a change request.
func (d BuildDefinition) Branch(changeRef string) string {
	return d.EffectiveBranchPrefix() + "/" + changeRef
}

// Build is a single build or queue entry as returned by the CI server.
type Build struct {
	ID                int64  `json:"id,omitempty"`
	BuildTypeID       string `json:"buildTypeId,omitempty"`
	Number            string `json:"number,omitempty"`
	Status            string `json:"status,omitempty"`
	State             string `json:"state"`
	BranchName        string `json:"branchName,omitempty"`
	FinishOnAgentDate string `json:"finishOnAgentDate,omitempty"`
	WebURL            string `json:"webUrl"`
}

// BuildPayload is the list shape shared by the builds and build-queue endpoints.
// Count == 0 means no matching build exists yet.
type BuildPayload struct {
	Count  int     `json:"count"`
	Builds []Build `json:"build"`
}

// Latest returns the most recent build, if any.
func (p *BuildPayload) Latest() (Build, bool) {
	if p == nil || p.Count == 0 || len(p.Builds) == 0 {
		return Build{}, false
	}
	return p.Builds[0], true
}

// QueryResult is the per-definition outcome of one refresh.
// Authorized == false implies Payload == nil.
type QueryResult struct {
	Definition BuildDefinition
	Authorized bool
	Payload    *BuildPayload
}

// Unauthorized builds the result reported when the CI server rejects the credentials.
func Unauthorized(def BuildDefinition) *QueryResult {
	return &QueryResult{Definition: def}
}
