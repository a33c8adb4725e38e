// Package contracts defines the messages exchanged over the broker between
// the panel side (CLI, TUI, MCP) and the agent that talks to TeamCity.
package contracts

import "prbuild-agent/src/provider"

// Topic names.
const (
	// TopicRequests carries Request messages. Key: request ID.
	TopicRequests = "prbuild.requests"
	// TopicResponses carries Response messages. Key: request ID.
	TopicResponses = "prbuild.responses"
	// TopicNavigation carries PullOpened events. Key: page URL.
	TopicNavigation = "prbuild.navigation"
	// TopicPanels carries PanelRendered messages. Key: page URL.
	TopicPanels = "prbuild.panels"
)

// Kind names a request.
type Kind string

const (
	KindGetBuild     Kind = "GET_BUILD"
	KindRunBuild     Kind = "RUN_BUILD"
	KindReloadConfig Kind = "RELOAD_CONFIG"
)

// Request asks the agent to act on one build definition.
// Published to: prbuild.requests
type Request struct {
	// Correlation ID echoed in the Response.
	ID string `json:"id"`
	// What to do.
	Kind Kind `json:"kind"`
	// Build definition ID (GET_BUILD, RUN_BUILD).
	BuildType string `json:"buildType,omitempty"`
	// Change-request number (GET_BUILD, RUN_BUILD).
	Pull string `json:"pull,omitempty"`
	// Branch prefix of the definition. Clients always send it; when it is
	// empty the agent falls back to its own configuration.
	BranchPrefix string `json:"branchPrefix,omitempty"`
	// Topic the reply goes to; empty means TopicResponses.
	ReplyTo string `json:"replyTo,omitempty"`
}

// BuildResponse is what the CI server said about one definition.
type BuildResponse struct {
	IsAuthorized bool                   `json:"isAuthorized"`
	Data         *provider.BuildPayload `json:"data"`
}

// Response answers a Request.
// Published to: prbuild.responses (or Request.ReplyTo)
type Response struct {
	// ID of the Request being answered.
	ID string `json:"id"`
	// Nil when the agent could not reach the CI server. Always nil for
	// RELOAD_CONFIG.
	Response *BuildResponse `json:"response"`
	// Human-readable failure, for logs only.
	Error string `json:"error,omitempty"`
}

// PullOpened is emitted when a browser (or a user) enters a change-request page.
// Published to: prbuild.navigation
type PullOpened struct {
	URL       string `json:"url"`
	Timestamp string `json:"timestamp"`
}

// PanelRendered is the panel computed for a PullOpened event.
// Published to: prbuild.panels
type PanelRendered struct {
	URL        string     `json:"url"`
	Kind       string     `json:"kind"`
	Repository string     `json:"repository,omitempty"`
	Pull       string     `json:"pull,omitempty"`
	LoginURL   string     `json:"loginUrl,omitempty"`
	Error      string     `json:"error,omitempty"`
	Rows       []PanelRow `json:"rows,omitempty"`
	RenderedAt string     `json:"renderedAt"`
}

// PanelRow is one build definition of a rendered panel.
type PanelRow struct {
	BuildType    string `json:"buildType"`
	Name         string `json:"name"`
	Group        string `json:"group,omitempty"`
	Status       string `json:"status"`
	Stale        bool   `json:"stale,omitempty"`
	WebURL       string `json:"webUrl,omitempty"`
	BuildNumber  string `json:"buildNumber,omitempty"`
	LastFinished string `json:"lastFinished,omitempty"`
	Problem      string `json:"problem,omitempty"`
}
