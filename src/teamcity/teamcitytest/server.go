// Package teamcitytest provides an in-process TeamCity REST server for tests.
package teamcitytest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"prbuild-agent/src/provider"
)

// Credentials accepted by a Server created with NewServer.
const (
	Username  = "robot"
	Password  = "secret"
	CSRFToken = "csrf-token-1234"
)

// Server fakes the subset of the TeamCity REST API prbuild uses.
type Server struct {
	*httptest.Server

	mu             sync.Mutex
	queue          []provider.Build
	builds         map[string][]provider.Build // buildType|branch -> newest first
	nextID         int64
	redirectLogin  bool
	failCSRF       bool
	failBuildTypes map[string]bool
	requests       []string
}

// NewServer starts a fake server. Close it when done.
func NewServer() *Server {
	s := &Server{
		builds:         make(map[string][]provider.Build),
		nextID:         100,
		failBuildTypes: make(map[string]bool),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	return s
}

// BaseURL returns the server root with a trailing slash.
func (s *Server) BaseURL() string {
	return s.URL + "/"
}

// AddBuild records a historical or running build for buildType on branch.
// Later calls are newer.
func (s *Server) AddBuild(buildType, branch string, b provider.Build) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b.BuildTypeID = buildType
	b.BranchName = branch
	if b.WebURL == "" {
		b.WebURL = fmt.Sprintf("%sviewLog.html?buildTypeId=%s&number=%s", s.URL+"/", buildType, b.Number)
	}
	key := buildType + "|" + branch
	s.builds[key] = append([]provider.Build{b}, s.builds[key]...)
}

// AddQueued puts an entry into the build queue.
func (s *Server) AddQueued(buildType, branch string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enqueueLocked(buildType, branch)
}

// RedirectToLogin makes every authenticated endpoint redirect to login.html,
// the way TeamCity treats an expired session.
func (s *Server) RedirectToLogin(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redirectLogin = on
}

// FailCSRF makes the authentication test endpoint fail.
func (s *Server) FailCSRF(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCSRF = on
}

// FailBuildType makes queries for buildType answer 500.
func (s *Server) FailBuildType(buildType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failBuildTypes[buildType] = true
}

// Requests returns "METHOD path" for every request served so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Count returns how many requests matched "METHOD path".
func (s *Server) Count(methodPath string) int {
	n := 0
	for _, r := range s.Requests() {
		if r == methodPath {
			n++
		}
	}
	return n
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, r.Method+" "+r.URL.Path)

	if r.URL.Path == "/login.html" {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body>Log in to TeamCity</body></html>")
		return
	}

	if s.redirectLogin {
		http.Redirect(w, r, "/login.html", http.StatusFound)
		return
	}

	if !authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, "Authentication required")
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/authenticationTest.html":
		if s.failCSRF {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, CSRFToken)

	case r.Method == http.MethodGet && r.URL.Path == "/app/rest/buildQueue":
		buildType := strings.TrimSuffix(strings.TrimPrefix(r.URL.Query().Get("locator"), "buildType:(id:"), ")")
		if s.failBuildTypes[buildType] {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var entries []provider.Build
		for _, b := range s.queue {
			if b.BuildTypeID == buildType {
				entries = append(entries, b)
			}
		}
		writePayload(w, entries)

	case r.Method == http.MethodGet && r.URL.Path == "/app/rest/builds":
		loc := parseLocator(r.URL.Query().Get("locator"))
		if s.failBuildTypes[loc["buildType"]] {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		builds := s.builds[loc["buildType"]+"|"+loc["branch"]]
		if len(builds) > 1 {
			builds = builds[:1]
		}
		writePayload(w, builds)

	case r.Method == http.MethodPost && r.URL.Path == "/app/rest/buildQueue":
		if r.Header.Get("X-TC-CSRF-Token") != CSRFToken {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, "CSRF header missing or invalid")
			return
		}
		var body struct {
			BranchName string `json:"branchName"`
			BuildType  struct {
				ID string `json:"id"`
			} `json:"buildType"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.BuildType.ID == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		entry := s.enqueueLocked(body.BuildType.ID, body.BranchName)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(entry)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *Server) enqueueLocked(buildType, branch string) provider.Build {
	s.nextID++
	entry := provider.Build{
		ID:          s.nextID,
		BuildTypeID: buildType,
		BranchName:  branch,
		State:       provider.StateQueued,
		WebURL:      fmt.Sprintf("%sviewQueued.html?itemId=%d", s.URL+"/", s.nextID),
	}
	s.queue = append(s.queue, entry)
	return entry
}

func authorized(r *http.Request) bool {
	if user, pass, ok := r.BasicAuth(); ok {
		return user == Username && pass == Password
	}
	if c, err := r.Cookie("TCSESSIONID"); err == nil {
		return c.Value == Password
	}
	return false
}

func parseLocator(locator string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(locator, ",") {
		if k, v, ok := strings.Cut(part, ":"); ok {
			out[k] = v
		}
	}
	return out
}

func writePayload(w http.ResponseWriter, builds []provider.Build) {
	if builds == nil {
		builds = []provider.Build{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(provider.BuildPayload{Count: len(builds), Builds: builds})
}
