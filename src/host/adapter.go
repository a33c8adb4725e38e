// Package host recognizes change-request pages on code hosts. Each supported
// host contributes an Adapter; nothing downstream of the adapter branches on
// which host a page came from.
package host

import (
	"fmt"
	"regexp"
	"strings"

	"prbuild-agent/src/config"
	"prbuild-agent/src/provider"
)

// Adapter extracts the page context the panel needs from a host URL.
type Adapter interface {
	// Name returns the host kind (e.g., "github")
	Name() string

	// Matches reports whether the URL belongs to this host at all.
	Matches(pageURL string) bool

	// ExtractRepoName returns the repository path segment, matched
	// case-sensitively against the configuration.
	ExtractRepoName(pageURL string) (string, error)

	// ExtractChangeRef returns the change-request number. Only the
	// conversation page qualifies; tabs such as /files are rejected.
	ExtractChangeRef(pageURL string) (string, error)

	// MountPoint names the page element the panel attaches to.
	MountPoint() string
}

// patternAdapter implements Adapter with two regular expressions built for
// one host name.
type patternAdapter struct {
	name       string
	mountPoint string
	site       *regexp.Regexp
	repo       *regexp.Regexp // group 1: repository name
	change     *regexp.Regexp // group 1: repository name, group 2: number
}

// NewGitHub returns the adapter for a GitHub host such as "github.com".
// Pull requests live at /{owner}/{repo}/pull/{n}.
func NewGitHub(hostname string) Adapter {
	h := sitePrefix(hostname)
	return &patternAdapter{
		name:       config.HostGitHub,
		mountPoint: "#partial-discussion-sidebar",
		site:       regexp.MustCompile(h + `(?:[/?#]|$)`),
		repo:       regexp.MustCompile(h + `/[^/?#]+/([^/?#]+)`),
		change:     regexp.MustCompile(h + `/[^/?#]+/([^/?#]+)/pull/(\d+)/?(?:[?#].*)?$`),
	}
}

// NewGitLab returns the adapter for a GitLab host such as "gitlab.com".
// Namespaces nest, so the repository is the segment right before "/-/".
func NewGitLab(hostname string) Adapter {
	h := sitePrefix(hostname)
	return &patternAdapter{
		name:       config.HostGitLab,
		mountPoint: ".issuable-sidebar",
		site:       regexp.MustCompile(h + `(?:[/?#]|$)`),
		repo:       regexp.MustCompile(h + `/(?:[^/?#]+/)+?([^/?#]+)/-/`),
		change:     regexp.MustCompile(h + `/(?:[^/?#]+/)+?([^/?#]+)/-/merge_requests/(\d+)/?(?:[?#].*)?$`),
	}
}

func sitePrefix(hostname string) string {
	return `^https?://` + regexp.QuoteMeta(strings.ToLower(hostname))
}

func (a *patternAdapter) Name() string       { return a.name }
func (a *patternAdapter) MountPoint() string { return a.mountPoint }

func (a *patternAdapter) Matches(pageURL string) bool {
	return a.site.MatchString(pageURL)
}

func (a *patternAdapter) ExtractRepoName(pageURL string) (string, error) {
	if m := a.change.FindStringSubmatch(pageURL); m != nil {
		return m[1], nil
	}
	if m := a.repo.FindStringSubmatch(pageURL); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: no repository in %s", provider.ErrInvalidURL, pageURL)
}

func (a *patternAdapter) ExtractChangeRef(pageURL string) (string, error) {
	m := a.change.FindStringSubmatch(pageURL)
	if m == nil {
		return "", fmt.Errorf("%w: %s", provider.ErrInvalidURL, pageURL)
	}
	return m[2], nil
}
