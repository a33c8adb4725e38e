package host

import (
	"fmt"

	"prbuild-agent/src/config"
	"prbuild-agent/src/provider"
)

// Page is a recognized change-request page.
type Page struct {
	Adapter    Adapter
	Repository string
	ChangeRef  string
}

// Registry holds the adapters for the configured hosts.
type Registry struct {
	adapters []Adapter
}

// NewRegistry builds one adapter per configured host. An empty list falls
// back to the public GitHub and GitLab hosts.
func NewRegistry(hosts []config.HostConfig) (*Registry, error) {
	if len(hosts) == 0 {
		hosts = config.DefaultHosts()
	}

	r := &Registry{}
	for _, h := range hosts {
		switch h.Kind {
		case config.HostGitHub:
			r.adapters = append(r.adapters, NewGitHub(h.Host))
		case config.HostGitLab:
			r.adapters = append(r.adapters, NewGitLab(h.Host))
		default:
			return nil, fmt.Errorf("%w: unsupported host kind %q", provider.ErrInvalidConfig, h.Kind)
		}
	}
	return r, nil
}

// Adapters returns the registered adapters in configuration order.
func (r *Registry) Adapters() []Adapter {
	return r.adapters
}

// Detect returns the page context for a change-request URL.
func (r *Registry) Detect(pageURL string) (*Page, error) {
	for _, a := range r.adapters {
		if !a.Matches(pageURL) {
			continue
		}
		repo, err := a.ExtractRepoName(pageURL)
		if err != nil {
			return nil, err
		}
		ref, err := a.ExtractChangeRef(pageURL)
		if err != nil {
			return nil, err
		}
		return &Page{Adapter: a, Repository: repo, ChangeRef: ref}, nil
	}
	return nil, fmt.Errorf("%w: unsupported host in %s", provider.ErrInvalidURL, pageURL)
}
