// Package config provides configuration management for prbuild: the stored
// TeamCity settings and the repository to build-definition mapping.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"prbuild-agent/src/provider"
)

// Auth modes.
const (
	AuthBasic  = "basic"
	AuthCookie = "cookie"
	// AuthJar reads the session cookie from a browser-exported cookies.txt.
	AuthJar = "jar"
)

const (
	// DefaultSessionCookie is the TeamCity session cookie name.
	DefaultSessionCookie = "TCSESSIONID"
	// DefaultTimeout bounds every CI request and messaging round-trip.
	DefaultTimeout = 30 * time.Second
)

// Host kinds understood by the host adapters.
const (
	HostGitHub = "github"
	HostGitLab = "gitlab"
)

// BuildDefinitionRecord is the stored form of one build definition.
type BuildDefinitionRecord struct {
	BuildType    string `json:"BuildType" yaml:"BuildType" mapstructure:"BuildType"`
	Name         string `json:"Name" yaml:"Name" mapstructure:"Name"`
	Group        string `json:"Group,omitempty" yaml:"Group,omitempty" mapstructure:"Group"`
	Order        *int   `json:"Order,omitempty" yaml:"Order,omitempty" mapstructure:"Order"`
	BranchPrefix string `json:"BranchPrefix,omitempty" yaml:"BranchPrefix,omitempty" mapstructure:"BranchPrefix"`
	Depends      string `json:"Depends,omitempty" yaml:"Depends,omitempty" mapstructure:"Depends"`
}

// HostConfig names a code host whose change-request pages carry the panel.
type HostConfig struct {
	Kind string `json:"Kind" yaml:"Kind" mapstructure:"Kind"`
	Host string `json:"Host" yaml:"Host" mapstructure:"Host"`
}

// Config holds the application configuration.
type Config struct {
	// BaseURL is the TeamCity root and must end in "/".
	BaseURL  string `json:"BaseUrl" yaml:"BaseUrl" mapstructure:"BaseUrl"`
	Username string `json:"Username,omitempty" yaml:"Username,omitempty" mapstructure:"Username"`
	Password string `json:"Password,omitempty" yaml:"Password,omitempty" mapstructure:"Password"`

	// AuthMode selects basic auth, a fixed TeamCity session cookie, or the
	// session cookie found in CookieFile.
	AuthMode      string `json:"AuthMode,omitempty" yaml:"AuthMode,omitempty" mapstructure:"AuthMode"`
	SessionCookie string `json:"SessionCookie,omitempty" yaml:"SessionCookie,omitempty" mapstructure:"SessionCookie"`
	SessionToken  string `json:"SessionToken,omitempty" yaml:"SessionToken,omitempty" mapstructure:"SessionToken"`
	CookieFile    string `json:"CookieFile,omitempty" yaml:"CookieFile,omitempty" mapstructure:"CookieFile"`

	// Repository maps a repository name to its build definitions.
	Repository map[string][]BuildDefinitionRecord `json:"Repository" yaml:"Repository" mapstructure:"-"`

	Hosts   []HostConfig `json:"Hosts,omitempty" yaml:"Hosts,omitempty" mapstructure:"Hosts"`
	Timeout string       `json:"Timeout,omitempty" yaml:"Timeout,omitempty" mapstructure:"Timeout"`
}

// DefaultHosts returns the public GitHub and GitLab hosts.
func DefaultHosts() []HostConfig {
	return []HostConfig{
		{Kind: HostGitHub, Host: "github.com"},
		{Kind: HostGitLab, Host: "gitlab.com"},
	}
}

// applyDefaults fills optional fields left empty.
func (c *Config) applyDefaults() {
	if c.AuthMode == "" {
		c.AuthMode = AuthBasic
	}
	if c.SessionCookie == "" {
		c.SessionCookie = DefaultSessionCookie
	}
	if len(c.Hosts) == 0 {
		c.Hosts = DefaultHosts()
	}
}

// RequestTimeout returns the configured timeout or DefaultTimeout.
func (c *Config) RequestTimeout() time.Duration {
	if c == nil || c.Timeout == "" {
		return DefaultTimeout
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return DefaultTimeout
	}
	return d
}

// Validate checks the required top-level fields for the configured auth mode.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: configuration is missing", provider.ErrInvalidConfig)
	}

	var missing []string
	if c.BaseURL == "" {
		missing = append(missing, "BaseUrl")
	}
	switch c.AuthMode {
	case "", AuthBasic:
		if c.Username == "" {
			missing = append(missing, "Username")
		}
		if c.Password == "" {
			missing = append(missing, "Password")
		}
	case AuthCookie:
		if c.SessionToken == "" {
			missing = append(missing, "SessionToken")
		}
	case AuthJar:
		if c.CookieFile == "" {
			missing = append(missing, "CookieFile")
		}
	default:
		return fmt.Errorf("%w: unknown AuthMode %q", provider.ErrInvalidConfig, c.AuthMode)
	}
	if c.Repository == nil {
		missing = append(missing, "Repository")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", provider.ErrInvalidConfig, strings.Join(missing, ", "))
	}

	if !strings.HasSuffix(c.BaseURL, "/") {
		return fmt.Errorf("%w: BaseUrl %q must end in \"/\"", provider.ErrInvalidConfig, c.BaseURL)
	}
	if c.Timeout != "" {
		if _, err := time.ParseDuration(c.Timeout); err != nil {
			return fmt.Errorf("%w: Timeout: %v", provider.ErrInvalidConfig, err)
		}
	}

	for repo, records := range c.Repository {
		seen := make(map[string]bool, len(records))
		for i, rec := range records {
			if rec.BuildType == "" {
				return fmt.Errorf("%w: %s[%d] has no BuildType", provider.ErrInvalidConfig, repo, i)
			}
			if seen[rec.BuildType] {
				return fmt.Errorf("%w: %s lists BuildType %q twice", provider.ErrInvalidConfig, repo, rec.BuildType)
			}
			seen[rec.BuildType] = true
		}
	}

	for _, h := range c.Hosts {
		if h.Kind != HostGitHub && h.Kind != HostGitLab {
			return fmt.Errorf("%w: unknown host kind %q", provider.ErrInvalidConfig, h.Kind)
		}
		if h.Host == "" {
			return fmt.Errorf("%w: host of kind %q has no Host", provider.ErrInvalidConfig, h.Kind)
		}
	}

	return nil
}

// Resolve returns the build definitions configured for repoName, in
// configuration order.
func Resolve(cfg *Config, repoName string) ([]provider.BuildDefinition, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	records, ok := cfg.Repository[repoName]
	if !ok || len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", provider.ErrNoConfig, repoName)
	}

	defs := make([]provider.BuildDefinition, 0, len(records))
	for _, rec := range records {
		defs = append(defs, rec.Definition())
	}
	return defs, nil
}

// Definition converts the stored record into the domain definition.
func (r BuildDefinitionRecord) Definition() provider.BuildDefinition {
	def := provider.BuildDefinition{
		BuildTypeID:  r.BuildType,
		DisplayName:  r.Name,
		Group:        r.Group,
		BranchPrefix: r.BranchPrefix,
		DependsOn:    r.Depends,
	}
	if def.DisplayName == "" {
		def.DisplayName = r.BuildType
	}
	if r.Order != nil {
		order := *r.Order
		def.Order = &order
	}
	return def
}

// RepositoryDefinition looks a build type up in one repository's list.
func (c *Config) RepositoryDefinition(repoName, buildTypeID string) (provider.BuildDefinition, bool) {
	if c == nil {
		return provider.BuildDefinition{}, false
	}
	for _, rec := range c.Repository[repoName] {
		if rec.BuildType == buildTypeID {
			return rec.Definition(), true
		}
	}
	return provider.BuildDefinition{}, false
}

// FindDefinition looks a build type up across all repositories. Repositories
// are searched in name order so the result is deterministic.
func (c *Config) FindDefinition(buildTypeID string) (provider.BuildDefinition, bool) {
	if c == nil {
		return provider.BuildDefinition{}, false
	}
	repos := make([]string, 0, len(c.Repository))
	for repo := range c.Repository {
		repos = append(repos, repo)
	}
	sort.Strings(repos)

	for _, repo := range repos {
		for _, rec := range c.Repository[repo] {
			if rec.BuildType == buildTypeID {
				return rec.Definition(), true
			}
		}
	}
	return provider.BuildDefinition{}, false
}

// Snapshot returns a deep copy that later edits to c cannot affect.
func (c *Config) Snapshot() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	if c.Repository != nil {
		cp.Repository = make(map[string][]BuildDefinitionRecord, len(c.Repository))
		for repo, records := range c.Repository {
			recs := make([]BuildDefinitionRecord, len(records))
			for i, rec := range records {
				if rec.Order != nil {
					order := *rec.Order
					rec.Order = &order
				}
				recs[i] = rec
			}
			cp.Repository[repo] = recs
		}
	}
	if c.Hosts != nil {
		cp.Hosts = append([]HostConfig(nil), c.Hosts...)
	}
	return &cp
}

// Redacted returns a snapshot with credentials masked, for display.
func (c *Config) Redacted() *Config {
	cp := c.Snapshot()
	if cp == nil {
		return nil
	}
	if cp.Password != "" {
		cp.Password = redactedValue
	}
	if cp.SessionToken != "" {
		cp.SessionToken = redactedValue
	}
	return cp
}

const redactedValue = "[REDACTED]"
