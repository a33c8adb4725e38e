package teamcity

import (
	"context"
	"fmt"

	"prbuild-agent/src/config"
	"prbuild-agent/src/provider"
)

// Provider implements provider.Provider for TeamCity
type Provider struct {
	client *Client
}

// NewProvider creates a TeamCity provider around a configured client
func NewProvider(client *Client) *Provider {
	return &Provider{client: client}
}

// NewProviderFromConfig builds the client from stored settings.
func NewProviderFromConfig(cfg *config.Config) *Provider {
	client := NewClient(cfg.BaseURL, CredentialsFor(cfg), WithTimeout(cfg.RequestTimeout()))
	return NewProvider(client)
}

// Name returns "teamcity"
func (p *Provider) Name() string {
	return "teamcity"
}

// QueryBuild reads the build queue first and falls back to the build history.
// A queued entry for the branch is authoritative.
func (p *Provider) QueryBuild(ctx context.Context, def provider.BuildDefinition, changeRef string) (*provider.QueryResult, error) {
	branch := def.Branch(changeRef)

	queue, authorized, err := p.client.GetBuildQueue(ctx, def.BuildTypeID)
	if err != nil {
		return nil, fmt.Errorf("query build queue for %s: %w", def.BuildTypeID, err)
	}
	if !authorized {
		return provider.Unauthorized(def), nil
	}

	if queued := filterBranch(queue, branch); len(queued) > 0 {
		return &provider.QueryResult{
			Definition: def,
			Authorized: true,
			Payload:    &provider.BuildPayload{Count: len(queued), Builds: queued},
		}, nil
	}

	builds, authorized, err := p.client.GetBuilds(ctx, def.BuildTypeID, branch)
	if err != nil {
		return nil, fmt.Errorf("query builds for %s: %w", def.BuildTypeID, err)
	}
	if !authorized {
		return provider.Unauthorized(def), nil
	}

	return &provider.QueryResult{
		Definition: def,
		Authorized: true,
		Payload:    builds,
	}, nil
}

// EnqueueBuild fetches a CSRF token and queues a build for the change request.
// Without a token the queue request is never sent.
func (p *Provider) EnqueueBuild(ctx context.Context, def provider.BuildDefinition, changeRef string) (*provider.QueryResult, error) {
	token, err := p.client.GetCSRFToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire CSRF token: %w", err)
	}

	build, err := p.client.QueueBuild(ctx, def.BuildTypeID, def.Branch(changeRef), token)
	if err != nil {
		return nil, fmt.Errorf("queue build %s: %w", def.BuildTypeID, err)
	}

	return &provider.QueryResult{
		Definition: def,
		Authorized: true,
		Payload:    &provider.BuildPayload{Count: 1, Builds: []provider.Build{*build}},
	}, nil
}

// DefinitionURL links to the build history of a build type.
func (p *Provider) DefinitionURL(buildTypeID string) string {
	return fmt.Sprintf("%sbuildConfiguration/%s?mode=builds", p.client.BaseURL(), buildTypeID)
}

// LoginURL links to the TeamCity login page.
func (p *Provider) LoginURL() string {
	return p.client.BaseURL() + loginPage
}

func filterBranch(payload *provider.BuildPayload, branch string) []provider.Build {
	if payload == nil {
		return nil
	}
	var matched []provider.Build
	for _, b := range payload.Builds {
		if b.BranchName == branch {
			matched = append(matched, b)
		}
	}
	return matched
}
