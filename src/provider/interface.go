// Package provider defines the CI provider contract and the shared build model
// used by the CI client, the aggregation engine and the messaging layer.
package provider

import (
	"context"
)

// Provider defines the operations the panel needs from a CI server.
type Provider interface {
	// Name returns the provider name (e.g., "teamcity")
	Name() string

	// QueryBuild fetches the current queue or build state of a definition
	// for one change request.
	QueryBuild(ctx context.Context, def BuildDefinition, changeRef string) (*QueryResult, error)

	// EnqueueBuild asks the CI server to build the change request.
	EnqueueBuild(ctx context.Context, def BuildDefinition, changeRef string) (*QueryResult, error)
}

// Linker is implemented by providers that can point at server pages.
type Linker interface {
	// DefinitionURL links to the build history of a definition.
	DefinitionURL(buildTypeID string) string

	// LoginURL links to the server's login page.
	LoginURL() string
}
