// Package teamcity provides a client for the TeamCity REST API.
package teamcity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"prbuild-agent/src/provider"
)

const (
	// CSRFHeader carries the anti-forgery token on mutating requests.
	CSRFHeader = "X-TC-CSRF-Token"

	loginPage = "login.html"
)

// Client is a TeamCity REST API client.
type Client struct {
	baseURL     string
	credentials CredentialFunc
	httpClient  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// NewClient creates a TeamCity client. baseURL must end in "/".
func NewClient(baseURL string, credentials CredentialFunc, opts ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		credentials: credentials,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetBuildQueue lists queued builds of a build type. The second return value
// is false when the server rejected the credentials.
func (c *Client) GetBuildQueue(ctx context.Context, buildTypeID string) (*provider.BuildPayload, bool, error) {
	endpoint := fmt.Sprintf("%sapp/rest/buildQueue?locator=buildType:(id:%s)", c.baseURL, buildTypeID)
	return c.getPayload(ctx, endpoint)
}

// GetBuilds returns the most recent build of a build type on a branch,
// running builds included.
func (c *Client) GetBuilds(ctx context.Context, buildTypeID, branch string) (*provider.BuildPayload, bool, error) {
	endpoint := fmt.Sprintf("%sapp/rest/builds?locator=buildType:%s,branch:%s,count:1,running:any",
		c.baseURL, buildTypeID, branch)
	return c.getPayload(ctx, endpoint)
}

func (c *Client) getPayload(ctx context.Context, endpoint string) (*provider.BuildPayload, bool, error) {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", provider.ErrTransport, err)
	}
	defer resp.Body.Close()

	if isLoginResponse(resp) {
		return nil, false, nil
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, false, fmt.Errorf("%w: API request failed with status %d: %s",
			provider.ErrTransport, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload provider.BuildPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, false, fmt.Errorf("%w: failed to decode response: %v", provider.ErrTransport, err)
	}

	return &payload, true, nil
}

// GetCSRFToken fetches a fresh anti-forgery token.
func (c *Client) GetCSRFToken(ctx context.Context) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+"authenticationTest.html?csrf", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", provider.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK || isLoginResponse(resp) {
		return "", fmt.Errorf("%w: failed to get authentication test result: status %d",
			provider.ErrTransport, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read CSRF token: %v", provider.ErrTransport, err)
	}

	token := strings.TrimSpace(string(body))
	if token == "" {
		return "", fmt.Errorf("%w: empty CSRF token", provider.ErrTransport)
	}
	return token, nil
}

type queueRequest struct {
	BranchName string       `json:"branchName"`
	BuildType  buildTypeRef `json:"buildType"`
}

type buildTypeRef struct {
	ID string `json:"id"`
}

// QueueBuild inserts a build of buildTypeID for branch into the build queue.
func (c *Client) QueueBuild(ctx context.Context, buildTypeID, branch, csrfToken string) (*provider.Build, error) {
	body, err := json.Marshal(queueRequest{
		BranchName: branch,
		BuildType:  buildTypeRef{ID: buildTypeID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode queue request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+"app/rest/buildQueue", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(CSRFHeader, csrfToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 || isLoginResponse(resp) {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: queue request failed with status %d: %s",
			provider.ErrTransport, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var build provider.Build
	if err := json.NewDecoder(resp.Body).Decode(&build); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", provider.ErrTransport, err)
	}

	return &build, nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if c.credentials != nil {
		if err := c.credentials(req); err != nil {
			return nil, fmt.Errorf("%w: failed to attach credentials: %v", provider.ErrTransport, err)
		}
	}
	return req, nil
}

// isLoginResponse reports whether the server rejected the request: either an
// explicit 401 or a redirect that landed on the login page.
func isLoginResponse(resp *http.Response) bool {
	if resp.StatusCode == http.StatusUnauthorized {
		return true
	}
	if resp.Request != nil && resp.Request.URL != nil {
		return strings.HasSuffix(resp.Request.URL.Path, "/"+loginPage)
	}
	return false
}
