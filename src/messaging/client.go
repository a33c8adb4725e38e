package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"prbuild-agent/src/broker"
	"prbuild-agent/src/config"
	"prbuild-agent/src/contracts"
	"prbuild-agent/src/logger"
	"prbuild-agent/src/provider"
)

// ErrTimeout is returned when no response arrives within the client timeout.
var ErrTimeout = errors.New("request timed out")

// Client sends requests to the agent and waits for the matching response.
type Client struct {
	broker  broker.Broker
	timeout time.Duration
	linker  provider.Linker
	logger  logger.Logger

	mu      sync.Mutex
	pending map[string]chan contracts.Response
	done    chan struct{}
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout bounds every round-trip. Defaults to config.DefaultTimeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLinker lets the client answer link lookups locally.
func WithLinker(l provider.Linker) ClientOption {
	return func(c *Client) {
		c.linker = l
	}
}

// NewClient subscribes to the response topic and starts dispatching replies.
// The subscription lives until ctx is done.
func NewClient(ctx context.Context, brk broker.Broker, log logger.Logger, opts ...ClientOption) (*Client, error) {
	c := &Client{
		broker:  brk,
		timeout: config.DefaultTimeout,
		logger:  log,
		pending: make(map[string]chan contracts.Response),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	// Every client reads every response, so each needs its own group.
	msgChan, err := brk.Subscribe(ctx, contracts.TopicResponses, "prbuild-client-"+uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", contracts.TopicResponses, err)
	}

	go c.dispatch(msgChan)
	return c, nil
}

func (c *Client) dispatch(msgChan <-chan broker.Message) {
	defer close(c.done)

	for msg := range msgChan {
		var resp contracts.Response
		if err := json.Unmarshal(msg.Value, &resp); err != nil {
			c.logger.Error("[Client] Failed to unmarshal response: %v", err)
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()

		if ok {
			ch <- resp
		}
	}
}

// Name returns "teamcity-rpc"
func (c *Client) Name() string {
	return "teamcity-rpc"
}

// QueryBuild sends GET_BUILD.
func (c *Client) QueryBuild(ctx context.Context, def provider.BuildDefinition, changeRef string) (*provider.QueryResult, error) {
	return c.buildCall(ctx, contracts.KindGetBuild, def, changeRef)
}

// EnqueueBuild sends RUN_BUILD.
func (c *Client) EnqueueBuild(ctx context.Context, def provider.BuildDefinition, changeRef string) (*provider.QueryResult, error) {
	return c.buildCall(ctx, contracts.KindRunBuild, def, changeRef)
}

// ReloadConfig asks the agent to re-read its configuration.
func (c *Client) ReloadConfig(ctx context.Context) error {
	resp, err := c.call(ctx, contracts.Request{Kind: contracts.KindReloadConfig})
	if err != nil {
		return err
	}
	if resp.Error != "" {
		return fmt.Errorf("reload config: %s", resp.Error)
	}
	return nil
}

// DefinitionURL delegates to the configured linker.
func (c *Client) DefinitionURL(buildTypeID string) string {
	if c.linker == nil {
		return ""
	}
	return c.linker.DefinitionURL(buildTypeID)
}

// LoginURL delegates to the configured linker.
func (c *Client) LoginURL() string {
	if c.linker == nil {
		return ""
	}
	return c.linker.LoginURL()
}

func (c *Client) buildCall(ctx context.Context, kind contracts.Kind, def provider.BuildDefinition, changeRef string) (*provider.QueryResult, error) {
	resp, err := c.call(ctx, contracts.Request{
		Kind:         kind,
		BuildType:    def.BuildTypeID,
		Pull:         changeRef,
		BranchPrefix: def.EffectiveBranchPrefix(),
	})
	if err != nil {
		return nil, err
	}

	if resp.Response == nil {
		if resp.Error != "" {
			return nil, fmt.Errorf("%w: %s", provider.ErrTransport, resp.Error)
		}
		return nil, fmt.Errorf("%w: agent returned no result", provider.ErrTransport)
	}
	if !resp.Response.IsAuthorized {
		return provider.Unauthorized(def), nil
	}

	payload := resp.Response.Data
	if payload == nil {
		payload = &provider.BuildPayload{}
	}
	return &provider.QueryResult{Definition: def, Authorized: true, Payload: payload}, nil
}

func (c *Client) call(ctx context.Context, req contracts.Request) (contracts.Response, error) {
	req.ID = uuid.NewString()
	req.ReplyTo = contracts.TopicResponses

	data, err := json.Marshal(req)
	if err != nil {
		return contracts.Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	ch := make(chan contracts.Response, 1)
	c.mu.Lock()
	c.pending[req.ID] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()
	}()

	if err := c.broker.Publish(ctx, contracts.TopicRequests, req.ID, data); err != nil {
		return contracts.Response{}, fmt.Errorf("%w: %v", provider.ErrTransport, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		return resp, nil
	case <-c.done:
		return contracts.Response{}, fmt.Errorf("%w: response stream closed", provider.ErrTransport)
	case <-timer.C:
		return contracts.Response{}, fmt.Errorf("%w: %s %s after %s: %w", provider.ErrTransport, req.Kind, req.BuildType, c.timeout, ErrTimeout)
	case <-ctx.Done():
		return contracts.Response{}, ctx.Err()
	}
}
