package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"prbuild-agent/src/broker"
	"prbuild-agent/src/contracts"
	"prbuild-agent/src/logger"
)

// AgentGroup is the consumer group of the request-serving agents.
const AgentGroup = "prbuild-agent"

// Agent consumes requests and publishes responses.
type Agent struct {
	broker  broker.Broker
	handler *Handler
	logger  logger.Logger
}

// NewAgent creates a new request agent.
func NewAgent(brk broker.Broker, handler *Handler, log logger.Logger) *Agent {
	return &Agent{broker: brk, handler: handler, logger: log}
}

// Run subscribes and serves until ctx is done or the broker closes.
func (a *Agent) Run(ctx context.Context) error {
	msgChan, err := a.Listen(ctx)
	if err != nil {
		return err
	}
	return a.Serve(ctx, msgChan)
}

// Listen subscribes to the request topic. Requests published after Listen
// returns are delivered to the channel, so callers can start publishing
// before Serve runs.
func (a *Agent) Listen(ctx context.Context) (<-chan broker.Message, error) {
	a.logger.Info("[Agent] Starting...")

	msgChan, err := a.broker.Subscribe(ctx, contracts.TopicRequests, AgentGroup)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", contracts.TopicRequests, err)
	}

	a.logger.Info("[Agent] Listening for requests on '%s' topic...", contracts.TopicRequests)
	return msgChan, nil
}

// Serve handles requests from msgChan concurrently, since a panel render
// sends one GET_BUILD per definition at once. It returns after in-flight
// requests finish.
func (a *Agent) Serve(ctx context.Context, msgChan <-chan broker.Message) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case msg, ok := <-msgChan:
			if !ok {
				a.logger.Info("[Agent] Message channel closed, shutting down")
				return nil
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := a.processRequest(ctx, msg); err != nil {
					a.logger.Error("[Agent] Error processing request: %v", err)
				}
			}()

		case <-ctx.Done():
			a.logger.Info("[Agent] Context cancelled, shutting down")
			return ctx.Err()
		}
	}
}

func (a *Agent) processRequest(ctx context.Context, msg broker.Message) error {
	var req contracts.Request
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return fmt.Errorf("failed to unmarshal request: %w", err)
	}
	if req.ID == "" {
		return fmt.Errorf("request without id on offset %d", msg.Offset)
	}

	a.logger.Debug("[Agent] %s %s #%s (%s)", req.Kind, req.BuildType, req.Pull, req.ID)
	resp := a.handler.Handle(ctx, req)

	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	topic := req.ReplyTo
	if topic == "" {
		topic = contracts.TopicResponses
	}
	if err := a.broker.Publish(ctx, topic, req.ID, data); err != nil {
		return fmt.Errorf("failed to publish response: %w", err)
	}
	return nil
}
