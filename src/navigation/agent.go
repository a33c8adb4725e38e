// Package navigation renders panels for change-request pages as they are
// opened. It consumes PullOpened events and publishes one PanelRendered per
// event, including pages that turn out not to carry a panel.
package navigation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"prbuild-agent/src/broker"
	"prbuild-agent/src/contracts"
	"prbuild-agent/src/logger"
	"prbuild-agent/src/pipeline"
)

// AgentGroup is the consumer group of the navigation agents.
const AgentGroup = "prbuild-navigation"

// Agent turns navigation events into rendered panels.
type Agent struct {
	broker  broker.Broker
	service *pipeline.Service
	logger  logger.Logger
	now     func() time.Time
}

// NewAgent creates a new navigation agent.
func NewAgent(brk broker.Broker, svc *pipeline.Service, log logger.Logger) *Agent {
	return &Agent{broker: brk, service: svc, logger: log, now: time.Now}
}

// Run subscribes and serves until ctx is done or the broker closes.
func (a *Agent) Run(ctx context.Context) error {
	msgChan, err := a.Listen(ctx)
	if err != nil {
		return err
	}
	return a.Serve(ctx, msgChan)
}

// Listen subscribes to the navigation topic. Events published after it
// returns are not lost.
func (a *Agent) Listen(ctx context.Context) (<-chan broker.Message, error) {
	a.logger.Info("[Navigation] Starting...")

	msgChan, err := a.broker.Subscribe(ctx, contracts.TopicNavigation, AgentGroup)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", contracts.TopicNavigation, err)
	}

	a.logger.Info("[Navigation] Listening for pages on '%s' topic...", contracts.TopicNavigation)
	return msgChan, nil
}

// Serve renders a panel for every event on msgChan.
func (a *Agent) Serve(ctx context.Context, msgChan <-chan broker.Message) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case msg, ok := <-msgChan:
			if !ok {
				a.logger.Info("[Navigation] Message channel closed, shutting down")
				return nil
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := a.processPage(ctx, msg); err != nil {
					a.logger.Error("[Navigation] Error processing page: %v", err)
				}
			}()

		case <-ctx.Done():
			a.logger.Info("[Navigation] Context cancelled, shutting down")
			return ctx.Err()
		}
	}
}

func (a *Agent) processPage(ctx context.Context, msg broker.Message) error {
	var event contracts.PullOpened
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal page event: %w", err)
	}

	state, err := a.service.Render(ctx, event.URL)
	if err != nil {
		return err
	}
	if state.Kind == pipeline.PanelNotApplicable {
		a.logger.Debug("[Navigation] %s: no panel", event.URL)
	} else {
		a.logger.Info("[Navigation] %s: %s", event.URL, state.Kind)
	}

	data, err := json.Marshal(Rendered(state, a.now()))
	if err != nil {
		return fmt.Errorf("failed to marshal panel: %w", err)
	}
	if err := a.broker.Publish(ctx, contracts.TopicPanels, event.URL, data); err != nil {
		return fmt.Errorf("failed to publish panel: %w", err)
	}
	return nil
}

// Rendered converts a panel state into its wire form.
func Rendered(state *pipeline.PanelState, at time.Time) contracts.PanelRendered {
	out := contracts.PanelRendered{
		URL:        state.PageURL,
		Kind:       string(state.Kind),
		Repository: state.Repository,
		Pull:       state.ChangeRef,
		LoginURL:   state.LoginURL,
		RenderedAt: at.UTC().Format(time.RFC3339),
	}
	if state.Err != nil {
		out.Error = state.Err.Error()
	}
	if state.Panel == nil {
		return out
	}

	for _, row := range state.Panel.Rows {
		pr := contracts.PanelRow{
			BuildType:    row.Definition.BuildTypeID,
			Name:         row.Definition.DisplayName,
			Group:        row.Definition.Group,
			Status:       string(row.Status),
			Stale:        row.Stale,
			WebURL:       row.WebURL,
			BuildNumber:  row.BuildNumber,
			LastFinished: row.FinishedLabel(),
		}
		if row.Problem != nil {
			pr.Problem = row.Problem.Error()
		}
		out.Rows = append(out.Rows, pr)
	}
	return out
}
