// Package agent provides the Build Agent for distributed mode.
// It consumes build requests from the broker, executes them, and publishes
// completion events.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"relay-agent/src/broker"
	"relay-agent/src/contracts"
	"relay-agent/src/deploy"
	"relay-agent/src/logger"
)

// consumerGroup coordinates multiple build agents over one topic.
const consumerGroup = "relay-build-agent"

// BuildAgent consumes build requests and executes them through the deploy gate.
type BuildAgent struct {
	broker broker.Broker
	gate   *deploy.Gate
	logger logger.Logger
}

// NewBuildAgent creates a new build agent.
func NewBuildAgent(brk broker.Broker, gate *deploy.Gate, log logger.Logger) *BuildAgent {
	return &BuildAgent{
		broker: brk,
		gate:   gate,
		logger: log,
	}
}

// Run starts the agent's main loop.
// It subscribes to relay.builds.requested and processes incoming requests.
func (a *BuildAgent) Run(ctx context.Context) error {
	a.logger.Info("[BuildAgent] Starting...")

	msgChan, err := a.broker.Subscribe(ctx, contracts.TopicBuildsRequested, consumerGroup)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", contracts.TopicBuildsRequested, err)
	}

	a.logger.Info("[BuildAgent] Listening for build requests on '%s' topic...", contracts.TopicBuildsRequested)

	for {
		select {
		case msg, ok := <-msgChan:
			if !ok {
				a.logger.Info("[BuildAgent] Message channel closed, shutting down")
				return nil
			}

			if err := a.processRequest(ctx, msg); err != nil {
				a.logger.Error("[BuildAgent] Error processing request: %v", err)
			}

		case <-ctx.Done():
			a.logger.Info("[BuildAgent] Context cancelled, shutting down")
			return ctx.Err()
		}
	}
}

// processRequest executes one build request and publishes its completion.
func (a *BuildAgent) processRequest(ctx context.Context, msg broker.Message) error {
	var request contracts.BuildRequested
	if err := json.Unmarshal(msg.Value, &request); err != nil {
		return fmt.Errorf("failed to unmarshal build request: %w", err)
	}

	a.logger.Info("[BuildAgent] Processing request %s (%s %s)", request.RequestID, request.Target.Kind, request.Target.SHA)

	var (
		final contracts.BuildStatus
		built bool
	)
	if request.Deliverable {
		final, built = a.gate.HandlePush(ctx, request.Target)
	} else {
		final, built = a.gate.HandlePullRequest(ctx, request.Target)
	}
	if !built {
		// The publisher gates refs already; a skipped build here means a
		// stale or foreign request. Nothing to announce.
		a.logger.Debug("[BuildAgent] Request %s skipped by gate", request.RequestID)
		return nil
	}

	completed := contracts.BuildCompleted{
		RequestID:   request.RequestID,
		SHA:         request.Target.SHA,
		State:       final.State,
		Description: final.Description,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	value, err := json.Marshal(completed)
	if err != nil {
		return fmt.Errorf("failed to marshal completion: %w", err)
	}
	if err := a.broker.Publish(ctx, contracts.TopicBuildsCompleted, request.RequestID, value); err != nil {
		return fmt.Errorf("failed to publish completion: %w", err)
	}

	a.logger.Info("[BuildAgent] Request %s finished: %s", request.RequestID, final.State)
	return nil
}
