package webhook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"relay-agent/src/broker"
	"relay-agent/src/contracts"
	"relay-agent/src/logger"
)

// Publisher is the distributed-mode Events implementation: instead of
// building inline it publishes build requests for build agents to consume.
type Publisher struct {
	broker     broker.Broker
	deployRefs map[string]struct{}
	log        logger.Logger
}

// NewPublisher creates a publisher. deployRefs gates push events the same way
// the inline deploy gate would; pushes to other refs are never published.
func NewPublisher(b broker.Broker, deployRefs map[string]struct{}, log logger.Logger) *Publisher {
	return &Publisher{
		broker:     b,
		deployRefs: deployRefs,
		log:        log,
	}
}

// HandlePush publishes a deliverable build request for pushes to deploy refs.
func (p *Publisher) HandlePush(ctx context.Context, target contracts.BuildTarget) {
	if _, ok := p.deployRefs[target.Ref]; !ok {
		p.log.Debug("ref %s not in deploy set, ignoring push of %s", target.Ref, target.SHA)
		return
	}
	p.publish(ctx, target, true)
}

// HandlePullRequest publishes a non-deliverable build request.
func (p *Publisher) HandlePullRequest(ctx context.Context, target contracts.BuildTarget) {
	p.publish(ctx, target, false)
}

func (p *Publisher) publish(ctx context.Context, target contracts.BuildTarget, deliverable bool) {
	msg := contracts.BuildRequested{
		RequestID:   uuid.NewString(),
		Target:      target,
		Deliverable: deliverable,
		Timestamp:   time.Now().Format(time.RFC3339),
	}

	value, err := json.Marshal(msg)
	if err != nil {
		p.log.Error("could not encode build request for %s: %v", target.SHA, err)
		return
	}
	if err := p.broker.Publish(ctx, contracts.TopicBuildsRequested, target.SHA, value); err != nil {
		p.log.Error("could not publish build request for %s: %v", target.SHA, err)
		return
	}
	p.log.Info("build request %s published for %s", msg.RequestID, target.SHA)
}
