package webhook

import (
	"context"

	"relay-agent/src/contracts"
	"relay-agent/src/deploy"
)

// InlineEvents is the single-process Events implementation: decoded
// notifications run straight through the deploy gate.
type InlineEvents struct {
	Gate *deploy.Gate
}

func (e InlineEvents) HandlePush(ctx context.Context, target contracts.BuildTarget) {
	e.Gate.HandlePush(ctx, target)
}

func (e InlineEvents) HandlePullRequest(ctx context.Context, target contracts.BuildTarget) {
	e.Gate.HandlePullRequest(ctx, target)
}
