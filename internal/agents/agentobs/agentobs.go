package agentobs

import (
	"context"

	"stock-recommender/internal/interfaces"
	"stock-recommender/internal/logger"
	"stock-recommender/internal/trace"
	"stock-recommender/internal/types"
)

// observableAgent wraps an Agent with logging and tracing
type observableAgent struct {
	agent interfaces.Agent
}

var _ interfaces.Agent = (*observableAgent)(nil)

// Wrap wraps an agent with observability middleware
func Wrap(agent interfaces.Agent) interfaces.Agent {
	return &observableAgent{agent: agent}
}

func (o *observableAgent) Name() string               { return o.agent.Name() }
func (o *observableAgent) Description() string        { return o.agent.Description() }
func (o *observableAgent) Namespace() types.Namespace { return o.agent.Namespace() }

// Execute runs the wrapped agent inside a span named after it
func (o *observableAgent) Execute(ctx context.Context, in *types.ExecutionContext) (*types.ExecutionContext, error) {
	ctx, span := trace.StartSpanWith(ctx, "agent."+o.agent.Name(),
		"agent.namespace", string(o.agent.Namespace()),
	)
	defer span.End()

	logger.DebugSkip(ctx, 1, "Agent starting",
		"agent", o.agent.Name(),
		"inputs", namespaceNames(in),
	)

	out, err := o.agent.Execute(ctx, in)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Agent failed", err, "agent", o.agent.Name())
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Agent finished",
		"agent", o.agent.Name(),
		"outputs", namespaceNames(out),
	)
	return out, nil
}

func namespaceNames(c *types.ExecutionContext) []string {
	if c == nil {
		return nil
	}
	var names []string
	for _, ns := range c.Namespaces() {
		names = append(names, string(ns))
	}
	return names
}
