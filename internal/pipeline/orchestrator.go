package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"stock-recommender/internal/interfaces"
	"stock-recommender/internal/logger"
	"stock-recommender/internal/types"
)

var (
	ErrNilAgent       = errors.New("pipeline: nil agent")
	ErrDuplicateAgent = errors.New("pipeline: duplicate agent name")
)

// Orchestrator runs a fixed list of agents against a shared ExecutionContext.
// A failing agent never stops the others; its failure is recorded as "<name>_error".
type Orchestrator struct {
	agents []interfaces.Agent
}

// New validates the registration list. Names must be unique because they key error entries.
func New(agents ...interfaces.Agent) (*Orchestrator, error) {
	seen := make(map[string]struct{}, len(agents))
	for i, a := range agents {
		if a == nil {
			return nil, fmt.Errorf("%w at position %d", ErrNilAgent, i)
		}
		if _, dup := seen[a.Name()]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAgent, a.Name())
		}
		seen[a.Name()] = struct{}{}
	}
	return &Orchestrator{agents: agents}, nil
}

// Agents returns the registered agents in registration order.
func (o *Orchestrator) Agents() []interfaces.Agent {
	return append([]interfaces.Agent(nil), o.agents...)
}

// RunSequential threads one evolving context through the agents in registration order,
// so each agent sees everything merged before it.
func (o *Orchestrator) RunSequential(ctx context.Context, base *types.ExecutionContext) *types.ExecutionContext {
	ctx = ensureRunID(ctx)
	current := base.Clone()

	logger.Info(ctx, "Running agents sequentially", "agents", len(o.agents))
	for _, a := range o.agents {
		partial, err := o.runOne(ctx, a, current.Clone())
		if err != nil {
			current.SetError(a.Name(), err)
			continue
		}
		current.Merge(partial)
	}
	return current
}

// RunParallel gives every agent its own copy of base, waits for all of them and
// merges results in completion order. Two agents writing the same namespace is
// resolved last-writer-wins by completion order.
func (o *Orchestrator) RunParallel(ctx context.Context, base *types.ExecutionContext) *types.ExecutionContext {
	ctx = ensureRunID(ctx)
	snapshot := base.Clone()

	type completion struct {
		name    string
		partial *types.ExecutionContext
		err     error
	}

	var (
		mu   sync.Mutex
		done = make([]completion, 0, len(o.agents))
		g    errgroup.Group
	)

	logger.Info(ctx, "Running agents in parallel", "agents", len(o.agents))
	for _, a := range o.agents {
		g.Go(func() error {
			partial, err := o.runOne(ctx, a, snapshot.Clone())
			mu.Lock()
			done = append(done, completion{name: a.Name(), partial: partial, err: err})
			mu.Unlock()
			// failures are data, not errors: returning nil keeps the group from short-circuiting
			return nil
		})
	}
	_ = g.Wait()

	merged := base.Clone()
	for _, c := range done {
		if c.err != nil {
			merged.SetError(c.name, c.err)
			continue
		}
		merged.Merge(c.partial)
	}
	return merged
}

// runOne executes a single agent, converting panics to errors and dropping any
// namespace the agent does not own.
func (o *Orchestrator) runOne(ctx context.Context, a interfaces.Agent, in *types.ExecutionContext) (partial *types.ExecutionContext, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			partial = nil
			err = fmt.Errorf("agent %s panicked: %v", a.Name(), r)
			logger.Error(ctx, "Agent panicked", "agent", a.Name(), "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
		if err != nil {
			logger.Stage(ctx, a.Name(), "failed", time.Since(start), "error", err)
		} else {
			logger.Stage(ctx, a.Name(), "success", time.Since(start))
		}
	}()

	out, err := a.Execute(ctx, in)
	if err != nil {
		return nil, err
	}
	return isolate(ctx, a, out), nil
}

// isolate keeps only the agent's declared namespace from its output.
func isolate(ctx context.Context, a interfaces.Agent, out *types.ExecutionContext) *types.ExecutionContext {
	if out == nil {
		return types.NewExecutionContext()
	}
	own := a.Namespace()
	for _, ns := range out.Namespaces() {
		if ns != own {
			logger.Warn(ctx, "Dropping output outside agent namespace",
				"agent", a.Name(),
				"namespace", string(ns),
				"owned", string(own),
			)
		}
	}
	return out.Only(own)
}

// WithRunID tags ctx with a run identifier. Log records under ctx carry it.
func WithRunID(ctx context.Context, id string) context.Context {
	return logger.WithRunID(ctx, id)
}

// RunID returns the run identifier carried by ctx, or "".
func RunID(ctx context.Context) string {
	return logger.RunID(ctx)
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

func ensureRunID(ctx context.Context) context.Context {
	if RunID(ctx) != "" {
		return ctx
	}
	return WithRunID(ctx, NewRunID())
}
