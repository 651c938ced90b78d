package interfaces

import (
	"context"

	"stock-recommender/internal/types"
)

// Agent is one unit of work in the recommendation pipeline.
type Agent interface {
	// Name is the unit's unique identifier, used as log tag and error key prefix.
	Name() string

	// Description is a short human readable summary.
	Description() string

	// Namespace is the only ExecutionContext slot the unit may write.
	Namespace() types.Namespace

	// Execute reads the shared context and returns a partial context holding the unit's output.
	// Implementations must not modify in.
	Execute(ctx context.Context, in *types.ExecutionContext) (*types.ExecutionContext, error)
}
