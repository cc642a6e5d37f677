package evo

import (
	"context"

	"tttevo/internal/params"
)

// Operator perturbs a parameter set in place.
type Operator interface {
	Name() string
	Apply(ctx context.Context, set *params.Set) error
}
