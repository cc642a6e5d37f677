package evo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"tttevo/internal/params"
)

const (
	DefaultMutationRate  = 0.1
	DefaultMutationScale = 0.1
)

var (
	ErrRandomSourceRequired = errors.New("random source is required")
	ErrInvalidRate          = errors.New("mutation rate must be within [0, 1]")
	ErrInvalidScale         = errors.New("mutation scale must be >= 0")
	ErrNilParameterSet      = errors.New("parameter set is required")
)

// Mutate perturbs set in place. Every element is selected independently with
// probability rate; selected elements receive N(0, 1) * scale. A mask draw
// and a noise draw are taken for every element, selected or not, so the
// random stream consumed depends only on the parameter count.
func Mutate(rng *rand.Rand, set *params.Set, rate, scale float64) error {
	if err := validateMutation(rng, set, rate, scale); err != nil {
		return err
	}
	set.Each(func(_ string, values []float64) {
		mask := make([]bool, len(values))
		for i := range mask {
			mask[i] = rng.Float64() < rate
		}
		for i := range values {
			noise := rng.NormFloat64() * scale
			if mask[i] {
				values[i] += noise
			}
		}
	})
	return nil
}

func validateMutation(rng *rand.Rand, set *params.Set, rate, scale float64) error {
	if rng == nil {
		return ErrRandomSourceRequired
	}
	if set == nil {
		return ErrNilParameterSet
	}
	if math.IsNaN(rate) || rate < 0 || rate > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidRate, rate)
	}
	if math.IsNaN(scale) || math.IsInf(scale, 0) || scale < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidScale, scale)
	}
	return nil
}

// GaussianMask applies Mutate with a fixed rate and scale.
type GaussianMask struct {
	Rand  *rand.Rand
	Rate  float64
	Scale float64
}

func (o *GaussianMask) Name() string {
	return "gaussian_mask"
}

func (o *GaussianMask) Apply(ctx context.Context, set *params.Set) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if o == nil {
		return ErrRandomSourceRequired
	}
	return Mutate(o.Rand, set, o.Rate, o.Scale)
}

// PerturbAt adds Delta to one element of the named array.
type PerturbAt struct {
	Array string
	Index int
	Delta float64
}

func (o PerturbAt) Name() string {
	return "perturb_at"
}

func (o PerturbAt) Apply(ctx context.Context, set *params.Set) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if set == nil {
		return ErrNilParameterSet
	}
	found := false
	var err error
	set.Each(func(name string, values []float64) {
		if name != o.Array {
			return
		}
		found = true
		if o.Index < 0 || o.Index >= len(values) {
			err = fmt.Errorf("%s index out of range: %d", name, o.Index)
			return
		}
		values[o.Index] += o.Delta
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", params.ErrUnknownParameter, o.Array)
	}
	return nil
}
