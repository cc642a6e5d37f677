package evo

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"tttevo/internal/model"
	"tttevo/internal/params"
)

func seededSet(t *testing.T, seed int64) *params.Set {
	t.Helper()
	set := params.NewSet()
	set.Initialize(rand.New(rand.NewSource(seed)))
	return set
}

func shapesOf(arrays params.Arrays) map[string]model.Shape {
	out := make(map[string]model.Shape, len(arrays))
	for name, m := range arrays {
		out[name] = m.Shape()
	}
	return out
}

func TestMutatePreservesShapes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	set := seededSet(t, 1)
	for _, tc := range []struct{ rate, scale float64 }{
		{0, 0}, {0, 1}, {0.5, 0.1}, {1, 0}, {1, 3},
	} {
		if err := Mutate(rng, set, tc.rate, tc.scale); err != nil {
			t.Fatalf("mutate rate=%v scale=%v: %v", tc.rate, tc.scale, err)
		}
		if !reflect.DeepEqual(shapesOf(set.Get()), params.Shapes()) {
			t.Fatalf("shape changed after rate=%v scale=%v", tc.rate, tc.scale)
		}
	}
}

func TestMutateZeroRateIsNoop(t *testing.T) {
	set := seededSet(t, 2)
	before := set.Get()
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 50; i++ {
		if err := Mutate(rng, set, 0, 5); err != nil {
			t.Fatalf("mutate: %v", err)
		}
	}
	if !reflect.DeepEqual(set.Get(), before) {
		t.Fatal("zero rate mutation changed parameters")
	}
}

func TestMutateZeroScaleIsNoop(t *testing.T) {
	set := seededSet(t, 3)
	before := set.Get()
	if err := Mutate(rand.New(rand.NewSource(3)), set, 1, 0); err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if !reflect.DeepEqual(set.Get(), before) {
		t.Fatal("zero scale mutation changed parameters")
	}
}

func TestMutateFullRateDeltaDistribution(t *testing.T) {
	const (
		trials = 2000
		scale  = 0.5
	)
	rng := rand.New(rand.NewSource(42))
	var sum, sumSq float64
	n := 0
	for trial := 0; trial < trials; trial++ {
		set := params.NewSet()
		if err := Mutate(rng, set, 1, scale); err != nil {
			t.Fatalf("mutate: %v", err)
		}
		set.Each(func(_ string, values []float64) {
			for _, v := range values {
				if v == 0 {
					t.Fatalf("full rate left an element unchanged")
				}
				sum += v
				sumSq += v * v
				n++
			}
		})
	}
	mean := sum / float64(n)
	std := math.Sqrt(sumSq/float64(n) - mean*mean)
	if math.Abs(mean) > 0.02 {
		t.Fatalf("delta mean too far from zero: %f", mean)
	}
	if math.Abs(std-scale) > 0.02 {
		t.Fatalf("delta std too far from scale: got=%f want=%f", std, scale)
	}
}

func TestMutatePartialRateSelectsFraction(t *testing.T) {
	const (
		trials = 2000
		rate   = 0.3
	)
	rng := rand.New(rand.NewSource(7))
	changed, total := 0, 0
	for trial := 0; trial < trials; trial++ {
		set := params.NewSet()
		if err := Mutate(rng, set, rate, 1); err != nil {
			t.Fatalf("mutate: %v", err)
		}
		set.Each(func(_ string, values []float64) {
			for _, v := range values {
				if v != 0 {
					changed++
				}
				total++
			}
		})
	}
	fraction := float64(changed) / float64(total)
	if math.Abs(fraction-rate) > 0.02 {
		t.Fatalf("selected fraction too far from rate: got=%f want=%f", fraction, rate)
	}
}

func TestMutateIsReproducibleForSeed(t *testing.T) {
	a := seededSet(t, 4)
	b := a.Clone()
	if err := Mutate(rand.New(rand.NewSource(99)), a, 0.5, 0.2); err != nil {
		t.Fatalf("mutate a: %v", err)
	}
	if err := Mutate(rand.New(rand.NewSource(99)), b, 0.5, 0.2); err != nil {
		t.Fatalf("mutate b: %v", err)
	}
	if !reflect.DeepEqual(a.Get(), b.Get()) {
		t.Fatal("expected identical mutations for identical seeds")
	}
}

func TestMutateCompounds(t *testing.T) {
	set := seededSet(t, 5)
	original := set.Get()
	rng := rand.New(rand.NewSource(5))
	if err := Mutate(rng, set, 1, 0.1); err != nil {
		t.Fatalf("mutate: %v", err)
	}
	once := set.Get()
	if err := Mutate(rng, set, 1, 0.1); err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if reflect.DeepEqual(set.Get(), once) || reflect.DeepEqual(set.Get(), original) {
		t.Fatal("expected repeated mutation to keep moving parameters")
	}
}

func TestMutateValidation(t *testing.T) {
	set := params.NewSet()
	rng := rand.New(rand.NewSource(1))

	if err := Mutate(nil, set, 0.1, 0.1); !errors.Is(err, ErrRandomSourceRequired) {
		t.Fatalf("expected random source error, got %v", err)
	}
	if err := Mutate(rng, nil, 0.1, 0.1); !errors.Is(err, ErrNilParameterSet) {
		t.Fatalf("expected nil set error, got %v", err)
	}
	for _, rate := range []float64{-0.1, 1.1, math.NaN()} {
		if err := Mutate(rng, set, rate, 0.1); !errors.Is(err, ErrInvalidRate) {
			t.Fatalf("expected invalid rate for %v, got %v", rate, err)
		}
	}
	for _, scale := range []float64{-1, math.Inf(1), math.NaN()} {
		if err := Mutate(rng, set, 0.1, scale); !errors.Is(err, ErrInvalidScale) {
			t.Fatalf("expected invalid scale for %v, got %v", scale, err)
		}
	}
}

func TestGaussianMaskOperator(t *testing.T) {
	set := seededSet(t, 6)
	before := set.Get()
	op := &GaussianMask{Rand: rand.New(rand.NewSource(6)), Rate: 1, Scale: 0.1}
	if op.Name() != "gaussian_mask" {
		t.Fatalf("unexpected name: %s", op.Name())
	}
	if err := op.Apply(context.Background(), set); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if reflect.DeepEqual(set.Get(), before) {
		t.Fatal("expected parameters to change")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := op.Apply(ctx, set); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestPerturbAt(t *testing.T) {
	set := params.NewSet()
	op := PerturbAt{Array: params.NameOutputWeights, Index: 4, Delta: 0.25}
	if err := op.Apply(context.Background(), set); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := set.OutputWeights().Values[4]; got != 0.25 {
		t.Fatalf("unexpected weight: %f", got)
	}
	if err := (PerturbAt{Array: params.NameOutputBias, Index: 1}).Apply(context.Background(), set); err == nil {
		t.Fatal("expected index error")
	}
	if err := (PerturbAt{Array: "W_hidden"}).Apply(context.Background(), set); !errors.Is(err, params.ErrUnknownParameter) {
		t.Fatalf("expected unknown parameter error, got %v", err)
	}
}
