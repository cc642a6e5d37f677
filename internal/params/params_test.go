package params

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"tttevo/internal/model"
)

func TestNewSetHasFixedShapes(t *testing.T) {
	set := NewSet()
	got := set.Get()
	for name, want := range Shapes() {
		m, ok := got[name]
		if !ok {
			t.Fatalf("missing array %s", name)
		}
		if m.Shape() != want {
			t.Fatalf("unexpected shape for %s: got=%+v want=%+v", name, m.Shape(), want)
		}
		if len(m.Values) != want.Size() {
			t.Fatalf("unexpected value count for %s: %d", name, len(m.Values))
		}
	}
	if set.Len() != 19 {
		t.Fatalf("unexpected parameter count: %d", set.Len())
	}
}

func TestInitializeIsSmallAndZeroBias(t *testing.T) {
	set := NewSet()
	set.Initialize(rand.New(rand.NewSource(7)))

	if set.OutputBias() != 0 {
		t.Fatalf("expected zero bias, got %f", set.OutputBias())
	}
	nonZero := 0
	for _, name := range []string{NameConvFilter, NameOutputWeights} {
		for _, v := range set.Get()[name].Values {
			if math.Abs(v) > 0.1 {
				t.Fatalf("initial %s value too large: %f", name, v)
			}
			if v != 0 {
				nonZero++
			}
		}
	}
	if nonZero == 0 {
		t.Fatal("expected random initial values")
	}
}

func TestInitializeSeedIsReproducible(t *testing.T) {
	a := NewSet()
	a.Initialize(rand.New(rand.NewSource(11)))
	b := NewSet()
	b.Initialize(rand.New(rand.NewSource(11)))
	if !reflect.DeepEqual(a.Get(), b.Get()) {
		t.Fatal("expected identical parameters for identical seeds")
	}
}

func TestGetReturnsIndependentCopy(t *testing.T) {
	set := NewSet()
	set.Initialize(rand.New(rand.NewSource(3)))
	before := set.ConvFilter()

	out := set.Get()
	out[NameConvFilter].Values[0] = 99
	out[NameOutputBias].Values[0] = 99

	if set.ConvFilter().Values[0] != before.Values[0] {
		t.Fatal("mutating Get output changed the set")
	}
	if set.OutputBias() != 0 {
		t.Fatal("mutating Get output changed the bias")
	}
}

func TestSetCopiesInput(t *testing.T) {
	source := NewSet()
	source.Initialize(rand.New(rand.NewSource(5)))
	arrays := source.Get()

	target := NewSet()
	if err := target.Set(arrays); err != nil {
		t.Fatalf("set: %v", err)
	}
	arrays[NameOutputWeights].Values[4] = 42

	if target.OutputWeights().Values[4] == 42 {
		t.Fatal("set aliased the caller's array")
	}
	if !reflect.DeepEqual(target.ConvFilter(), source.ConvFilter()) {
		t.Fatal("conv filter not copied")
	}
}

func TestSetAcceptsParameterRecord(t *testing.T) {
	source := NewSet()
	source.Initialize(rand.New(rand.NewSource(9)))
	record := model.ParameterRecord{ID: "r1", Arrays: source.Get()}

	target := NewSet()
	if err := target.Set(record); err != nil {
		t.Fatalf("set from record: %v", err)
	}
	if !reflect.DeepEqual(target.Get(), source.Get()) {
		t.Fatal("record load mismatch")
	}
}

func TestSetRejectsShapeMismatch(t *testing.T) {
	set := NewSet()
	set.Initialize(rand.New(rand.NewSource(1)))
	before := set.Get()

	arrays := set.Get()
	arrays[NameOutputWeights] = model.NewMatrix(9, 1)

	err := set.Set(arrays)
	var mismatch *ShapeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected shape mismatch, got %v", err)
	}
	if mismatch.Name != NameOutputWeights || mismatch.Got != (model.Shape{Rows: 9, Cols: 1}) {
		t.Fatalf("unexpected mismatch detail: %+v", mismatch)
	}
	if !reflect.DeepEqual(set.Get(), before) {
		t.Fatal("failed set must leave parameters unchanged")
	}
}

func TestSetRejectsMissingAndUnknownNames(t *testing.T) {
	set := NewSet()

	missing := set.Get()
	delete(missing, NameOutputBias)
	if err := set.Set(missing); !errors.Is(err, ErrMissingParameter) {
		t.Fatalf("expected missing parameter error, got %v", err)
	}

	extra := set.Get()
	extra["W_hidden"] = model.NewMatrix(1, 1)
	if err := set.Set(extra); !errors.Is(err, ErrUnknownParameter) {
		t.Fatalf("expected unknown parameter error, got %v", err)
	}
}

func TestSetRejectsShortValues(t *testing.T) {
	set := NewSet()
	arrays := set.Get()
	arrays[NameConvFilter] = model.Matrix{Rows: 3, Cols: 3, Values: []float64{1, 2, 3}}
	if err := set.Set(arrays); !errors.Is(err, ErrValueCount) {
		t.Fatalf("expected value count error, got %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	set := NewSet()
	set.Initialize(rand.New(rand.NewSource(2)))
	clone := set.Clone()

	clone.Each(func(_ string, values []float64) {
		for i := range values {
			values[i] += 1
		}
	})
	if reflect.DeepEqual(clone.Get(), set.Get()) {
		t.Fatal("expected clone to diverge from original")
	}
}

func TestEachVisitsCanonicalOrder(t *testing.T) {
	var names []string
	NewSet().Each(func(name string, _ []float64) {
		names = append(names, name)
	})
	if !reflect.DeepEqual(names, Names()) {
		t.Fatalf("unexpected order: %v", names)
	}
}
