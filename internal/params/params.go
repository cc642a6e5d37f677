package params

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"tttevo/internal/model"
)

const (
	NameConvFilter    = "conv_filter"
	NameOutputWeights = "W_out"
	NameOutputBias    = "b_out"

	// initScale matches the magnitude of freshly constructed engines.
	initScale = 0.01
)

var (
	ErrMissingParameter = errors.New("missing parameter")
	ErrUnknownParameter = errors.New("unknown parameter")
	ErrValueCount       = errors.New("value count does not match shape")
)

// Names lists the parameter arrays in canonical order.
func Names() []string {
	return []string{NameConvFilter, NameOutputWeights, NameOutputBias}
}

// Shapes returns the fixed shape of each parameter array.
func Shapes() map[string]model.Shape {
	return map[string]model.Shape{
		NameConvFilter:    {Rows: 3, Cols: 3},
		NameOutputWeights: {Rows: 1, Cols: 9},
		NameOutputBias:    {Rows: 1, Cols: 1},
	}
}

// ShapeMismatchError reports an archive array whose shape differs from the
// parameter it would replace.
type ShapeMismatchError struct {
	Name string
	Want model.Shape
	Got  model.Shape
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("parameter %s shape mismatch: want %dx%d got %dx%d",
		e.Name, e.Want.Rows, e.Want.Cols, e.Got.Rows, e.Got.Cols)
}

// Archive is anything that can list its array names and be indexed by name.
type Archive interface {
	Names() []string
	Lookup(name string) (model.Matrix, bool)
}

// Arrays is the plain name to array mapping form of an Archive.
type Arrays map[string]model.Matrix

func (a Arrays) Names() []string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (a Arrays) Lookup(name string) (model.Matrix, bool) {
	m, ok := a[name]
	return m, ok
}

// Set holds the learnable state of one evaluator: a 3x3 convolution filter,
// a 1x9 output weight row and a 1x1 output bias.
type Set struct {
	convFilter    model.Matrix
	outputWeights model.Matrix
	outputBias    model.Matrix
}

// NewSet returns a set with the fixed shapes and all values zero.
func NewSet() *Set {
	shapes := Shapes()
	return &Set{
		convFilter:    newMatrix(shapes[NameConvFilter]),
		outputWeights: newMatrix(shapes[NameOutputWeights]),
		outputBias:    newMatrix(shapes[NameOutputBias]),
	}
}

// Initialize draws conv_filter and W_out from N(0, 0.01^2) and zeroes b_out.
func (s *Set) Initialize(rng *rand.Rand) {
	rng = ensureRNG(rng)
	for i := range s.convFilter.Values {
		s.convFilter.Values[i] = rng.NormFloat64() * initScale
	}
	for i := range s.outputWeights.Values {
		s.outputWeights.Values[i] = rng.NormFloat64() * initScale
	}
	for i := range s.outputBias.Values {
		s.outputBias.Values[i] = 0
	}
}

func (s *Set) ConvFilter() model.Matrix    { return s.convFilter.Clone() }
func (s *Set) OutputWeights() model.Matrix { return s.outputWeights.Clone() }
func (s *Set) OutputBias() float64         { return s.outputBias.Values[0] }

// Get returns a deep copy of every parameter array keyed by name.
func (s *Set) Get() Arrays {
	return Arrays{
		NameConvFilter:    s.convFilter.Clone(),
		NameOutputWeights: s.outputWeights.Clone(),
		NameOutputBias:    s.outputBias.Clone(),
	}
}

// Set replaces every parameter with a copy of the archive's arrays. The
// archive must carry exactly the three parameter names with matching shapes;
// on error the set is left unchanged.
func (s *Set) Set(archive Archive) error {
	if archive == nil {
		return fmt.Errorf("%w: archive is nil", ErrMissingParameter)
	}
	shapes := Shapes()
	for _, name := range archive.Names() {
		if _, ok := shapes[name]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownParameter, name)
		}
	}

	loaded := make(map[string]model.Matrix, len(shapes))
	for _, name := range Names() {
		m, ok := archive.Lookup(name)
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingParameter, name)
		}
		want := shapes[name]
		if m.Shape() != want {
			return &ShapeMismatchError{Name: name, Want: want, Got: m.Shape()}
		}
		if len(m.Values) != want.Size() {
			return fmt.Errorf("%w: %s has %d values, want %d", ErrValueCount, name, len(m.Values), want.Size())
		}
		loaded[name] = m.Clone()
	}

	s.convFilter = loaded[NameConvFilter]
	s.outputWeights = loaded[NameOutputWeights]
	s.outputBias = loaded[NameOutputBias]
	return nil
}

func (s *Set) Clone() *Set {
	return &Set{
		convFilter:    s.convFilter.Clone(),
		outputWeights: s.outputWeights.Clone(),
		outputBias:    s.outputBias.Clone(),
	}
}

// Each visits the arrays in canonical order. The slice passed to fn aliases
// the set's storage so callers can update values in place; its length is
// fixed by the array shape.
func (s *Set) Each(fn func(name string, values []float64)) {
	fn(NameConvFilter, s.convFilter.Values)
	fn(NameOutputWeights, s.outputWeights.Values)
	fn(NameOutputBias, s.outputBias.Values)
}

// Len is the total number of scalar parameters.
func (s *Set) Len() int {
	return len(s.convFilter.Values) + len(s.outputWeights.Values) + len(s.outputBias.Values)
}

func newMatrix(shape model.Shape) model.Matrix {
	return model.NewMatrix(shape.Rows, shape.Cols)
}

func ensureRNG(rng *rand.Rand) *rand.Rand {
	if rng != nil {
		return rng
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
