package tttevo

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"tttevo/internal/eval"
	"tttevo/internal/evo"
	"tttevo/internal/params"
)

func mustEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	engine, err := NewEngine(opts)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestNewEngineAssignsIDAndVersion(t *testing.T) {
	engine := mustEngine(t, Options{Seed: 1})
	if engine.ID() == "" {
		t.Fatal("expected generated id")
	}
	if engine.Version() != "0.0.2" {
		t.Fatalf("unexpected version: %s", engine.Version())
	}
	if engine.Symbols() != eval.DefaultSymbols() {
		t.Fatalf("unexpected symbols: %+v", engine.Symbols())
	}

	named := mustEngine(t, Options{ID: "engine-a", Seed: 1})
	if named.ID() != "engine-a" {
		t.Fatalf("unexpected id: %s", named.ID())
	}
}

func TestSameSeedSameParameters(t *testing.T) {
	a := mustEngine(t, Options{Seed: 21})
	b := mustEngine(t, Options{Seed: 21})
	if !reflect.DeepEqual(a.Parameters(), b.Parameters()) {
		t.Fatal("expected identical parameters for identical seeds")
	}
}

func TestSpawnCopiesParametersAndLinksParent(t *testing.T) {
	parent := mustEngine(t, Options{ID: "parent", Seed: 3})
	child := parent.Spawn()

	if child.ParentID() != "parent" || child.ID() == "parent" || child.ID() == "" {
		t.Fatalf("unexpected child identity: id=%s parent=%s", child.ID(), child.ParentID())
	}
	if !reflect.DeepEqual(child.Parameters(), parent.Parameters()) {
		t.Fatal("offspring must start with the parent's parameters")
	}

	if err := child.Mutate(1, 0.5); err != nil {
		t.Fatalf("mutate child: %v", err)
	}
	if reflect.DeepEqual(child.Parameters(), parent.Parameters()) {
		t.Fatal("mutating the child changed nothing")
	}
	before := mustEngine(t, Options{Seed: 3}).Parameters()
	if !reflect.DeepEqual(parent.Parameters(), before) {
		t.Fatal("mutating the child changed the parent")
	}
}

func TestMutateRejectsInvalidRate(t *testing.T) {
	engine := mustEngine(t, Options{Seed: 1})
	if err := engine.Mutate(2, 0.1); !errors.Is(err, evo.ErrInvalidRate) {
		t.Fatalf("expected invalid rate, got %v", err)
	}
}

func TestApplyOperator(t *testing.T) {
	engine := mustEngine(t, Options{Seed: 1})
	before := engine.Parameters()[params.NameOutputBias].Values[0]
	op := evo.PerturbAt{Array: params.NameOutputBias, Index: 0, Delta: 1.5}
	if err := engine.Apply(context.Background(), op); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := engine.Parameters()[params.NameOutputBias].Values[0]; got != before+1.5 {
		t.Fatalf("unexpected bias: %f", got)
	}
}

func TestRecordRoundTripKeepsScore(t *testing.T) {
	engine := mustEngine(t, Options{ID: "engine-a", Seed: 5})
	board := eval.Board{
		{1, -1, 0},
		{0, 1, 0},
		{-1, 0, -1},
	}
	want, err := engine.Evaluate(board)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	record := engine.Record()
	if record.EngineVersion != Version || record.SchemaVersion == 0 {
		t.Fatalf("unexpected record header: %+v", record)
	}
	loaded, err := FromRecord(record, Options{Seed: 99})
	if err != nil {
		t.Fatalf("from record: %v", err)
	}
	got, err := loaded.Evaluate(board)
	if err != nil {
		t.Fatalf("evaluate loaded: %v", err)
	}
	if math.Float64bits(got) != math.Float64bits(want) {
		t.Fatalf("score changed through record: got=%v want=%v", got, want)
	}
	if loaded.ID() != "engine-a" {
		t.Fatalf("unexpected loaded id: %s", loaded.ID())
	}
}

func TestFromRecordRejectsWrongShape(t *testing.T) {
	record := mustEngine(t, Options{Seed: 1}).Record()
	bad := record.Clone()
	conv := bad.Arrays[params.NameConvFilter]
	conv.Rows, conv.Cols = 1, 9
	bad.Arrays[params.NameConvFilter] = conv

	_, err := FromRecord(bad, Options{Seed: 1})
	var mismatch *params.ShapeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected shape mismatch, got %v", err)
	}
}

func TestEngineReferenceGeometry(t *testing.T) {
	engine := mustEngine(t, Options{Seed: 1, Geometry: eval.ReferenceGeometry()})
	if _, err := engine.Evaluate(eval.Board{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}}); err == nil {
		t.Fatal("expected shape error for 3x3 board under reference geometry")
	}
	board := eval.Board{
		{0, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, -1, 0},
		{0, 0, 0, 0},
	}
	if _, err := engine.Evaluate(board); err != nil {
		t.Fatalf("evaluate 4x4: %v", err)
	}
}

func TestRecordKeepsCreationTime(t *testing.T) {
	engine := mustEngine(t, Options{ID: "dated", Seed: 3})
	first := engine.Record()
	if first.CreatedAtUTC == "" {
		t.Fatal("expected creation time on first record")
	}

	record := first.Clone()
	record.CreatedAtUTC = "2020-01-02T03:04:05Z"
	loaded, err := FromRecord(record, Options{Seed: 1})
	if err != nil {
		t.Fatalf("from record: %v", err)
	}
	if err := loaded.Mutate(1, 0.1); err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if got := loaded.Record().CreatedAtUTC; got != "2020-01-02T03:04:05Z" {
		t.Fatalf("loaded engine lost its creation time: %q", got)
	}
	if got := loaded.Clone().Record().CreatedAtUTC; got != "2020-01-02T03:04:05Z" {
		t.Fatalf("clone lost creation time: %q", got)
	}

	child := loaded.Spawn()
	if got := child.Record().CreatedAtUTC; got == "" || got == "2020-01-02T03:04:05Z" {
		t.Fatalf("offspring should get its own creation time, got %q", got)
	}
}
