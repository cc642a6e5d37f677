package tttevo

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"tttevo/internal/eval"
	"tttevo/internal/evo"
	"tttevo/internal/model"
	"tttevo/internal/params"
	"tttevo/internal/storage"
)

// Version is the revision of the scoring logic carried by every engine.
const Version = eval.Version

type Options struct {
	// ID names the engine; empty generates a random UUID.
	ID       string
	Geometry eval.Geometry
	Symbols  eval.Symbols
	Seed     int64
	// Rand overrides Seed when set.
	Rand *rand.Rand
}

// Engine is one evolvable evaluator plus its identity. An Engine is not safe
// for concurrent use; Clone it per goroutine.
type Engine struct {
	id        string
	parentID  string
	createdAt string
	rng       *rand.Rand
	eval      *eval.Evaluator
}

func NewEngine(opts Options) (*Engine, error) {
	rng := opts.Rand
	if rng == nil {
		seed := opts.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng = rand.New(rand.NewSource(seed))
	}
	evaluator, err := eval.New(eval.Config{
		Geometry: opts.Geometry,
		Symbols:  opts.Symbols,
		Rand:     rng,
	})
	if err != nil {
		return nil, err
	}
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	return &Engine{id: id, rng: rng, eval: evaluator}, nil
}

// FromRecord builds an engine whose parameters are loaded from record. The
// record's id and parent id replace opts.ID.
func FromRecord(record model.ParameterRecord, opts Options) (*Engine, error) {
	opts.ID = record.ID
	engine, err := NewEngine(opts)
	if err != nil {
		return nil, err
	}
	if err := engine.eval.SetParameters(record); err != nil {
		return nil, err
	}
	engine.parentID = record.ParentID
	engine.createdAt = record.CreatedAtUTC
	return engine, nil
}

func (e *Engine) ID() string              { return e.id }
func (e *Engine) ParentID() string        { return e.parentID }
func (e *Engine) Version() string         { return Version }
func (e *Engine) Symbols() eval.Symbols   { return e.eval.Symbols() }
func (e *Engine) Geometry() eval.Geometry { return e.eval.Geometry() }

func (e *Engine) ConfigureSymbols(player, opponent int) error {
	return e.eval.ConfigureSymbols(player, opponent)
}

func (e *Engine) Evaluate(board eval.Board) (float64, error) {
	return e.eval.Evaluate(board)
}

func (e *Engine) Breakdown(board eval.Board) (eval.Score, error) {
	return e.eval.Breakdown(board)
}

func (e *Engine) Parameters() params.Arrays {
	return e.eval.Parameters()
}

func (e *Engine) SetParameters(archive params.Archive) error {
	return e.eval.SetParameters(archive)
}

// Mutate perturbs the engine's parameters in place using its own random
// source.
func (e *Engine) Mutate(rate, scale float64) error {
	return evo.Mutate(e.rng, e.eval.ParameterSet(), rate, scale)
}

// Apply runs an arbitrary operator against the engine's parameters.
func (e *Engine) Apply(ctx context.Context, op evo.Operator) error {
	return op.Apply(ctx, e.eval.ParameterSet())
}

// Clone copies the engine including its id. The clone gets its own random
// source seeded from the parent's stream.
func (e *Engine) Clone() *Engine {
	return &Engine{
		id:        e.id,
		parentID:  e.parentID,
		createdAt: e.createdAt,
		rng:       rand.New(rand.NewSource(e.rng.Int63())),
		eval:      e.eval.Clone(),
	}
}

// scoringClone copies only what evaluation reads. It leaves the parent's
// random stream untouched and has no random source of its own.
func (e *Engine) scoringClone() *Engine {
	return &Engine{
		id:       e.id,
		parentID: e.parentID,
		eval:     e.eval.Clone(),
	}
}

// Spawn returns an offspring with copied parameters, a fresh id and this
// engine as its parent. The offspring is not mutated.
func (e *Engine) Spawn() *Engine {
	child := e.Clone()
	child.id = uuid.NewString()
	child.parentID = e.id
	child.createdAt = ""
	return child
}

// Record returns the persistable form of the engine. The creation time is
// fixed the first time a record is taken and kept for loaded engines.
func (e *Engine) Record() model.ParameterRecord {
	if e.createdAt == "" {
		e.createdAt = time.Now().UTC().Format(time.RFC3339)
	}
	return storage.Stamp(model.ParameterRecord{
		ID:            e.id,
		ParentID:      e.parentID,
		EngineVersion: Version,
		CreatedAtUTC:  e.createdAt,
		Arrays:        e.eval.Parameters(),
	})
}
