package eval

import (
	"math/rand"

	"tttevo/internal/params"
)

// Version identifies the revision of the scoring logic.
const Version = "0.0.2"

// ThreatPenalty is added once for every line where the opponent holds two
// cells and the third is empty.
const ThreatPenalty = -10.0

// Board is a grid of cell codes indexed [row][col].
type Board [][]int

func (b Board) Clone() Board {
	if b == nil {
		return nil
	}
	out := make(Board, len(b))
	for i, row := range b {
		out[i] = append([]int(nil), row...)
	}
	return out
}

type Config struct {
	Geometry Geometry
	Symbols  Symbols
	// Rand seeds the initial parameters. Nil uses a time-seeded source.
	Rand *rand.Rand
}

// Score splits an evaluation into its learnable and rule-based parts.
type Score struct {
	Conv    float64 `json:"conv"`
	Linear  float64 `json:"linear"`
	Base    float64 `json:"base"`
	Threat  float64 `json:"threat"`
	Total   float64 `json:"total"`
	Threats []Line  `json:"threats,omitempty"`
}

// Evaluator scores boards from the configured player's point of view.
// It owns its parameters and is not safe for concurrent use.
type Evaluator struct {
	params   *params.Set
	symbols  Symbols
	geometry Geometry
	board    Board
}

// New builds an evaluator with freshly initialized parameters. A zero
// Symbols value selects DefaultSymbols.
func New(cfg Config) (*Evaluator, error) {
	if err := cfg.Geometry.Validate(); err != nil {
		return nil, err
	}
	symbols := cfg.Symbols
	if symbols == (Symbols{}) {
		symbols = DefaultSymbols()
	}
	if err := symbols.Validate(); err != nil {
		return nil, err
	}
	set := params.NewSet()
	set.Initialize(cfg.Rand)
	return &Evaluator{
		params:   set,
		symbols:  symbols,
		geometry: cfg.Geometry,
	}, nil
}

// ConfigureSymbols changes how later evaluations read raw cell codes.
func (e *Evaluator) ConfigureSymbols(player, opponent int) error {
	symbols := Symbols{Player: player, Opponent: opponent}
	if err := symbols.Validate(); err != nil {
		return err
	}
	e.symbols = symbols
	return nil
}

func (e *Evaluator) Symbols() Symbols   { return e.symbols }
func (e *Evaluator) Geometry() Geometry { return e.geometry }

// Parameters returns a deep copy of the current parameter arrays.
func (e *Evaluator) Parameters() params.Arrays {
	return e.params.Get()
}

// SetParameters replaces the parameters with a copy of the archive.
func (e *Evaluator) SetParameters(archive params.Archive) error {
	return e.params.Set(archive)
}

// ParameterSet exposes the owned set for in-place mutation. Callers must not
// retain it across evaluations on other goroutines.
func (e *Evaluator) ParameterSet() *params.Set {
	return e.params
}

// LastBoard returns a copy of the board most recently passed to Evaluate.
func (e *Evaluator) LastBoard() Board {
	return e.board.Clone()
}

// Clone returns an evaluator with copied parameters, symbols and geometry.
func (e *Evaluator) Clone() *Evaluator {
	return &Evaluator{
		params:   e.params.Clone(),
		symbols:  e.symbols,
		geometry: e.geometry,
		board:    e.board.Clone(),
	}
}

// Evaluate returns the score of board; higher favours the player.
func (e *Evaluator) Evaluate(board Board) (float64, error) {
	score, err := e.Breakdown(board)
	if err != nil {
		return 0, err
	}
	return score.Total, nil
}

// Breakdown evaluates board and reports each term separately.
func (e *Evaluator) Breakdown(board Board) (Score, error) {
	e.board = board.Clone()
	if err := e.geometry.check(e.board); err != nil {
		return Score{}, err
	}
	if err := e.symbols.check(e.board); err != nil {
		return Score{}, err
	}

	var score Score
	score.Conv, score.Linear = e.learnable()
	score.Base = score.Linear + score.Conv
	score.Threat, score.Threats = e.threats()
	score.Total = score.Base + score.Threat
	return score, nil
}

func (e *Evaluator) learnable() (conv, linear float64) {
	filter := e.params.ConvFilter()
	weights := e.params.OutputWeights()
	r0, c0 := e.geometry.PatchRow, e.geometry.PatchCol
	for i := 0; i < WindowSize; i++ {
		for j := 0; j < WindowSize; j++ {
			cell := float64(e.board[r0+i][c0+j])
			conv += cell * filter.At(i, j)
			linear += cell * weights.Values[i*WindowSize+j]
		}
	}
	linear += e.params.OutputBias()
	return conv, linear
}

func (e *Evaluator) threats() (float64, []Line) {
	var (
		penalty float64
		found   []Line
	)
	r0, c0 := e.geometry.RuleRow, e.geometry.RuleCol
	for _, line := range windowLines {
		opp, empty := 0, 0
		for _, cell := range line.Cells {
			switch e.board[r0+cell.Row][c0+cell.Col] {
			case e.symbols.Opponent:
				opp++
			case Empty:
				empty++
			}
		}
		if opp == 2 && empty == 1 {
			penalty += ThreatPenalty
			found = append(found, line)
		}
	}
	return penalty, found
}
