package eval

import (
	"errors"
	"fmt"
)

// Empty is the cell code for an unoccupied square. It is not configurable.
const Empty = 0

var ErrInvalidSymbols = errors.New("invalid symbol configuration")

// Symbols maps the two occupants to their integer cell codes.
type Symbols struct {
	Player   int `json:"player"`
	Opponent int `json:"opponent"`
}

func DefaultSymbols() Symbols {
	return Symbols{Player: 1, Opponent: -1}
}

func (s Symbols) Validate() error {
	if s.Player == Empty || s.Opponent == Empty {
		return fmt.Errorf("%w: symbols must differ from the empty code %d", ErrInvalidSymbols, Empty)
	}
	if s.Player == s.Opponent {
		return fmt.Errorf("%w: player and opponent share code %d", ErrInvalidSymbols, s.Player)
	}
	return nil
}

// Swapped returns the configuration seen from the other side of the board.
func (s Symbols) Swapped() Symbols {
	return Symbols{Player: s.Opponent, Opponent: s.Player}
}

// InvalidSymbolError reports a cell whose code is neither player, opponent
// nor empty.
type InvalidSymbolError struct {
	Row   int
	Col   int
	Value int
}

func (e *InvalidSymbolError) Error() string {
	return fmt.Sprintf("board cell (%d,%d) holds unknown symbol %d", e.Row, e.Col, e.Value)
}

func (s Symbols) check(board Board) error {
	for r, row := range board {
		for c, v := range row {
			if v != Empty && v != s.Player && v != s.Opponent {
				return &InvalidSymbolError{Row: r, Col: c, Value: v}
			}
		}
	}
	return nil
}
