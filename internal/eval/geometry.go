package eval

import "fmt"

// WindowSize is the edge length of both the patch and the rule window.
const WindowSize = 3

// Geometry places the two 3x3 windows inside the board buffer. The patch
// window feeds the learnable term; the rule window is scanned for threats.
type Geometry struct {
	PatchRow int `json:"patch_row"`
	PatchCol int `json:"patch_col"`
	RuleRow  int `json:"rule_row"`
	RuleCol  int `json:"rule_col"`
}

// DefaultGeometry reads a plain 3x3 board: both windows cover the whole grid.
func DefaultGeometry() Geometry {
	return Geometry{}
}

// ReferenceGeometry takes the patch from rows and columns 1..3 and the rule
// window from 0..2, so boards need at least 4x4 cells.
func ReferenceGeometry() Geometry {
	return Geometry{PatchRow: 1, PatchCol: 1}
}

// GeometryByName resolves "default" or "reference".
func GeometryByName(name string) (Geometry, error) {
	switch name {
	case "", "default":
		return DefaultGeometry(), nil
	case "reference", "padded":
		return ReferenceGeometry(), nil
	default:
		return Geometry{}, fmt.Errorf("unsupported geometry: %s", name)
	}
}

func (g Geometry) Validate() error {
	if g.PatchRow < 0 || g.PatchCol < 0 || g.RuleRow < 0 || g.RuleCol < 0 {
		return fmt.Errorf("geometry offsets must be >= 0: %+v", g)
	}
	return nil
}

func (g Geometry) MinRows() int {
	return max(g.PatchRow, g.RuleRow) + WindowSize
}

func (g Geometry) MinCols() int {
	return max(g.PatchCol, g.RuleCol) + WindowSize
}

// ShapeError reports a board that cannot hold both windows.
type ShapeError struct {
	Rows     int
	Cols     int
	NeedRows int
	NeedCols int
	Ragged   int
}

func (e *ShapeError) Error() string {
	if e.Ragged >= 0 {
		return fmt.Sprintf("board row %d has %d cells, want %d", e.Ragged, e.Cols, e.NeedCols)
	}
	return fmt.Sprintf("board is %dx%d, need at least %dx%d", e.Rows, e.Cols, e.NeedRows, e.NeedCols)
}

func (g Geometry) check(board Board) error {
	needRows, needCols := g.MinRows(), g.MinCols()
	if len(board) < needRows {
		cols := 0
		if len(board) > 0 {
			cols = len(board[0])
		}
		return &ShapeError{Rows: len(board), Cols: cols, NeedRows: needRows, NeedCols: needCols, Ragged: -1}
	}
	width := len(board[0])
	for r, row := range board {
		if len(row) != width {
			return &ShapeError{Rows: len(board), Cols: len(row), NeedRows: needRows, NeedCols: width, Ragged: r}
		}
	}
	if width < needCols {
		return &ShapeError{Rows: len(board), Cols: width, NeedRows: needRows, NeedCols: needCols, Ragged: -1}
	}
	return nil
}
