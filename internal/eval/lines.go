package eval

// Cell addresses one square relative to the rule window origin.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type LineKind string

const (
	LineRow          LineKind = "row"
	LineColumn       LineKind = "column"
	LineDiagonal     LineKind = "diagonal"
	LineAntiDiagonal LineKind = "anti_diagonal"
)

// Line is one of the eight winning triples of a 3x3 window.
type Line struct {
	Kind  LineKind         `json:"kind"`
	Index int              `json:"index"`
	Cells [WindowSize]Cell `json:"cells"`
}

var windowLines = buildLines()

// Lines returns the three rows, three columns and two diagonals of the
// rule window.
func Lines() []Line {
	return append([]Line(nil), windowLines...)
}

func buildLines() []Line {
	lines := make([]Line, 0, 2*WindowSize+2)
	for i := 0; i < WindowSize; i++ {
		line := Line{Kind: LineRow, Index: i}
		for j := 0; j < WindowSize; j++ {
			line.Cells[j] = Cell{Row: i, Col: j}
		}
		lines = append(lines, line)
	}
	for j := 0; j < WindowSize; j++ {
		line := Line{Kind: LineColumn, Index: j}
		for i := 0; i < WindowSize; i++ {
			line.Cells[i] = Cell{Row: i, Col: j}
		}
		lines = append(lines, line)
	}
	diag := Line{Kind: LineDiagonal}
	anti := Line{Kind: LineAntiDiagonal}
	for i := 0; i < WindowSize; i++ {
		diag.Cells[i] = Cell{Row: i, Col: i}
		anti.Cells[i] = Cell{Row: i, Col: WindowSize - 1 - i}
	}
	return append(lines, diag, anti)
}
