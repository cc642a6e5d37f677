package tttevo

import (
	"fmt"
	"strconv"
	"strings"

	"tttevo/internal/eval"
)

// ParseBoard reads a board written row by row. Rows are separated by '/' or
// newlines and cells by commas or whitespace; '.' stands for an empty cell.
//
//	ParseBoard("1,-1,0/0,1,0/.,.,-1")
func ParseBoard(text string) (eval.Board, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty board")
	}
	rows := strings.FieldsFunc(text, func(r rune) bool { return r == '/' || r == '\n' || r == ';' })
	board := make(eval.Board, 0, len(rows))
	for r, row := range rows {
		cells := strings.FieldsFunc(row, func(c rune) bool { return c == ',' || c == ' ' || c == '\t' })
		if len(cells) == 0 {
			return nil, fmt.Errorf("board row %d is empty", r)
		}
		values := make([]int, len(cells))
		for c, cell := range cells {
			if cell == "." {
				continue
			}
			v, err := strconv.Atoi(cell)
			if err != nil {
				return nil, fmt.Errorf("board cell (%d,%d): %w", r, c, err)
			}
			values[c] = v
		}
		board = append(board, values)
	}
	return board, nil
}

// FormatBoard writes board in the form accepted by ParseBoard.
func FormatBoard(board eval.Board) string {
	rows := make([]string, len(board))
	for r, row := range board {
		cells := make([]string, len(row))
		for c, v := range row {
			cells[c] = strconv.Itoa(v)
		}
		rows[r] = strings.Join(cells, ",")
	}
	return strings.Join(rows, "/")
}
