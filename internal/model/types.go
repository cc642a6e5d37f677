package model

import "sort"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

type Shape struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

func (s Shape) Size() int {
	return s.Rows * s.Cols
}

// Matrix is a dense row-major array of float64 values.
type Matrix struct {
	Rows   int       `json:"rows"`
	Cols   int       `json:"cols"`
	Values []float64 `json:"values"`
}

func NewMatrix(rows, cols int) Matrix {
	return Matrix{Rows: rows, Cols: cols, Values: make([]float64, rows*cols)}
}

func (m Matrix) Shape() Shape {
	return Shape{Rows: m.Rows, Cols: m.Cols}
}

func (m Matrix) At(row, col int) float64 {
	return m.Values[row*m.Cols+col]
}

func (m Matrix) Clone() Matrix {
	return Matrix{
		Rows:   m.Rows,
		Cols:   m.Cols,
		Values: append([]float64(nil), m.Values...),
	}
}

// ParameterRecord is the persisted form of one evaluator's parameters.
type ParameterRecord struct {
	VersionedRecord
	ID            string            `json:"id"`
	ParentID      string            `json:"parent_id,omitempty"`
	EngineVersion string            `json:"engine_version"`
	CreatedAtUTC  string            `json:"created_at_utc,omitempty"`
	Arrays        map[string]Matrix `json:"arrays"`
}

// Names lists the array names held by the record in sorted order.
func (r ParameterRecord) Names() []string {
	names := make([]string, 0, len(r.Arrays))
	for name := range r.Arrays {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r ParameterRecord) Lookup(name string) (Matrix, bool) {
	m, ok := r.Arrays[name]
	return m, ok
}

// Clone returns a record that shares no array storage with r.
func (r ParameterRecord) Clone() ParameterRecord {
	out := r
	if r.Arrays != nil {
		out.Arrays = make(map[string]Matrix, len(r.Arrays))
		for name, m := range r.Arrays {
			out.Arrays[name] = m.Clone()
		}
	}
	return out
}
