package evo

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"tttevo/internal/params"
)

// ParameterSummary describes the magnitude of a parameter archive.
type ParameterSummary struct {
	Arrays int     `json:"arrays"`
	Values int     `json:"values"`
	L2Norm float64 `json:"l2_norm"`
	MaxAbs float64 `json:"max_abs"`
}

// ParameterSignature identifies an archive by content. Two archives with the
// same names, shapes and bit-identical values share a fingerprint.
type ParameterSignature struct {
	Fingerprint string           `json:"fingerprint"`
	Summary     ParameterSummary `json:"summary"`
}

func ComputeParameterSignature(archive params.Archive) ParameterSignature {
	h := sha1.New()
	var summary ParameterSummary
	var sumSquares float64
	buf := make([]byte, 8)
	for _, name := range archive.Names() {
		m, ok := archive.Lookup(name)
		if !ok {
			continue
		}
		summary.Arrays++
		fmt.Fprintf(h, "%s:%dx%d|", name, m.Rows, m.Cols)
		for _, v := range m.Values {
			binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
			h.Write(buf)
			summary.Values++
			sumSquares += v * v
			summary.MaxAbs = math.Max(summary.MaxAbs, math.Abs(v))
		}
	}
	summary.L2Norm = math.Sqrt(sumSquares)
	digest := h.Sum(nil)
	return ParameterSignature{
		Fingerprint: hex.EncodeToString(digest[:8]),
		Summary:     summary,
	}
}

// ParameterDistance is the euclidean distance between two archives holding
// the same arrays, such as a parent and its offspring.
func ParameterDistance(a, b params.Archive) (float64, error) {
	names := a.Names()
	if len(names) != len(b.Names()) {
		return 0, fmt.Errorf("archives hold %d and %d arrays", len(names), len(b.Names()))
	}
	var sum float64
	for _, name := range names {
		ma, _ := a.Lookup(name)
		mb, ok := b.Lookup(name)
		if !ok {
			return 0, fmt.Errorf("%w: %s", params.ErrMissingParameter, name)
		}
		if len(ma.Values) != len(mb.Values) {
			return 0, &params.ShapeMismatchError{Name: name, Want: ma.Shape(), Got: mb.Shape()}
		}
		for i := range ma.Values {
			d := ma.Values[i] - mb.Values[i]
			sum += d * d
		}
	}
	return math.Sqrt(sum), nil
}
