package corpus

import (
	"errors"
	"fmt"
	"os"

	"github.com/sbinet/npyio"
)

// Matrix is a dense row-major float32 matrix.
type Matrix struct {
	Rows int
	Dim  int
	Data []float32
}

// NewMatrix copies rows into a matrix. All rows must share one length.
func NewMatrix(rows [][]float32) (*Matrix, error) {
	if len(rows) == 0 {
		return &Matrix{}, nil
	}
	dim := len(rows[0])
	if dim == 0 {
		return nil, errors.New("matrix rows are empty")
	}
	m := &Matrix{Rows: len(rows), Dim: dim, Data: make([]float32, 0, len(rows)*dim)}
	for i, r := range rows {
		if len(r) != dim {
			return nil, fmt.Errorf("row %d has dimension %d, want %d", i, len(r), dim)
		}
		m.Data = append(m.Data, r...)
	}
	return m, nil
}

// Row returns a view of row i; callers must not modify it.
func (m *Matrix) Row(i int) []float32 {
	return m.Data[i*m.Dim : (i+1)*m.Dim : (i+1)*m.Dim]
}

// LoadEmbeddings reads a two dimensional C-ordered .npy file of float32 or
// float64 values.
func LoadEmbeddings(path string) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open embeddings: %w", err)
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("read npy header %s: %w", path, err)
	}
	shape := r.Header.Descr.Shape
	if len(shape) != 2 {
		return nil, fmt.Errorf("embeddings must be 2-D, got shape %v", shape)
	}
	if r.Header.Descr.Fortran {
		return nil, errors.New("embeddings in Fortran order are not supported")
	}
	m := &Matrix{Rows: shape[0], Dim: shape[1]}
	n := m.Rows * m.Dim

	switch r.Header.Descr.Type {
	case "<f4", "f4":
		m.Data = make([]float32, n)
		if err := r.Read(&m.Data); err != nil {
			return nil, fmt.Errorf("read embeddings: %w", err)
		}
	case "<f8", "f8":
		raw := make([]float64, n)
		if err := r.Read(&raw); err != nil {
			return nil, fmt.Errorf("read embeddings: %w", err)
		}
		m.Data = make([]float32, n)
		for i, v := range raw {
			m.Data[i] = float32(v)
		}
	default:
		return nil, fmt.Errorf("unsupported embeddings dtype %q", r.Header.Descr.Type)
	}
	return m, nil
}
