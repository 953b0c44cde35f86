package sparse

import (
	"errors"
	"fmt"
	"math"
)

// ErrShape reports a dimension mismatch.
var ErrShape = errors.New("sparse: shape mismatch")

// Matrix is an immutable CSR matrix. The zero value is an empty 0x0 matrix.
type Matrix struct {
	rows    int
	cols    int
	indptr  []int32
	indices []int32
	values  []float32
}

// Builder accumulates rows in order. Appending is amortized O(nnz) and never
// reallocates the already written rows as a whole.
type Builder struct {
	cols    int
	indptr  []int32
	indices []int32
	values  []float32
}

// NewBuilder returns a builder for rows of width cols. rowHint pre-sizes the
// row pointer slice and may be zero.
func NewBuilder(cols, rowHint int) *Builder {
	if rowHint < 0 {
		rowHint = 0
	}
	indptr := make([]int32, 1, rowHint+1)
	return &Builder{cols: cols, indptr: indptr}
}

// AppendRow stores a dense row. Zero entries are skipped.
func (b *Builder) AppendRow(row []float32) error {
	if len(row) != b.cols {
		return fmt.Errorf("%w: row has %d columns, want %d", ErrShape, len(row), b.cols)
	}
	for col, v := range row {
		if v == 0 {
			continue
		}
		b.indices = append(b.indices, int32(col))
		b.values = append(b.values, v)
	}
	b.indptr = append(b.indptr, int32(len(b.values)))
	return nil
}

// Rows reports how many rows have been appended.
func (b *Builder) Rows() int {
	return len(b.indptr) - 1
}

// Freeze returns the accumulated matrix. The builder must not be used after.
func (b *Builder) Freeze() *Matrix {
	m := &Matrix{
		rows:    len(b.indptr) - 1,
		cols:    b.cols,
		indptr:  b.indptr,
		indices: b.indices,
		values:  b.values,
	}
	b.indptr, b.indices, b.values = nil, nil, nil
	return m
}

// FromDense builds a matrix from row-major data.
func FromDense(rows, cols int, data []float32) (*Matrix, error) {
	if rows < 0 || cols < 0 || len(data) != rows*cols {
		return nil, fmt.Errorf("%w: %d values for %dx%d", ErrShape, len(data), rows, cols)
	}
	b := NewBuilder(cols, rows)
	for r := 0; r < rows; r++ {
		if err := b.AppendRow(data[r*cols : (r+1)*cols]); err != nil {
			return nil, err
		}
	}
	return b.Freeze(), nil
}

// Rows returns the row count.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the column count.
func (m *Matrix) Cols() int { return m.cols }

// NNZ returns the number of stored non-zero entries.
func (m *Matrix) NNZ() int { return len(m.values) }

// At returns the value at (r, c). It panics when out of range, like slice
// indexing.
func (m *Matrix) At(r, c int) float32 {
	if r < 0 || r >= m.rows || c < 0 || c >= m.cols {
		panic(fmt.Sprintf("sparse: index (%d,%d) out of range %dx%d", r, c, m.rows, m.cols))
	}
	for k := m.indptr[r]; k < m.indptr[r+1]; k++ {
		switch col := int(m.indices[k]); {
		case col == c:
			return m.values[k]
		case col > c:
			return 0
		}
	}
	return 0
}

// Dense returns a freshly allocated row-major copy.
func (m *Matrix) Dense() []float32 {
	out := make([]float32, m.rows*m.cols)
	m.denseInto(out)
	return out
}

// DenseInto writes the matrix row-major into dst, which must hold exactly
// Rows()*Cols() values. Every element of dst is overwritten.
func (m *Matrix) DenseInto(dst []float32) error {
	if len(dst) != m.rows*m.cols {
		return fmt.Errorf("%w: destination holds %d values, want %d", ErrShape, len(dst), m.rows*m.cols)
	}
	clear(dst)
	m.denseInto(dst)
	return nil
}

func (m *Matrix) denseInto(dst []float32) {
	for r := 0; r < m.rows; r++ {
		base := r * m.cols
		for k := m.indptr[r]; k < m.indptr[r+1]; k++ {
			dst[base+int(m.indices[k])] = m.values[k]
		}
	}
}

// Slice returns rows [start, end) as a new matrix that does not share memory
// with m.
func (m *Matrix) Slice(start, end int) (*Matrix, error) {
	if start < 0 || end > m.rows || start > end {
		return nil, fmt.Errorf("%w: row window [%d,%d) outside %d rows", ErrShape, start, end, m.rows)
	}
	lo, hi := m.ptr(start), m.ptr(end)
	out := &Matrix{
		rows:    end - start,
		cols:    m.cols,
		indptr:  make([]int32, end-start+1),
		indices: append([]int32(nil), m.indices[lo:hi]...),
		values:  append([]float32(nil), m.values[lo:hi]...),
	}
	for i := range out.indptr {
		out.indptr[i] = m.ptr(start+i) - lo
	}
	return out, nil
}

// Equal reports whether both matrices have the same shape and values.
func (m *Matrix) Equal(other *Matrix) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m.rows != other.rows || m.cols != other.cols || len(m.values) != len(other.values) {
		return false
	}
	for i := 0; i <= m.rows; i++ {
		if m.ptr(i) != other.ptr(i) {
			return false
		}
	}
	for i := range m.values {
		if m.indices[i] != other.indices[i] || m.values[i] != other.values[i] {
			return false
		}
	}
	return true
}

// Finite reports whether every stored value is a finite number.
func (m *Matrix) Finite() bool {
	for _, v := range m.values {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// ptr tolerates the zero value, whose row pointer slice is empty.
func (m *Matrix) ptr(i int) int32 {
	if len(m.indptr) == 0 {
		return 0
	}
	return m.indptr[i]
}
