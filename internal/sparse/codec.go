package sparse

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Binary layout, version 1 (all integers little-endian):
//
//	offset  size        field
//	0       4           magic "SPMX"
//	4       1           format version (1)
//	5       1           value type (1 = float32)
//	6       2           reserved, zero
//	8       4           rows
//	12      4           cols
//	16      4           nnz
//	20      4*(rows+1)  row pointers
//	...     4*nnz       column indices
//	...     4*nnz       values (IEEE-754 bits)
//
// Decoders reject unknown versions rather than guessing.
const (
	FormatVersion = 1

	headerSize   = 20
	valueFloat32 = 1
)

var magic = [4]byte{'S', 'P', 'M', 'X'}

// ErrFormat reports a blob that is not a valid encoded matrix.
var ErrFormat = errors.New("sparse: invalid encoding")

// MarshalBinary implements encoding.BinaryMarshaler.
func (m *Matrix) MarshalBinary() ([]byte, error) {
	if m.rows > math.MaxUint32 || m.cols > math.MaxUint32 || len(m.values) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: matrix too large to encode", ErrShape)
	}
	nnz := len(m.values)
	buf := make([]byte, 0, headerSize+4*(m.rows+1)+8*nnz)
	buf = append(buf, magic[:]...)
	buf = append(buf, FormatVersion, valueFloat32, 0, 0)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(m.rows))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(m.cols))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(nnz))
	for i := 0; i <= m.rows; i++ {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(m.ptr(i)))
	}
	for _, idx := range m.indices {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(idx))
	}
	for _, v := range m.values {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. The input is fully
// validated; m is only modified on success.
func (m *Matrix) UnmarshalBinary(data []byte) error {
	if len(data) < headerSize {
		return fmt.Errorf("%w: %d byte blob shorter than header", ErrFormat, len(data))
	}
	if [4]byte(data[0:4]) != magic {
		return fmt.Errorf("%w: bad magic %q", ErrFormat, data[0:4])
	}
	if data[4] != FormatVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrFormat, data[4])
	}
	if data[5] != valueFloat32 {
		return fmt.Errorf("%w: unsupported value type %d", ErrFormat, data[5])
	}
	rows := int(binary.LittleEndian.Uint32(data[8:12]))
	cols := int(binary.LittleEndian.Uint32(data[12:16]))
	nnz := int(binary.LittleEndian.Uint32(data[16:20]))

	want := headerSize + 4*(rows+1) + 8*nnz
	if len(data) != want {
		return fmt.Errorf("%w: blob is %d bytes, header implies %d", ErrFormat, len(data), want)
	}

	off := headerSize
	indptr := make([]int32, rows+1)
	for i := range indptr {
		indptr[i] = int32(binary.LittleEndian.Uint32(data[off:]))
		off += 4
	}
	if indptr[0] != 0 || int(indptr[rows]) != nnz {
		return fmt.Errorf("%w: row pointers do not span %d entries", ErrFormat, nnz)
	}
	for r := 0; r < rows; r++ {
		if indptr[r] > indptr[r+1] || indptr[r+1] < 0 || int(indptr[r+1]) > nnz {
			return fmt.Errorf("%w: row %d pointers out of range", ErrFormat, r)
		}
	}
	indices := make([]int32, nnz)
	for i := range indices {
		indices[i] = int32(binary.LittleEndian.Uint32(data[off:]))
		off += 4
	}
	values := make([]float32, nnz)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
		off += 4
	}

	for r := 0; r < rows; r++ {
		lo, hi := indptr[r], indptr[r+1]
		prev := int32(-1)
		for k := lo; k < hi; k++ {
			col := indices[k]
			if col <= prev || int(col) >= cols {
				return fmt.Errorf("%w: row %d has invalid column %d", ErrFormat, r, col)
			}
			prev = col
		}
	}

	m.rows, m.cols = rows, cols
	m.indptr, m.indices, m.values = indptr, indices, values
	return nil
}

// Decode is a convenience wrapper around UnmarshalBinary.
func Decode(data []byte) (*Matrix, error) {
	m := &Matrix{}
	if err := m.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return m, nil
}
