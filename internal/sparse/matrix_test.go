package sparse_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slipclip/internal/sparse"
)

func sampleDense() (int, int, []float32) {
	return 4, 3, []float32{
		0, 0.5, 0,
		0, 0, 0,
		-1, 0, 1,
		0.25, 0, 0,
	}
}

func TestBuilderMatchesFromDense(t *testing.T) {
	rows, cols, data := sampleDense()

	b := sparse.NewBuilder(cols, rows)
	for r := 0; r < rows; r++ {
		require.NoError(t, b.AppendRow(data[r*cols:(r+1)*cols]))
	}
	assert.Equal(t, rows, b.Rows())
	built := b.Freeze()

	fromDense, err := sparse.FromDense(rows, cols, data)
	require.NoError(t, err)

	assert.True(t, built.Equal(fromDense))
	assert.Equal(t, 4, built.NNZ())
	assert.Equal(t, data, built.Dense())
	assert.Equal(t, float32(1), built.At(2, 2))
	assert.Equal(t, float32(0), built.At(1, 1))
}

func TestAppendRowRejectsWrongWidth(t *testing.T) {
	b := sparse.NewBuilder(3, 0)
	err := b.AppendRow([]float32{1, 2})
	require.ErrorIs(t, err, sparse.ErrShape)
	assert.Equal(t, 0, b.Rows())
}

func TestSliceCopiesWindow(t *testing.T) {
	rows, cols, data := sampleDense()
	m, err := sparse.FromDense(rows, cols, data)
	require.NoError(t, err)

	window, err := m.Slice(1, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, window.Rows())
	assert.Equal(t, data[3:9], window.Dense())

	empty, err := m.Slice(2, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Rows())

	_, err = m.Slice(3, 5)
	require.ErrorIs(t, err, sparse.ErrShape)
}

func TestDenseIntoOverwritesDestination(t *testing.T) {
	rows, cols, data := sampleDense()
	m, err := sparse.FromDense(rows, cols, data)
	require.NoError(t, err)

	dst := make([]float32, rows*cols)
	for i := range dst {
		dst[i] = 9
	}
	require.NoError(t, m.DenseInto(dst))
	assert.Equal(t, data, dst)
	require.ErrorIs(t, m.DenseInto(make([]float32, 2)), sparse.ErrShape)
}

func TestCodecRoundTripIsLossless(t *testing.T) {
	rows, cols, data := sampleDense()
	m, err := sparse.FromDense(rows, cols, data)
	require.NoError(t, err)

	blob, err := m.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, "SPMX", string(blob[:4]))
	assert.Equal(t, byte(sparse.FormatVersion), blob[4])

	decoded, err := sparse.Decode(blob)
	require.NoError(t, err)
	assert.True(t, m.Equal(decoded))
	assert.Equal(t, data, decoded.Dense())
}

func TestCodecRoundTripEmptyMatrix(t *testing.T) {
	var m sparse.Matrix
	blob, err := m.MarshalBinary()
	require.NoError(t, err)

	decoded, err := sparse.Decode(blob)
	require.NoError(t, err)
	assert.Equal(t, 0, decoded.Rows())
	assert.True(t, m.Equal(decoded))
}

func TestDecodeRejectsCorruptBlobs(t *testing.T) {
	rows, cols, data := sampleDense()
	m, err := sparse.FromDense(rows, cols, data)
	require.NoError(t, err)
	blob, err := m.MarshalBinary()
	require.NoError(t, err)

	// Row pointers start right after the header; entry 1 is the end of row 0.
	setRowPtr := func(b []byte, v uint32) []byte {
		binary.LittleEndian.PutUint32(b[20+4:], v)
		return b
	}
	cases := map[string]func([]byte) []byte{
		"short":                func(b []byte) []byte { return b[:10] },
		"magic":                func(b []byte) []byte { b[0] = 'X'; return b },
		"version":              func(b []byte) []byte { b[4] = 99; return b },
		"truncated":            func(b []byte) []byte { return b[:len(b)-1] },
		"column":               func(b []byte) []byte { b[20+4*(rows+1)] = 200; return b },
		"row pointer past nnz": func(b []byte) []byte { return setRowPtr(b, 1000) },
		"negative row pointer": func(b []byte) []byte { return setRowPtr(b, 0xFFFFFFFF) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			corrupt := mutate(append([]byte(nil), blob...))
			_, err := sparse.Decode(corrupt)
			require.ErrorIs(t, err, sparse.ErrFormat)
		})
	}
}
