// Package sparse stores input streams as compressed sparse row (CSR) float32
// matrices.
//
// Replays run to tens of thousands of frames and most channels sit at zero,
// so streams are accumulated row by row with a Builder, frozen into an
// immutable Matrix, and persisted with the versioned binary codec in codec.go.
// Dense returns a row-major copy for tensor assembly.
package sparse
