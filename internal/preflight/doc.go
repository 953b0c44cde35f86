// Package preflight provides readiness checks for the filesystem paths and
// clip store slipclip depends on.
//
// These checks run in two contexts:
//   - Clippify and export commands call RunAll before walking a replay
//     directory. If any check fails, the run stops before extracting anything.
//   - The CLI "slipclip doctor" command prints every result.
package preflight
