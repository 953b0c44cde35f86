// Package pipeline drives bulk runs over a directory of replays.
//
// Clippify extracts, segments and stores clips for every replay; Export
// stores full-game player records instead. Both tolerate per-replay
// failures, tallying them by kind in a Summary that is returned even when
// every replay fails. Only structurally invalid requests, such as a missing
// input directory, stop a run before it starts.
package pipeline
