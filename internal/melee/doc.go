// Package melee defines the closed enumerations shared by every stage of the
// clip pipeline: the playable character roster and the fixed order of input
// channels inside an input stream.
//
// Both tables are package-level and immutable. Index values are persisted
// (clip records, class labels), so existing entries must never be reordered.
package melee
