// Package batch turns stored clips into training batches.
//
// Two generators are provided. Generator walks one source in order or in a
// shuffled order, labelling each clip with its character class. Balanced
// mixes a target and a background source per batch, drawing the target share
// from a binomial distribution so the expected ratio holds while individual
// batches vary.
//
// Generators hold cursor state and are not safe for concurrent use.
package batch
