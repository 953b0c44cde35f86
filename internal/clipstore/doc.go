// Package clipstore persists clips and reads them back for training.
//
// Two interchangeable backends implement Store. DirStore writes one
// self-describing record file per clip, keyed by filename, optionally under
// train/ and test/ subdirectories. SQLiteStore keeps clips in a single
// database keyed by UUID and also holds full-game player records for export.
//
// Both backends accept a Filter over clip metadata, assign train/test
// partitions by independent random draws at write time, isolate per-clip
// write failures in a WriteReport, and hand out disjoint clip id ranges to
// concurrent writers through Reserve.
package clipstore
