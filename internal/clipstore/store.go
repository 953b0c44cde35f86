package clipstore

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math/rand/v2"
	"time"

	"slipclip/internal/clip"
)

var (
	// ErrInvalidArgument reports unusable caller input such as an unknown
	// filter field or a negative reservation.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound reports a key that does not name a stored clip.
	ErrNotFound = errors.New("clip not found")
)

// Partition names the train/test split a clip was assigned to. Stores
// written without a split leave it empty.
type Partition string

const (
	PartitionNone  Partition = ""
	PartitionTrain Partition = "train"
	PartitionTest  Partition = "test"
)

// DefaultTestFraction is the probability that a clip lands in the test
// partition when splitting.
const DefaultTestFraction = 0.1

// Store is the persistence contract shared by every backend.
type Store interface {
	// Put writes clips as one batch. Clips that fail to encode or write are
	// counted in the report and never abort the batch; the error is reserved
	// for failures that affect the whole batch.
	Put(ctx context.Context, clips []clip.Clip) (WriteReport, error)
	// Get lazily yields clips matching f. A non-positive limit is unlimited.
	Get(ctx context.Context, f Filter, limit int) iter.Seq2[clip.Clip, error]
	// Count returns how many clips match f. Counts are not transactional
	// with respect to concurrent writers.
	Count(ctx context.Context, f Filter) (int, error)
	// Keys lists the keys of clips matching f in a stable order.
	Keys(ctx context.Context, f Filter) ([]string, error)
	// Load reads the clips named by keys, in key order.
	Load(ctx context.Context, keys []string) ([]clip.Clip, error)
	// Reserve allocates n consecutive clip ids and returns the first.
	Reserve(ctx context.Context, n int) (int, error)
	// DiskUsage reports the bytes the store occupies.
	DiskUsage(ctx context.Context) (int64, error)
	Close() error
}

// Options control partition assignment at write time.
type Options struct {
	Split bool
	// TestFraction defaults to DefaultTestFraction when zero.
	TestFraction float64
	// Rand drives partition draws; nil seeds from the clock.
	Rand *rand.Rand
}

// Failure describes one clip or player record that could not be written.
type Failure struct {
	GameID string
	ClipID int
	// Port is set for full-game player records.
	Port int
	Err  error
}

// WriteReport tallies a Put. When splitting, Train+Test == Written.
type WriteReport struct {
	Written  int
	Failed   int
	Train    int
	Test     int
	Failures []Failure
}

func (r *WriteReport) fail(c clip.Clip, err error) {
	r.Failed++
	r.Failures = append(r.Failures, Failure{GameID: c.GameID, ClipID: c.ClipID, Err: err})
}

func (r *WriteReport) written(p Partition) {
	r.Written++
	switch p {
	case PartitionTrain:
		r.Train++
	case PartitionTest:
		r.Test++
	}
}

// partitioner draws independent Bernoulli partitions.
type partitioner struct {
	split    bool
	fraction float64
	rng      *rand.Rand
}

func newPartitioner(opts Options) (*partitioner, error) {
	fraction := opts.TestFraction
	if fraction == 0 {
		fraction = DefaultTestFraction
	}
	if opts.Split && (fraction <= 0 || fraction >= 1) {
		return nil, fmt.Errorf("%w: test fraction %v must be in (0,1)", ErrInvalidArgument, fraction)
	}
	rng := opts.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>17|1))
	}
	return &partitioner{split: opts.Split, fraction: fraction, rng: rng}, nil
}

func (p *partitioner) next() Partition {
	if !p.split {
		return PartitionNone
	}
	if p.rng.Float64() < p.fraction {
		return PartitionTest
	}
	return PartitionTrain
}
