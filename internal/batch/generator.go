package batch

import (
	"context"
	"fmt"
	"io"
	"iter"
	"math/rand/v2"
	"time"

	"slipclip/internal/clip"
	"slipclip/internal/melee"
)

// Config controls an unconditional generator.
type Config struct {
	BatchSize int
	Shuffle   bool
	// Repeat restarts the enumeration, reshuffled, when it is exhausted. A
	// batch is filled across the pass boundary, so the same clip can appear
	// at the end of one pass and the start of the next.
	Repeat bool
	// NumBatches stops the generator after that many batches; zero is
	// unbounded.
	NumBatches int
	// Skip drops the first Skip keys of the enumeration and Limit caps what
	// remains; both are applied before shuffling and on every pass.
	Skip  int
	Limit int
	// Step takes every Step-th clip; zero means 1.
	Step int
	// OneHot encodes labels as width-26 rows instead of class indices.
	OneHot bool
	// Seed fixes the shuffle order; zero seeds from the clock.
	Seed uint64
}

func (c Config) validate() error {
	switch {
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batch size %d must be positive", ErrInvalidArgument, c.BatchSize)
	case c.Skip < 0:
		return fmt.Errorf("%w: skip %d is negative", ErrInvalidArgument, c.Skip)
	case c.Limit < 0:
		return fmt.Errorf("%w: limit %d is negative", ErrInvalidArgument, c.Limit)
	case c.Step < 0:
		return fmt.Errorf("%w: step %d is negative", ErrInvalidArgument, c.Step)
	case c.NumBatches < 0:
		return fmt.Errorf("%w: batch count %d is negative", ErrInvalidArgument, c.NumBatches)
	}
	return nil
}

// resolveSeed replaces a zero seed with a clock-derived one so the choice is
// fixed for the lifetime of a generator.
func resolveSeed(seed uint64) uint64 {
	if seed == 0 {
		return uint64(time.Now().UnixNano()) | 1
	}
	return seed
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// cursor walks an enumeration of keys, reshuffling between passes. Replaying
// from the same seed reproduces every pass.
type cursor struct {
	source  []string
	keys    []string
	pos     int
	shuffle bool
	seed    uint64
	rng     *rand.Rand
}

func newCursor(keys []string, shuffle bool, seed uint64) *cursor {
	c := &cursor{source: keys, keys: make([]string, len(keys)), shuffle: shuffle, seed: seed}
	c.reset()
	return c
}

func (c *cursor) reshuffle() {
	if c.shuffle {
		c.rng.Shuffle(len(c.keys), func(i, j int) { c.keys[i], c.keys[j] = c.keys[j], c.keys[i] })
	}
}

func (c *cursor) len() int { return len(c.keys) }

func (c *cursor) exhausted() bool { return c.pos >= len(c.keys) }

func (c *cursor) rewind() {
	c.pos = 0
	c.reshuffle()
}

func (c *cursor) next() string {
	key := c.keys[c.pos]
	c.pos++
	return key
}

func (c *cursor) reset() {
	c.rng = newRand(c.seed)
	copy(c.keys, c.source)
	c.rewind()
}

// Generator yields character-labelled batches from one source.
type Generator struct {
	src     Source
	cfg     Config
	cur     *cursor
	emitted int
	done    bool
}

// New enumerates src and prepares a generator. Configuration errors surface
// here rather than on the first batch.
func New(ctx context.Context, src Source, cfg Config) (*Generator, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil source", ErrInvalidArgument)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Step == 0 {
		cfg.Step = 1
	}
	keys, err := src.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate clips: %w", err)
	}
	keys = keys[min(cfg.Skip, len(keys)):]
	if cfg.Limit > 0 && len(keys) > cfg.Limit {
		keys = keys[:cfg.Limit]
	}
	if cfg.Repeat && len(keys) == 0 {
		return nil, fmt.Errorf("%w: cannot repeat an empty source", ErrInvalidArgument)
	}
	return &Generator{
		src: src,
		cfg: cfg,
		cur: newCursor(keys, cfg.Shuffle, resolveSeed(cfg.Seed)),
	}, nil
}

// Len returns the number of clips in one pass.
func (g *Generator) Len() int { return g.cur.len() }

// nextKey advances Step positions and returns the last key reached.
func (g *Generator) nextKey() (string, bool) {
	var key string
	for range g.cfg.Step {
		if g.cur.exhausted() {
			if !g.cfg.Repeat {
				return "", false
			}
			g.cur.rewind()
		}
		key = g.cur.next()
	}
	return key, true
}

// Next returns the next batch, or io.EOF once the enumeration (or the batch
// budget) is spent. The final batch of a non-repeating pass may be short.
func (g *Generator) Next(ctx context.Context) (Batch, error) {
	if g.done || (g.cfg.NumBatches > 0 && g.emitted >= g.cfg.NumBatches) {
		return Batch{}, io.EOF
	}
	keys := make([]string, 0, g.cfg.BatchSize)
	for len(keys) < g.cfg.BatchSize {
		key, ok := g.nextKey()
		if !ok {
			g.done = true
			break
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return Batch{}, io.EOF
	}

	clips, err := g.src.Load(ctx, keys)
	if err != nil {
		return Batch{}, fmt.Errorf("load batch: %w", err)
	}
	b, err := characterBatch(clips, g.cfg.OneHot)
	if err != nil {
		return Batch{}, err
	}
	g.emitted++
	return b, nil
}

// Reset rewinds to the state New left the generator in. With the same seed
// the replayed sequence is identical, across pass boundaries too.
func (g *Generator) Reset() {
	g.cur.reset()
	g.emitted = 0
	g.done = false
}

// All adapts Next to a range-over-func sequence. Iteration stops at io.EOF
// or after yielding the first error.
func (g *Generator) All(ctx context.Context) iter.Seq2[Batch, error] {
	return sequence(ctx, g.Next)
}

func sequence(ctx context.Context, next func(context.Context) (Batch, error)) iter.Seq2[Batch, error] {
	return func(yield func(Batch, error) bool) {
		for {
			b, err := next(ctx)
			if err == io.EOF {
				return
			}
			if !yield(b, err) || err != nil {
				return
			}
		}
	}
}

func characterBatch(clips []clip.Clip, oneHot bool) (Batch, error) {
	inputs, err := stack(clips)
	if err != nil {
		return Batch{}, err
	}
	classes := make([]int, len(clips))
	for i, c := range clips {
		if !c.Character.Valid() {
			return Batch{}, fmt.Errorf("clip %d: invalid character %d", c.ClipID, uint8(c.Character))
		}
		classes[i] = c.Character.Index()
	}
	return Batch{
		Inputs:  inputs,
		Labels:  encodeLabels(classes, oneHot, melee.NumCharacters),
		Classes: classes,
	}, nil
}
