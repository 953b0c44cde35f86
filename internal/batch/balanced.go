package batch

import (
	"context"
	"fmt"
	"io"
	"iter"
	"math"
	"math/rand/v2"

	"slipclip/internal/clip"
)

// Labels used by the balanced generator. One-hot rows put the target in
// column 1.
const (
	LabelBackground = 0
	LabelTarget     = 1
)

// DefaultRatio mixes target and background clips evenly.
const DefaultRatio = 1.0

// BalancedConfig controls a two-source generator.
type BalancedConfig struct {
	BatchSize int
	// Ratio is background clips per target clip. Each batch draws its
	// target count from Binomial(BatchSize, 1/(Ratio+1)).
	Ratio float64
	// Repeat is how many extra passes over the target source are allowed
	// after the first is exhausted. RepeatForever lifts the bound. The
	// background source always wraps.
	Repeat        int
	RepeatForever bool
	OneHot        bool
	Shuffle       bool
	Seed          uint64
}

// DefaultBalancedConfig returns an even-ratio single-pass configuration.
func DefaultBalancedConfig(batchSize int) BalancedConfig {
	return BalancedConfig{BatchSize: batchSize, Ratio: DefaultRatio, Shuffle: true}
}

func (c BalancedConfig) validate() error {
	switch {
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batch size %d must be positive", ErrInvalidArgument, c.BatchSize)
	case !(c.Ratio > 0) || math.IsInf(c.Ratio, 0):
		return fmt.Errorf("%w: ratio %v must be positive", ErrInvalidArgument, c.Ratio)
	case c.Repeat < 0:
		return fmt.Errorf("%w: repeat count %d is negative", ErrInvalidArgument, c.Repeat)
	}
	return nil
}

// Balanced yields batches mixing a target and a background source.
type Balanced struct {
	target     Source
	background Source
	cfg        BalancedConfig
	p          float64

	targets     *cursor
	backgrounds *cursor
	repeatsLeft int
	seed        uint64
	rng         *rand.Rand
	done        bool
}

// NewBalanced enumerates both sources and validates the configuration
// eagerly.
func NewBalanced(ctx context.Context, target, background Source, cfg BalancedConfig) (*Balanced, error) {
	if target == nil || background == nil {
		return nil, fmt.Errorf("%w: nil source", ErrInvalidArgument)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	targetKeys, err := target.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate target clips: %w", err)
	}
	backgroundKeys, err := background.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate background clips: %w", err)
	}
	if len(targetKeys) == 0 {
		return nil, fmt.Errorf("%w: target source is empty", ErrInvalidArgument)
	}
	if len(backgroundKeys) == 0 {
		return nil, fmt.Errorf("%w: background source is empty", ErrInvalidArgument)
	}

	seed := resolveSeed(cfg.Seed)
	return &Balanced{
		target:      target,
		background:  background,
		cfg:         cfg,
		p:           1 / (cfg.Ratio + 1),
		targets:     newCursor(targetKeys, cfg.Shuffle, seed),
		backgrounds: newCursor(backgroundKeys, cfg.Shuffle, seed+1),
		repeatsLeft: cfg.Repeat,
		seed:        seed,
		rng:         newRand(seed + 2),
	}, nil
}

// binomial counts successes in n Bernoulli(p) trials. Batch sizes are small
// enough that direct simulation is exact and cheap.
func binomial(rng *rand.Rand, n int, p float64) int {
	k := 0
	for range n {
		if rng.Float64() < p {
			k++
		}
	}
	return k
}

func (b *Balanced) takeTargets(n int) ([]string, bool) {
	keys := make([]string, 0, n)
	for len(keys) < n {
		if b.targets.exhausted() {
			if !b.cfg.RepeatForever {
				if b.repeatsLeft == 0 {
					return nil, false
				}
				b.repeatsLeft--
			}
			b.targets.rewind()
		}
		keys = append(keys, b.targets.next())
	}
	return keys, true
}

func (b *Balanced) takeBackgrounds(n int) []string {
	keys := make([]string, 0, n)
	for len(keys) < n {
		if b.backgrounds.exhausted() {
			b.backgrounds.rewind()
		}
		keys = append(keys, b.backgrounds.next())
	}
	return keys
}

// Next returns the next mixed batch, or io.EOF once the target source runs
// out of passes. A batch that would need a target clip past the last pass is
// not emitted.
func (b *Balanced) Next(ctx context.Context) (Batch, error) {
	if b.done {
		return Batch{}, io.EOF
	}
	nTarget := binomial(b.rng, b.cfg.BatchSize, b.p)
	targetKeys, ok := b.takeTargets(nTarget)
	if !ok {
		b.done = true
		return Batch{}, io.EOF
	}
	backgroundKeys := b.takeBackgrounds(b.cfg.BatchSize - nTarget)

	var clips []clip.Clip
	if len(targetKeys) > 0 {
		loaded, err := b.target.Load(ctx, targetKeys)
		if err != nil {
			return Batch{}, fmt.Errorf("load target clips: %w", err)
		}
		clips = append(clips, loaded...)
	}
	if len(backgroundKeys) > 0 {
		loaded, err := b.background.Load(ctx, backgroundKeys)
		if err != nil {
			return Batch{}, fmt.Errorf("load background clips: %w", err)
		}
		clips = append(clips, loaded...)
	}

	classes := make([]int, len(clips))
	for i := range nTarget {
		classes[i] = LabelTarget
	}
	b.rng.Shuffle(len(clips), func(i, j int) {
		clips[i], clips[j] = clips[j], clips[i]
		classes[i], classes[j] = classes[j], classes[i]
	})

	inputs, err := stack(clips)
	if err != nil {
		return Batch{}, err
	}
	return Batch{
		Inputs:  inputs,
		Labels:  encodeLabels(classes, b.cfg.OneHot, 2),
		Classes: classes,
	}, nil
}

// Reset restores both cursors, the remaining repeat count and the draw
// sequence.
func (b *Balanced) Reset() {
	b.targets.reset()
	b.backgrounds.reset()
	b.repeatsLeft = b.cfg.Repeat
	b.rng = newRand(b.seed + 2)
	b.done = false
}

// All adapts Next to a range-over-func sequence.
func (b *Balanced) All(ctx context.Context) iter.Seq2[Batch, error] {
	return sequence(ctx, b.Next)
}
