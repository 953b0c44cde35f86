package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"slipclip/internal/batch"
	"slipclip/internal/clipstore"
	"slipclip/internal/config"
	"slipclip/internal/melee"
)

type sampleFlags struct {
	filterFlags
	batches   int
	batchSize int
	target    string
	ratio     float64
	seed      uint64
	skip      int
	limit     int
	step      int
}

// batchSource is the part of both generator kinds the sampler drives.
type batchSource interface {
	Next(ctx context.Context) (batch.Batch, error)
}

func newSampleCommand(ctx *commandContext) *cobra.Command {
	flags := &sampleFlags{}

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Pull batches from a generator and describe them",
		Long: "Pull batches from a generator and describe them.\n\n" +
			"Without --target, batches are labelled by character. With --target, each batch mixes\n" +
			"clips of that character (label 1) with everything else (label 0) at --ratio background\n" +
			"clips per target clip.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if flags.batches <= 0 {
				return errors.New("--batches must be positive")
			}
			filter, err := flags.filter()
			if err != nil {
				return err
			}

			return ctx.withStore(cfg, func(store clipstore.Store) error {
				gen, balanced, err := flags.generator(cmd, cfg, store, filter)
				if err != nil {
					return err
				}
				return describeBatches(cmd.Context(), cmd.OutOrStdout(), gen, flags.batches, balanced)
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&flags.batches, "batches", "n", 3, "Number of batches to pull")
	cmd.Flags().IntVar(&flags.batchSize, "batch-size", 0, "Clips per batch (defaults to generator.batch_size)")
	cmd.Flags().StringVar(&flags.target, "target", "", "Target character for balanced target/background batches")
	cmd.Flags().Float64Var(&flags.ratio, "ratio", 0, "Background clips per target clip (defaults to generator.ratio)")
	cmd.Flags().Uint64Var(&flags.seed, "seed", 0, "Shuffle seed (defaults to generator.seed)")
	cmd.Flags().IntVar(&flags.skip, "skip", 0, "Skip the first N clips of the enumeration")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "Use at most N clips after skipping")
	cmd.Flags().IntVar(&flags.step, "step", 0, "Take every Nth clip")
	return cmd
}

func (f *sampleFlags) generator(cmd *cobra.Command, cfg *config.Config, store clipstore.Store, filter clipstore.Filter) (batchSource, bool, error) {
	gc := cfg.Generator
	if cmd.Flags().Changed("batch-size") {
		gc.BatchSize = f.batchSize
	}
	if cmd.Flags().Changed("ratio") {
		gc.Ratio = f.ratio
	}
	if cmd.Flags().Changed("seed") {
		gc.Seed = f.seed
	}

	if strings.TrimSpace(f.target) == "" {
		gen, err := batch.New(cmd.Context(), clipstore.View{Store: store, Filter: filter}, batch.Config{
			BatchSize: gc.BatchSize,
			Shuffle:   gc.Shuffle,
			Repeat:    gc.Repeat,
			Skip:      f.skip,
			Limit:     f.limit,
			Step:      f.step,
			OneHot:    gc.OneHot,
			Seed:      gc.Seed,
		})
		return gen, false, err
	}

	target, err := melee.ParseCharacter(f.target)
	if err != nil {
		return nil, false, err
	}
	clone := func(c clipstore.Condition) clipstore.Filter {
		return append(slices.Clone(filter), c)
	}
	gen, err := batch.NewBalanced(cmd.Context(),
		clipstore.View{Store: store, Filter: clone(clipstore.Eq(clipstore.FieldCharacter, target.String()))},
		clipstore.View{Store: store, Filter: clone(clipstore.Condition{Field: clipstore.FieldCharacter, Op: clipstore.OpNe, Value: target.String()})},
		batch.BalancedConfig{
			BatchSize:     gc.BatchSize,
			Ratio:         gc.Ratio,
			RepeatForever: gc.Repeat,
			OneHot:        gc.OneHot,
			Shuffle:       gc.Shuffle,
			Seed:          gc.Seed,
		})
	return gen, true, err
}

func describeBatches(ctx context.Context, out io.Writer, gen batchSource, n int, balanced bool) error {
	var rows [][]string
	for i := range n {
		b, err := gen.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			shape(b.Inputs.Shape[:]),
			shape(b.Labels.Shape[:]),
			histogram(b.Classes, balanced),
		})
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "No clips matched")
		return nil
	}
	fmt.Fprintln(out, renderTable(tableSpec{
		headers: []string{"Batch", "Inputs", "Labels", "Classes"},
		rows:    rows,
		aligns:  []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	}))
	return nil
}

func shape(dims []int) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = strconv.Itoa(d)
	}
	return "[" + strings.Join(parts, " x ") + "]"
}

func histogram(classes []int, balanced bool) string {
	counts := make(map[int]int)
	for _, c := range classes {
		counts[c]++
	}
	parts := make([]string, 0, len(counts))
	for _, class := range slices.Sorted(maps.Keys(counts)) {
		parts = append(parts, fmt.Sprintf("%s=%d", className(class, balanced), counts[class]))
	}
	return strings.Join(parts, " ")
}

func className(class int, balanced bool) string {
	if balanced {
		if class == batch.LabelTarget {
			return "target"
		}
		return "background"
	}
	character, err := melee.CharacterFromIndex(class)
	if err != nil {
		return strconv.Itoa(class)
	}
	return character.String()
}
