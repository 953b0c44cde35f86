package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"slipclip/internal/clipstore"
	"slipclip/internal/melee"
)

type filterFlags struct {
	characters []string
	games      []string
	partition  string
	where      []string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.characters, "character", nil, "Only clips of these characters (repeatable)")
	cmd.Flags().StringSliceVar(&f.games, "game", nil, "Only clips from these game ids (repeatable)")
	cmd.Flags().StringVar(&f.partition, "partition", "", "Only clips in this partition: train or test")
	cmd.Flags().StringArrayVar(&f.where, "where", nil, `Extra condition such as "clip_id>=10" (repeatable)`)
}

func (f *filterFlags) filter() (clipstore.Filter, error) {
	var filter clipstore.Filter
	if len(f.characters) > 0 {
		filter = append(filter, clipstore.In(clipstore.FieldCharacter, toAny(f.characters)...))
	}
	if len(f.games) > 0 {
		filter = append(filter, clipstore.In(clipstore.FieldGameID, toAny(f.games)...))
	}
	if p := strings.TrimSpace(f.partition); p != "" {
		filter = append(filter, clipstore.Eq(clipstore.FieldPartition, strings.ToLower(p)))
	}
	for _, expr := range f.where {
		cond, err := clipstore.ParseCondition(expr)
		if err != nil {
			return nil, err
		}
		filter = append(filter, cond)
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return filter, nil
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

func newCountCommand(ctx *commandContext) *cobra.Command {
	flags := &filterFlags{}
	var byCharacter bool

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count stored clips matching a filter",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			filter, err := flags.filter()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			return ctx.withStore(cfg, func(store clipstore.Store) error {
				if !byCharacter {
					n, err := store.Count(cmd.Context(), filter)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, humanize.Comma(int64(n)))
					return nil
				}

				var rows [][]string
				total := 0
				for _, character := range melee.Characters() {
					f := append(filter[:len(filter):len(filter)], clipstore.Eq(clipstore.FieldCharacter, character.String()))
					n, err := store.Count(cmd.Context(), f)
					if err != nil {
						return err
					}
					if n == 0 {
						continue
					}
					total += n
					rows = append(rows, []string{character.DisplayName(), humanize.Comma(int64(n))})
				}
				size, err := store.DiskUsage(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderTable(tableSpec{
					title:   fmt.Sprintf("%s store, %s", cfg.Store.Backend, humanize.Bytes(uint64(size))),
					headers: []string{"Character", "Clips"},
					rows:    rows,
					aligns:  []columnAlignment{alignLeft, alignRight},
					footer:  []string{"Total", humanize.Comma(int64(total))},
				}))
				return nil
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&byCharacter, "by-character", false, "Break the count down per character")
	return cmd
}
