package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"slipclip/internal/config"
	"slipclip/internal/melee"
	"slipclip/internal/replay"
)

func newExtractor(cfg *config.Config) *replay.Extractor {
	return &replay.Extractor{MinFrames: melee.Frames(cfg.Clips.MinGameSeconds)}
}

func newExtractCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file.slp>",
		Short: "Show the players a replay would contribute",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve replay path: %w", err)
			}
			records, err := newExtractor(cfg).Extract(path)
			if err != nil {
				return fmt.Errorf("extract %s: %w", path, err)
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					strconv.Itoa(rec.Port),
					rec.Character.DisplayName(),
					dashIfEmpty(rec.Name),
					dashIfEmpty(rec.Code),
					strconv.Itoa(rec.Frames()),
					frameDuration(rec.Frames()).String(),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(tableSpec{
				title:   replay.GameID(path),
				headers: []string{"Port", "Character", "Name", "Code", "Frames", "Length"},
				rows:    rows,
				aligns:  []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			}))
			return nil
		},
	}
}

func frameDuration(frames int) time.Duration {
	return time.Duration(frames) * time.Second / melee.FrameRate
}

func dashIfEmpty(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
