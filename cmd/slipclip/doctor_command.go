package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"slipclip/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories and the clip store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				status := "ok"
				if !r.Passed {
					status = "FAIL"
				}
				rows = append(rows, []string{r.Name, status, r.Detail})
			}
			out := cmd.OutOrStdout()
			if ctx.configPath != "" {
				fmt.Fprintf(out, "Config: %s\n", ctx.configPath)
			}
			fmt.Fprintln(out, renderTable(tableSpec{
				headers: []string{"Check", "Status", "Detail"},
				rows:    rows,
			}))
			if failed, ok := preflight.FirstFailure(results); ok {
				return errors.New("preflight failed: " + failed.Name)
			}
			return nil
		},
	}
}
