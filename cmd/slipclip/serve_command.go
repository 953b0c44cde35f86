package main

import (
	"github.com/spf13/cobra"

	"slipclip/internal/api"
	"slipclip/internal/clipstore"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve read-only clip queries over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("bind") {
				cfg = overrideConfig(cfg)
				cfg.API.Bind = bind
			}

			return ctx.withStore(cfg, func(store clipstore.Store) error {
				server := api.NewServer(api.ServerConfig{
					Bind:    cfg.API.Bind,
					Backend: cfg.Store.Backend,
					Store:   store,
					Logger:  logger,
				})
				return server.ListenAndServe(cmd.Context())
			})
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to api.bind)")
	return cmd
}
