package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete verification tokens older than TOKEN_CLEANUP_AGE and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd.Context(), ctx.cfg.Store)
			if err != nil {
				return err
			}
			defer func() {
				if err := s.Close(cmd.Context()); err != nil {
					log.Warn().Err(err).Msg("store close")
				}
			}()

			n, err := newTokenService(s, ctx.cfg.Tokens).Cleanup(cmd.Context())
			if err != nil {
				return err
			}
			log.Info().Int64("deleted", n).Msg("token sweep")
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d token(s)\n", n)
			return nil
		},
	}
}
