package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newMigrateCommand prepares the schema (sqlite) or the indexes (mongo).
// Both happen on open, so the command only opens and closes the store.
func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables or indexes for the configured store and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd.Context(), ctx.cfg.Store)
			if err != nil {
				return err
			}
			if err := s.Close(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s store ready\n", ctx.cfg.Store.Driver)
			return nil
		},
	}
}
