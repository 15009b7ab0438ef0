package main

import (
	"github.com/spf13/cobra"
)

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run database migrations (up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix)",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDBFunc(cli.conf)
			if err != nil {
				return err
			}
			if db != nil {
				defer db.Close()
			}
			return migrateFunc(cmd.Context(), db, args[0], args[1:]...)
		},
	}
}
