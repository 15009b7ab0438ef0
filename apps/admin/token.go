package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	echoapi "github.com/trezcool/examguard/apps/api/echo"
)

func (cli *commandLine) tokenCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API token for a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			stores, err := cli.store(cmd.Context())
			if err != nil {
				return err
			}
			usr, err := stores.Users.GetUserByID(cmd.Context(), userID)
			if err != nil {
				return errors.Wrap(err, "getting user")
			}
			token, err := echoapi.GenerateToken(echoapi.GetUserClaims(usr, cli.conf), cli.conf)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "the user ID")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
