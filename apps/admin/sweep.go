package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trezcool/examguard/core/exam"
)

func (cli *commandLine) sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire the attempts whose time ran out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := cli.service(cmd.Context())
			if err != nil {
				return err
			}
			n, err := exam.NewSweeper(svc, cli.conf.Exam.SweepInterval, cli.logger).Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d attempt(s) expired\n", n)
			return nil
		},
	}
}
