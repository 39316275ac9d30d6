package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chanmirror/internal/mirror"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check whether the remote API is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *mirror.Service) error {
				health := svc.CheckHealth(cmd.Context())
				if !health.RemoteReachable {
					return fmt.Errorf("remote API is unreachable")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "remote API is reachable")
				return nil
			})
		},
	}
}
