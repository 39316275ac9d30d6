package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chanmirror/internal/mirror"
)

func newBoardsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "boards",
		Short: "List the available boards",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *mirror.Service) error {
				boards, err := svc.Boards(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(boards))
				for _, board := range boards {
					sfw := "no"
					if board.Worksafe {
						sfw = "yes"
					}
					rows = append(rows, []string{"/" + board.Code + "/", board.Title, sfw})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Board", "Title", "SFW"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}
