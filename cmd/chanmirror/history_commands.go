package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"chanmirror/internal/mirror"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Manage the thread visit history",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryClearCommand(ctx))
	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show recently visited threads",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *mirror.Service) error {
				entries := svc.History().List()
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "history is empty")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					rows = append(rows, []string{
						"/" + entry.Board + "/",
						strconv.FormatInt(entry.ThreadID, 10),
						entry.Title,
						entry.VisitedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Board", "Thread", "Title", "Visited"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget all visited threads",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *mirror.Service) error {
				if err := svc.History().Clear(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "history cleared")
				return nil
			})
		},
	}
}
