package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"chanmirror/internal/filters"
	"chanmirror/internal/mirror"
)

func newFiltersCommand(ctx *commandContext) *cobra.Command {
	filtersCmd := &cobra.Command{
		Use:   "filters",
		Short: "Manage per-board catalog filters",
	}
	filtersCmd.AddCommand(newFiltersListCommand(ctx))
	filtersCmd.AddCommand(newFiltersAddCommand(ctx))
	filtersCmd.AddCommand(newFiltersRemoveCommand(ctx))
	return filtersCmd
}

func newFiltersListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list [board]",
		Short: "Show filters, optionally for one board",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *mirror.Service) error {
				mgr := svc.Filters()

				byBoard := make(map[string][]filters.Filter)
				if len(args) == 1 {
					byBoard[args[0]] = mgr.BoardFilters(args[0])
				} else {
					byBoard = mgr.All()
				}

				var rows [][]string
				for _, board := range sortedKeys(byBoard) {
					for _, f := range byBoard[board] {
						rows = append(rows, []string{
							"/" + board + "/",
							strconv.Itoa(f.ID),
							f.Keyword,
							string(f.Scope),
							flag(f.Regex),
							flag(f.CaseSensitive),
							flag(f.Enabled),
						})
					}
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no filters configured")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Board", "ID", "Keyword", "Scope", "Regex", "Case", "Enabled"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newFiltersAddCommand(ctx *commandContext) *cobra.Command {
	var scope string
	var regex bool
	var caseSensitive bool

	cmd := &cobra.Command{
		Use:   "add <board> <keyword>",
		Short: "Add a catalog filter to a board",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *mirror.Service) error {
				added, err := svc.Filters().Add(args[0], filters.Filter{
					Keyword:       args[1],
					Scope:         filters.Scope(scope),
					Regex:         regex,
					CaseSensitive: caseSensitive,
					Enabled:       true,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added filter %d to /%s/\n", added.ID, args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "subject", "Match against subject, comment, or both")
	cmd.Flags().BoolVar(&regex, "regex", false, "Treat the keyword as a regular expression")
	cmd.Flags().BoolVar(&caseSensitive, "case-sensitive", false, "Match case exactly")
	return cmd
}

func newFiltersRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <board> <id>",
		Short: "Remove a filter by id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid filter id %q", args[1])
			}
			return ctx.withService(func(svc *mirror.Service) error {
				if err := svc.Filters().Remove(args[0], id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed filter %d from /%s/\n", id, args[0])
				return nil
			})
		},
	}
}

func flag(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
