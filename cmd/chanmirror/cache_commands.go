package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"chanmirror/internal/mirror"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the local caches",
	}
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	cacheCmd.AddCommand(newCacheSweepCommand(ctx))
	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *mirror.Service) error {
				stats, err := svc.Stats(cmd.Context())
				if err != nil {
					return err
				}
				rows := [][]string{
					{"Cached boards", strconv.Itoa(stats.Meta.Boards)},
					{"Cached threads", strconv.Itoa(stats.Meta.Threads)},
					{"Total replies", strconv.FormatInt(stats.Meta.TotalReplies, 10)},
					{"Cached files", strconv.Itoa(stats.Blobs.FileCount)},
					{"Thumbnails", strconv.Itoa(stats.Blobs.ThumbCount)},
					{"Full images", strconv.Itoa(stats.Blobs.ImageCount)},
					{"Cache size", fmt.Sprintf("%.1f MB / %d MB", stats.Blobs.TotalSizeMB, stats.Blobs.MaxSizeMB)},
					{"Disk free", fmt.Sprintf("%.1f GB", float64(stats.Blobs.FreeBytes)/(1024*1024*1024))},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Metric", "Value"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all cached metadata and files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *mirror.Service) error {
				if err := svc.ClearCaches(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "caches cleared")
				return nil
			})
		},
	}
}

func newCacheSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *mirror.Service) error {
				metaRows, blobFiles, err := svc.Sweep(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d metadata entries and %d files\n", metaRows, blobFiles)
				return nil
			})
		},
	}
}
