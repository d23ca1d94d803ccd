package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"jukebox/internal/apiclient"
	"jukebox/internal/logs"
)

const (
	defaultLogLines = 50
	logFollowWait   = 5 * time.Second
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		Long:  "Display daemon logs. A running daemon serves them over its API; otherwise the log file is read directly.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if client, err := ctx.dialAPI(cmd.Context()); err == nil {
				return streamLogsFromAPI(cmd.Context(), client, out, lines, follow)
			}
			printed := false
			err = logs.Stream(cmd.Context(), logs.CurrentFile(cfg.Paths.LogDir), lines, follow, func(line string) {
				printed = true
				fmt.Fprintln(out, line)
			})
			if err == nil && !printed && !follow {
				fmt.Fprintln(out, "No log entries available")
			}
			return err
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", defaultLogLines, "Number of lines to show (0 for all)")
	return cmd
}

func streamLogsFromAPI(ctx context.Context, client *apiclient.Client, out io.Writer, lines int, follow bool) error {
	offset := int64(-1)
	if lines <= 0 {
		offset = 0
	}
	printed := false
	for {
		resp, err := client.LogTail(ctx, offset, lines, follow && offset >= 0, logFollowWait)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("tail logs: %w", err)
		}
		for _, line := range resp.Lines {
			fmt.Fprintln(out, line)
			printed = true
		}
		offset = resp.Offset
		if !follow {
			if !printed {
				fmt.Fprintln(out, "No log entries available")
			}
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
