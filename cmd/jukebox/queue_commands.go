package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"jukebox/internal/queueaccess"
)

const defaultHistoryLimit = 20

func newQueueCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newQueueCommand(ctx),
		newSearchCommand(ctx),
		newRequestCommand(ctx),
		newHistoryCommand(ctx),
		newSongCommand(ctx),
	}
}

func newQueueCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show now playing, recently played and upcoming songs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd, func(access queueaccess.Access) error {
				view, err := access.Queue(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, view)
				}
				printQueueView(cmd.OutOrStdout(), view)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "search [keyword]",
		Short: "Search the catalog by title, artist, album or genre",
		Long:  "Search the catalog. Without a keyword a random selection of songs is shown.",
		RunE: func(cmd *cobra.Command, args []string) error {
			keyword := strings.Join(args, " ")
			return ctx.withAccess(cmd, func(access queueaccess.Access) error {
				resp, err := access.Search(cmd.Context(), keyword)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if resp.Random {
					fmt.Fprintln(out, "No keyword given; showing random songs")
				}
				if len(resp.Songs) == 0 {
					fmt.Fprintln(out, "No songs found")
					return nil
				}
				fmt.Fprint(out, renderTable(
					[]string{"ID", "Artist", "Title", "Album", "Genre"},
					songRows(resp.Songs),
					[]columnAlignment{alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newRequestCommand(ctx *commandContext) *cobra.Command {
	var requester string
	cmd := &cobra.Command{
		Use:   "request <song-id>",
		Short: "Request a song",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			songID, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || songID <= 0 {
				return fmt.Errorf("invalid song id %q", args[0])
			}
			return ctx.withAccess(cmd, func(access queueaccess.Access) error {
				result, err := access.Submit(cmd.Context(), songID, requester)
				if err != nil {
					if result.Message.Message != "" {
						return errors.New(result.Message.Message)
					}
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, result.Message.Message)
				if result.Request != nil {
					fmt.Fprintf(out, "Request %d: %s\n", result.Request.ID, result.Request.Song.DisplayName)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&requester, "as", defaultRequester(), "Name to request the song as (defaults to $USER)")
	return cmd
}

// defaultRequester names the login user, or returns "" when unknown.
func defaultRequester() string {
	for _, key := range []string{"USER", "LOGNAME"} {
		if name := strings.TrimSpace(os.Getenv(key)); name != "" {
			return name
		}
	}
	return ""
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show played songs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("invalid limit %d", limit)
			}
			return ctx.withAccess(cmd, func(access queueaccess.Access) error {
				items, err := access.History(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, items)
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "Nothing has been played yet")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						formatTimestamp(item.PlayedAt),
						item.Song.DisplayName,
						requesterLabel(item),
						playResult(item),
					})
				}
				fmt.Fprint(out, renderTable([]string{"Played", "Song", "Requested By", "Result"}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "Number of entries to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newSongCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "song <song-id>",
		Short: "Show one catalog song",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			songID, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || songID <= 0 {
				return fmt.Errorf("invalid song id %q", args[0])
			}
			return ctx.withAccess(cmd, func(access queueaccess.Access) error {
				song, err := access.Song(cmd.Context(), songID)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, song)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:       %d\n", song.ID)
				fmt.Fprintf(out, "Title:    %s\n", song.Title)
				fmt.Fprintf(out, "Artist:   %s\n", song.Artist)
				fmt.Fprintf(out, "Album:    %s\n", song.Album)
				fmt.Fprintf(out, "Genre:    %s\n", song.Genre)
				fmt.Fprintf(out, "File:     %s\n", song.FileRef)
				if song.DurationSeconds > 0 {
					fmt.Fprintf(out, "Duration: %d:%02d\n", song.DurationSeconds/60, song.DurationSeconds%60)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
