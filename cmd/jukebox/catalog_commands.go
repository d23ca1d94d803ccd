package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"jukebox/internal/catalog"
	"jukebox/internal/queue"
	"jukebox/internal/queueaccess"
	"jukebox/internal/storage"
)

const defaultCatalogPage = 100

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the song catalog",
	}
	catalogCmd.AddCommand(newCatalogImportCommand(ctx))
	catalogCmd.AddCommand(newCatalogSyncCommand(ctx))
	catalogCmd.AddCommand(newCatalogListCommand(ctx))
	return catalogCmd
}

func newCatalogImportCommand(ctx *commandContext) *cobra.Command {
	var copyFiles bool
	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Import tagged audio files from a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				importer := catalog.NewImporter(store, nil, catalog.WithDurations(catalog.FFprobeDurations(cfg.Player.DurationCommand)))
				result, err := importer.ImportDir(cmd.Context(), args[0], catalog.DirOptions{
					MediaRoot: cfg.Paths.MediaDir,
					Copy:      copyFiles,
				})
				printImportResult(cmd.OutOrStdout(), result)
				if err != nil {
					return err
				}
				return result.Err()
			})
		},
	}
	cmd.Flags().BoolVar(&copyFiles, "copy", false, "Copy files from outside the media directory into it")
	return cmd
}

func newCatalogSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Import every audio file in the configured storage backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			library, err := storage.New(cfg, nil)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			return ctx.withStore(func(store *queue.Store) error {
				importer := catalog.NewImporter(store, nil, catalog.WithDurations(catalog.FFprobeDurations(cfg.Player.DurationCommand)))
				result, err := importer.ImportLibrary(cmd.Context(), library)
				printImportResult(cmd.OutOrStdout(), result)
				if err != nil {
					return err
				}
				return result.Err()
			})
		},
	}
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var limit, offset int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog songs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 || offset < 0 {
				return fmt.Errorf("invalid page limit=%d offset=%d", limit, offset)
			}
			return ctx.withAccess(cmd, func(access queueaccess.Access) error {
				songs, err := access.Songs(cmd.Context(), limit, offset)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, songs)
				}
				out := cmd.OutOrStdout()
				if len(songs) == 0 {
					fmt.Fprintln(out, "Catalog is empty")
					return nil
				}
				fmt.Fprint(out, renderTable(
					[]string{"ID", "Artist", "Title", "Album", "Genre"},
					songRows(songs),
					[]columnAlignment{alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultCatalogPage, "Songs per page")
	cmd.Flags().IntVar(&offset, "offset", 0, "Songs to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func printImportResult(out io.Writer, result catalog.Result) {
	fmt.Fprintf(out, "Scanned %d file(s), imported %d", result.Scanned, result.Imported)
	if result.Untagged > 0 {
		fmt.Fprintf(out, " (%d without tags)", result.Untagged)
	}
	fmt.Fprintf(out, " in %s\n", result.Elapsed.Round(time.Millisecond))
	for _, failure := range result.Failures {
		fmt.Fprintf(out, "  failed: %s: %v\n", failure.Ref, failure.Err)
	}
}
