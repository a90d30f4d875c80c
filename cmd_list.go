package main

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/etnz/drivefiles/catalog"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List xml, txt and json files with their full path",
		Long: `List the xml, txt and json files visible to the account, each with the
folder path it lives in. Only the first page of results is read unless
--all-pages is set or catalog.all_pages is true in the config file.

Prints a table on a terminal and JSON otherwise, or when --json is set.`,
		Args: cobra.NoArgs,
		RunE: runList,
	}

	cmd.Flags().Bool("all-pages", false, "follow continuation tokens to list every file")

	return cmd
}

func runList(cmd *cobra.Command, _ []string) error {
	var extra []catalog.Option
	if cmd.Flags().Changed("all-pages") {
		all, err := cmd.Flags().GetBool("all-pages")
		if err != nil {
			return err
		}
		extra = append(extra, catalog.WithAllPages(all))
	}

	ctx := cmd.Context()

	client, logger, err := newClient(ctx, extra...)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	entries, err := catalog.ListFiles(ctx, client)
	if err != nil {
		return err
	}

	logger.Debug("listed files", zap.Int("count", len(entries)))

	if flagJSON || !isatty.IsTerminal(os.Stdout.Fd()) {
		return printEntriesJSON(cmd.OutOrStdout(), entries)
	}

	printEntriesTable(cmd.OutOrStdout(), entries)

	return nil
}
