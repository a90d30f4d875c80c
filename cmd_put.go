package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/etnz/drivefiles/catalog"
)

func newPutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <file-id> <local-path>",
		Short: "Replace the content of a file",
		Long: `Replace the content of an existing Drive file with a local file. The file
keeps its id, name and location.

With --expect-revision, the upload is refused when the file's head revision
is not the given one.`,
		Args: cobra.ExactArgs(2),
		RunE: runPut,
	}

	cmd.Flags().String("mime", "", "content MIME type (default: detected by Drive)")
	cmd.Flags().String("expect-revision", "", "only upload if the file is at this head revision")

	return cmd
}

func runPut(cmd *cobra.Command, args []string) error {
	fileID, localPath := args[0], args[1]

	mimeType, err := cmd.Flags().GetString("mime")
	if err != nil {
		return err
	}

	expected, err := cmd.Flags().GetString("expect-revision")
	if err != nil {
		return err
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", localPath, err)
	}

	client, logger, err := newClient(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := catalog.Upload(cmd.Context(), client, fileID, data, mimeType, expected); err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Uploaded %s to %s (%s)\n", localPath, fileID, formatSize(len(data)))

	return nil
}
