package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/etnz/drivefiles/catalog"
)

// maxParallelDownloads bounds the downloads in flight for one get.
const maxParallelDownloads = 4

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <file-id>...",
		Short: "Download files by id",
		Long: `Download one or more files by id into the output directory, each saved
under its Drive name. The first failure cancels the remaining downloads.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runGet,
	}

	cmd.Flags().StringP("out", "o", ".", "directory to save files into")

	return cmd
}

func runGet(cmd *cobra.Command, args []string) error {
	outDir, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	client, logger, err := newClient(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	g, gctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(maxParallelDownloads)

	names := newLocalNames()

	for _, id := range uniqueIDs(args) {
		id := id
		g.Go(func() error {
			content, err := catalog.Download(gctx, client, id)
			if err != nil {
				return fmt.Errorf("downloading %s: %w", id, err)
			}

			path, err := saveContent(outDir, names.claim(id, content.Name), id, content)
			if err != nil {
				return err
			}

			logger.Debug("file saved", zap.String("file_id", id), zap.String("path", path))
			fmt.Fprintf(cmd.ErrOrStderr(), "Downloaded %s (%s)\n", path, formatSize(len(content.Data)))

			return nil
		})
	}

	return g.Wait()
}

// saveContent writes the content of file id into dir under name.
func saveContent(dir, name, id string, content *catalog.Content) (string, error) {
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, content.Data, 0o644); err != nil {
		return "", fmt.Errorf("saving %s: %w", id, err)
	}

	return path, nil
}

// localNames hands out the local file names of one get run. Two files
// with the same Drive name never share a local path: the later one is saved
// as "<id>-<name>".
type localNames struct {
	mu    sync.Mutex
	taken map[string]bool
}

func newLocalNames() *localNames {
	return &localNames{taken: make(map[string]bool)}
}

func (n *localNames) claim(id, name string) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	local := localName(id, name)
	if n.taken[local] {
		local = id + "-" + local
	}

	for i := 2; n.taken[local]; i++ {
		local = fmt.Sprintf("%s-%d-%s", id, i, localName(id, name))
	}

	n.taken[local] = true

	return local
}

// uniqueIDs drops repeated ids, keeping the first occurrence.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))

	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}

	return out
}

// localName is the base of the Drive name, or the file id when the name
// cannot be used as a file name.
func localName(id, name string) string {
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "." || base == string(filepath.Separator) {
		return id
	}

	return base
}
