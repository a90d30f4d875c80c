package catalog

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"google.golang.org/api/drive/v3"
)

const folderMimeType = "application/vnd.google-apps.folder"

// listQuery excludes folders and asks Drive for names that contain one of the
// extensions. Drive's "contains" is a loose hint, MatchesName decides.
const listQuery = "mimeType != '" + folderMimeType + "' and " +
	"(name contains '.xml' or name contains '.txt' or name contains '.json')"

const listFields = "nextPageToken, files(id, name, parents, mimeType, webViewLink, thumbnailLink, modifiedTime)"

// Extensions are the file name suffixes kept by ListFiles.
var Extensions = []string{".xml", ".txt", ".json"}

// Entry is a listed file annotated with its full path.
type Entry struct {
	ID            string    `json:"id"`                      // The unique identifier for the file.
	Name          string    `json:"name"`                    // The name of the file.
	MimeType      string    `json:"mimeType"`                // The MIME type reported by Drive.
	ViewLink      string    `json:"viewLink,omitempty"`      // Link to open the file in a browser.
	ThumbnailLink string    `json:"thumbnailLink,omitempty"` // Short-lived thumbnail link.
	Modified      time.Time `json:"modified"`                // The last time the file was modified.
	FullPath      string    `json:"fullPath"`                // Folder path and name, joined by '/'.
}

// MatchesName reports whether name ends with one of Extensions, ignoring
// case.
func MatchesName(name string) bool {
	folded := cases.Fold().String(name)
	for _, ext := range Extensions {
		if strings.HasSuffix(folded, ext) {
			return true
		}
	}
	return false
}

// ListFiles lists the xml, txt and json files visible to c and resolves the
// full path of each. Entries keep the order Drive returned them in. Only the
// first page is read unless the client was built WithAllPages.
//
// Remote failures are returned unchanged; a failed folder lookup fails the
// whole listing.
func ListFiles(ctx context.Context, c *Client) ([]Entry, error) {
	records, err := c.listRecords(ctx)
	if err != nil {
		return nil, err
	}

	memo := Memo{}
	entries := make([]Entry, 0, len(records))

	for _, f := range records {
		if !MatchesName(f.Name) {
			c.logger.Debug("skipping file with unmatched extension", zap.String("name", f.Name))
			continue
		}

		folderPath, err := ResolvePath(ctx, c, f.Parents, memo)
		if err != nil {
			return nil, err
		}

		entries = append(entries, newEntry(f, joinPath(folderPath, f.Name), c.logger))
	}

	c.metrics.AddEntries(len(entries))
	c.logger.Debug("listing complete",
		zap.Int("records", len(records)),
		zap.Int("entries", len(entries)),
		zap.Int("folders_fetched", len(memo)),
	)

	return entries, nil
}

// listRecords runs the remote listing.
func (c *Client) listRecords(ctx context.Context) ([]*drive.File, error) {
	call := c.Service.Files.List().
		Q(listQuery).
		Fields(listFields).
		PageSize(c.pageSize).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true)

	if !c.allPages {
		page, err := call.Context(ctx).Do()
		c.metrics.ObserveCall("list", err)
		if err != nil {
			return nil, err
		}
		if page.NextPageToken != "" {
			c.logger.Debug("listing truncated to first page", zap.Int("files", len(page.Files)))
		}
		return page.Files, nil
	}

	var files []*drive.File
	err := call.Pages(ctx, func(page *drive.FileList) error {
		c.metrics.ObserveCall("list", nil)
		files = append(files, page.Files...)
		return nil
	})
	if err != nil {
		c.metrics.ObserveCall("list", err)
		return nil, err
	}

	return files, nil
}

func newEntry(f *drive.File, fullPath string, logger *zap.Logger) Entry {
	modified, err := time.Parse(time.RFC3339, f.ModifiedTime)
	if err != nil && f.ModifiedTime != "" {
		logger.Debug("unparsable modified time", zap.String("file_id", f.Id), zap.String("value", f.ModifiedTime))
	}

	return Entry{
		ID:            f.Id,
		Name:          f.Name,
		MimeType:      f.MimeType,
		ViewLink:      f.WebViewLink,
		ThumbnailLink: f.ThumbnailLink,
		Modified:      modified,
		FullPath:      fullPath,
	}
}

func joinPath(folderPath, name string) string {
	if folderPath == "" {
		return name
	}
	return folderPath + "/" + name
}
