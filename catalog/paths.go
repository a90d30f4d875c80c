package catalog

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// RootID is the alias Drive accepts for the top of My Drive. Climbing stops
// when a parent reference equals it.
const RootID = "root"

// Folder is the part of a folder's metadata needed to climb the hierarchy.
type Folder struct {
	ID      string
	Name    string
	Parents []string
}

// Memo caches folders by id for the duration of one listing. It is not safe
// for concurrent use and must not outlive the query that created it.
type Memo map[string]Folder

// ResolvePath returns the slash-delimited folder path above a file whose
// parent references are parentIDs, shallowest folder first. Only the first
// parent is followed: a file with several parents gets a single path.
// Folders are looked up in memo before asking Drive, and fetched folders are
// added to it. An empty parentIDs yields "".
func ResolvePath(ctx context.Context, c *Client, parentIDs []string, memo Memo) (string, error) {
	if len(parentIDs) == 0 {
		return "", nil
	}
	if memo == nil {
		memo = Memo{}
	}

	var segments []string
	visited := make(map[string]bool)

	for id := parentIDs[0]; id != "" && id != RootID; {
		if visited[id] {
			return "", &FolderCycleError{FolderID: id}
		}
		if len(segments) >= c.maxDepth {
			return "", ErrMaxDepthExceeded
		}
		visited[id] = true

		folder, err := c.folder(ctx, id, memo)
		if err != nil {
			return "", err
		}

		segments = slices.Insert(segments, 0, folder.Name)

		if len(folder.Parents) == 0 {
			break
		}
		id = folder.Parents[0]
	}

	return strings.Join(segments, "/"), nil
}

// folder returns the folder id from memo, fetching and storing it on a miss.
// Remote errors are returned unchanged.
func (c *Client) folder(ctx context.Context, id string, memo Memo) (Folder, error) {
	if f, ok := memo[id]; ok {
		c.metrics.MemoHit()
		return f, nil
	}
	c.metrics.MemoMiss()

	f, err := c.Service.Files.Get(id).
		Fields("id, name, parents").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	c.metrics.ObserveCall("get_folder", err)
	if err != nil {
		c.logger.Debug("folder lookup failed", zap.String("folder_id", id), zap.Error(err))
		return Folder{}, err
	}

	folder := Folder{ID: id, Name: f.Name, Parents: f.Parents}
	memo[id] = folder
	c.logger.Debug("folder fetched",
		zap.String("folder_id", id),
		zap.String("name", f.Name),
		zap.Int("parents", len(f.Parents)),
	)

	return folder, nil
}
