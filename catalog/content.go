package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/etnz/drivefiles/internal/metrics"
)

// Content is the raw content of a file with the metadata needed to save or
// display it.
type Content struct {
	Name     string
	MimeType string
	Data     []byte
}

// UploadStatus is the final state of an upload.
type UploadStatus string

const (
	UploadCompleted UploadStatus = "completed"
	UploadFailed    UploadStatus = "failed"
)

// Download fetches the name, MIME type and bytes of fileID. Metadata and
// content are two independent calls; a file deleted in between surfaces the
// second call's not-found error.
func Download(ctx context.Context, c *Client, fileID string) (*Content, error) {
	meta, err := c.Service.Files.Get(fileID).
		Fields("name, mimeType").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	c.metrics.ObserveCall("get_metadata", err)
	if err != nil {
		return nil, err
	}

	resp, err := c.Service.Files.Get(fileID).
		SupportsAllDrives(true).
		Context(ctx).
		Download()
	c.metrics.ObserveCall("download", err)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("catalog: reading content of %s: %w", fileID, err)
	}

	c.metrics.AddBytes(metrics.Downloaded, len(data))
	c.logger.Debug("file downloaded",
		zap.String("file_id", fileID),
		zap.String("mime_type", meta.MimeType),
		zap.Int("bytes", len(data)),
	)

	return &Content{Name: meta.Name, MimeType: meta.MimeType, Data: data}, nil
}

// Upload replaces the content of fileID in place with data. An empty
// mimeType keeps Drive's detection.
//
// When expectedRevision is not empty, the file's head revision is read first
// and the upload is refused with a *RevisionMismatchError if it differs.
// The check and the write are separate calls, so a concurrent writer can
// still slip in between them.
func Upload(ctx context.Context, c *Client, fileID string, data []byte, mimeType, expectedRevision string) error {
	if expectedRevision != "" {
		current, err := c.Service.Files.Get(fileID).
			Fields("headRevisionId").
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		c.metrics.ObserveCall("get_revision", err)
		if err != nil {
			return err
		}
		if current.HeadRevisionId != expectedRevision {
			return &RevisionMismatchError{FileID: fileID, Expected: expectedRevision, Actual: current.HeadRevisionId}
		}
	}

	var mediaOpts []googleapi.MediaOption
	if mimeType != "" {
		mediaOpts = append(mediaOpts, googleapi.ContentType(mimeType))
	}

	updated, err := c.Service.Files.Update(fileID, &drive.File{}).
		Media(bytes.NewReader(data), mediaOpts...).
		SupportsAllDrives(true).
		Fields("id, name, mimeType, headRevisionId").
		Context(ctx).
		Do()
	c.metrics.ObserveCall("upload", err)

	status, cause := uploadStatus(fileID, updated, err)
	if status != UploadCompleted {
		c.logger.Warn("upload incomplete",
			zap.String("file_id", fileID),
			zap.String("status", string(status)),
			zap.Error(cause),
		)
		return &UploadIncompleteError{FileID: fileID, Status: status, Cause: cause}
	}

	c.metrics.AddBytes(metrics.Uploaded, len(data))
	c.logger.Debug("file uploaded",
		zap.String("file_id", fileID),
		zap.String("revision", updated.HeadRevisionId),
		zap.Int("bytes", len(data)),
	)

	return nil
}

// uploadStatus classifies the result of an update call.
func uploadStatus(fileID string, updated *drive.File, err error) (UploadStatus, error) {
	switch {
	case err != nil:
		return UploadFailed, err
	case updated == nil:
		return UploadFailed, errors.New("no file in response")
	case updated.Id != "" && updated.Id != fileID:
		return UploadFailed, fmt.Errorf("response describes file %s", updated.Id)
	default:
		return UploadCompleted, nil
	}
}
