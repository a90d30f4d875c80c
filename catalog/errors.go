package catalog

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Sentinel errors. Use errors.Is to check.
var (
	ErrMissingAccessToken = errors.New("catalog: missing access token")
	ErrMissingIdentity    = errors.New("catalog: missing identity key")
	ErrMaxDepthExceeded   = errors.New("catalog: folder chain exceeds maximum depth")
)

// TokenExchangeError is returned when the token endpoint answers with a
// non-success status. Code and Description carry the endpoint's error and
// error_description fields.
type TokenExchangeError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("catalog: token exchange failed (HTTP %d): %s: %s", e.StatusCode, e.Code, e.Description)
}

// InvalidTokenResponseError is returned when the token endpoint reports
// success but the body carries no usable access token.
type InvalidTokenResponseError struct {
	Body string
}

func (e *InvalidTokenResponseError) Error() string {
	return fmt.Sprintf("catalog: token response carries no usable access_token: %s", e.Body)
}

// UploadIncompleteError is returned when an upload did not reach the
// completed state. Cause is the remote-reported reason, when there is one.
type UploadIncompleteError struct {
	FileID string
	Status UploadStatus
	Cause  error
}

func (e *UploadIncompleteError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("catalog: upload of %s %s: %v", e.FileID, e.Status, e.Cause)
	}

	return fmt.Sprintf("catalog: upload of %s %s", e.FileID, e.Status)
}

func (e *UploadIncompleteError) Unwrap() error {
	return e.Cause
}

// FolderCycleError is returned when a parent chain visits the same folder
// twice without reaching the root.
type FolderCycleError struct {
	FolderID string
}

func (e *FolderCycleError) Error() string {
	return fmt.Sprintf("catalog: folder %s is its own ancestor", e.FolderID)
}

// RevisionMismatchError is returned by Upload when the file's head revision
// differs from the revision the caller expected to overwrite.
type RevisionMismatchError struct {
	FileID   string
	Expected string
	Actual   string
}

func (e *RevisionMismatchError) Error() string {
	return fmt.Sprintf("catalog: file %s is at revision %q, expected %q", e.FileID, e.Actual, e.Expected)
}

// IsNotFound reports whether err is a Drive API 404.
func IsNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
