package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const testAccessToken = "test-access-token"

// fakeDrive serves the subset of the Drive v3 REST API the catalog uses:
// files.list, files.get (metadata and alt=media) and media files.update.
type fakeDrive struct {
	t *testing.T

	mu       sync.Mutex
	pages    [][]*drive.File // listing pages, served in order via page tokens
	folders  map[string]*drive.File
	files    map[string]*drive.File
	contents map[string][]byte

	listErr   int // HTTP status returned by files.list when non-zero
	uploadErr int // HTTP status returned by files.update when non-zero

	folderGets  map[string]int
	listQueries []string
	listCalls   int
	uploads     map[string]fakeUpload
	authHeaders []string
}

type fakeUpload struct {
	contentType string
	data        []byte
	query       string
}

func newFakeDrive(t *testing.T) *fakeDrive {
	t.Helper()

	return &fakeDrive{
		t:          t,
		folders:    map[string]*drive.File{},
		files:      map[string]*drive.File{},
		contents:   map[string][]byte{},
		folderGets: map[string]int{},
		uploads:    map[string]fakeUpload{},
	}
}

// addFolder registers a folder and returns its id.
func (f *fakeDrive) addFolder(id, name string, parents ...string) string {
	f.folders[id] = &drive.File{Id: id, Name: name, MimeType: folderMimeType, Parents: parents}
	return id
}

// addFile registers a file with content and returns it.
func (f *fakeDrive) addFile(id, name, mimeType string, content []byte, parents ...string) *drive.File {
	file := &drive.File{
		Id:             id,
		Name:           name,
		MimeType:       mimeType,
		Parents:        parents,
		ModifiedTime:   "2024-06-20T14:45:00Z",
		WebViewLink:    "https://drive.google.com/file/d/" + id + "/view",
		ThumbnailLink:  "https://lh3.googleusercontent.com/" + id,
		HeadRevisionId: "rev-1",
	}
	f.files[id] = file
	f.contents[id] = content
	return file
}

// setListing sets the files returned by files.list, one slice per page.
func (f *fakeDrive) setListing(pages ...[]*drive.File) {
	f.pages = pages
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))

	path := r.URL.Path
	switch {
	case strings.HasSuffix(path, "/files") && r.Method == http.MethodGet:
		f.handleList(w, r)
	case strings.Contains(path, "/upload/") && r.Method == http.MethodPatch:
		f.handleUpload(w, r, path[strings.LastIndex(path, "/")+1:])
	case strings.Contains(path, "/files/") && r.Method == http.MethodGet:
		id := path[strings.LastIndex(path, "/")+1:]
		if r.URL.Query().Get("alt") == "media" {
			f.handleDownload(w, id)
			return
		}
		f.handleGet(w, id)
	default:
		writeAPIError(w, http.StatusNotFound, "unexpected request "+r.Method+" "+path)
	}
}

func (f *fakeDrive) handleList(w http.ResponseWriter, r *http.Request) {
	f.listCalls++
	f.listQueries = append(f.listQueries, r.URL.RawQuery)

	if f.listErr != 0 {
		writeAPIError(w, f.listErr, "listing refused")
		return
	}

	page := 0
	if tok := r.URL.Query().Get("pageToken"); tok != "" {
		_, err := fmt.Sscanf(tok, "page-%d", &page)
		require.NoError(f.t, err)
	}

	list := &drive.FileList{}
	if page < len(f.pages) {
		list.Files = f.pages[page]
	}
	if page+1 < len(f.pages) {
		list.NextPageToken = fmt.Sprintf("page-%d", page+1)
	}

	writeJSON(w, list)
}

func (f *fakeDrive) handleGet(w http.ResponseWriter, id string) {
	if folder, ok := f.folders[id]; ok {
		f.folderGets[id]++
		writeJSON(w, folder)
		return
	}
	if file, ok := f.files[id]; ok {
		writeJSON(w, file)
		return
	}
	writeAPIError(w, http.StatusNotFound, "File not found: "+id+".")
}

func (f *fakeDrive) handleDownload(w http.ResponseWriter, id string) {
	data, ok := f.contents[id]
	if !ok {
		writeAPIError(w, http.StatusNotFound, "File not found: "+id+".")
		return
	}
	w.Header().Set("Content-Type", f.files[id].MimeType)
	_, _ = w.Write(data)
}

func (f *fakeDrive) handleUpload(w http.ResponseWriter, r *http.Request, id string) {
	if f.uploadErr != 0 {
		writeAPIError(w, f.uploadErr, "upload refused")
		return
	}

	file, ok := f.files[id]
	if !ok {
		writeAPIError(w, http.StatusNotFound, "File not found: "+id+".")
		return
	}

	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	require.NoError(f.t, err)
	require.Equal(f.t, "multipart/related", mediaType)

	mr := multipart.NewReader(r.Body, params["boundary"])
	_, err = mr.NextPart() // metadata part
	require.NoError(f.t, err)
	media, err := mr.NextPart()
	require.NoError(f.t, err)
	data, err := io.ReadAll(media)
	require.NoError(f.t, err)

	f.uploads[id] = fakeUpload{
		contentType: media.Header.Get("Content-Type"),
		data:        data,
		query:       r.URL.RawQuery,
	}
	f.contents[id] = data
	file.HeadRevisionId = "rev-2"

	writeJSON(w, file)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":{"code":%d,"message":%q,"errors":[{"message":%q,"reason":"test"}]}}`, code, msg, msg)
}

// start serves the fake and returns a Client pointing at it.
func (f *fakeDrive) start(opts ...Option) *Client {
	f.t.Helper()

	srv := httptest.NewServer(f)
	f.t.Cleanup(srv.Close)

	opts = append([]Option{WithServiceOptions(option.WithEndpoint(srv.URL + "/"))}, opts...)
	c, err := NewClient(context.Background(), &oauth2.Token{AccessToken: testAccessToken}, "test-identity", opts...)
	require.NoError(f.t, err)

	return c
}

func (f *fakeDrive) folderGetCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.folderGets[id]
}
