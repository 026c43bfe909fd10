// Package download fetches finished image URLs over HTTP and materializes
// them as local files for the duration of one invocation.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
)

// defaultTimeout bounds each individual image GET.
const defaultTimeout = 30 * time.Second

// Error reports a failed image fetch. StatusCode is set when the server
// responded with a non-200 status; Err is set for transport or file errors.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download %s: unexpected HTTP status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Fetcher downloads images over plain HTTP.
type Fetcher struct {
	httpClient *http.Client
}

// NewFetcher creates a Fetcher with a bounded per-request timeout.
func NewFetcher() *Fetcher {
	return &Fetcher{httpClient: &http.Client{Timeout: defaultTimeout}}
}

// FetchAll downloads each URL to <dir>/<prefix>_<index>.jpg and returns the
// local paths in input order. The first failure aborts the whole batch; no
// partial-result recovery and no cleanup of already-written files.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string, prefix, dir string) ([]string, error) {
	paths := make([]string, 0, len(urls))

	for idx, imageURL := range urls {
		localPath := filepath.Join(dir, fmt.Sprintf("%s_%d.jpg", prefix, idx))
		if err := f.fetchOne(ctx, imageURL, localPath); err != nil {
			return nil, err
		}
		log.Info().Str("url", imageURL).Str("path", localPath).Msg("Image downloaded")
		logImageMetadata(localPath)
		paths = append(paths, localPath)
	}

	return paths, nil
}

// fetchOne performs one blocking GET and writes the raw body to localPath.
func (f *Fetcher) fetchOne(ctx context.Context, imageURL, localPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return &Error{URL: imageURL, Err: err}
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return &Error{URL: imageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &Error{URL: imageURL, StatusCode: resp.StatusCode}
	}

	out, err := os.Create(localPath)
	if err != nil {
		return &Error{URL: imageURL, Err: fmt.Errorf("create file: %w", err)}
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return &Error{URL: imageURL, Err: fmt.Errorf("write file: %w", err)}
	}
	return nil
}

// logImageMetadata decodes EXIF metadata from a downloaded file and logs it
// at debug level. Vendor-generated JPEGs usually carry none, so a decode
// failure is not an error.
func logImageMetadata(path string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	exifData, err := imagemeta.Decode(file)
	if err != nil {
		log.Debug().Str("path", path).Msg("No EXIF metadata in downloaded image")
		return
	}

	evt := log.Debug().Str("path", path)
	if !exifData.DateTimeOriginal().IsZero() {
		evt = evt.Time("dateTimeOriginal", exifData.DateTimeOriginal())
	}
	if exifData.Make != "" {
		evt = evt.Str("make", exifData.Make)
	}
	evt.Msg("Downloaded image metadata")
}
