package publisher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/feed-posse/app/failure"
)

const DownloadTimeout = 10 * time.Second

// Downloader fetches attachments into exclusive temporary files. Redirects
// are followed by the HTTP client.
type Downloader struct {
	httpClient *http.Client
	userAgent  string
	tempDir    string
}

func NewDownloader(userAgent string) *Downloader {
	return &Downloader{
		httpClient: &http.Client{Timeout: DownloadTimeout},
		userAgent:  userAgent,
		tempDir:    os.TempDir(),
	}
}

// With downloads url, hands the file (rewound) to fn and removes it afterwards.
// Errors from fn are returned unchanged; download errors are failure.KindDownload.
func (d *Downloader) With(ctx context.Context, url string, fn func(file *os.File) error) error {
	path := filepath.Join(d.tempDir, "image-"+uuid.NewString())

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return failure.WithURL(failure.KindDownload, "failed to download", url,
			fmt.Errorf("failed to create temporary file: %w", err))
	}
	defer func() {
		file.Close()
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.Warn("Failed to remove temporary file", "path", path, "error", err)
		}
	}()

	slog.Debug("Downloading attachment", "url", url, "path", path)
	if err := d.fetch(ctx, url, file); err != nil {
		return failure.WithURL(failure.KindDownload, "failed to download", url, err)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return failure.WithURL(failure.KindDownload, "failed to download", url,
			fmt.Errorf("failed to rewind %s: %w", path, err))
	}

	return fn(file)
}

func (d *Downloader) fetch(ctx context.Context, url string, dst io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download request failed, response status: %s", resp.Status)
	}

	if _, err := io.Copy(dst, resp.Body); err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}
