package archive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/skywatch-data/lightcurve.report/internal/monitoring"
	"github.com/skywatch-data/lightcurve.report/internal/security"
)

// Downloader streams archive products into a local cache directory laid out
// as <cacheDir>/<mission>/<target>/<filename>.
type Downloader struct {
	cacheDir string
	http     interface {
		Do(req *http.Request) (*http.Response, error)
	}
}

// NewDownloader creates a Downloader writing under cacheDir. The client's
// HTTP transport is shared so tests can stub both search and download.
func (c *Client) NewDownloader(cacheDir string) *Downloader {
	return &Downloader{cacheDir: cacheDir, http: c.http}
}

// LocalPath returns the cache path a product downloads to.
func (d *Downloader) LocalPath(p Product) string {
	return filepath.Join(d.cacheDir,
		security.SanitizeComponent(strings.ToLower(p.Mission)),
		security.SanitizeComponent(p.Target),
		security.SanitizeComponent(p.Filename),
	)
}

// Download fetches a product into the cache and returns its local path. An
// existing file whose size matches the advertised product size is reused
// without a network round trip. Writes go to a temp file first so a failed
// transfer never leaves a truncated product behind.
func (d *Downloader) Download(ctx context.Context, p Product) (string, error) {
	if p.URL == "" {
		return "", fmt.Errorf("product has no download URL")
	}

	path := d.LocalPath(p)
	if err := security.ValidatePathWithinDirectory(path, d.cacheDir); err != nil {
		return "", fmt.Errorf("refusing unsafe cache path: %v", err)
	}

	if info, err := os.Stat(path); err == nil && p.Size > 0 && info.Size() == p.Size {
		monitoring.Debugf("cache hit for %s (%d bytes)", p.Filename, info.Size())
		return path, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid product URL %q: %v", p.URL, err)
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".partial-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("failed to write %s: %v", p.Filename, err)
	}
	if p.Size > 0 && written != p.Size {
		return "", fmt.Errorf("short download for %s: got %d bytes, expected %d", p.Filename, written, p.Size)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to finalize %s: %v", p.Filename, err)
	}
	monitoring.Logf("downloaded %s (%d bytes)", p.Filename, written)
	return path, nil
}
