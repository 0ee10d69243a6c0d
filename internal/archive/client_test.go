package archive

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/skywatch-data/lightcurve.report/internal/httputil"
)

const searchBody = `{
	"results": [
		{
			"target": "KIC 6922244",
			"mission": "Kepler",
			"quarter": 4,
			"start_time": 352.37,
			"end_time": 442.23,
			"url": "http://archive.test/products/kplr006922244-2010078095331_lpd-targ.fits.gz",
			"filename": "kplr006922244-2010078095331_lpd-targ.fits.gz",
			"size": 192960
		}
	]
}`

func TestSearch(t *testing.T) {
	mock := httputil.NewMockClient().AddResponse(http.StatusOK, searchBody)
	c := NewClient("http://archive.test/api/", mock)

	products, err := c.Search(context.Background(), "KIC 6922244", SearchOptions{
		Mission: "Kepler",
		Quarter: 4,
		Limit:   10,
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("got %d products, want 1", len(products))
	}

	want := Product{
		Target:    "KIC 6922244",
		Mission:   "Kepler",
		Quarter:   4,
		StartTime: 352.37,
		EndTime:   442.23,
		URL:       "http://archive.test/products/kplr006922244-2010078095331_lpd-targ.fits.gz",
		Filename:  "kplr006922244-2010078095331_lpd-targ.fits.gz",
		Size:      192960,
	}
	if diff := cmp.Diff(want, products[0]); diff != "" {
		t.Errorf("product mismatch (-want +got):\n%s", diff)
	}

	req := mock.Request(0)
	if req == nil {
		t.Fatal("no request recorded")
	}
	// trailing slash on the base URL is normalized away
	if req.URL.Path != "/api/search" {
		t.Errorf("request path = %q", req.URL.Path)
	}
	q := req.URL.Query()
	if q.Get("target") != "KIC 6922244" || q.Get("mission") != "Kepler" ||
		q.Get("quarter") != "4" || q.Get("limit") != "10" {
		t.Errorf("query = %v", q)
	}
	if q.Has("sector") || q.Has("campaign") {
		t.Errorf("zero-valued filters should be omitted: %v", q)
	}
}

func TestSearchNotFound(t *testing.T) {
	mock := httputil.NewMockClient().AddResponse(http.StatusNotFound, "")
	c := NewClient("http://archive.test", mock)

	if _, err := c.Search(context.Background(), "KIC 0", SearchOptions{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSearchEmptyResults(t *testing.T) {
	mock := httputil.NewMockClient().AddResponse(http.StatusOK, `{"results":[]}`)
	c := NewClient("http://archive.test", mock)

	if _, err := c.Search(context.Background(), "KIC 0", SearchOptions{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSearchErrors(t *testing.T) {
	c := NewClient("http://archive.test", httputil.NewMockClient())
	if _, err := c.Search(context.Background(), "  ", SearchOptions{}); err == nil {
		t.Error("expected error for blank target")
	}

	mock := httputil.NewMockClient().AddResponse(http.StatusInternalServerError, "backend exploded")
	c = NewClient("http://archive.test", mock)
	_, err := c.Search(context.Background(), "KIC 1", SearchOptions{})
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("err = %v, want status error", err)
	}

	mock = httputil.NewMockClient().AddError(errors.New("connection refused"))
	c = NewClient("http://archive.test", mock)
	if _, err := c.Search(context.Background(), "KIC 1", SearchOptions{}); err == nil {
		t.Error("expected transport error")
	}

	mock = httputil.NewMockClient().AddResponse(http.StatusOK, "not json")
	c = NewClient("http://archive.test", mock)
	if _, err := c.Search(context.Background(), "KIC 1", SearchOptions{}); err == nil {
		t.Error("expected decode error")
	}
}

func testProduct() Product {
	return Product{
		Target:   "KIC 6922244",
		Mission:  "Kepler",
		Quarter:  4,
		URL:      "http://archive.test/products/file.fits",
		Filename: "file.fits",
		Size:     9,
	}
}

func TestDownload(t *testing.T) {
	dir := t.TempDir()
	mock := httputil.NewMockClient().AddResponse(http.StatusOK, "FITSBYTES")
	d := NewClient("http://archive.test", mock).NewDownloader(dir)

	path, err := d.Download(context.Background(), testProduct())
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	want := filepath.Join(dir, "kepler", "KIC_6922244", "file.fits")
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "FITSBYTES" {
		t.Errorf("content = %q", data)
	}

	// second download is served from cache without another request
	if _, err := d.Download(context.Background(), testProduct()); err != nil {
		t.Fatalf("cached Download failed: %v", err)
	}
	if mock.RequestCount() != 1 {
		t.Errorf("request count = %d, want 1 (cache hit)", mock.RequestCount())
	}
}

func TestDownloadSizeMismatch(t *testing.T) {
	dir := t.TempDir()
	mock := httputil.NewMockClient().AddResponse(http.StatusOK, "short")
	d := NewClient("http://archive.test", mock).NewDownloader(dir)

	if _, err := d.Download(context.Background(), testProduct()); err == nil {
		t.Error("expected error for short download")
	}
	// no partial file left behind
	if _, err := os.Stat(filepath.Join(dir, "kepler", "KIC_6922244", "file.fits")); !os.IsNotExist(err) {
		t.Error("truncated file should not exist")
	}
}

func TestDownloadErrors(t *testing.T) {
	dir := t.TempDir()
	d := NewClient("http://archive.test", httputil.NewMockClient()).NewDownloader(dir)

	p := testProduct()
	p.URL = ""
	if _, err := d.Download(context.Background(), p); err == nil {
		t.Error("expected error for missing URL")
	}

	mock := httputil.NewMockClient().AddResponse(http.StatusNotFound, "")
	d = NewClient("http://archive.test", mock).NewDownloader(dir)
	if _, err := d.Download(context.Background(), testProduct()); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	mock = httputil.NewMockClient().AddResponse(http.StatusForbidden, "")
	d = NewClient("http://archive.test", mock).NewDownloader(dir)
	if _, err := d.Download(context.Background(), testProduct()); err == nil {
		t.Error("expected error for 403")
	}
}

func TestLocalPathSanitization(t *testing.T) {
	d := NewClient("http://archive.test", httputil.NewMockClient()).NewDownloader("/cache")

	p := Product{Mission: "Kepler", Target: "../../etc", Filename: "../passwd"}
	path := d.LocalPath(p)
	if strings.Contains(path, "..") {
		t.Errorf("sanitized path still contains dot segments: %q", path)
	}
	if !strings.HasPrefix(path, "/cache"+string(filepath.Separator)) {
		t.Errorf("path escaped the cache dir: %q", path)
	}
}
