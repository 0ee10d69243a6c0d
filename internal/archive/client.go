// Package archive talks to the remote observation archive: product search by
// target identifier, and cached download of target pixel files.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/skywatch-data/lightcurve.report/internal/httputil"
	"github.com/skywatch-data/lightcurve.report/internal/monitoring"
)

// ErrNotFound is returned when the archive has no products for a query.
var ErrNotFound = errors.New("archive: no matching products")

// Product is one downloadable observation file as described by the archive's
// search endpoint.
type Product struct {
	Target    string  `json:"target"`
	Mission   string  `json:"mission"`
	Quarter   int     `json:"quarter,omitempty"`
	Sector    int     `json:"sector,omitempty"`
	Campaign  int     `json:"campaign,omitempty"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	URL       string  `json:"url"`
	Filename  string  `json:"filename"`
	Size      int64   `json:"size"`
}

// SearchOptions narrows a product search. Zero values mean "any".
type SearchOptions struct {
	Mission  string
	Quarter  int
	Sector   int
	Campaign int
	Limit    int
}

// Client queries the archive over an injectable HTTP client.
type Client struct {
	baseURL string
	http    httputil.Client
}

// NewClient creates an archive client for the given base URL. A nil HTTP
// client falls back to the default transport.
func NewClient(baseURL string, hc httputil.Client) *Client {
	if hc == nil {
		hc = httputil.NewStandardClient(nil)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
	}
}

// searchResponse is the JSON envelope returned by the search endpoint.
type searchResponse struct {
	Results []Product `json:"results"`
}

// Search queries the archive for products matching a target identifier.
// Returns ErrNotFound when the archive reports no matches.
func (c *Client) Search(ctx context.Context, target string, opts SearchOptions) ([]Product, error) {
	if strings.TrimSpace(target) == "" {
		return nil, fmt.Errorf("target identifier is required")
	}

	q := url.Values{}
	q.Set("target", target)
	if opts.Mission != "" {
		q.Set("mission", opts.Mission)
	}
	if opts.Quarter > 0 {
		q.Set("quarter", strconv.Itoa(opts.Quarter))
	}
	if opts.Sector > 0 {
		q.Set("sector", strconv.Itoa(opts.Sector))
	}
	if opts.Campaign > 0 {
		q.Set("campaign", strconv.Itoa(opts.Campaign))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}

	searchURL := c.baseURL + "/search?" + q.Encode()
	monitoring.Debugf("archive search: %s", searchURL)

	resp, err := c.http.Get(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("archive search request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("archive search returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode archive search response: %v", err)
	}
	if len(parsed.Results) == 0 {
		return nil, ErrNotFound
	}
	return parsed.Results, nil
}
