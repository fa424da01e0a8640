// Package download implements the first pipeline stage: fetching incident
// records, boundary layers, and census tables from their upstream HTTP APIs
// into the raw data directory.
package download

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gocarina/gocsv"

	"github.com/atxcivic/fire-analysis-etl/internal/domain"
)

// Client fetches upstream resources with bounded retry. Transient HTTP
// failures are retried with exponential backoff; after maxRetries the error
// is returned so the stage can abort with a diagnostic rather than retrying
// indefinitely.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	maxRetries int
}

// NewClient creates a download client.
func NewClient(timeout time.Duration, maxRetries int, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// FetchFile downloads fullURL to dest, creating parent directories.
func (c *Client) FetchFile(ctx context.Context, fullURL, dest string) error {
	body, err := c.get(ctx, fullURL)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer f.Close()

	n, err := io.Copy(f, body)
	if err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	c.logger.Info("downloaded file", "url", fullURL, "dest", dest, "bytes", n)
	return nil
}

// FetchIncidents pages through a Socrata resource and writes the records as
// CSV. Pagination uses $limit/$offset ordered by :id; the last page is
// detected by a short read. Returns the number of records written.
func (c *Client) FetchIncidents(ctx context.Context, resourceURL string, pageSize int, dest string) (int, error) {
	var all []*domain.RawIncident

	for offset := 0; ; offset += pageSize {
		params := url.Values{
			"$limit":  {strconv.Itoa(pageSize)},
			"$offset": {strconv.Itoa(offset)},
			"$order":  {":id"},
		}
		pageURL := resourceURL + "?" + params.Encode()

		body, err := c.get(ctx, pageURL)
		if err != nil {
			return 0, fmt.Errorf("incidents page at offset %d: %w", offset, err)
		}

		var page []*domain.RawIncident
		err = json.NewDecoder(body).Decode(&page)
		body.Close()
		if err != nil {
			return 0, fmt.Errorf("decode incidents page at offset %d: %w", offset, err)
		}

		all = append(all, page...)
		c.logger.Debug("fetched incidents page", "offset", offset, "rows", len(page))

		if len(page) < pageSize {
			break
		}
	}

	if err := writeIncidentCSV(dest, all); err != nil {
		return 0, err
	}
	c.logger.Info("downloaded incidents", "url", resourceURL, "dest", dest, "rows", len(all))
	return len(all), nil
}

// FetchCensusTable queries the ACS 5-year API for the given variables and
// writes the JSON array-of-arrays response as CSV, header row included.
// Returns the number of data rows.
func (c *Client) FetchCensusTable(ctx context.Context, base string, year int, variables []string, stateFIPS, countyFIPS, dest string) (int, error) {
	// The census API expects literal commas, colons, and wildcards in its
	// query parameters, so the URL is assembled rather than encoded.
	fullURL := fmt.Sprintf("%s/%d/acs/acs5?get=%s&for=tract:*&in=state:%s&in=county:%s",
		base, year, strings.Join(variables, ","), stateFIPS, countyFIPS)

	body, err := c.get(ctx, fullURL)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	var rows [][]string
	if err := json.NewDecoder(body).Decode(&rows); err != nil {
		return 0, fmt.Errorf("decode census response: %w", err)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("census API returned no rows for %s", strings.Join(variables, ","))
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("create directory: %w", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dest, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return 0, fmt.Errorf("write %s: %w", dest, err)
	}

	c.logger.Info("downloaded census table", "dest", dest, "rows", len(rows)-1)
	return len(rows) - 1, nil
}

// get issues a GET with retry on transient failures. 4xx responses are
// permanent; network errors and 5xx are retried with exponential backoff.
func (c *Client) get(ctx context.Context, fullURL string) (io.ReadCloser, error) {
	var body io.ReadCloser

	policy := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewExponentialBackOff(), uint64(c.maxRetries)), ctx)

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request %s: %w", fullURL, err)
		}

		if resp.StatusCode != http.StatusOK {
			payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			err := fmt.Errorf("GET %s: status %d: %s", fullURL, resp.StatusCode, payload)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return backoff.Permanent(err)
			}
			return err
		}

		body = resp.Body
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("download failed, retrying", "error", err, "wait", wait)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, err
	}
	return body, nil
}

func writeIncidentCSV(dest string, records []*domain.RawIncident) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&records, f); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}

// Unzip extracts a downloaded archive into destDir. The census TIGER
// shapefile ships zipped; the crosswalk stage reads the extracted .shp.
func Unzip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open zip %s: %w", zipPath, err)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	for _, f := range r.File {
		name := filepath.Base(f.Name) // flatten; reject traversal outright
		if name == "." || name == ".." || f.FileInfo().IsDir() {
			continue
		}
		if err := extractZipFile(f, filepath.Join(destDir, name)); err != nil {
			return err
		}
	}
	return nil
}

func extractZipFile(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return nil
}
