package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/user/extstats-go/internal/models"
)

// ErrDecode is returned when the response body is not a valid stats document.
var ErrDecode = errors.New("stats: invalid response body")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("stats: GET %s: status=%d", e.URL, e.StatusCode)
}

// Result is the transformed content of one stats response.
type Result struct {
	Series []models.ChartSeries
	Latest *models.ChartPoint
}

// Client fetches per-version statistics for an extension.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client for the endpoint rooted at baseURL. A nil
// httpClient means http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: u, httpClient: httpClient, logger: slog.Default()}, nil
}

// WithLogger returns a copy of c logging to logger.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	cp := *c
	cp.logger = logger
	return &cp
}

// StatsURL builds /stats/{extension}?stats=time&stats={tab} under the base url.
func (c *Client) StatsURL(extension, tab string) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(c.baseURL.Path, "/") + "/stats/" + extension
	u.RawPath = strings.TrimSuffix(c.baseURL.EscapedPath(), "/") + "/stats/" + url.PathEscape(extension)
	u.RawQuery = url.Values{"stats": {"time", tab}}.Encode()
	return u.String()
}

// FetchVersions issues one request for the extension and tab and decodes
// the version records.
func (c *Client) FetchVersions(ctx context.Context, extension, tab string) ([]models.VersionRecord, error) {
	endpoint := c.StatsURL(extension, tab)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stats: GET %s: %w", endpoint, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: endpoint, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("stats: read body of %s: %w", endpoint, err)
	}

	var versions []models.VersionRecord
	if err := json.Unmarshal(body, &versions); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, endpoint, err)
	}
	if versions == nil {
		return nil, fmt.Errorf("%w: %s: not a JSON array", ErrDecode, endpoint)
	}
	return versions, nil
}

// FetchSeries fetches the tab data and converts it into chart series.
func (c *Client) FetchSeries(ctx context.Context, extension, tab string) (Result, error) {
	start := time.Now()
	versions, err := c.FetchVersions(ctx, extension, tab)
	if err != nil {
		return Result{}, err
	}

	series, latest := BuildSeries(versions)
	points := 0
	for _, s := range series {
		points += len(s.Data)
		c.logger.Debug("loaded version", "tab", tab, "version", s.Name, "points", len(s.Data))
	}
	c.logger.Info("loaded tab data",
		"extension", extension,
		"tab", tab,
		"versions", len(series),
		"points", points,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Result{Series: series, Latest: latest}, nil
}
