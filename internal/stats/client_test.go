package stats

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func stubClient(t *testing.T, status int, body string, seen *http.Request) *Client {
	t.Helper()
	httpClient := &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if seen != nil {
				*seen = *r
			}
			return &http.Response{
				StatusCode: status,
				Body:       io.NopCloser(strings.NewReader(body)),
				Header:     make(http.Header),
			}, nil
		}),
	}
	c, err := NewClient("http://stats.example.com", httpClient)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestStatsURL(t *testing.T) {
	testCases := []struct {
		base string
		want string
	}{
		{"http://stats.example.com", "http://stats.example.com/stats/redhat.java?stats=time&stats=installs"},
		{"http://stats.example.com/", "http://stats.example.com/stats/redhat.java?stats=time&stats=installs"},
		{"https://example.com/dashboard", "https://example.com/dashboard/stats/redhat.java?stats=time&stats=installs"},
	}
	for _, tc := range testCases {
		c, err := NewClient(tc.base, nil)
		if err != nil {
			t.Fatalf("NewClient(%q) error = %v", tc.base, err)
		}
		if got := c.StatsURL("redhat.java", "installs"); got != tc.want {
			t.Errorf("StatsURL() with base %q = %q; want %q", tc.base, got, tc.want)
		}
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	for _, base := range []string{"ftp://example.com", "::nope", ""} {
		if _, err := NewClient(base, nil); err == nil {
			t.Errorf("NewClient(%q) returned nil error", base)
		}
	}
}

func TestFetchSeries(t *testing.T) {
	var seen http.Request
	c := stubClient(t, http.StatusOK, `[{"_id":"1.0","events":[
		{"time":"2024-01-01T00:00:00Z","installs":5},
		{"time":"2024-01-02T00:00:00Z","total_installed":9}]}]`, &seen)

	res, err := c.FetchSeries(context.Background(), "redhat.java", "installs")
	if err != nil {
		t.Fatalf("FetchSeries() error = %v", err)
	}

	if got, want := seen.Method, http.MethodGet; got != want {
		t.Errorf("method = %q; want %q", got, want)
	}
	if got, want := seen.URL.Path, "/stats/redhat.java"; got != want {
		t.Errorf("path = %q; want %q", got, want)
	}
	stats := seen.URL.Query()["stats"]
	if len(stats) != 2 || stats[0] != "time" || stats[1] != "installs" {
		t.Errorf("stats query = %v; want [time installs]", stats)
	}

	if len(res.Series) != 1 || len(res.Series[0].Data) != 2 {
		t.Fatalf("series = %+v", res.Series)
	}
	if res.Latest == nil || res.Latest.Time() != 1704153600000 || res.Latest.Value() != 9 {
		t.Errorf("latest = %v; want [1704153600000 9]", res.Latest)
	}
}

func TestFetchVersionsStatusError(t *testing.T) {
	c := stubClient(t, http.StatusNotFound, "Unknown extension: nope", nil)

	_, err := c.FetchVersions(context.Background(), "nope", "installs")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("FetchVersions() error = %v; want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d; want 404", statusErr.StatusCode)
	}
}

func TestFetchVersionsMalformedBody(t *testing.T) {
	c := stubClient(t, http.StatusOK, `<html>oops</html>`, nil)

	if _, err := c.FetchVersions(context.Background(), "redhat.java", "installs"); !errors.Is(err, ErrDecode) {
		t.Fatalf("FetchVersions() error = %v; want ErrDecode", err)
	}
}

func TestFetchVersionsNullBody(t *testing.T) {
	c := stubClient(t, http.StatusOK, `null`, nil)

	versions, err := c.FetchVersions(context.Background(), "redhat.java", "installs")
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("FetchVersions() error = %v; want ErrDecode", err)
	}
	if versions != nil {
		t.Errorf("FetchVersions() = %v; want nil", versions)
	}
}

func TestFetchVersionsEmptyArray(t *testing.T) {
	c := stubClient(t, http.StatusOK, `[]`, nil)

	versions, err := c.FetchVersions(context.Background(), "redhat.java", "installs")
	if err != nil {
		t.Fatalf("FetchVersions() error = %v", err)
	}
	if versions == nil || len(versions) != 0 {
		t.Errorf("FetchVersions() = %#v; want empty slice", versions)
	}
}

func TestFetchVersionsTransportError(t *testing.T) {
	httpClient := &http.Client{
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		}),
	}
	c, err := NewClient("http://stats.example.com", httpClient)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if _, err := c.FetchVersions(context.Background(), "redhat.java", "installs"); err == nil {
		t.Fatal("FetchVersions() returned nil error")
	}
}

func TestFetchSeriesAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stats/redhat.vscode-yaml" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"_id":"1.14.0","events":[{"time":"2024-02-01T00:00:00Z","total_installed":1500}]}]`)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	res, err := c.FetchSeries(context.Background(), "redhat.vscode-yaml", "total_installed")
	if err != nil {
		t.Fatalf("FetchSeries() error = %v", err)
	}
	if len(res.Series) != 1 || res.Series[0].Name != "1.14.0" || res.Latest.Value() != 1500 {
		t.Errorf("FetchSeries() = %+v", res)
	}
}
