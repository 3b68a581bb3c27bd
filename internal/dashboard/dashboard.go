// Package dashboard drives one statistics dashboard session: it fetches each
// tab's data at most once, writes the tab summary and renders its chart.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/user/extstats-go/internal/chart"
	"github.com/user/extstats-go/internal/format"
	"github.com/user/extstats-go/internal/models"
	"github.com/user/extstats-go/internal/page"
	"github.com/user/extstats-go/internal/stats"
)

// ErrNotRequested is returned by Wait for a tab that was never activated.
var ErrNotRequested = errors.New("dashboard: tab was never requested")

// Fetcher loads the chart series of one tab.
type Fetcher interface {
	FetchSeries(ctx context.Context, extension, tab string) (stats.Result, error)
}

// State is the fetch state of a tab.
type State int

const (
	Unfetched State = iota
	Fetched
)

func (s State) String() string {
	if s == Fetched {
		return "fetched"
	}
	return "unfetched"
}

// Deps are the collaborators of a Controller. Formatter and Logger are
// optional.
type Deps struct {
	Fetcher   Fetcher
	Renderer  chart.Renderer
	Page      page.Page
	Formatter *format.Formatter
	Logger    *slog.Logger
}

// TabResult is the outcome of a completed tab operation.
type TabResult struct {
	TabID    string
	Title    string
	Series   []models.ChartSeries
	Latest   *models.ChartPoint
	Summary  string
	Rendered bool
}

type entry struct {
	done   chan struct{}
	result TabResult
	err    error
}

// Controller owns the per-tab request cache for one dashboard session. The
// cache lives as long as the Controller; entries are never evicted and a
// failed tab is not retried.
type Controller struct {
	extension string
	fetcher   Fetcher
	renderer  chart.Renderer
	page      page.Page
	formatter *format.Formatter
	logger    *slog.Logger

	mu      sync.Mutex
	ctx     context.Context
	entries map[string]*entry
	order   []string
	setup   bool
}

// New creates a Controller for extension.
func New(extension string, deps Deps) *Controller {
	f := deps.Formatter
	if f == nil {
		f = format.Default()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		extension: extension,
		fetcher:   deps.Fetcher,
		renderer:  deps.Renderer,
		page:      deps.Page,
		formatter: f,
		logger:    logger.With("extension", extension),
		ctx:       context.Background(),
		entries:   make(map[string]*entry),
	}
}

// Extension returns the extension the controller charts.
func (c *Controller) Extension() string { return c.extension }

// Setup registers the tab-shown listener and fetches the initially active
// tab right away. Operations started afterwards inherit ctx values but not
// its cancellation. Calling Setup more than once is an error.
func (c *Controller) Setup(ctx context.Context) error {
	c.mu.Lock()
	if c.setup {
		c.mu.Unlock()
		return fmt.Errorf("dashboard for %s is already set up", c.extension)
	}
	c.setup = true
	c.ctx = context.WithoutCancel(ctx)
	c.mu.Unlock()

	c.page.OnTabShown(c.EnsureFetched)

	if active := c.page.ActiveTab(); active != "" {
		c.EnsureFetched(active)
	} else {
		c.logger.Debug("no active tab at setup")
	}
	return nil
}

// EnsureFetched starts the fetch, summary and render of tabID unless it was
// started before. The cache entry is stored before the fetch begins, so
// repeated calls never issue a second request.
func (c *Controller) EnsureFetched(tabID string) {
	if tabID == "" {
		return
	}

	c.mu.Lock()
	if _, ok := c.entries[tabID]; ok {
		c.mu.Unlock()
		return
	}
	e := &entry{done: make(chan struct{})}
	c.entries[tabID] = e
	c.order = append(c.order, tabID)
	ctx := c.ctx
	c.mu.Unlock()

	go c.run(ctx, tabID, e)
}

func (c *Controller) run(ctx context.Context, tabID string, e *entry) {
	defer close(e.done)
	start := time.Now()
	logger := c.logger.With("tab", tabID)

	res, err := c.fetcher.FetchSeries(ctx, c.extension, tabID)
	if err != nil {
		e.err = fmt.Errorf("fetch %s: %w", tabID, err)
		logger.Warn("tab fetch failed", "error", err)
		return
	}

	title := c.page.Title(tabID)
	e.result = TabResult{TabID: tabID, Title: title, Series: res.Series, Latest: res.Latest}

	if res.Latest != nil {
		e.result.Summary = c.formatter.Summary(res.Latest.Value(), title)
		c.page.SetSummary(tabID, e.result.Summary)
	}

	if err := c.renderer.Render(title, page.ContainerID(tabID), res.Series); err != nil {
		e.err = fmt.Errorf("render %s: %w", tabID, err)
		logger.Warn("tab render failed", "error", err)
		return
	}
	e.result.Rendered = true
	logger.Info("tab ready", "versions", len(res.Series), "elapsed_ms", time.Since(start).Milliseconds())
}

// State reports whether tabID has been requested.
func (c *Controller) State(tabID string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[tabID]; ok {
		return Fetched
	}
	return Unfetched
}

// Requested returns the requested tab ids in request order.
func (c *Controller) Requested() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Wait blocks until the operation for tabID completes or ctx is done.
func (c *Controller) Wait(ctx context.Context, tabID string) (TabResult, error) {
	c.mu.Lock()
	e, ok := c.entries[tabID]
	c.mu.Unlock()
	if !ok {
		return TabResult{}, fmt.Errorf("%w: %s", ErrNotRequested, tabID)
	}

	select {
	case <-e.done:
		return e.result, e.err
	case <-ctx.Done():
		return TabResult{}, ctx.Err()
	}
}

// Collect waits for every tab in tabs and assembles the session report.
// Tabs that were never requested are reported without data. A failed tab is
// reported with its error; only ctx cancellation makes Collect fail.
func (c *Controller) Collect(ctx context.Context, tabs []models.Tab) (*models.Dashboard, error) {
	d := &models.Dashboard{
		Extension:   c.extension,
		GeneratedAt: time.Now().UTC(),
		Tabs:        make([]models.TabReport, 0, len(tabs)),
	}

	for _, tab := range tabs {
		tr := models.TabReport{
			ID:          tab.ID,
			Title:       tab.Title,
			Active:      tab.Active,
			ContainerID: page.ContainerID(tab.ID),
		}

		res, err := c.Wait(ctx, tab.ID)
		switch {
		case errors.Is(err, ErrNotRequested):
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			tr.Error = err.Error()
			tr.Summary = res.Summary
			tr.Latest = res.Latest
			tr.Series = res.Series
		default:
			tr.Summary = res.Summary
			tr.Latest = res.Latest
			tr.Series = res.Series
			tr.Rendered = res.Rendered
		}
		d.Tabs = append(d.Tabs, tr)
	}
	return d, nil
}
