package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/user/extstats-go/internal/chart"
	"github.com/user/extstats-go/internal/config"
	"github.com/user/extstats-go/internal/dashboard"
	"github.com/user/extstats-go/internal/format"
	"github.com/user/extstats-go/internal/models"
	"github.com/user/extstats-go/internal/page"
	"github.com/user/extstats-go/internal/report"
	"github.com/user/extstats-go/internal/stats"
	"gonum.org/v1/plot/vg"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Used for flags.
	baseURL        string
	logLevel       string
	outputFilePath string
	reportFormat   string
	tabIDs         []string
	activeTab      string
	showAllTabs    bool

	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "extstats",
		Short: "extstats charts installation statistics of an extension.",
		Long: `A tool that loads per-version installation statistics of an extension
from a statistics endpoint, charts every statistics tab and writes the
resulting dashboard as an HTML, JSON or CSV report.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg = loaded
			if cmd.Flags().Changed("base-url") {
				cfg.BaseURL = baseURL
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = strings.ToLower(logLevel)
			}
			return setupLogger(cfg.LogLevel, cfg.LogFile)
		},
	}

	chartsCmd = &cobra.Command{
		Use:   "charts [EXTENSION]",
		Short: "Charts every statistics tab of an extension and writes a report.",
		Long: `Runs one dashboard session for EXTENSION: the active tab is loaded first,
then every other tab is shown in turn (unless --all=false). Each tab is
fetched once, summarized and charted, and the dashboard is written in the
requested format.`,
		Args: cobra.ExactArgs(1),
		RunE: runCharts,
	}

	seriesCmd = &cobra.Command{
		Use:   "series [EXTENSION] [TAB]",
		Short: "Prints the chart series of one statistics tab as JSON.",
		Args:  cobra.ExactArgs(2),
		RunE:  runSeries,
	}
)

func runCharts(cmd *cobra.Command, args []string) error {
	extension := args[0]

	tabs, err := buildTabs(tabIDs, activeTab)
	if err != nil {
		return err
	}

	adapterFormat := strings.ToLower(reportFormat)
	renderer := chart.NewPNGRenderer(vg.Points(float64(cfg.ChartWidthPt)), vg.Points(float64(cfg.ChartHeightPt)))
	adapter, err := report.NewAdapter(adapterFormat, renderer)
	if err != nil {
		return err
	}

	if outputFilePath == "" {
		outputFilePath = fmt.Sprintf("%s-stats.%s", extension, adapterFormat)
	}
	absOutputFilePath, err := filepath.Abs(outputFilePath)
	if err != nil {
		return fmt.Errorf("invalid output file path '%s': %w", outputFilePath, err)
	}

	client, err := stats.NewClient(cfg.BaseURL, http.DefaultClient)
	if err != nil {
		return err
	}

	pg := page.NewStatic(tabs)
	ctrl := dashboard.New(extension, dashboard.Deps{
		Fetcher:   client,
		Renderer:  renderer,
		Page:      pg,
		Formatter: format.Default(),
		Logger:    slog.Default(),
	})

	ctx := cmd.Context()
	slog.Info("dashboard session started", "extension", extension, "base_url", cfg.BaseURL, "active_tab", pg.ActiveTab())
	if err := ctrl.Setup(ctx); err != nil {
		return err
	}
	if showAllTabs {
		for _, tab := range tabs {
			if err := pg.Show(tab.ID); err != nil {
				return err
			}
		}
	}

	data, err := ctrl.Collect(ctx, tabs)
	if err != nil {
		return fmt.Errorf("failed to collect dashboard for %s: %w", extension, err)
	}
	requested := ctrl.Requested()
	for _, tab := range data.Tabs {
		switch {
		case tab.Error != "":
			fmt.Printf("%-16s failed: %s\n", tab.ID, tab.Error)
		case tab.Summary != "":
			fmt.Printf("%-16s %s\n", tab.ID, tab.Summary)
		case !slices.Contains(requested, tab.ID):
			fmt.Printf("%-16s not loaded\n", tab.ID)
		default:
			fmt.Printf("%-16s no data\n", tab.ID)
		}
	}

	if err := adapter.PrepareData(data); err != nil {
		return fmt.Errorf("failed to prepare %s report data: %w", adapterFormat, err)
	}
	if err := adapter.Write(absOutputFilePath); err != nil {
		return fmt.Errorf("failed to write %s report to %s: %w", adapterFormat, absOutputFilePath, err)
	}
	fmt.Printf("%s report generated successfully: %s\n", strings.ToUpper(adapterFormat), absOutputFilePath)
	return nil
}

func runSeries(cmd *cobra.Command, args []string) error {
	extension, tab := args[0], args[1]
	if err := stats.ValidateColumn(tab); err != nil {
		return err
	}

	client, err := stats.NewClient(cfg.BaseURL, http.DefaultClient)
	if err != nil {
		return err
	}
	res, err := client.FetchSeries(cmd.Context(), extension, tab)
	if err != nil {
		return fmt.Errorf("failed to fetch %s statistics for %s: %w", tab, extension, err)
	}

	out, err := json.MarshalIndent(res.Series, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal series: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	if res.Latest != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), format.Default().Summary(res.Latest.Value(), stats.DefaultTitle(tab)))
	}
	return nil
}

// buildTabs validates the requested tab ids, drops duplicates and marks the
// active one. An empty active id selects the first tab.
func buildTabs(ids []string, active string) ([]models.Tab, error) {
	var tabs []models.Tab
	seen := make(map[string]bool)
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if seen[id] {
			continue
		}
		if err := stats.ValidateColumn(id); err != nil {
			return nil, err
		}
		seen[id] = true
		tabs = append(tabs, models.Tab{ID: id, Title: stats.DefaultTitle(id)})
	}
	if len(tabs) == 0 {
		return nil, fmt.Errorf("at least one --tab is required")
	}

	if active == "" {
		active = tabs[0].ID
	}
	if !seen[active] {
		return nil, fmt.Errorf("active tab %q is not one of the requested tabs", active)
	}
	for i := range tabs {
		tabs[i].Active = tabs[i].ID == active
	}
	return tabs, nil
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    10,
		MaxBackups: 5,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stderr, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Statistics endpoint root (overrides EXTSTATS_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides EXTSTATS_LOG_LEVEL)")

	chartsCmd.Flags().StringSliceVar(&tabIDs, "tab", []string{"installs", "total_installed"}, "Statistics tab to chart (repeatable)")
	chartsCmd.Flags().StringVar(&activeTab, "active", "", "Initially active tab (default: first tab)")
	chartsCmd.Flags().BoolVar(&showAllTabs, "all", true, "Show every tab, not only the active one")
	chartsCmd.Flags().StringVarP(&reportFormat, "format", "f", "html", "Report format: html, json or csv")
	chartsCmd.Flags().StringVarP(&outputFilePath, "output-file-path", "o", "", "Output file path for the report")

	rootCmd.AddCommand(chartsCmd)
	rootCmd.AddCommand(seriesCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
