package report

import (
	"bytes"
	"embed"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/user/extstats-go/internal/models"
)

//go:embed templates/dashboard.html.tmpl
var templateFS embed.FS

// ReportAdapter defines the interface for generating different report formats.
type ReportAdapter interface {
	PrepareData(data *models.Dashboard) error
	Write(outputFilePath string) error
}

// ChartSource supplies rendered chart images by container id.
type ChartSource interface {
	Base64(containerID string) string
}

// Formats lists the supported report formats.
var Formats = []string{"html", "json", "csv"}

// NewAdapter returns the adapter for format. charts is only used by HTML.
func NewAdapter(format string, charts ChartSource) (ReportAdapter, error) {
	switch format {
	case "html":
		return &HTMLReportAdapter{Charts: charts}, nil
	case "json":
		return &JSONReportAdapter{}, nil
	case "csv":
		return &CSVReportAdapter{}, nil
	default:
		return nil, fmt.Errorf("invalid report format '%s'. Must be one of %v", format, Formats)
	}
}

func writeFile(outputFilePath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(outputFilePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory for report file %s: %w", outputFilePath, err)
	}
	return os.WriteFile(outputFilePath, data, 0644)
}

// --- JSON Report Adapter ---

// JSONReportAdapter writes the dashboard as indented JSON.
type JSONReportAdapter struct {
	reportData []byte
}

// PrepareData marshals the dashboard. NaN values are written as null.
func (jra *JSONReportAdapter) PrepareData(data *models.Dashboard) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dashboard to JSON: %w", err)
	}
	jra.reportData = jsonData
	return nil
}

func (jra *JSONReportAdapter) Write(outputFilePath string) error {
	return writeFile(outputFilePath, jra.reportData)
}

// --- CSV Report Adapter ---

// CSVReportAdapter writes one row per chart point: tab, version, time, value.
type CSVReportAdapter struct {
	buf bytes.Buffer
}

func (cra *CSVReportAdapter) PrepareData(data *models.Dashboard) error {
	cra.buf.Reset()
	w := csv.NewWriter(&cra.buf)
	if err := w.Write([]string{"tab", "version", "time", "value"}); err != nil {
		return err
	}
	for _, tab := range data.Tabs {
		for _, s := range tab.Series {
			for _, p := range s.Data {
				row := []string{tab.ID, s.Name, csvTime(p.Time()), csvFloat(p.Value())}
				if err := w.Write(row); err != nil {
					return fmt.Errorf("failed to write CSV row for %s/%s: %w", tab.ID, s.Name, err)
				}
			}
		}
	}
	w.Flush()
	return w.Error()
}

func (cra *CSVReportAdapter) Write(outputFilePath string) error {
	return writeFile(outputFilePath, cra.buf.Bytes())
}

func csvTime(ms float64) string {
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return ""
	}
	return time.UnixMilli(int64(ms)).UTC().Format(time.RFC3339Nano)
}

func csvFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// --- HTML Report Adapter ---

// HTMLReportAdapter renders the dashboard as a single HTML page with one
// section per tab, its summary label and its chart image.
type HTMLReportAdapter struct {
	Charts ChartSource

	reportBuf bytes.Buffer
}

type htmlTab struct {
	models.TabReport
	Chart string
}

func (hra *HTMLReportAdapter) PrepareData(data *models.Dashboard) error {
	funcMap := template.FuncMap{
		"FormatDateTime": func(t time.Time) string {
			return t.Format("2006-01-02 15:04:05 MST")
		},
		"FormatMillis": csvTime,
		"DataURI": func(b64 string) template.URL {
			return template.URL("data:image/png;base64," + b64)
		},
	}

	tmpl, err := template.New("dashboard.html.tmpl").Funcs(funcMap).ParseFS(templateFS, "templates/dashboard.html.tmpl")
	if err != nil {
		return fmt.Errorf("failed to parse HTML template: %w", err)
	}

	tabs := make([]htmlTab, 0, len(data.Tabs))
	for _, t := range data.Tabs {
		ht := htmlTab{TabReport: t}
		if hra.Charts != nil && t.Rendered {
			ht.Chart = hra.Charts.Base64(t.ContainerID)
		}
		tabs = append(tabs, ht)
	}

	templateData := struct {
		Data *models.Dashboard
		Tabs []htmlTab
	}{
		Data: data,
		Tabs: tabs,
	}

	hra.reportBuf.Reset()
	if err := tmpl.Execute(&hra.reportBuf, templateData); err != nil {
		return fmt.Errorf("failed to execute HTML template: %w", err)
	}
	return nil
}

func (hra *HTMLReportAdapter) Write(outputFilePath string) error {
	return writeFile(outputFilePath, hra.reportBuf.Bytes())
}
