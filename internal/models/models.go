package models

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// VersionRecord is one software version as reported by the statistics endpoint.
type VersionRecord struct {
	ID     string        `json:"_id"`
	Events []EventRecord `json:"events"`
}

// EventRecord is a single observation for a version. Only the columns
// requested through the stats query are present; the rest stay nil.
type EventRecord struct {
	Time            json.RawMessage `json:"time,omitempty"` // ISO-8601 string or epoch millis
	Installs        *float64        `json:"installs,omitempty"`
	TotalInstalled  *float64        `json:"total_installed,omitempty"`
	Delta           *float64        `json:"delta,omitempty"`
	Updates         *float64        `json:"updates,omitempty"`
	OnpremDownloads *float64        `json:"onpremDownloads,omitempty"`
}

// ChartPoint is a [timestampMillis, value] pair. Missing data is NaN.
type ChartPoint [2]float64

// Time returns the point timestamp in milliseconds since the epoch.
func (p ChartPoint) Time() float64 { return p[0] }

// Value returns the point value.
func (p ChartPoint) Value() float64 { return p[1] }

// MarshalJSON encodes the point as a two element array, writing null for
// NaN or infinite components.
func (p ChartPoint) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 32)
	buf = append(buf, '[')
	buf = appendJSONFloat(buf, p[0])
	buf = append(buf, ',')
	buf = appendJSONFloat(buf, p[1])
	buf = append(buf, ']')
	return buf, nil
}

// UnmarshalJSON accepts the array form written by MarshalJSON.
func (p *ChartPoint) UnmarshalJSON(data []byte) error {
	var raw [2]*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for i, v := range raw {
		if v == nil {
			p[i] = math.NaN()
		} else {
			p[i] = *v
		}
	}
	return nil
}

func appendJSONFloat(buf []byte, f float64) []byte {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return append(buf, "null"...)
	}
	return strconv.AppendFloat(buf, f, 'f', -1, 64)
}

// ChartSeries is one named line on a chart, one per version.
type ChartSeries struct {
	Name string       `json:"name"`
	Data []ChartPoint `json:"data"`
}

// Tab describes one statistics panel of the dashboard.
type Tab struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Active bool   `json:"active"`
}

// Dashboard is the collected state of one dashboard session.
type Dashboard struct {
	Extension   string      `json:"extension"`
	GeneratedAt time.Time   `json:"generated_at"`
	Tabs        []TabReport `json:"tabs"`
}

// TabReport holds everything produced for a single tab.
type TabReport struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Active      bool          `json:"active"`
	ContainerID string        `json:"container_id"`
	Summary     string        `json:"summary,omitempty"`
	Latest      *ChartPoint   `json:"latest,omitempty"`
	Series      []ChartSeries `json:"series"`
	Rendered    bool          `json:"rendered"`
	Error       string        `json:"error,omitempty"`
}

// Points returns the total number of points across all series.
func (t TabReport) Points() int {
	n := 0
	for _, s := range t.Series {
		n += len(s.Data)
	}
	return n
}
