package stats

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/user/extstats-go/internal/models"
)

// Layouts tried, in order, when an event time is a string. Strings without a
// zone are read in the local zone, date-only strings as UTC midnight.
var timeLayouts = []struct {
	layout string
	loc    *time.Location
}{
	{time.RFC3339Nano, time.UTC},
	{"2006-01-02T15:04:05.999999999", time.Local},
	{"2006-01-02T15:04", time.Local},
	{"2006-01-02", time.UTC},
}

// EpochMillis converts a raw event time into milliseconds since the epoch.
// Numbers are taken as milliseconds already. Anything unparseable is NaN.
func EpochMillis(raw json.RawMessage) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return math.NaN()
	}

	if raw[0] != '"' {
		var n float64
		if err := json.Unmarshal(raw, &n); err != nil {
			return math.NaN()
		}
		return n
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return math.NaN()
	}
	s = strings.TrimSpace(s)
	for _, l := range timeLayouts {
		if t, err := time.ParseInLocation(l.layout, s, l.loc); err == nil {
			return float64(t.UnixMilli())
		}
	}
	return math.NaN()
}

// ToPoint maps an event to a chart point. The value is installs when it is
// truthy, otherwise total_installed; a zero installs count therefore falls
// through to total_installed.
func ToPoint(e models.EventRecord) models.ChartPoint {
	value := math.NaN()
	switch {
	case truthy(e.Installs):
		value = *e.Installs
	case e.TotalInstalled != nil:
		value = *e.TotalInstalled
	}
	return models.ChartPoint{EpochMillis(e.Time), value}
}

func truthy(v *float64) bool {
	return v != nil && *v != 0 && !math.IsNaN(*v)
}

// BuildSeries turns version records into chart series, one per version, in
// the order received. It also returns the point with the greatest timestamp
// across every version, or nil when there are no events. Ties keep the first
// point seen.
func BuildSeries(versions []models.VersionRecord) ([]models.ChartSeries, *models.ChartPoint) {
	series := make([]models.ChartSeries, 0, len(versions))
	var latest *models.ChartPoint

	for _, v := range versions {
		data := make([]models.ChartPoint, 0, len(v.Events))
		for _, e := range v.Events {
			point := ToPoint(e)
			data = append(data, point)
			if latest == nil || latest[0] < point[0] {
				p := point
				latest = &p
			}
		}
		series = append(series, models.ChartSeries{Name: v.ID, Data: data})
	}
	return series, latest
}
