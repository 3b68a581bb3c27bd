package chart

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/color"
	"math"
	"sync"

	"github.com/user/extstats-go/internal/models"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Renderer draws the series of one tab into the named container.
type Renderer interface {
	Render(title, containerID string, series []models.ChartSeries) error
}

// Default image size.
const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

// palette cycles through series colors.
var palette = []color.RGBA{
	{R: 0x7c, G: 0xb5, B: 0xec, A: 0xff},
	{R: 0x43, G: 0x43, B: 0x48, A: 0xff},
	{R: 0x90, G: 0xed, B: 0x7d, A: 0xff},
	{R: 0xf7, G: 0xa3, B: 0x5c, A: 0xff},
	{R: 0x80, G: 0x85, B: 0xe9, A: 0xff},
	{R: 0xf1, G: 0x5c, B: 0x80, A: 0xff},
	{R: 0xe4, G: 0xd3, B: 0x54, A: 0xff},
	{R: 0x2b, G: 0x90, B: 0x8f, A: 0xff},
	{R: 0xf4, G: 0x5b, B: 0x5b, A: 0xff},
	{R: 0x91, G: 0xe8, B: 0xe1, A: 0xff},
}

var zeroLineColor = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}

// PNGRenderer renders charts to PNG images kept in memory by container id.
type PNGRenderer struct {
	Width  vg.Length
	Height vg.Length

	mu     sync.RWMutex
	images map[string][]byte
}

// NewPNGRenderer creates a renderer producing width x height images.
// Zero sizes fall back to the defaults.
func NewPNGRenderer(width, height vg.Length) *PNGRenderer {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &PNGRenderer{Width: width, Height: height, images: make(map[string][]byte)}
}

// Render builds the plot and stores it as the image for containerID,
// replacing any previous one.
func (r *PNGRenderer) Render(title, containerID string, series []models.ChartSeries) error {
	p, err := NewTimeSeriesPlot(title, series)
	if err != nil {
		return err
	}

	writer, err := p.WriterTo(r.Width, r.Height, "png")
	if err != nil {
		return fmt.Errorf("failed to create plot writer for %s: %w", containerID, err)
	}
	var buf bytes.Buffer
	if _, err := writer.WriteTo(&buf); err != nil {
		return fmt.Errorf("failed to write plot for %s: %w", containerID, err)
	}

	r.mu.Lock()
	r.images[containerID] = buf.Bytes()
	r.mu.Unlock()
	return nil
}

// Image returns the PNG rendered into containerID.
func (r *PNGRenderer) Image(containerID string) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	img, ok := r.images[containerID]
	return img, ok
}

// Base64 returns the image for containerID base64 encoded, or "" if nothing
// was rendered there.
func (r *PNGRenderer) Base64(containerID string) string {
	img, ok := r.Image(containerID)
	if !ok {
		return ""
	}
	return base64.StdEncoding.EncodeToString(img)
}

// NewTimeSeriesPlot creates a filled line plot with a UTC date axis and a
// y axis that never goes below zero. Series keep their order; points with a
// NaN coordinate are skipped. No legend is drawn.
func NewTimeSeriesPlot(title string, series []models.ChartSeries) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = title
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02", Time: plot.UTCUnixTime}
	p.Add(plotter.NewGrid())

	for i, s := range series {
		pts := toXYs(s.Data)
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to create line for series %q: %w", s.Name, err)
		}
		c := palette[i%len(palette)]
		line.Color = c
		line.Width = vg.Points(1)
		line.FillColor = color.RGBA{R: c.R, G: c.G, B: c.B, A: 0x40}
		p.Add(line)
	}

	zero := plotter.NewFunction(func(float64) float64 { return 0 })
	zero.Color = zeroLineColor
	zero.Width = vg.Points(1)
	p.Add(zero)

	if p.Y.Min < 0 {
		p.Y.Min = 0
	}
	return p, nil
}

// toXYs converts millisecond timestamps to the seconds used by plot.TimeTicks.
func toXYs(data []models.ChartPoint) plotter.XYs {
	pts := make(plotter.XYs, 0, len(data))
	for _, pt := range data {
		x, y := pt.Time(), pt.Value()
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: x / 1000, Y: y})
	}
	return pts
}
