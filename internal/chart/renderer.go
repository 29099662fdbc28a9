package chart

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"pollpulse/internal/poll"
	"pollpulse/internal/trend"
)

// Default and limit dimensions for rendered charts, in pixels.
const (
	DefaultWidth  = 1000
	DefaultHeight = 540
	MinWidth      = 320
	MinHeight     = 200
	MaxWidth      = 2400
	MaxHeight     = 1400
)

// The y-axis window is padded beyond [0, 100] so lines touching either
// extreme stay visible instead of hugging the plot border.
const (
	axisMin = -4.0
	axisMax = 104.0
)

var (
	colorApprove    = drawing.Color{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff}
	colorDisapprove = drawing.Color{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
)

// Options controls a single render. Zero values fall back to defaults.
type Options struct {
	Title  string
	Width  int
	Height int
}

// Renderer draws trend series sets as PNG line charts.
type Renderer struct {
	logger *slog.Logger
}

// NewRenderer creates a Renderer with the given logger.
func NewRenderer(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		logger: logger.With(slog.String("component", "chart_renderer")),
	}
}

// RenderPNG draws the series set as a PNG line chart: per-pollster series as
// faint dashed lines, the raw average as a medium solid line and the smoothed
// trend as a thick solid line, with a date x-axis and a percentage y-axis.
// An empty set renders a blank placeholder image rather than failing, so
// image tags always resolve.
func (r *Renderer) RenderPNG(w io.Writer, set *trend.SeriesSet, opts Options) error {
	width, height := normalizeSize(opts.Width, opts.Height)

	series := buildSeries(set)
	if len(series) == 0 {
		r.logger.Warn("no drawable series, rendering placeholder",
			slog.Int("width", width),
			slog.Int("height", height))
		return png.Encode(w, placeholder(width, height))
	}

	ch := gochart.Chart{
		Title:  opts.Title,
		Width:  width,
		Height: height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 16, Left: 16, Right: 16, Bottom: 32},
		},
		XAxis: gochart.XAxis{
			ValueFormatter: gochart.TimeValueFormatterWithFormat(poll.DateLayout),
		},
		YAxis: gochart.YAxis{
			Name:  "%",
			Range: &gochart.ContinuousRange{Min: axisMin, Max: axisMax},
			Ticks: percentTicks(),
		},
		Series: series,
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}

	if err := ch.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// buildSeries converts drawable trend series into go-chart time series,
// preserving order so combined lines draw on top of individual ones.
func buildSeries(set *trend.SeriesSet) []gochart.Series {
	if set == nil {
		return nil
	}
	multi := metricCount(set) > 1

	out := make([]gochart.Series, 0, len(set.Series))
	for _, s := range set.Series {
		if len(s.Points) == 0 {
			continue
		}
		xs := make([]time.Time, 0, len(s.Points))
		ys := make([]float64, 0, len(s.Points))
		for _, p := range s.Points {
			xs = append(xs, p.Date)
			ys = append(ys, p.Value)
		}
		// go-chart cannot draw a zero-width x-range, so a lone point
		// becomes a flat one-day segment.
		if len(xs) == 1 {
			xs = append(xs, xs[0].Add(24*time.Hour))
			ys = append(ys, ys[0])
		}
		out = append(out, gochart.TimeSeries{
			Name:    legendName(s, multi),
			XValues: xs,
			YValues: ys,
			Style:   seriesStyle(s.Role, s.Metric),
		})
	}
	return out
}

func seriesStyle(role trend.Role, metric trend.Metric) gochart.Style {
	base := metricColor(metric)
	switch role {
	case trend.RoleIndividual:
		return gochart.Style{
			StrokeColor:     base.WithAlpha(70),
			StrokeWidth:     1.0,
			StrokeDashArray: []float64{4.0, 4.0},
		}
	case trend.RoleRawAverage:
		return gochart.Style{
			StrokeColor: base.WithAlpha(150),
			StrokeWidth: 1.75,
		}
	default:
		return gochart.Style{
			StrokeColor: base,
			StrokeWidth: 3.0,
		}
	}
}

func metricColor(m trend.Metric) drawing.Color {
	if m == trend.MetricDisapprove {
		return colorDisapprove
	}
	return colorApprove
}

// legendName disambiguates series names when both metrics share one chart.
func legendName(s trend.Series, multi bool) string {
	if !multi {
		return s.Name
	}
	return metricLabel(s.Metric) + " " + s.Name
}

func metricLabel(m trend.Metric) string {
	if m == trend.MetricDisapprove {
		return "Disapprove"
	}
	return "Approve"
}

func metricCount(set *trend.SeriesSet) int {
	seen := make(map[trend.Metric]struct{}, 2)
	for _, s := range set.Series {
		seen[s.Metric] = struct{}{}
	}
	return len(seen)
}

func percentTicks() []gochart.Tick {
	return []gochart.Tick{
		{Value: 0, Label: "0"},
		{Value: 25, Label: "25"},
		{Value: 50, Label: "50"},
		{Value: 75, Label: "75"},
		{Value: 100, Label: "100"},
	}
}

func normalizeSize(width, height int) (int, int) {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	width = clamp(width, MinWidth, MaxWidth)
	height = clamp(height, MinHeight, MaxHeight)
	return width, height
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func placeholder(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
		}
	}
	return img
}
