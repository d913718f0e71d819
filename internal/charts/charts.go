// Package charts renders the dashboard's three charts with go-chart.
package charts

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gagyebu/internal/core"

	"github.com/golang/freetype/truetype"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoData means there is nothing to plot.
var ErrNoData = errors.New("no chart data")

// Chart titles.
const (
	TitleCategory = "분류별 지출 비중"
	TitleTopItems = "항목별 지출 TOP 10"
	TitleDaily    = "날짜별 지출 추이"
)

type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// ParseFormat accepts svg or png, case-insensitive.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatSVG, FormatPNG:
		return f, nil
	case "":
		return FormatSVG, nil
	}
	return "", fmt.Errorf("unknown chart format %q", s)
}

// ContentType is the MIME type of rendered output.
func (f Format) ContentType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/svg+xml"
}

func (f Format) provider() chart.RendererProvider {
	if f == FormatPNG {
		return chart.PNG
	}
	return chart.SVG
}

// Renderer draws charts at a fixed size. Font is optional; the built-in
// font has no Hangul glyphs, so Korean labels need one.
type Renderer struct {
	Format Format
	Font   *truetype.Font
	Width  int
	Height int
}

func NewRenderer(format Format, font *truetype.Font) *Renderer {
	return &Renderer{Format: format, Font: font, Width: 800, Height: 450}
}

// LoadFont reads a TrueType font file.
func LoadFont(path string) (*truetype.Font, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	f, err := truetype.Parse(b)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	return f, nil
}

var background = chart.Style{
	Padding:   chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
	FillColor: chart.ColorWhite,
}

// CategoryPie draws each category's share of expenses. Non-positive totals
// cannot be drawn as slices and are skipped.
func (r *Renderer) CategoryPie(w io.Writer, data []core.CategoryAmount) error {
	values := make([]chart.Value, 0, len(data))
	for _, c := range data {
		v := c.Amount.InexactFloat64()
		if v <= 0 {
			continue
		}
		values = append(values, chart.Value{Label: c.Name, Value: v})
	}
	if len(values) == 0 {
		return ErrNoData
	}

	pie := chart.PieChart{
		Title:      TitleCategory,
		Font:       r.Font,
		Width:      r.Width,
		Height:     r.Height,
		Values:     values,
		Background: background,
	}
	if err := pie.Render(r.Format.provider(), w); err != nil {
		return fmt.Errorf("render category pie: %w", err)
	}
	return nil
}

// TopItemsBar draws the item ranking in the given order, shading larger
// totals darker.
func (r *Renderer) TopItemsBar(w io.Writer, data []core.CategoryAmount) error {
	if len(data) == 0 {
		return ErrNoData
	}
	maxV := 0.0
	for _, c := range data {
		maxV = max(maxV, c.Amount.InexactFloat64())
	}
	if maxV <= 0 {
		return ErrNoData
	}

	bars := make([]chart.Value, 0, len(data))
	for _, c := range data {
		v := c.Amount.InexactFloat64()
		shade := blues(v / maxV)
		bars = append(bars, chart.Value{
			Label: c.Name,
			Value: v,
			Style: chart.Style{FillColor: shade, StrokeColor: shade},
		})
	}

	bar := chart.BarChart{
		Title:      TitleTopItems,
		Font:       r.Font,
		Width:      r.Width,
		Height:     r.Height,
		BarWidth:   max(10, r.Width/(2*len(bars)+2)),
		Background: background,
		YAxis: chart.YAxis{
			Range:          &chart.ContinuousRange{Min: 0, Max: maxV * 1.1},
			ValueFormatter: wonFormatter,
		},
		Bars: bars,
	}
	if err := bar.Render(r.Format.provider(), w); err != nil {
		return fmt.Errorf("render top items bar: %w", err)
	}
	return nil
}

// DailyLine draws expense per day. A trend needs at least two days.
func (r *Renderer) DailyLine(w io.Writer, data []core.DateAmount) error {
	if len(data) < 2 {
		return ErrNoData
	}
	xs := make([]time.Time, len(data))
	ys := make([]float64, len(data))
	maxV := 0.0
	for i, d := range data {
		xs[i] = d.Date
		ys[i] = d.Amount.InexactFloat64()
		maxV = max(maxV, ys[i])
	}
	if maxV <= 0 {
		maxV = 1
	}

	graph := chart.Chart{
		Title:      TitleDaily,
		Font:       r.Font,
		Width:      r.Width,
		Height:     r.Height,
		Background: background,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("01-02"),
		},
		YAxis: chart.YAxis{
			Range:          &chart.ContinuousRange{Min: 0, Max: maxV * 1.1},
			ValueFormatter: wonFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "지출",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: chart.ColorBlue,
					StrokeWidth: 2,
				},
			},
		},
	}
	if err := graph.Render(r.Format.provider(), w); err != nil {
		return fmt.Errorf("render daily line: %w", err)
	}
	return nil
}

func wonFormatter(v interface{}) string {
	f, ok := v.(float64)
	if !ok {
		return ""
	}
	return core.GroupThousands(fmt.Sprintf("%.0f", f))
}

// blues maps t in [0,1] from a pale to a deep blue.
func blues(t float64) drawing.Color {
	t = min(max(t, 0), 1)
	lerp := func(a, b uint8) uint8 { return uint8(float64(a) + (float64(b)-float64(a))*t) }
	return drawing.Color{R: lerp(198, 8), G: lerp(219, 48), B: lerp(239, 107), A: 255}
}
