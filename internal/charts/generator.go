package charts

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/punchout/dashboard/internal/database"
)

const dayLayout = "Jan 02"

// Generator renders run history as embeddable HTML snippets
type Generator struct {
	height string
}

func NewGenerator() *Generator {
	return &Generator{height: "200px"}
}

func (g *Generator) globalOptions(title string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithInitializationOpts(opts.Initialization{
			Height: g.height,
			Width:  "100%",
		}),
	}
}

func days(data []database.DataPoint) []string {
	labels := make([]string, len(data))
	for i, dp := range data {
		labels[i] = dp.Date.Format(dayLayout)
	}
	return labels
}

// SuccessRateChart plots the daily share of successful setup requests
func (g *Generator) SuccessRateChart(data []database.DataPoint) string {
	line := charts.NewLine()
	line.SetGlobalOptions(append(g.globalOptions("PunchOut Success Rate"),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 100}),
	)...)

	rates := make([]opts.LineData, len(data))
	for i, dp := range data {
		rates[i] = opts.LineData{Value: dp.SuccessRate}
	}

	line.SetXAxis(days(data)).
		AddSeries("Success %", rates).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))

	return render(line)
}

// OutcomeChart stacks succeeded and failed runs per day
func (g *Generator) OutcomeChart(data []database.DataPoint) string {
	bar := charts.NewBar()
	bar.SetGlobalOptions(g.globalOptions("Runs per Day")...)

	succeeded := make([]opts.BarData, len(data))
	failed := make([]opts.BarData, len(data))
	for i, dp := range data {
		succeeded[i] = opts.BarData{Value: dp.Succeeded}
		failed[i] = opts.BarData{Value: dp.Total - dp.Succeeded}
	}

	bar.SetXAxis(days(data)).
		AddSeries("Succeeded", succeeded).
		AddSeries("Failed", failed).
		SetSeriesOptions(charts.WithBarChartOpts(opts.BarChart{Stack: "outcome"}))

	return render(bar)
}

// DurationChart plots the daily average setup POST time
func (g *Generator) DurationChart(data []database.DataPoint) string {
	line := charts.NewLine()
	line.SetGlobalOptions(g.globalOptions("Setup Duration (ms)")...)

	avg := make([]opts.LineData, len(data))
	for i, dp := range data {
		avg[i] = opts.LineData{Value: dp.AvgDurationMs}
	}

	line.SetXAxis(days(data)).AddSeries("Average", avg)

	return render(line)
}

// Sparkline draws values as an inline SVG polyline
func (g *Generator) Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	const width, height = 100, 30

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if lo == hi {
		hi = lo + 1
	}

	step := 0.0
	if len(values) > 1 {
		step = float64(width) / float64(len(values)-1)
	}

	points := make([]string, len(values))
	for i, v := range values {
		y := height - (v-lo)/(hi-lo)*height
		points[i] = fmt.Sprintf("%.1f,%.1f", float64(i)*step, y)
	}

	return fmt.Sprintf(`<svg width="%d" height="%d" class="sparkline">`+
		`<polyline points="%s" fill="none" stroke="currentColor" stroke-width="2"/></svg>`,
		width, height, strings.Join(points, " "))
}

// Renderer is implemented by every go-echarts chart
type Renderer interface {
	Render(w io.Writer) error
}

func render(c Renderer) string {
	var buf bytes.Buffer
	if err := c.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}
