package charts

import (
	"strings"
	"testing"
	"time"

	"github.com/punchout/dashboard/internal/database"
	"github.com/stretchr/testify/assert"
)

func TestCharts(t *testing.T) {
	g := NewGenerator()
	data := []database.DataPoint{
		{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Total: 4, Succeeded: 3, SuccessRate: 75, AvgDurationMs: 120},
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Total: 2, Succeeded: 2, SuccessRate: 100, AvgDurationMs: 90},
	}

	line := g.SuccessRateChart(data)
	assert.Contains(t, line, "PunchOut Success Rate")
	assert.Contains(t, line, "Jan 02")

	duration := g.DurationChart(data)
	assert.Contains(t, duration, "Setup Duration (ms)")

	outcome := g.OutcomeChart(data)
	assert.Contains(t, outcome, "Runs per Day")
	assert.Contains(t, outcome, "Failed")
}

func TestSparkline(t *testing.T) {
	g := NewGenerator()
	assert.Empty(t, g.Sparkline(nil))

	svg := g.Sparkline([]float64{10, 20, 30})
	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.Contains(t, svg, `points="0.0,30.0 50.0,15.0 100.0,0.0"`)

	single := g.Sparkline([]float64{5})
	assert.Contains(t, single, `points="0.0,30.0"`)
	assert.NotContains(t, single, "NaN")
}
