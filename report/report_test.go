package report

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/pdok/walkability/walkability"
)

func grid(scores ...float64) *walkability.Grid {
	g := &walkability.Grid{CellSize: 500}
	for i, s := range scores {
		g.Cells = append(g.Cells, walkability.Cell{Col: i, Area: 250000, NormalizedScore: s})
	}
	return g
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name   string
		grid   *walkability.Grid
		cells  int
		mean   float64
		median float64
		min    float64
		max    float64
	}{
		{name: "odd count", grid: grid(0, 100, 50), cells: 3, mean: 50, median: 50, min: 0, max: 100},
		{name: "even count", grid: grid(0, 10, 20, 100), cells: 4, mean: 32.5, median: 15, min: 0, max: 100},
		{name: "nan ignored", grid: grid(math.NaN(), 40, 60), cells: 3, mean: 50, median: 50, min: 40, max: 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize("a", "g", tt.grid, 7)
			assert.Equal(t, tt.cells, s.Cells)
			assert.Equal(t, 7, s.POIs)
			assert.InDelta(t, float64(tt.cells)*250000, s.Area, 1e-9)
			assert.InDelta(t, tt.mean, s.Mean, 1e-9)
			assert.InDelta(t, tt.median, s.Median, 1e-9)
			assert.InDelta(t, tt.min, s.Min, 1e-9)
			assert.InDelta(t, tt.max, s.Max, 1e-9)
		})
	}
}

func TestSummarizeEmpty(t *testing.T) {
	for _, g := range []*walkability.Grid{nil, grid(), grid(math.NaN())} {
		s := Summarize("a", "", g, 0)
		assert.True(t, math.IsNaN(s.Mean))
		assert.True(t, math.IsNaN(s.Median))
	}
}

func TestResults(t *testing.T) {
	r := NewResults()
	require.NoError(t, r.Add(Summarize("Amsterdam", "Europe", grid(0, 100), 10)))
	require.NoError(t, r.Add(Summarize("Nairobi", "Africa", grid(20, 100), 4)))
	require.NoError(t, r.Add(Summarize("Lima", "South America", grid(60), 1)))
	require.NoError(t, r.Add(Summarize("Nowhere", "", nil, 0)))
	assert.Error(t, r.Add(Summarize("Lima", "", nil, 0)))

	assert.Equal(t, 4, r.Len())
	assert.Equal(t, []string{"Amsterdam", "Nairobi", "Lima", "Nowhere"}, r.Names())

	best, ties, ok := r.Best()
	require.True(t, ok)
	assert.Equal(t, "Nairobi", best.Name)
	assert.Equal(t, uint(2), ties)

	// the rejected duplicate leaves the first Lima in place
	var b strings.Builder
	require.NoError(t, r.WriteTable(&b))
	assert.Contains(t, b.String(), "South America")

	_, _, ok = NewResults().Best()
	assert.False(t, ok)
}

func TestWriteTable(t *testing.T) {
	r := NewResults()
	require.NoError(t, r.Add(Summarize("A city with a very long name indeed", "Europe", grid(0, 100), 10)))
	require.NoError(t, r.Add(Summarize("Empty", "", nil, 0)))

	var b strings.Builder
	require.NoError(t, r.WriteTable(&b))
	lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "area"))
	assert.Contains(t, lines[1], "A city with a very lon…")
	assert.Contains(t, lines[1], "50.0")
	assert.Contains(t, lines[2], "-")
	assert.Equal(t, len([]rune(lines[0])), len([]rune(lines[1])))
}

func TestSummaryLogObject(t *testing.T) {
	enc := zapcore.NewMapObjectEncoder()
	require.NoError(t, Summarize("Lima", "South America", grid(60), 1).MarshalLogObject(enc))
	assert.Equal(t, "Lima", enc.Fields["name"])
	assert.Equal(t, 1, enc.Fields["cells"])
	assert.Equal(t, 60.0, enc.Fields["mean"])
}
