// Package report summarises scored grids and compares areas.
package report

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strings"

	"github.com/muesli/reflow/padding"
	"github.com/muesli/reflow/truncate"
	"github.com/rotisserie/eris"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap/zapcore"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pdok/walkability/mapslicehelp"
	"github.com/pdok/walkability/walkability"
)

// Summary holds the statistics of the normalised scores of one area. NaN
// scores are left out; an area without scored cells has NaN statistics.
type Summary struct {
	Name   string
	Group  string
	Cells  int
	POIs   int
	Area   float64
	Mean   float64
	Median float64
	Min    float64
	Max    float64
}

func Summarize(name, group string, grid *walkability.Grid, pois int) Summary {
	s := Summary{Name: name, Group: group, POIs: pois, Mean: math.NaN(), Median: math.NaN(), Min: math.NaN(), Max: math.NaN()}
	if grid == nil {
		return s
	}
	s.Cells = grid.Len()
	for _, c := range grid.Cells {
		s.Area += c.Area
	}
	scores := make([]float64, 0, grid.Len())
	for _, v := range grid.NormalizedScores() {
		if !math.IsNaN(v) {
			scores = append(scores, v)
		}
	}
	if len(scores) == 0 {
		return s
	}
	s.Mean = stat.Mean(scores, nil)
	s.Min = floats.Min(scores)
	s.Max = floats.Max(scores)
	s.Median = median(scores)
	return s
}

// median averages the two middle values of an even count, where
// stat.Quantile would pick the lower one.
func median(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func (s Summary) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("name", s.Name)
	if s.Group != "" {
		enc.AddString("group", s.Group)
	}
	enc.AddInt("cells", s.Cells)
	enc.AddInt("pois", s.POIs)
	enc.AddFloat64("area_km2", s.Area/1e6)
	enc.AddFloat64("mean", s.Mean)
	enc.AddFloat64("median", s.Median)
	enc.AddFloat64("min", s.Min)
	enc.AddFloat64("max", s.Max)
	return nil
}

// Results keeps summaries in insertion order, keyed by area name.
type Results struct {
	summaries *orderedmap.OrderedMap[string, Summary]
}

func NewResults() *Results {
	return &Results{summaries: orderedmap.New[string, Summary]()}
}

func (r *Results) Add(s Summary) error {
	if _, present := r.summaries.Get(s.Name); present {
		return eris.Errorf("report: duplicate area %q", s.Name)
	}
	r.summaries.Set(s.Name, s)
	return nil
}

func (r *Results) Len() int {
	return r.summaries.Len()
}

func (r *Results) Names() []string {
	return mapslicehelp.OrderedMapKeys(r.summaries)
}

// Best returns the area with the highest mean score. On a tie the area added
// first wins; ties reports how many areas share the best mean.
func (r *Results) Best() (best Summary, ties uint, ok bool) {
	means := orderedmap.New[string, float64](orderedmap.WithCapacity[string, float64](r.summaries.Len()))
	for p := r.summaries.Oldest(); p != nil; p = p.Next() {
		means.Set(p.Key, p.Value.Mean)
	}
	name, _, ties := mapslicehelp.FindFirstKeyWithMaxValue(means)
	if ties == 0 {
		return Summary{}, 0, false
	}
	return r.summaries.Value(name), ties, true
}

var columns = []struct {
	title string
	width uint
}{
	{"area", 24}, {"group", 14}, {"cells", 8}, {"pois", 8}, {"km2", 10},
	{"mean", 8}, {"median", 8}, {"min", 8}, {"max", 8},
}

// WriteTable writes a fixed width comparison of all areas.
func (r *Results) WriteTable(w io.Writer) error {
	var b strings.Builder
	row := func(cells ...string) {
		for i, c := range cells {
			width := columns[i].width
			b.WriteString(padding.String(truncate.StringWithTail(c, width-1, "…"), width))
		}
		b.WriteString("\n")
	}
	titles := make([]string, len(columns))
	for i, c := range columns {
		titles[i] = c.title
	}
	row(titles...)
	for _, s := range mapslicehelp.OrderedMapValues(r.summaries) {
		row(s.Name, s.Group, fmt.Sprint(s.Cells), fmt.Sprint(s.POIs), fmt.Sprintf("%.2f", s.Area/1e6),
			score(s.Mean), score(s.Median), score(s.Min), score(s.Max))
	}
	_, err := io.WriteString(w, b.String())
	return eris.Wrap(err, "report: write table")
}

func score(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.1f", v)
}
