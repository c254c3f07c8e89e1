package walkability

import (
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/pdok/walkability/pointindex"
)

// Strategy selects how cell to POI distances are enumerated. Both give
// identical scores.
type Strategy int

const (
	// AllPairs measures every centroid against every POI: O(cells x pois).
	AllPairs Strategy = iota
	// Indexed only measures POIs a quadtree range query returns within the
	// reach of the bands.
	Indexed
)

func (s Strategy) String() string {
	switch s {
	case AllPairs:
		return "all-pairs"
	case Indexed:
		return "indexed"
	}
	return "unknown"
}

func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all-pairs", "allpairs":
		return AllPairs, nil
	case "indexed", "index":
		return Indexed, nil
	}
	return AllPairs, eris.Wrapf(ErrInvalidConfig, "walkability: unknown strategy %q", s)
}

type scoreConfig struct {
	strategy Strategy
	workers  int
}

type ScoreOption func(*scoreConfig)

func WithStrategy(s Strategy) ScoreOption {
	return func(c *scoreConfig) {
		c.strategy = s
	}
}

// WithWorkers scores cells on n goroutines.
func WithWorkers(n int) ScoreOption {
	return func(c *scoreConfig) {
		c.workers = n
	}
}

// Score sets the RawScore of every cell to the sum, over all POIs, of the band
// value of the distance between the cell centroid and the POI. Every POI in
// range counts, not only the nearest one.
func Score(grid *Grid, pois POISet, bands Bands, opts ...ScoreOption) error {
	cfg := scoreConfig{strategy: AllPairs, workers: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	if grid == nil {
		return eris.Wrap(ErrInvalidConfig, "walkability: no grid to score")
	}
	if err := bands.Validate(); err != nil {
		return err
	}
	if cfg.workers < 1 {
		return eris.Wrapf(ErrInvalidConfig, "walkability: %d workers", cfg.workers)
	}
	if err := checkCRS(grid.CRS, pois.CRS); err != nil {
		return err
	}
	if err := pois.validate(); err != nil {
		return err
	}

	var scorer func(buf []int, c orb.Point) ([]int, int)
	points := pois.Points()
	switch cfg.strategy {
	case AllPairs:
		scorer = func(buf []int, c orb.Point) ([]int, int) {
			sum := 0
			for _, p := range points {
				sum += bands.Value(planar.Distance(c, p))
			}
			return buf, sum
		}
	case Indexed:
		index, err := pointindex.New(points)
		if err != nil {
			return eris.Wrap(err, "walkability: index pois")
		}
		reach := bands.Reach()
		scorer = func(buf []int, c orb.Point) ([]int, int) {
			buf = index.Within(buf, c, reach)
			sum := 0
			for _, i := range buf {
				sum += bands.Value(planar.Distance(c, points[i]))
			}
			return buf, sum
		}
	default:
		return eris.Wrapf(ErrInvalidConfig, "walkability: unknown strategy %d", cfg.strategy)
	}

	scoreRange := func(from, to int) {
		var buf []int
		for i := from; i < to; i++ {
			buf, grid.Cells[i].RawScore = scorer(buf, grid.Cells[i].Centroid)
		}
	}

	n := len(grid.Cells)
	if cfg.workers == 1 || n < 2 {
		scoreRange(0, n)
		return nil
	}
	// cells are independent, each goroutine owns a contiguous range
	chunk := (n + cfg.workers - 1) / cfg.workers
	var g errgroup.Group
	g.SetLimit(cfg.workers)
	for from := 0; from < n; from += chunk {
		from := from
		to := min(from+chunk, n)
		g.Go(func() error {
			scoreRange(from, to)
			return nil
		})
	}
	return g.Wait()
}

// DistanceMatrix returns the Euclidean distance between every cell centroid
// (rows) and every POI (columns).
func DistanceMatrix(grid *Grid, pois POISet) [][]float64 {
	if grid == nil {
		return nil
	}
	matrix := make([][]float64, len(grid.Cells))
	for i, cell := range grid.Cells {
		row := make([]float64, len(pois.Items))
		for j, poi := range pois.Items {
			row[j] = planar.Distance(cell.Centroid, poi.Point)
		}
		matrix[i] = row
	}
	return matrix
}
