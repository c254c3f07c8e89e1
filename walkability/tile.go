package walkability

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/rotisserie/eris"

	"github.com/pdok/walkability/mathhelp"
	"github.com/pdok/walkability/sieve"
)

const (
	// MaxCells caps the number of squares a single tiling may enumerate.
	MaxCells = 4_000_000

	// sliverRatio is the fraction of a full cell below which a clipped area
	// counts as empty. Clipping a concave boundary can leave zero-width edges
	// whose computed area is a rounding residue.
	sliverRatio = 1e-9
)

type tileConfig struct {
	minCellArea float64
}

type TileOption func(*tileConfig)

// WithMinCellArea drops cells whose clipped area is at most a, and holes of at most a.
func WithMinCellArea(a float64) TileOption {
	return func(c *tileConfig) {
		c.minCellArea = a
	}
}

// Tile covers the bounding box of the boundary with squares of cellSize,
// anchored at the box minimum, and clips every square to the boundary.
// Squares that do not overlap the boundary are dropped. Cells are ordered by
// column, then by row.
func Tile(boundary Boundary, cellSize float64, opts ...TileOption) (*Grid, error) {
	cfg := tileConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !mathhelp.IsFinite(cellSize) || cellSize <= 0 {
		return nil, eris.Wrapf(ErrInvalidConfig, "walkability: cell size %v, must be positive", cellSize)
	}
	if !mathhelp.IsFinite(cfg.minCellArea) || cfg.minCellArea < 0 {
		return nil, eris.Wrapf(ErrInvalidConfig, "walkability: minimum cell area %v", cfg.minCellArea)
	}
	if err := boundary.validate(); err != nil {
		return nil, err
	}

	bound := boundary.Geometry.Bound()
	width, height := bound.Max.X()-bound.Min.X(), bound.Max.Y()-bound.Min.Y()
	// the ratios are checked first so the counts cannot overflow an int
	cols, rows := 0, 0
	if width/cellSize <= MaxCells && height/cellSize <= MaxCells {
		cols = mathhelp.StepCount(width, cellSize, mathhelp.DefaultTolerance)
		rows = mathhelp.StepCount(height, cellSize, mathhelp.DefaultTolerance)
	}
	if cols == 0 || rows == 0 || cols*rows > MaxCells {
		return nil, eris.Wrapf(ErrInvalidConfig, "walkability: cell size %v is too small for a %v x %v area", cellSize, width, height)
	}

	geometry := orient(boundary.Geometry)
	polygonBounds := make([]orb.Bound, len(geometry))
	for i, p := range geometry {
		polygonBounds[i] = p.Bound()
	}
	minArea := math.Max(cfg.minCellArea, cellSize*cellSize*sliverRatio)

	grid := &Grid{CRS: boundary.CRS, CellSize: cellSize}
	for col := 0; col < cols; col++ {
		minX := bound.Min.X() + float64(col)*cellSize
		maxX := bound.Min.X() + float64(col+1)*cellSize
		for row := 0; row < rows; row++ {
			square := orb.Bound{
				Min: orb.Point{minX, bound.Min.Y() + float64(row)*cellSize},
				Max: orb.Point{maxX, bound.Min.Y() + float64(row+1)*cellSize},
			}
			clipped := clipToSquare(geometry, polygonBounds, square)
			clipped = sieve.MultiPolygon(clipped, minArea)
			if len(clipped) == 0 {
				continue
			}
			centroid, area := planar.CentroidArea(clipped)
			if area <= minArea {
				continue
			}
			grid.Cells = append(grid.Cells, Cell{
				Col:      col,
				Row:      row,
				Square:   square,
				Geometry: clipped,
				Centroid: centroid,
				Area:     area,
			})
		}
	}
	return grid, nil
}
