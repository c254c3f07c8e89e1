package walkability

import (
	"math"
	"sort"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTile_FourCells(t *testing.T) {
	grid, err := Tile(squareBoundary(1000), 500)
	require.NoError(t, err)
	require.Len(t, grid.Cells, 4)

	want := []struct {
		col, row int
		centroid orb.Point
	}{
		{0, 0, orb.Point{250, 250}},
		{0, 1, orb.Point{250, 750}},
		{1, 0, orb.Point{750, 250}},
		{1, 1, orb.Point{750, 750}},
	}
	for i, w := range want {
		c := grid.Cells[i]
		assert.Equal(t, w.col, c.Col)
		assert.Equal(t, w.row, c.Row)
		assert.InDelta(t, w.centroid.X(), c.Centroid.X(), 1e-9)
		assert.InDelta(t, w.centroid.Y(), c.Centroid.Y(), 1e-9)
		assert.InDelta(t, 250000, c.Area, 1e-6)
	}
	assert.Equal(t, rd, grid.CRS)
	assert.Equal(t, 500.0, grid.CellSize)
}

func TestTile_CellCounts(t *testing.T) {
	tests := []struct {
		name     string
		boundary orb.Ring
		cellSize float64
		want     int
	}{
		{name: "exact multiple far from origin", boundary: rect(123456.789, 456789.123, 125956.789, 458289.123), cellSize: 500, want: 15},
		{name: "overhanging column and row", boundary: rect(0, 0, 1200, 1000), cellSize: 500, want: 6},
		{name: "cell larger than boundary", boundary: rect(10, 10, 60, 40), cellSize: 500, want: 1},
		{name: "fractional cell size", boundary: rect(0, 0, 0.3, 0.3), cellSize: 0.1, want: 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grid, err := Tile(Boundary{CRS: rd, Geometry: orb.MultiPolygon{{tt.boundary}}}, tt.cellSize)
			require.NoError(t, err)
			assert.Len(t, grid.Cells, tt.want)
		})
	}
}

func TestTile_OverhangIsClipped(t *testing.T) {
	grid, err := Tile(Boundary{CRS: rd, Geometry: orb.MultiPolygon{{rect(0, 0, 1200, 1000)}}}, 500)
	require.NoError(t, err)
	last := grid.Cells[len(grid.Cells)-1]
	assert.Equal(t, 2, last.Col)
	assert.Equal(t, 1, last.Row)
	assert.InDelta(t, 1500, last.Square.Max.X(), 1e-9)
	assert.InDelta(t, 200*500, last.Area, 1e-6)
	assert.InDelta(t, 1100, last.Centroid.X(), 1e-9)
}

func TestTile_ContainedInBoundary(t *testing.T) {
	triangle := Boundary{CRS: rd, Geometry: orb.MultiPolygon{{{{0, 0}, {2000, 0}, {0, 1500}, {0, 0}}}}}
	grid, err := Tile(triangle, 300)
	require.NoError(t, err)

	// half-plane test with a rounding margin, clipped vertices land on the hypotenuse
	inside := func(p orb.Point) bool {
		return p.X() >= -1e-9 && p.Y() >= -1e-9 && p.X()/2000+p.Y()/1500 <= 1+1e-9
	}
	total := 0.
	for _, c := range grid.Cells {
		total += c.Area
		assert.LessOrEqual(t, c.Area, 300*300+1e-6)
		assert.True(t, inside(c.Centroid), "centroid %v outside", c.Centroid)
		for _, p := range c.Geometry {
			for _, r := range p {
				for _, pt := range r {
					assert.True(t, inside(pt), "vertex %v outside", pt)
				}
			}
		}
	}
	assert.True(t, planar.MultiPolygonContains(triangle.Geometry, grid.Cells[0].Centroid))
	assert.InDelta(t, triangle.Area(), total, 1e-3)

	// a diagonal edge pulls the centroid of a boundary cell off the square centre
	for _, c := range grid.Cells {
		if c.Area < 300*300-1e-6 {
			assert.NotEqual(t, c.Square.Center(), c.Centroid)
		}
	}
}

// uShape is a 1000 x 1000 square with a notch x in [400, 600], y in [300, 1000].
func uShape() Boundary {
	return Boundary{CRS: rd, Geometry: orb.MultiPolygon{{{
		{0, 0}, {1000, 0}, {1000, 1000}, {600, 1000}, {600, 300}, {400, 300}, {400, 1000}, {0, 1000}, {0, 0},
	}}}}
}

func TestTile_ConcaveBoundarySplitsCell(t *testing.T) {
	grid, err := Tile(uShape(), 700)
	require.NoError(t, err)
	require.Len(t, grid.Cells, 4)

	c := grid.Cells[1]
	require.Equal(t, 0, c.Col)
	require.Equal(t, 1, c.Row)
	require.Len(t, c.Geometry, 2)
	areas := []float64{planar.Area(c.Geometry[0]), planar.Area(c.Geometry[1])}
	sort.Float64s(areas)
	assert.InDeltaSlice(t, []float64{100 * 300, 400 * 300}, areas, 1e-6)
	assert.InDelta(t, 150000, c.Area, 1e-6)
	for _, p := range c.Geometry {
		assert.Len(t, p, 1)
		assert.Len(t, p[0], 5)
		assert.Equal(t, orb.CCW, p[0].Orientation())
	}
}

func TestTile_ConcaveContainedInBoundary(t *testing.T) {
	comb := Boundary{CRS: rd, Geometry: orb.MultiPolygon{{{
		{0, 0}, {1000, 0}, {1000, 1000}, {850, 1000}, {850, 200}, {750, 200}, {750, 1000},
		{450, 1000}, {450, 350}, {350, 350}, {350, 1000}, {0, 1000}, {0, 0},
	}, rect(100, 100, 250, 250)}}}
	tests := []struct {
		name     string
		boundary Boundary
		cellSize float64
	}{
		{name: "u shape", boundary: uShape(), cellSize: 700},
		{name: "u shape small cells", boundary: uShape(), cellSize: 130},
		{name: "comb with hole", boundary: comb, cellSize: 300},
		{name: "comb clockwise", boundary: Boundary{CRS: rd, Geometry: reversed(comb.Geometry)}, cellSize: 300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grid, err := Tile(tt.boundary, tt.cellSize)
			require.NoError(t, err)
			total := 0.
			for _, c := range grid.Cells {
				total += c.Area
				for _, p := range c.Geometry {
					for _, r := range p {
						for i := 0; i+1 < len(r); i++ {
							mid := orb.Point{(r[i][0] + r[i+1][0]) / 2, (r[i][1] + r[i+1][1]) / 2}
							assert.True(t, insideOrOn(tt.boundary.Geometry, mid),
								"cell %d,%d edge midpoint %v outside", c.Col, c.Row, mid)
							assert.True(t, c.Square.Contains(mid))
						}
					}
				}
			}
			assert.InDelta(t, tt.boundary.Area(), total, 1e-3)
		})
	}
}

// insideOrOn is like planar.MultiPolygonContains, but counts points on the
// edge of a hole as inside.
func insideOrOn(mp orb.MultiPolygon, pt orb.Point) bool {
	for _, p := range mp {
		if !planar.RingContains(p[0], pt) {
			continue
		}
		in := true
		for _, h := range p[1:] {
			if planar.RingContains(h, pt) && !onRing(h, pt) {
				in = false
			}
		}
		if in {
			return true
		}
	}
	return false
}

func onRing(r orb.Ring, pt orb.Point) bool {
	for i := 0; i+1 < len(r); i++ {
		a, b := r[i], r[i+1]
		cross := (b[0]-a[0])*(pt[1]-a[1]) - (b[1]-a[1])*(pt[0]-a[0])
		if math.Abs(cross) < 1e-6 && (orb.MultiPoint{a, b}).Bound().Pad(1e-9).Contains(pt) {
			return true
		}
	}
	return false
}

func reversed(mp orb.MultiPolygon) orb.MultiPolygon {
	out := mp.Clone()
	for _, p := range out {
		for _, r := range p {
			r.Reverse()
		}
	}
	return out
}

func TestTile_Holes(t *testing.T) {
	t.Run("hole split over four cells", func(t *testing.T) {
		b := Boundary{CRS: rd, Geometry: orb.MultiPolygon{{rect(0, 0, 1000, 1000), rect(400, 400, 600, 600)}}}
		grid, err := Tile(b, 500)
		require.NoError(t, err)
		require.Len(t, grid.Cells, 4)
		for _, c := range grid.Cells {
			assert.InDelta(t, 250000-10000, c.Area, 1e-6)
		}
		// pushed away from the hole
		assert.Less(t, grid.Cells[0].Centroid.X(), 250.0)
	})
	t.Run("cell inside hole dropped", func(t *testing.T) {
		b := Boundary{CRS: rd, Geometry: orb.MultiPolygon{{rect(0, 0, 1500, 1500), rect(500, 500, 1000, 1000)}}}
		grid, err := Tile(b, 500)
		require.NoError(t, err)
		require.Len(t, grid.Cells, 8)
		for _, c := range grid.Cells {
			assert.False(t, c.Col == 1 && c.Row == 1)
			assert.InDelta(t, 250000, c.Area, 1e-6)
		}
	})
}

func TestTile_MultiPolygonGap(t *testing.T) {
	b := Boundary{CRS: rd, Geometry: orb.MultiPolygon{
		{rect(0, 0, 500, 500)},
		{rect(1000, 0, 1500, 500)},
	}}
	grid, err := Tile(b, 500)
	require.NoError(t, err)
	require.Len(t, grid.Cells, 2)
	assert.Equal(t, 0, grid.Cells[0].Col)
	assert.Equal(t, 2, grid.Cells[1].Col)
}

func TestTile_AdjacentPolygonsDissolve(t *testing.T) {
	b := Boundary{CRS: rd, Geometry: orb.MultiPolygon{
		{rect(0, 0, 500, 1000)},
		{rect(500, 0, 1000, 1000)},
	}}
	grid, err := Tile(b, 1000)
	require.NoError(t, err)
	require.Len(t, grid.Cells, 1)
	c := grid.Cells[0]
	assert.InDelta(t, 1e6, c.Area, 1e-6)
	require.Len(t, c.Geometry, 1)
	require.Len(t, c.Geometry[0], 1)
	// the shared edge is gone, only its end points remain on the outline
	assert.Len(t, c.Geometry[0][0], 7)
	assert.InDelta(t, 500, c.Centroid.X(), 1e-9)
}

func TestTile_OverlappingPolygons(t *testing.T) {
	tests := []struct {
		name     string
		geometry orb.MultiPolygon
		wantErr  bool
	}{
		{name: "identical", geometry: orb.MultiPolygon{{rect(0, 0, 1000, 1000)}, {rect(0, 0, 1000, 1000)}}, wantErr: true},
		{name: "identical, opposite winding", geometry: orb.MultiPolygon{{rect(0, 0, 1000, 1000)}, reversed(orb.MultiPolygon{{rect(0, 0, 1000, 1000)}})[0]}, wantErr: true},
		{name: "sharing part of two sides", geometry: orb.MultiPolygon{{rect(0, 0, 2000, 2000)}, {rect(1000, 0, 3000, 2000)}}, wantErr: true},
		{name: "crossing", geometry: orb.MultiPolygon{{rect(0, 0, 1000, 1000)}, {rect(500, 500, 1500, 1500)}}, wantErr: true},
		{name: "nested", geometry: orb.MultiPolygon{{rect(0, 0, 1000, 1000)}, {rect(200, 200, 400, 400)}}, wantErr: true},
		{name: "adjacent", geometry: orb.MultiPolygon{{rect(0, 0, 1000, 1000)}, {rect(1000, 0, 2000, 1000)}}},
		{name: "touching corners", geometry: orb.MultiPolygon{{rect(0, 0, 1000, 1000)}, {rect(1000, 1000, 2000, 2000)}}},
		{name: "island in a hole", geometry: orb.MultiPolygon{{rect(0, 0, 1000, 1000), rect(400, 400, 600, 600)}, {rect(400, 400, 600, 600)}}},
		{name: "disjoint", geometry: orb.MultiPolygon{{rect(0, 0, 500, 500)}, {rect(1000, 0, 1500, 500)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Boundary{CRS: rd, Geometry: tt.geometry}
			grid, err := Tile(b, 500)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidBoundary)
				return
			}
			require.NoError(t, err)
			total := 0.
			for _, c := range grid.Cells {
				total += c.Area
			}
			assert.InDelta(t, b.Area(), total, 1e-6)
		})
	}
}

func TestTile_WithMinCellArea(t *testing.T) {
	b := Boundary{CRS: rd, Geometry: orb.MultiPolygon{{rect(0, 0, 1200, 1000)}}}
	grid, err := Tile(b, 500, WithMinCellArea(150000))
	require.NoError(t, err)
	assert.Len(t, grid.Cells, 4)
}

func TestTile_DoesNotModifyBoundary(t *testing.T) {
	b := Boundary{CRS: rd, Geometry: orb.MultiPolygon{{{{0, 0}, {2000, 0}, {0, 1500}, {0, 0}}, rect(100, 100, 300, 300)}}}
	before := b.Geometry.Clone()
	_, err := Tile(b, 250)
	require.NoError(t, err)
	assert.Equal(t, before, b.Geometry)
}

func TestTile_Errors(t *testing.T) {
	tests := []struct {
		name     string
		boundary Boundary
		cellSize float64
		opts     []TileOption
		wantErr  error
	}{
		{name: "zero cell size", boundary: squareBoundary(1000), cellSize: 0, wantErr: ErrInvalidConfig},
		{name: "negative cell size", boundary: squareBoundary(1000), cellSize: -5, wantErr: ErrInvalidConfig},
		{name: "NaN cell size", boundary: squareBoundary(1000), cellSize: math.NaN(), wantErr: ErrInvalidConfig},
		{name: "too many cells", boundary: squareBoundary(1e6), cellSize: 0.01, wantErr: ErrInvalidConfig},
		{name: "too many cells with a partial column", boundary: Boundary{CRS: rd, Geometry: orb.MultiPolygon{{rect(0, 0, 2000.5, 2000)}}}, cellSize: 1, wantErr: ErrInvalidConfig},
		{name: "absurd cell count", boundary: squareBoundary(1e300), cellSize: 1e-300, wantErr: ErrInvalidConfig},
		{name: "negative min area", boundary: squareBoundary(1000), cellSize: 500, opts: []TileOption{WithMinCellArea(-1)}, wantErr: ErrInvalidConfig},
		{name: "empty boundary", boundary: Boundary{CRS: rd}, cellSize: 500, wantErr: ErrInvalidBoundary},
		{name: "empty polygon", boundary: Boundary{CRS: rd, Geometry: orb.MultiPolygon{{}}}, cellSize: 500, wantErr: ErrInvalidBoundary},
		{name: "flat boundary", boundary: Boundary{CRS: rd, Geometry: orb.MultiPolygon{{{{0, 0}, {10, 0}, {20, 0}, {0, 0}}}}}, cellSize: 500, wantErr: ErrInvalidBoundary},
		{name: "zero area", boundary: Boundary{CRS: rd, Geometry: orb.MultiPolygon{{{{0, 0}, {10, 10}, {20, 20}, {0, 0}}}}}, cellSize: 500, wantErr: ErrInvalidBoundary},
		{name: "infinite coordinate", boundary: Boundary{CRS: rd, Geometry: orb.MultiPolygon{{{{0, 0}, {math.Inf(1), 0}, {0, 10}, {0, 0}}}}}, cellSize: 500, wantErr: ErrInvalidBoundary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grid, err := Tile(tt.boundary, tt.cellSize, tt.opts...)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, grid)
		})
	}
}

func TestNewBoundary(t *testing.T) {
	b, err := NewBoundary(rd, orb.Polygon{rect(0, 0, 10, 10)})
	require.NoError(t, err)
	assert.Len(t, b.Geometry, 1)
	assert.InDelta(t, 100, b.Area(), 1e-9)

	b, err = NewBoundary(rd, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{2, 3}})
	require.NoError(t, err)
	assert.InDelta(t, 6, b.Area(), 1e-9)

	_, err = NewBoundary(rd, orb.Point{1, 1})
	assert.ErrorIs(t, err, ErrInvalidBoundary)
}

func TestPOISet_Within(t *testing.T) {
	b := Boundary{CRS: rd, Geometry: orb.MultiPolygon{{rect(0, 0, 1000, 1000), rect(400, 400, 600, 600)}}}
	pois := poiSet(orb.Point{100, 100}, orb.Point{500, 500}, orb.Point{2000, 100}, orb.Point{1000, 1000})
	kept := pois.Within(b)
	require.Equal(t, 2, kept.Len())
	assert.Equal(t, orb.Point{100, 100}, kept.Items[0].Point)
	assert.Equal(t, orb.Point{1000, 1000}, kept.Items[1].Point)
	assert.Equal(t, rd, kept.CRS)
}
