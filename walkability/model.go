// Package walkability computes a Walkability Accessibility Score (WAS) for an
// area: a square grid is laid over a boundary, every cell is scored by the
// straight-line distance from its centroid to each point of interest, and the
// scores are rescaled to 0-100.
//
// The package is pure: it does no I/O and expects boundary and points of
// interest in one projected CRS with metre units.
package walkability

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/pdok/walkability/crs"
	"github.com/pdok/walkability/geomhelp"
	"github.com/pdok/walkability/mathhelp"
	"github.com/pdok/walkability/sieve"

	"github.com/rotisserie/eris"
)

// Boundary is the study area.
type Boundary struct {
	CRS      crs.CRS
	Geometry orb.MultiPolygon
}

// NewBoundary accepts a Polygon or MultiPolygon.
func NewBoundary(c crs.CRS, g orb.Geometry) (Boundary, error) {
	switch g := g.(type) {
	case orb.Polygon:
		return Boundary{CRS: c, Geometry: orb.MultiPolygon{g}}, nil
	case orb.MultiPolygon:
		return Boundary{CRS: c, Geometry: g}, nil
	case orb.Bound:
		return Boundary{CRS: c, Geometry: orb.MultiPolygon{g.ToPolygon()}}, nil
	}
	return Boundary{}, eris.Wrapf(ErrInvalidBoundary, "walkability: boundary must be a (multi)polygon, got %T", g)
}

// Area of the boundary, holes excluded.
func (b Boundary) Area() float64 {
	return sieve.Area(b.Geometry)
}

// Contains reports whether p lies inside the boundary or on its edge.
func (b Boundary) Contains(p orb.Point) bool {
	return multiPolygonContains(b.Geometry, p)
}

func (b Boundary) validate() error {
	if len(b.Geometry) == 0 {
		return eris.Wrap(ErrInvalidBoundary, "walkability: boundary is empty")
	}
	for i, p := range b.Geometry {
		if len(p) == 0 || len(p[0]) < 3 {
			return eris.Wrapf(ErrInvalidBoundary, "walkability: polygon %d has no exterior ring: %s",
				i, geomhelp.WktMustEncode(p, 80))
		}
		for _, r := range p {
			for _, pt := range r {
				if !mathhelp.IsFinite(pt.X()) || !mathhelp.IsFinite(pt.Y()) {
					return eris.Wrapf(ErrInvalidBoundary, "walkability: polygon %d has a non-finite coordinate", i)
				}
			}
		}
	}
	bound := b.Geometry.Bound()
	if !(bound.Min.X() < bound.Max.X() && bound.Min.Y() < bound.Max.Y()) {
		return eris.Wrapf(ErrInvalidBoundary, "walkability: degenerate bounding box %v", bound)
	}
	if b.Area() <= 0 {
		return eris.Wrap(ErrInvalidBoundary, "walkability: boundary has no area")
	}
	if i, j, ok := overlapping(b.Geometry); ok {
		return eris.Wrapf(ErrInvalidBoundary, "walkability: polygons %d and %d overlap", i, j)
	}
	return nil
}

// POI is a point of interest. Category is carried for display only.
type POI struct {
	ID       string
	Name     string
	Category string
	Point    orb.Point
}

type POISet struct {
	CRS   crs.CRS
	Items []POI
}

func (s POISet) Len() int {
	return len(s.Items)
}

func (s POISet) Points() []orb.Point {
	points := make([]orb.Point, len(s.Items))
	for i := range s.Items {
		points[i] = s.Items[i].Point
	}
	return points
}

// Within returns the POIs that lie inside the boundary.
func (s POISet) Within(b Boundary) POISet {
	kept := POISet{CRS: s.CRS, Items: make([]POI, 0, len(s.Items))}
	bound := b.Geometry.Bound()
	for _, poi := range s.Items {
		if bound.Contains(poi.Point) && b.Contains(poi.Point) {
			kept.Items = append(kept.Items, poi)
		}
	}
	return kept
}

func (s POISet) validate() error {
	for _, poi := range s.Items {
		if !mathhelp.IsFinite(poi.Point.X()) || !mathhelp.IsFinite(poi.Point.Y()) {
			return eris.Wrapf(ErrInvalidConfig, "walkability: poi %q has a non-finite coordinate", poi.ID)
		}
	}
	return nil
}

// Cell is one grid square clipped to the boundary.
type Cell struct {
	Col, Row int
	// Square is the unclipped cell.
	Square   orb.Bound
	Geometry orb.MultiPolygon
	// Centroid of Geometry, not of Square.
	Centroid        orb.Point
	Area            float64
	RawScore        int
	NormalizedScore float64
}

// Grid holds cells in tiling order: by column, then by row.
type Grid struct {
	CRS      crs.CRS
	CellSize float64
	Cells    []Cell
}

func (g *Grid) Len() int {
	return len(g.Cells)
}

func (g *Grid) RawScores() []float64 {
	values := make([]float64, len(g.Cells))
	for i := range g.Cells {
		values[i] = float64(g.Cells[i].RawScore)
	}
	return values
}

func (g *Grid) NormalizedScores() []float64 {
	values := make([]float64, len(g.Cells))
	for i := range g.Cells {
		values[i] = g.Cells[i].NormalizedScore
	}
	return values
}

// multiPolygonContains is planar.MultiPolygonContains skipping empty polygons.
func multiPolygonContains(mp orb.MultiPolygon, p orb.Point) bool {
	for _, poly := range mp {
		if len(poly) > 0 && len(poly[0]) > 0 && planar.PolygonContains(poly, p) {
			return true
		}
	}
	return false
}

// checkCRS verifies that both inputs share one CRS that is not known to be
// geographic.
func checkCRS(area, pois crs.CRS) error {
	if area.IsZero() || pois.IsZero() {
		return eris.Wrapf(ErrCrsMismatch, "walkability: unknown crs (boundary %s, pois %s)", area, pois)
	}
	if !area.Equal(pois) {
		return eris.Wrapf(ErrCrsMismatch, "walkability: boundary in %s, pois in %s", area, pois)
	}
	if area.IsGeographic() {
		return eris.Wrapf(ErrCrsMismatch, "walkability: %s is geographic, distances need a metric crs", area)
	}
	return nil
}
