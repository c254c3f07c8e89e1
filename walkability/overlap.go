package walkability

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// overlapTolerance is relative to the largest side of the boundary bound.
// Edges closer than that count as touching.
const overlapTolerance = 1e-9

// overlapping returns the first two polygons of mp whose interiors overlap.
// Polygons may share edges and points.
func overlapping(mp orb.MultiPolygon) (int, int, bool) {
	if len(mp) < 2 {
		return 0, 0, false
	}
	mp = orient(mp)
	bound := mp.Bound()
	tol := math.Max(bound.Max.X()-bound.Min.X(), bound.Max.Y()-bound.Min.Y()) * overlapTolerance

	bounds := make([]orb.Bound, len(mp))
	for i, p := range mp {
		bounds[i] = p.Bound()
	}
	for i := range mp {
		for j := i + 1; j < len(mp); j++ {
			if !bounds[i].Pad(tol).Intersects(bounds[j]) {
				continue
			}
			if polygonsOverlap(mp[i], mp[j], tol) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// polygonsOverlap reports whether two oriented polygons share interior.
// That is the case when their edges cross, when part of the outline of one
// lies inside the other, or when both run along the same edge in the same
// direction, with their interiors on the same side.
func polygonsOverlap(a, b orb.Polygon, tol float64) bool {
	common := orb.Bound{
		Min: orb.Point{math.Max(a.Bound().Min.X(), b.Bound().Min.X()), math.Max(a.Bound().Min.Y(), b.Bound().Min.Y())},
		Max: orb.Point{math.Min(a.Bound().Max.X(), b.Bound().Max.X()), math.Min(a.Bound().Max.Y(), b.Bound().Max.Y())},
	}.Pad(tol)
	ea := edgesNear(a, common)
	eb := edgesNear(b, common)
	for _, e := range ea {
		for _, f := range eb {
			if properlyCross(e, f, tol) {
				return true
			}
		}
	}
	return outlineInside(ea, eb, b, tol) || outlineInside(eb, ea, a, tol)
}

func edgesNear(p orb.Polygon, bound orb.Bound) []segment {
	var edges []segment
	for _, e := range ringEdges(p) {
		if (orb.Bound{Min: e.a, Max: e.a}).Extend(e.b).Intersects(bound) {
			edges = append(edges, e)
		}
	}
	return edges
}

// properlyCross reports whether e and f cross in a single point that is
// not within tol of an end point of either.
func properlyCross(e, f segment, tol float64) bool {
	side := func(s segment, p orb.Point) float64 {
		l := planar.Distance(s.a, s.b)
		if l == 0 {
			return 0
		}
		d := ((s.b[0]-s.a[0])*(p[1]-s.a[1]) - (s.b[1]-s.a[1])*(p[0]-s.a[0])) / l
		if math.Abs(d) <= tol {
			return 0
		}
		return d
	}
	d1, d2 := side(e, f.a), side(e, f.b)
	d3, d4 := side(f, e.a), side(f, e.b)
	return d1*d2 < 0 && d3*d4 < 0
}

// outlineInside reports whether a piece of the edges es lies inside polygon
// other, whose edges near es are others. es is cut at the vertices of others
// first, so every piece is either inside, outside or on the outline of other.
func outlineInside(es, others []segment, other orb.Polygon, tol float64) bool {
	for _, e := range es {
		for _, piece := range splitAtVertices(e, others, tol) {
			mid := orb.Point{(piece.a[0] + piece.b[0]) / 2, (piece.a[1] + piece.b[1]) / 2}
			near, dist := nearestSegment(others, mid)
			if near >= 0 && dist <= tol {
				o := others[near]
				along := (piece.b[0]-piece.a[0])*(o.b[0]-o.a[0]) + (piece.b[1]-piece.a[1])*(o.b[1]-o.a[1])
				if along > 0 {
					return true
				}
				continue
			}
			if planar.PolygonContains(other, mid) {
				return true
			}
		}
	}
	return false
}

func splitAtVertices(e segment, others []segment, tol float64) []segment {
	l := planar.Distance(e.a, e.b)
	if l == 0 {
		return nil
	}
	var ts []float64
	for _, o := range others {
		t := ((o.a[0]-e.a[0])*(e.b[0]-e.a[0]) + (o.a[1]-e.a[1])*(e.b[1]-e.a[1])) / (l * l)
		if t*l <= tol || (1-t)*l <= tol {
			continue
		}
		if _, d := nearestSegment([]segment{e}, o.a); d <= tol {
			ts = append(ts, t)
		}
	}
	sort.Float64s(ts)

	pieces := make([]segment, 0, len(ts)+1)
	prev := e.a
	for _, t := range ts {
		pt := orb.Point{e.a[0] + t*(e.b[0]-e.a[0]), e.a[1] + t*(e.b[1]-e.a[1])}
		if pt == prev {
			continue
		}
		pieces = append(pieces, segment{prev, pt})
		prev = pt
	}
	return append(pieces, segment{prev, e.b})
}

func nearestSegment(segments []segment, p orb.Point) (int, float64) {
	best, bestDist := -1, math.Inf(1)
	for i, s := range segments {
		if d := planar.DistanceFromSegment(s.a, s.b, p); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}
