package walkability

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/planar"
)

type segment struct {
	a, b orb.Point
}

// orient returns a copy of mp with counter-clockwise exterior rings and
// clockwise holes.
func orient(mp orb.MultiPolygon) orb.MultiPolygon {
	out := mp.Clone()
	for _, p := range out {
		for i, r := range p {
			if len(r) < 4 {
				continue
			}
			want := orb.CW
			if i == 0 {
				want = orb.CCW
			}
			if r.Orientation() != want {
				r.Reverse()
			}
		}
	}
	return out
}

// clipToSquare intersects the oriented boundary with square. Only polygons
// whose bound meets the square are clipped.
//
// clip.Polygon keeps one ring per input ring. Where the boundary leaves the
// square and comes back in, that ring runs along a square side and back
// again. These opposite runs are cancelled, as are edges shared by two
// adjacent polygons, and what is left is traced into separate rings, each
// with its own holes.
func clipToSquare(mp orb.MultiPolygon, bounds []orb.Bound, square orb.Bound) orb.MultiPolygon {
	var edges []segment
	for i, p := range mp {
		if !bounds[i].Intersects(square) {
			continue
		}
		if clipped := clip.Polygon(square, p.Clone()); clipped != nil {
			edges = append(edges, ringEdges(clipped)...)
		}
	}
	edges = cancelOpposite(splitOnSides(square, edges))
	if len(edges) == 0 {
		return nil
	}
	return assembleRings(traceRings(edges))
}

func ringEdges(p orb.Polygon) []segment {
	var edges []segment
	for _, r := range p {
		for i := 0; i+1 < len(r); i++ {
			if r[i] != r[i+1] {
				edges = append(edges, segment{r[i], r[i+1]})
			}
		}
		if n := len(r); n > 1 && r[0] != r[n-1] {
			edges = append(edges, segment{r[n-1], r[0]})
		}
	}
	return edges
}

// splitOnSides cuts the edges lying on a side of square at every vertex on
// that side, so overlapping runs share their end points.
func splitOnSides(square orb.Bound, edges []segment) []segment {
	// axis 0: vertical sides at x, split along y. axis 1: horizontal sides at y.
	sides := [2][2]float64{{square.Min[0], square.Max[0]}, {square.Min[1], square.Max[1]}}
	var stops [2][2][]float64
	for _, e := range edges {
		for _, pt := range []orb.Point{e.a, e.b} {
			for axis := 0; axis < 2; axis++ {
				for s, v := range sides[axis] {
					if pt[axis] == v {
						stops[axis][s] = append(stops[axis][s], pt[1-axis])
					}
				}
			}
		}
	}
	for axis := range stops {
		for s := range stops[axis] {
			sort.Float64s(stops[axis][s])
		}
	}

	out := make([]segment, 0, len(edges))
	for _, e := range edges {
		split := false
		for axis := 0; axis < 2 && !split; axis++ {
			for s, v := range sides[axis] {
				if e.a[axis] != v || e.b[axis] != v {
					continue
				}
				out = append(out, splitAt(e, axis, v, stops[axis][s])...)
				split = true
				break
			}
		}
		if !split {
			out = append(out, e)
		}
	}
	return out
}

func splitAt(e segment, axis int, v float64, stops []float64) []segment {
	along := 1 - axis
	from, to := e.a[along], e.b[along]
	lo, hi := math.Min(from, to), math.Max(from, to)

	var cuts []float64
	for _, s := range stops {
		if s > lo && s < hi && (len(cuts) == 0 || cuts[len(cuts)-1] != s) {
			cuts = append(cuts, s)
		}
	}
	if from > to {
		for i, j := 0, len(cuts)-1; i < j; i, j = i+1, j-1 {
			cuts[i], cuts[j] = cuts[j], cuts[i]
		}
	}

	out := make([]segment, 0, len(cuts)+1)
	prev := e.a
	for _, c := range cuts {
		var pt orb.Point
		pt[axis] = v
		pt[along] = c
		out = append(out, segment{prev, pt})
		prev = pt
	}
	return append(out, segment{prev, e.b})
}

// cancelOpposite removes every pair of edges that run between the same two
// points in opposite directions. The order of the remaining edges is kept.
func cancelOpposite(edges []segment) []segment {
	alive := make([]bool, len(edges))
	open := make(map[segment][]int)
	for i, e := range edges {
		rev := segment{e.b, e.a}
		if js := open[rev]; len(js) > 0 {
			alive[js[len(js)-1]] = false
			open[rev] = js[:len(js)-1]
			continue
		}
		alive[i] = true
		open[e] = append(open[e], i)
	}
	out := edges[:0]
	for i, e := range edges {
		if alive[i] {
			out = append(out, e)
		}
	}
	return out
}

// traceRings links edges end to start into closed rings. Where a vertex has
// more than one way out, the one turning first clockwise from the way in is
// taken, which keeps rings that only touch in a point apart.
func traceRings(edges []segment) []orb.Ring {
	outgoing := make(map[orb.Point][]int)
	for i, e := range edges {
		outgoing[e.a] = append(outgoing[e.a], i)
	}
	used := make([]bool, len(edges))

	var rings []orb.Ring
	for start := range edges {
		if used[start] {
			continue
		}
		used[start] = true
		ring := orb.Ring{edges[start].a, edges[start].b}
		cur := edges[start]
		closed := false
		for range edges {
			if cur.b == edges[start].a {
				closed = true
				break
			}
			next := nextEdge(edges, outgoing[cur.b], used, cur)
			if next < 0 {
				break
			}
			used[next] = true
			cur = edges[next]
			ring = append(ring, cur.b)
		}
		if closed && len(ring) >= 4 {
			rings = append(rings, ring)
		}
	}
	return rings
}

func nextEdge(edges []segment, candidates []int, used []bool, in segment) int {
	back := math.Atan2(in.a[1]-in.b[1], in.a[0]-in.b[0])
	best, bestTurn := -1, math.Inf(1)
	for _, j := range candidates {
		if used[j] {
			continue
		}
		e := edges[j]
		turn := back - math.Atan2(e.b[1]-e.a[1], e.b[0]-e.a[0])
		for turn <= 0 {
			turn += 2 * math.Pi
		}
		for turn > 2*math.Pi {
			turn -= 2 * math.Pi
		}
		if turn < bestTurn {
			best, bestTurn = j, turn
		}
	}
	return best
}

// assembleRings turns counter-clockwise rings into polygons and adds every
// clockwise ring as a hole of the smallest polygon around it.
func assembleRings(rings []orb.Ring) orb.MultiPolygon {
	var outers, holes []orb.Ring
	for _, r := range rings {
		switch r.Orientation() {
		case orb.CCW:
			outers = append(outers, r)
		case orb.CW:
			holes = append(holes, r)
		}
	}
	if len(outers) == 0 {
		return nil
	}

	mp := make(orb.MultiPolygon, len(outers))
	areas := make([]float64, len(outers))
	for i, r := range outers {
		mp[i] = orb.Polygon{r}
		areas[i] = math.Abs(planar.Area(r))
	}
	for _, h := range holes {
		owner := -1
		for i, r := range outers {
			if (owner < 0 || areas[i] < areas[owner]) && ringInside(h, r) {
				owner = i
			}
		}
		if owner >= 0 {
			mp[owner] = append(mp[owner], h)
		}
	}
	return mp
}

func ringInside(inner, outer orb.Ring) bool {
	if !outer.Bound().Contains(inner.Bound().Min) || !outer.Bound().Contains(inner.Bound().Max) {
		return false
	}
	for _, pt := range inner {
		if !planar.RingContains(outer, pt) {
			return false
		}
	}
	return true
}
