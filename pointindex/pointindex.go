// Package pointindex is a read-only spatial index over a fixed set of points,
// answering "which points lie within distance r of p".
package pointindex

import (
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/quadtree"
	"github.com/rotisserie/eris"
)

// entry keeps the position of a point in the slice the index was built from.
type entry struct {
	point orb.Point
	index int
}

func (e entry) Point() orb.Point {
	return e.point
}

// PointIndex wraps a quadtree whose bound is the extent of the indexed points.
// It is safe for concurrent queries once built.
type PointIndex struct {
	tree *quadtree.Quadtree
	size int
}

// New indexes points. Indexes returned by queries refer to positions in points.
func New(points []orb.Point) (*PointIndex, error) {
	ix := &PointIndex{size: len(points)}
	if len(points) == 0 {
		return ix, nil
	}
	ix.tree = quadtree.New(orb.MultiPoint(points).Bound())
	for i, p := range points {
		if err := ix.tree.Add(entry{point: p, index: i}); err != nil {
			return nil, eris.Wrapf(err, "pointindex: add point %d %v", i, p)
		}
	}
	return ix, nil
}

// Len is the number of indexed points.
func (ix *PointIndex) Len() int {
	return ix.size
}

// Within returns, in ascending order, the indexes of all points whose
// Euclidean distance to p is at most r. buf is reused when large enough.
func (ix *PointIndex) Within(buf []int, p orb.Point, r float64) []int {
	result := buf[:0]
	if ix.tree == nil || r < 0 {
		return result
	}
	// box test with a small relative margin, the distance test is exact
	candidates := ix.tree.InBound(nil, orb.Bound{Min: p, Max: p}.Pad(r*(1+1e-9)+1e-9))
	for _, c := range candidates {
		e := c.(entry)
		if planar.Distance(p, e.point) <= r {
			result = append(result, e.index)
		}
	}
	slices.Sort(result)
	return result
}
