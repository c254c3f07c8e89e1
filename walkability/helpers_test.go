package walkability

import (
	"math/rand"

	"github.com/paulmach/orb"

	"github.com/pdok/walkability/crs"
)

var rd = crs.EPSG(28992)

func rect(minX, minY, maxX, maxY float64) orb.Ring {
	return orb.Ring{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY}}
}

func squareBoundary(size float64) Boundary {
	return Boundary{CRS: rd, Geometry: orb.MultiPolygon{{rect(0, 0, size, size)}}}
}

func poiSet(points ...orb.Point) POISet {
	set := POISet{CRS: rd}
	for _, p := range points {
		set.Items = append(set.Items, POI{Point: p})
	}
	return set
}

func randomPOIs(seed int64, n int, extent float64) POISet {
	rnd := rand.New(rand.NewSource(seed))
	points := make([]orb.Point, n)
	for i := range points {
		points[i] = orb.Point{rnd.Float64() * extent, rnd.Float64() * extent}
	}
	return poiSet(points...)
}

func rawScores(g *Grid) []int {
	scores := make([]int, len(g.Cells))
	for i := range g.Cells {
		scores[i] = g.Cells[i].RawScore
	}
	return scores
}
