// Package sieve drops polygons, and holes, whose area does not exceed a threshold.
package sieve

import (
	"github.com/paulmach/orb"

	"github.com/pdok/walkability/geomhelp"
)

// area of a polygon: exterior minus interiors
func area(p orb.Polygon) float64 {
	interior := .0
	if len(p) == 0 {
		return 0.
	}
	if len(p) > 1 {
		for _, i := range p[1:] {
			interior += geomhelp.Shoelace(i)
		}
	}
	return geomhelp.Shoelace(p[0]) - interior
}

// Polygon returns p without the holes of at most minArea, or nil when p
// itself has an area of at most minArea.
func Polygon(p orb.Polygon, minArea float64) orb.Polygon {
	if area(p) > minArea {
		if len(p) > 1 {
			sievedPolygon := orb.Polygon{p[0]}
			for _, interior := range p[1:] {
				if geomhelp.Shoelace(interior) > minArea {
					sievedPolygon = append(sievedPolygon, interior)
				}
			}
			return sievedPolygon
		}
		return p
	}
	return nil
}

// MultiPolygon sieves each member polygon, nil when none survives.
func MultiPolygon(mp orb.MultiPolygon, minArea float64) orb.MultiPolygon {
	var sieved orb.MultiPolygon
	for _, p := range mp {
		if sp := Polygon(p, minArea); sp != nil {
			sieved = append(sieved, sp)
		}
	}
	return sieved
}

// Area is the total area of mp, holes subtracted.
func Area(mp orb.MultiPolygon) float64 {
	total := 0.
	for _, p := range mp {
		total += area(p)
	}
	return total
}
