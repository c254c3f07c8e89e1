package geomhelp

import (
	"math"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/wkt"
	"github.com/muesli/reflow/truncate"
	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
)

// SignedShoelace is the signed area of a ring, positive when counter-clockwise.
// A missing closing point is tolerated.
// https://en.wikipedia.org/wiki/Shoelace_formula
func SignedShoelace(pts orb.Ring) float64 {
	sum := 0.
	if len(pts) == 0 {
		return 0.
	}

	p0 := pts[len(pts)-1]
	for _, p1 := range pts {
		sum += p0[0]*p1[1] - p1[0]*p0[1]
		p0 = p1
	}
	return sum / 2
}

func Shoelace(pts orb.Ring) float64 {
	return math.Abs(SignedShoelace(pts))
}

// ToGeom converts an orb geometry to its go-spatial counterpart.
func ToGeom(g orb.Geometry) (geom.Geometry, error) {
	switch g := g.(type) {
	case orb.Point:
		return geom.Point(g), nil
	case orb.MultiPoint:
		mp := make(geom.MultiPoint, len(g))
		for i := range g {
			mp[i] = g[i]
		}
		return mp, nil
	case orb.Ring:
		return geom.Polygon{ringToGeom(g)}, nil
	case orb.Polygon:
		return polygonToGeom(g), nil
	case orb.MultiPolygon:
		mp := make(geom.MultiPolygon, len(g))
		for i := range g {
			mp[i] = polygonToGeom(g[i])
		}
		return mp, nil
	case orb.Bound:
		return polygonToGeom(g.ToPolygon()), nil
	}
	return nil, eris.Errorf("geomhelp: cannot convert %T", g)
}

// FromGeom converts a go-spatial geometry, as decoded from GeoPackage binary, to orb.
func FromGeom(g geom.Geometry) (orb.Geometry, error) {
	switch g := g.(type) {
	case geom.Point:
		return orb.Point(g), nil
	case *geom.Point:
		return orb.Point(*g), nil
	case geom.MultiPoint:
		return multiPointFromGeom(g), nil
	case *geom.MultiPoint:
		return multiPointFromGeom(*g), nil
	case geom.Polygon:
		return polygonFromGeom(g), nil
	case *geom.Polygon:
		return polygonFromGeom(*g), nil
	case geom.MultiPolygon:
		return multiPolygonFromGeom(g), nil
	case *geom.MultiPolygon:
		return multiPolygonFromGeom(*g), nil
	}
	return nil, eris.Errorf("geomhelp: unsupported geometry type %T", g)
}

func ringToGeom(r orb.Ring) [][2]float64 {
	pts := make([][2]float64, len(r))
	for i := range r {
		pts[i] = r[i]
	}
	return pts
}

func polygonToGeom(p orb.Polygon) geom.Polygon {
	gp := make(geom.Polygon, len(p))
	for i := range p {
		gp[i] = ringToGeom(p[i])
	}
	return gp
}

func multiPointFromGeom(mp geom.MultiPoint) orb.MultiPoint {
	out := make(orb.MultiPoint, len(mp))
	for i := range mp {
		out[i] = mp[i]
	}
	return out
}

func polygonFromGeom(p [][][2]float64) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i := range p {
		ring := make(orb.Ring, len(p[i]))
		for j := range p[i] {
			ring[j] = p[i][j]
		}
		out[i] = ring
	}
	return out
}

func multiPolygonFromGeom(mp [][][][2]float64) orb.MultiPolygon {
	out := make(orb.MultiPolygon, len(mp))
	for i := range mp {
		out[i] = polygonFromGeom(mp[i])
	}
	return out
}

// WktMustEncode renders g as WKT for logging, truncated to maxLen runes
// (0 means no limit). Geometries that cannot be converted render as their type.
func WktMustEncode(g orb.Geometry, maxLen uint) string {
	gg, err := ToGeom(g)
	if err != nil {
		return g.GeoJSONType()
	}
	return wktMustEncodeTruncated(gg, maxLen)
}

func wktMustEncodeTruncated(geom geom.Geometry, width uint) string {
	if width == 0 {
		return wkt.MustEncode(geom)
	}
	return truncate.StringWithTail(wkt.MustEncode(geom), width, "...")
}
