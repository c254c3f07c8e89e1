package crs

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/rotisserie/eris"
)

// ErrUnsupported is returned when no transform to or from WGS84 is known
// for a CRS.
var ErrUnsupported = eris.New("crs: unsupported transform")

func identity(p orb.Point) orb.Point { return p }

// Projections returns the forward (WGS84 lon/lat to c) and inverse (c to
// WGS84 lon/lat) point transforms for c.
func Projections(c CRS) (forward, inverse orb.Projection, err error) {
	if c.IsGeographic() {
		return identity, identity, nil
	}
	code, err := c.SRID()
	if err == nil && (code == WebMercator || code == 900913 || code == 3785) {
		return project.WGS84.ToMercator, project.Mercator.ToWGS84, nil
	}
	if zone, south, ok := utmParams(c); ok {
		return utmForward(zone, south), utmInverse(zone, south), nil
	}
	return nil, nil, eris.Wrapf(ErrUnsupported, "crs: no transform for %s", c)
}

// Supported reports whether points can be transformed between WGS84 and c.
func Supported(c CRS) bool {
	_, _, err := Projections(c)
	return err == nil
}

// FromWGS84 returns a copy of g, given in WGS84 lon/lat, projected to c.
func FromWGS84(g orb.Geometry, to CRS) (orb.Geometry, error) {
	forward, _, err := Projections(to)
	if err != nil {
		return nil, err
	}
	return project.Geometry(orb.Clone(g), forward), nil
}

// ToWGS84 returns a copy of g, given in c, as WGS84 lon/lat.
func ToWGS84(g orb.Geometry, from CRS) (orb.Geometry, error) {
	_, inverse, err := Projections(from)
	if err != nil {
		return nil, err
	}
	return project.Geometry(orb.Clone(g), inverse), nil
}

// Transform returns g, given in from, in to. Both go through WGS84, so both
// need a known transform unless they are equal.
func Transform(g orb.Geometry, from, to CRS) (orb.Geometry, error) {
	if from.Equal(to) {
		return orb.Clone(g), nil
	}
	wgs84, err := ToWGS84(g, from)
	if err != nil {
		return nil, err
	}
	return FromWGS84(wgs84, to)
}
