package crs

import (
	"math"

	"github.com/paulmach/orb"
)

// WGS84 ellipsoid and UTM constants.
const (
	semiMajor    = 6378137.0
	flattening   = 1 / 298.257223563
	scaleFactor  = 0.9996
	falseEasting = 500000.0
	falseNorth   = 10000000.0

	utmNorthBase = 32600
	utmSouthBase = 32700
)

var (
	e2  = flattening * (2 - flattening)
	e4  = e2 * e2
	e6  = e4 * e2
	ep2 = e2 / (1 - e2)
)

// UTMZone returns the WGS84 / UTM CRS (EPSG 326xx north, 327xx south) whose
// zone contains the given lon/lat point, honouring the Norway and Svalbard
// exceptions.
func UTMZone(lonlat orb.Point) CRS {
	lon, lat := lonlat.Lon(), lonlat.Lat()
	zone := int(math.Floor((lon+180)/6)) + 1
	switch {
	case lat >= 56 && lat < 64 && lon >= 3 && lon < 12:
		zone = 32
	case lat >= 72 && lat < 84 && lon >= 0 && lon < 42:
		switch {
		case lon < 9:
			zone = 31
		case lon < 21:
			zone = 33
		case lon < 33:
			zone = 35
		default:
			zone = 37
		}
	}
	zone = min(max(zone, 1), 60)
	if lat < 0 {
		return EPSG(utmSouthBase + zone)
	}
	return EPSG(utmNorthBase + zone)
}

// utmParams returns zone and hemisphere when c is a WGS84 / UTM CRS.
func utmParams(c CRS) (zone int, south bool, ok bool) {
	code, err := c.SRID()
	if err != nil {
		return 0, false, false
	}
	switch {
	case code > utmNorthBase && code <= utmNorthBase+60:
		return code - utmNorthBase, false, true
	case code > utmSouthBase && code <= utmSouthBase+60:
		return code - utmSouthBase, true, true
	}
	return 0, false, false
}

func centralMeridian(zone int) float64 {
	return float64((zone-1)*6-180+3) * math.Pi / 180
}

func meridianArc(phi float64) float64 {
	return semiMajor * ((1-e2/4-3*e4/64-5*e6/256)*phi -
		(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*phi) +
		(15*e4/256+45*e6/1024)*math.Sin(4*phi) -
		(35*e6/3072)*math.Sin(6*phi))
}

// utmForward projects lon/lat degrees to UTM easting/northing (transverse
// Mercator series, Snyder 1987).
func utmForward(zone int, south bool) orb.Projection {
	lam0 := centralMeridian(zone)
	return func(p orb.Point) orb.Point {
		phi := p.Lat() * math.Pi / 180
		lam := p.Lon() * math.Pi / 180
		sin, cos, tan := math.Sin(phi), math.Cos(phi), math.Tan(phi)

		n := semiMajor / math.Sqrt(1-e2*sin*sin)
		t := tan * tan
		c := ep2 * cos * cos
		a := cos * (lam - lam0)

		x := scaleFactor*n*(a+
			(1-t+c)*math.Pow(a, 3)/6+
			(5-18*t+t*t+72*c-58*ep2)*math.Pow(a, 5)/120) + falseEasting
		y := scaleFactor * (meridianArc(phi) + n*tan*(a*a/2+
			(5-t+9*c+4*c*c)*math.Pow(a, 4)/24+
			(61-58*t+t*t+600*c-330*ep2)*math.Pow(a, 6)/720))
		if south {
			y += falseNorth
		}
		return orb.Point{x, y}
	}
}

func utmInverse(zone int, south bool) orb.Projection {
	lam0 := centralMeridian(zone)
	e1 := (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2))
	return func(p orb.Point) orb.Point {
		x := p.X() - falseEasting
		y := p.Y()
		if south {
			y -= falseNorth
		}

		mu := y / scaleFactor / (semiMajor * (1 - e2/4 - 3*e4/64 - 5*e6/256))
		phi1 := mu +
			(3*e1/2-27*math.Pow(e1, 3)/32)*math.Sin(2*mu) +
			(21*e1*e1/16-55*math.Pow(e1, 4)/32)*math.Sin(4*mu) +
			(151*math.Pow(e1, 3)/96)*math.Sin(6*mu) +
			(1097*math.Pow(e1, 4)/512)*math.Sin(8*mu)

		sin, cos, tan := math.Sin(phi1), math.Cos(phi1), math.Tan(phi1)
		n1 := semiMajor / math.Sqrt(1-e2*sin*sin)
		t1 := tan * tan
		c1 := ep2 * cos * cos
		r1 := semiMajor * (1 - e2) / math.Pow(1-e2*sin*sin, 1.5)
		d := x / (n1 * scaleFactor)

		phi := phi1 - (n1*tan/r1)*(d*d/2-
			(5+3*t1+10*c1-4*c1*c1-9*ep2)*math.Pow(d, 4)/24+
			(61+90*t1+298*c1+45*t1*t1-252*ep2-3*c1*c1)*math.Pow(d, 6)/720)
		lam := lam0 + (d-
			(1+2*t1+c1)*math.Pow(d, 3)/6+
			(5-2*c1+28*t1-3*c1*c1+8*ep2+24*t1*t1)*math.Pow(d, 5)/120)/cos

		return orb.Point{lam * 180 / math.Pi, phi * 180 / math.Pi}
	}
}
