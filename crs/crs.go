// Package crs identifies coordinate reference systems and transforms points
// between WGS84 and the projected systems a walkability grid is computed in.
package crs

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

const (
	AuthorityEPSG = "EPSG"
	AuthorityOGC  = "OGC"

	WGS84       = 4326
	WebMercator = 3857
)

var (
	crsURIRegexURL = regexp.MustCompile("https?://.+/def/crs/(?P<authority>[^/]+)/[^/]+/(?P<code>[^/]+)$")
	crsURIRegexURN = regexp.MustCompile("^urn:ogc:def:crs:(?P<authority>[^:]+)::(?P<code>[^:]+)$")
	crsShortRegex  = regexp.MustCompile("^(?P<authority>[A-Za-z]+):(?P<code>[A-Za-z0-9_.]+)$")

	// geographic lists the codes known to use degrees as their unit.
	geographic = map[string]bool{
		"EPSG:4326": true,
		"EPSG:4258": true,
		"EPSG:4269": true,
		"EPSG:4283": true,
		"EPSG:4617": true,
		"EPSG:4674": true,
		"OGC:CRS84": true,
	}
)

// CRS is a coordinate reference system identified by authority and code,
// e.g. EPSG:28992. The zero value means unknown.
type CRS struct {
	Authority string
	Code      string
}

// EPSG returns the CRS with the given EPSG code.
func EPSG(code int) CRS {
	return CRS{Authority: AuthorityEPSG, Code: strconv.Itoa(code)}
}

// CRS84 is WGS84 with longitude/latitude axis order.
func CRS84() CRS {
	return CRS{Authority: AuthorityOGC, Code: "CRS84"}
}

// Parse accepts "EPSG:3857", a bare EPSG code ("3857"), an OGC URI
// (http://www.opengis.net/def/crs/EPSG/0/3857) or an OGC URN
// (urn:ogc:def:crs:EPSG::3857).
func Parse(s string) (CRS, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CRS{}, eris.New("crs: empty identifier")
	}
	if _, err := strconv.Atoi(s); err == nil {
		return CRS{Authority: AuthorityEPSG, Code: s}, nil
	}
	for _, re := range []*regexp.Regexp{crsURIRegexURL, crsURIRegexURN, crsShortRegex} {
		parts := re.FindStringSubmatch(s)
		if parts == nil {
			continue
		}
		return CRS{
			Authority: strings.ToUpper(parts[re.SubexpIndex("authority")]),
			Code:      strings.ToUpper(parts[re.SubexpIndex("code")]),
		}, nil
	}
	return CRS{}, eris.Errorf("crs: unrecognised identifier %q", s)
}

func (c CRS) String() string {
	if c.IsZero() {
		return "unknown"
	}
	return c.Authority + ":" + c.Code
}

// URI returns the OGC http URI form.
func (c CRS) URI() string {
	version := "0"
	if c.Authority == AuthorityOGC {
		version = "1.3"
	}
	return "http://www.opengis.net/def/crs/" + c.Authority + "/" + version + "/" + c.Code
}

func (c CRS) IsZero() bool {
	return c.Authority == "" && c.Code == ""
}

// Equal compares authority and code, ignoring case.
func (c CRS) Equal(o CRS) bool {
	return strings.EqualFold(c.Authority, o.Authority) && strings.EqualFold(c.Code, o.Code)
}

// IsGeographic reports whether c is known to have degrees as its unit.
// Unknown codes are not geographic.
func (c CRS) IsGeographic() bool {
	return geographic[strings.ToUpper(c.String())]
}

// SRID returns the numeric EPSG code, as used by GeoPackage srs_id columns.
func (c CRS) SRID() (int, error) {
	if c.Equal(CRS84()) {
		return WGS84, nil
	}
	if !strings.EqualFold(c.Authority, AuthorityEPSG) {
		return 0, eris.Errorf("crs: %s has no EPSG code", c)
	}
	code, err := strconv.Atoi(c.Code)
	if err != nil {
		return 0, eris.Wrapf(err, "crs: invalid EPSG code %q", c.Code)
	}
	return code, nil
}
