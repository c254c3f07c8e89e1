// Package shapefile reads area boundaries from ESRI shapefiles.
package shapefile

import (
	"os"
	"regexp"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pdok/walkability/crs"
	"github.com/pdok/walkability/geomhelp"
	"github.com/pdok/walkability/walkability"
)

// the last AUTHORITY of a .prj belongs to the outermost CRS
var prjAuthorityRegex = regexp.MustCompile(`AUTHORITY\["([A-Za-z]+)",\s*"?([0-9]+)"?\]\s*\]\s*$`)

// LoadBoundary dissolves all polygon records of a shapefile into one
// boundary. When c is zero the CRS is taken from the EPSG authority in the
// accompanying .prj file.
func LoadBoundary(path string, c crs.CRS) (walkability.Boundary, error) {
	if !strings.EqualFold(path[max(0, len(path)-4):], ".shp") {
		return walkability.Boundary{}, eris.Errorf("shapefile: %s has no .shp extension", path)
	}
	if c.IsZero() {
		var err error
		if c, err = prjCRS(path[:len(path)-4] + ".prj"); err != nil {
			return walkability.Boundary{}, err
		}
	}

	reader, err := shp.Open(path)
	if err != nil {
		return walkability.Boundary{}, eris.Wrapf(err, "shapefile: open %s", path)
	}
	defer reader.Close()

	boundary := walkability.Boundary{CRS: c}
	records, skipped := 0, 0
	for reader.Next() {
		records++
		_, shape := reader.Shape()
		p, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		boundary.Geometry = append(boundary.Geometry, assemble(rings(p))...)
	}
	if err := reader.Err(); err != nil {
		return walkability.Boundary{}, eris.Wrapf(err, "shapefile: read %s", path)
	}
	zap.L().Info("boundary loaded", zap.String("file", path), zap.Int("records", records),
		zap.Int("skipped", skipped), zap.Int("polygons", len(boundary.Geometry)), zap.Stringer("crs", c))
	if len(boundary.Geometry) == 0 {
		return boundary, eris.Wrapf(walkability.ErrInvalidBoundary, "shapefile: no polygons in %s", path)
	}
	return boundary, nil
}

// rings splits the flat point list of a polygon record into its parts.
func rings(p *shp.Polygon) []orb.Ring {
	result := make([]orb.Ring, 0, len(p.Parts))
	for i, start := range p.Parts {
		end := int32(len(p.Points))
		if i+1 < len(p.Parts) {
			end = p.Parts[i+1]
		}
		if start < 0 || end > int32(len(p.Points)) || end-start < 4 {
			continue
		}
		ring := make(orb.Ring, 0, end-start)
		for _, pt := range p.Points[start:end] {
			ring = append(ring, orb.Point{pt.X, pt.Y})
		}
		result = append(result, ring)
	}
	return result
}

// assemble groups rings into polygons. Shapefile outer rings run clockwise,
// holes counter-clockwise. A hole belongs to the first outer ring that
// contains its first vertex; holes without one are dropped.
func assemble(rs []orb.Ring) orb.MultiPolygon {
	var mp orb.MultiPolygon
	var holes []orb.Ring
	for _, r := range rs {
		if geomhelp.SignedShoelace(r) < 0 {
			mp = append(mp, orb.Polygon{r})
		} else {
			holes = append(holes, r)
		}
	}
	if len(mp) == 0 {
		// counter-clockwise only, written by tools that ignore the winding rule
		for _, r := range holes {
			mp = append(mp, orb.Polygon{r})
		}
		return mp
	}
	for _, h := range holes {
		for i := range mp {
			if planar.RingContains(mp[i][0], h[0]) {
				mp[i] = append(mp[i], h)
				break
			}
		}
	}
	return mp
}

func prjCRS(path string) (crs.CRS, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return crs.CRS{}, eris.Wrapf(err, "shapefile: no crs given and no readable %s", path)
	}
	m := prjAuthorityRegex.FindStringSubmatch(strings.TrimSpace(string(data)))
	if m == nil {
		return crs.CRS{}, eris.Errorf("shapefile: no authority code in %s", path)
	}
	return crs.Parse(m[1] + ":" + m[2])
}
