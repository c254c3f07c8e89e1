// Package geojsonfile reads boundaries and points of interest from GeoJSON
// files and writes scored grids as GeoJSON in WGS84.
package geojsonfile

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pdok/walkability/crs"
	"github.com/pdok/walkability/processing"
	"github.com/pdok/walkability/walkability"
)

// Read parses a FeatureCollection. Its CRS is CRS84 unless the file carries
// a legacy "crs" member naming another one.
func Read(path string) (*geojson.FeatureCollection, crs.CRS, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, crs.CRS{}, eris.Wrapf(err, "geojsonfile: read %s", path)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, crs.CRS{}, eris.Wrapf(err, "geojsonfile: parse %s", path)
	}
	c, err := namedCRS(fc.ExtraMembers)
	if err != nil {
		return nil, crs.CRS{}, eris.Wrapf(err, "geojsonfile: %s", path)
	}
	return fc, c, nil
}

// namedCRS reads {"crs": {"type": "name", "properties": {"name": "..."}}}.
func namedCRS(members geojson.Properties) (crs.CRS, error) {
	raw, ok := members["crs"].(map[string]any)
	if !ok {
		return crs.CRS84(), nil
	}
	props, _ := raw["properties"].(map[string]any)
	name, _ := props["name"].(string)
	if name == "" {
		return crs.CRS84(), nil
	}
	return crs.Parse(name)
}

// LoadBoundary dissolves all Polygon and MultiPolygon features into one
// boundary.
func LoadBoundary(path string) (walkability.Boundary, error) {
	fc, c, err := Read(path)
	if err != nil {
		return walkability.Boundary{}, err
	}
	boundary := walkability.Boundary{CRS: c}
	for _, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			boundary.Geometry = append(boundary.Geometry, g)
		case orb.MultiPolygon:
			boundary.Geometry = append(boundary.Geometry, g...)
		}
	}
	if len(boundary.Geometry) == 0 {
		return boundary, eris.Wrapf(walkability.ErrInvalidBoundary, "geojsonfile: no polygons in %s", path)
	}
	zap.L().Info("boundary loaded", zap.String("file", path), zap.Int("polygons", len(boundary.Geometry)),
		zap.Stringer("crs", c))
	return boundary, nil
}

// LoadPOIs reads Point and MultiPoint features. The id is the feature id or
// the "id" property, name and category the properties of that name.
func LoadPOIs(path string) (walkability.POISet, error) {
	fc, c, err := Read(path)
	if err != nil {
		return walkability.POISet{}, err
	}
	pois := walkability.POISet{CRS: c}
	for i, f := range fc.Features {
		poi := walkability.POI{
			ID:       featureID(f, i),
			Name:     property(f.Properties, "name"),
			Category: property(f.Properties, "category"),
		}
		switch g := f.Geometry.(type) {
		case orb.Point:
			poi.Point = g
			pois.Items = append(pois.Items, poi)
		case orb.MultiPoint:
			for j, p := range g {
				part := poi
				part.ID = fmt.Sprintf("%s/%d", poi.ID, j)
				part.Point = p
				pois.Items = append(pois.Items, part)
			}
		}
	}
	zap.L().Info("pois loaded", zap.String("file", path), zap.Int("pois", pois.Len()), zap.Stringer("crs", c))
	return pois, nil
}

func featureID(f *geojson.Feature, i int) string {
	switch {
	case f.ID != nil:
		return fmt.Sprint(f.ID)
	case f.Properties["id"] != nil:
		return fmt.Sprint(f.Properties["id"])
	}
	return fmt.Sprintf("%d", i+1)
}

func property(p geojson.Properties, key string) string {
	if v, ok := p[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}

// Target writes features as a FeatureCollection in WGS84 longitude/latitude,
// with the attribute columns as properties.
type Target struct {
	path    string
	from    crs.CRS
	columns []string
	// Precision is the number of decimals kept in coordinates.
	Precision int
}

// NewTarget writes to path. from is the CRS of the incoming geometries and
// columns names the attributes of the incoming features.
func NewTarget(path string, from crs.CRS, columns []string) (*Target, error) {
	if !crs.Supported(from) {
		return nil, eris.Wrapf(crs.ErrUnsupported, "geojsonfile: cannot write %s as WGS84", from)
	}
	return &Target{path: path, from: from, columns: columns, Precision: 7}, nil
}

func (t *Target) WriteFeatures(features <-chan processing.Feature) error {
	fc := geojson.NewFeatureCollection()
	factor := 1
	for i := 0; i < t.Precision; i++ {
		factor *= 10
	}
	for f := range features {
		g, err := crs.ToWGS84(f.Geometry(), t.from)
		if err != nil {
			return eris.Wrap(err, "geojsonfile: reproject")
		}
		out := geojson.NewFeature(orb.Round(g, factor))
		for i, v := range f.Columns() {
			if i < len(t.columns) {
				out.Properties[t.columns[i]] = v
			}
		}
		fc.Append(out)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return eris.Wrap(err, "geojsonfile: encode")
	}
	if err = os.WriteFile(t.path, data, 0o644); err != nil {
		return eris.Wrapf(err, "geojsonfile: write %s", t.path)
	}
	zap.L().Info("geojson written", zap.String("file", t.path), zap.Int("features", len(fc.Features)))
	return nil
}
