package geojsonfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdok/walkability/crs"
	"github.com/pdok/walkability/processing"
	"github.com/pdok/walkability/walkability"
)

const boundaryJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "Centrum"},
     "geometry": {"type": "Polygon", "coordinates": [[[4.88, 52.36], [4.92, 52.36], [4.92, 52.38], [4.88, 52.38], [4.88, 52.36]]]}},
    {"type": "Feature", "properties": {"name": "Noord"},
     "geometry": {"type": "MultiPolygon", "coordinates": [[[[4.90, 52.39], [4.93, 52.39], [4.93, 52.41], [4.90, 52.39]]]]}},
    {"type": "Feature", "properties": {},
     "geometry": {"type": "Point", "coordinates": [4.9, 52.37]}}
  ]
}`

const poisJSON = `{
  "type": "FeatureCollection",
  "crs": {"type": "name", "properties": {"name": "urn:ogc:def:crs:EPSG::28992"}},
  "features": [
    {"type": "Feature", "id": 17, "properties": {"name": "Centraal", "category": "railway"},
     "geometry": {"type": "Point", "coordinates": [121000, 487000]}},
    {"type": "Feature", "properties": {"id": "bus-1"},
     "geometry": {"type": "MultiPoint", "coordinates": [[121100, 487100], [121200, 487200]]}}
  ]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadBoundary(t *testing.T) {
	boundary, err := LoadBoundary(writeFile(t, "area.geojson", boundaryJSON))
	require.NoError(t, err)
	assert.True(t, crs.CRS84().Equal(boundary.CRS))
	assert.Len(t, boundary.Geometry, 2)
}

func TestLoadBoundary_NoPolygons(t *testing.T) {
	_, err := LoadBoundary(writeFile(t, "area.geojson", poisJSON))
	assert.ErrorIs(t, err, walkability.ErrInvalidBoundary)

	_, err = LoadBoundary(writeFile(t, "broken.geojson", `{"type": "Feature"}`))
	assert.Error(t, err)

	_, err = LoadBoundary(filepath.Join(t.TempDir(), "missing.geojson"))
	assert.Error(t, err)
}

func TestLoadPOIs(t *testing.T) {
	pois, err := LoadPOIs(writeFile(t, "pois.geojson", poisJSON))
	require.NoError(t, err)
	assert.Equal(t, crs.EPSG(28992), pois.CRS)
	require.Equal(t, 3, pois.Len())
	assert.Equal(t, walkability.POI{ID: "17", Name: "Centraal", Category: "railway", Point: orb.Point{121000, 487000}}, pois.Items[0])
	assert.Equal(t, "bus-1/0", pois.Items[1].ID)
	assert.Equal(t, orb.Point{121200, 487200}, pois.Items[2].Point)
}

func TestTarget_WritesWGS84(t *testing.T) {
	sw := project.WGS84.ToMercator(orb.Point{4.9, 52.37})
	ne := project.WGS84.ToMercator(orb.Point{4.91, 52.38})
	grid := &walkability.Grid{
		CRS: crs.EPSG(crs.WebMercator),
		Cells: []walkability.Cell{{
			Col: 0, Row: 0, RawScore: 6, NormalizedScore: 100, Area: 1234.5,
			Geometry: orb.MultiPolygon{orb.Bound{Min: sw, Max: ne}.ToPolygon()},
		}},
	}

	path := filepath.Join(t.TempDir(), "was.geojson")
	target, err := NewTarget(path, grid.CRS, processing.ColumnNames(processing.CellColumns))
	require.NoError(t, err)
	require.NoError(t, processing.ProcessFeatures(processing.GridSource{Grid: grid}, target))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)

	f := fc.Features[0]
	bound := f.Geometry.Bound()
	assert.InDelta(t, 4.9, bound.Min.Lon(), 1e-7)
	assert.InDelta(t, 52.38, bound.Max.Lat(), 1e-7)
	assert.Equal(t, 6.0, f.Properties["raw_score"])
	assert.Equal(t, 100.0, f.Properties["was"])
	assert.Equal(t, 1234.5, f.Properties["area"])
}

func TestNewTarget_Unsupported(t *testing.T) {
	_, err := NewTarget("x.geojson", crs.EPSG(28992), nil)
	assert.ErrorIs(t, err, crs.ErrUnsupported)
}
