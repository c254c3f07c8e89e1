package shapefile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdok/walkability/crs"
	"github.com/pdok/walkability/walkability"
)

const rdPrj = `PROJCS["Amersfoort / RD New",GEOGCS["Amersfoort",DATUM["Amersfoort",` +
	`SPHEROID["Bessel 1841",6377397.155,299.1528128,AUTHORITY["EPSG","7004"]],AUTHORITY["EPSG","6289"]],` +
	`PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],UNIT["degree",0.0174532925199433,AUTHORITY["EPSG","9122"]],` +
	`AUTHORITY["EPSG","4289"]],PROJECTION["Oblique_Stereographic"],UNIT["metre",1,AUTHORITY["EPSG","9001"]],` +
	`AUTHORITY["EPSG","28992"]]`

// clockwise in a y-up plane, the shapefile winding for outer rings
func outer(minX, minY, maxX, maxY float64) []shp.Point {
	return []shp.Point{{X: minX, Y: minY}, {X: minX, Y: maxY}, {X: maxX, Y: maxY}, {X: maxX, Y: minY}, {X: minX, Y: minY}}
}

func hole(minX, minY, maxX, maxY float64) []shp.Point {
	return []shp.Point{{X: minX, Y: minY}, {X: maxX, Y: minY}, {X: maxX, Y: maxY}, {X: minX, Y: maxY}, {X: minX, Y: minY}}
}

func writePolygons(t *testing.T, prj string, records ...[][]shp.Point) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "area.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	for _, parts := range records {
		p := shp.Polygon(*shp.NewPolyLine(parts))
		w.Write(&p)
	}
	w.Close()
	if prj != "" {
		require.NoError(t, os.WriteFile(path[:len(path)-4]+".prj", []byte(prj), 0o644))
	}
	return path
}

func TestLoadBoundary(t *testing.T) {
	tests := []struct {
		name     string
		records  [][][]shp.Point
		polygons int
		area     float64
	}{
		{
			name:     "single square",
			records:  [][][]shp.Point{{outer(0, 0, 1000, 1000)}},
			polygons: 1,
			area:     1e6,
		},
		{
			name:     "square with hole",
			records:  [][][]shp.Point{{outer(0, 0, 1000, 1000), hole(200, 200, 800, 800)}},
			polygons: 1,
			area:     1e6 - 360000,
		},
		{
			name: "records dissolved",
			records: [][][]shp.Point{
				{outer(0, 0, 1000, 1000)},
				{outer(2000, 0, 2500, 500)},
			},
			polygons: 2,
			area:     1e6 + 250000,
		},
		{
			name:     "two parts in one record",
			records:  [][][]shp.Point{{outer(0, 0, 100, 100), outer(500, 500, 600, 600)}},
			polygons: 2,
			area:     20000,
		},
		{
			name:     "counter-clockwise only",
			records:  [][][]shp.Point{{hole(0, 0, 100, 100)}},
			polygons: 1,
			area:     10000,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writePolygons(t, "", tt.records...)
			b, err := LoadBoundary(path, crs.EPSG(28992))
			require.NoError(t, err)
			assert.Equal(t, crs.EPSG(28992), b.CRS)
			assert.Len(t, b.Geometry, tt.polygons)
			assert.InDelta(t, tt.area, b.Area(), 1e-6)
		})
	}
}

func TestLoadBoundaryHoleExcludesPoints(t *testing.T) {
	path := writePolygons(t, "", [][]shp.Point{outer(0, 0, 1000, 1000), hole(200, 200, 800, 800)})
	b, err := LoadBoundary(path, crs.EPSG(28992))
	require.NoError(t, err)
	assert.True(t, b.Contains(orb.Point{100, 100}))
	assert.False(t, b.Contains(orb.Point{500, 500}))
}

func TestLoadBoundaryPrj(t *testing.T) {
	path := writePolygons(t, rdPrj, [][]shp.Point{outer(0, 0, 10, 10)})
	b, err := LoadBoundary(path, crs.CRS{})
	require.NoError(t, err)
	assert.Equal(t, crs.EPSG(28992), b.CRS)

	// an explicit crs wins over the .prj
	b, err = LoadBoundary(path, crs.EPSG(32631))
	require.NoError(t, err)
	assert.Equal(t, crs.EPSG(32631), b.CRS)
}

func TestLoadBoundaryErrors(t *testing.T) {
	t.Run("no prj and no crs", func(t *testing.T) {
		path := writePolygons(t, "", [][]shp.Point{outer(0, 0, 10, 10)})
		_, err := LoadBoundary(path, crs.CRS{})
		assert.Error(t, err)
	})
	t.Run("prj without authority", func(t *testing.T) {
		path := writePolygons(t, `PROJCS["local"]`, [][]shp.Point{outer(0, 0, 10, 10)})
		_, err := LoadBoundary(path, crs.CRS{})
		assert.Error(t, err)
	})
	t.Run("wrong extension", func(t *testing.T) {
		_, err := LoadBoundary(filepath.Join(t.TempDir(), "area.geojson"), crs.EPSG(28992))
		assert.Error(t, err)
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadBoundary(filepath.Join(t.TempDir(), "missing.shp"), crs.EPSG(28992))
		assert.Error(t, err)
	})
	t.Run("points only", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "points.shp")
		w, err := shp.Create(path, shp.POINT)
		require.NoError(t, err)
		w.Write(&shp.Point{X: 1, Y: 2})
		w.Close()
		_, err = LoadBoundary(path, crs.EPSG(28992))
		assert.True(t, errors.Is(err, walkability.ErrInvalidBoundary))
	})
}
