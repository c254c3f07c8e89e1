package gpkg

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pdok/walkability/processing"
	"github.com/pdok/walkability/walkability"
)

// LoadBoundary reads all (multi)polygons of a table into one boundary. Other
// geometry types are skipped.
func LoadBoundary(file, tableName string) (walkability.Boundary, error) {
	source, err := OpenSource(file, tableName)
	if err != nil {
		return walkability.Boundary{}, err
	}
	defer source.Close()

	features, err := processing.Collect(source)
	if err != nil {
		return walkability.Boundary{}, err
	}
	boundary := walkability.Boundary{CRS: source.CRS()}
	for _, f := range features {
		switch g := f.Geometry().(type) {
		case orb.Polygon:
			boundary.Geometry = append(boundary.Geometry, g)
		case orb.MultiPolygon:
			boundary.Geometry = append(boundary.Geometry, g...)
		}
	}
	zap.L().Info("boundary loaded", zap.String("file", file), zap.String("table", source.TableName()),
		zap.Int("polygons", len(boundary.Geometry)), zap.Stringer("crs", boundary.CRS))
	if len(boundary.Geometry) == 0 {
		return boundary, eris.Wrapf(walkability.ErrInvalidBoundary, "gpkg: no polygons in %s", file)
	}
	return boundary, nil
}

// LoadPOIs reads the points of a table. Name and category come from the
// columns "name" and "category"; the id from "poi_id", "osm_id" or "id", falling
// back to the row number. Multipoints contribute each of their points.
func LoadPOIs(file, tableName string) (walkability.POISet, error) {
	source, err := OpenSource(file, tableName)
	if err != nil {
		return walkability.POISet{}, err
	}
	defer source.Close()

	names := source.ColumnNames()
	index := func(candidates ...string) int {
		for _, c := range candidates {
			for i, n := range names {
				if strings.EqualFold(n, c) {
					return i
				}
			}
		}
		return -1
	}
	idCol, nameCol, categoryCol := index("poi_id", "osm_id", "id", "fid"), index("name"), index("category")

	features, err := processing.Collect(source)
	if err != nil {
		return walkability.POISet{}, err
	}
	pois := walkability.POISet{CRS: source.CRS()}
	for i, f := range features {
		cols := f.Columns()
		poi := walkability.POI{
			ID:       columnString(cols, idCol, fmt.Sprintf("%d", i+1)),
			Name:     columnString(cols, nameCol, ""),
			Category: columnString(cols, categoryCol, ""),
		}
		switch g := f.Geometry().(type) {
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
	zap.L().Info("pois loaded", zap.String("file", file), zap.Int("pois", pois.Len()), zap.Stringer("crs", pois.CRS))
	return pois, nil
}

func columnString(cols []any, i int, def string) string {
	if i < 0 || i >= len(cols) || cols[i] == nil {
		return def
	}
	return fmt.Sprint(cols[i])
}
