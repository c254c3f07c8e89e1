package gpkg

import (
	"os"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/gpkg"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pdok/walkability/crs"
	"github.com/pdok/walkability/geomhelp"
	"github.com/pdok/walkability/processing"
)

// GeometryType of a target table.
type GeometryType = gpkg.GeometryType

const (
	Point        = gpkg.Point
	MultiPolygon = gpkg.MultiPolygon
)

type Target struct {
	handle *gpkg.Handle
	file   string
}

// OpenTarget opens or creates the GeoPackage file. With overwrite an
// existing file is removed first.
func OpenTarget(file string, overwrite bool) (*Target, error) {
	if overwrite {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			return nil, eris.Wrapf(err, "gpkg: remove %s", file)
		}
	}
	handle, err := openGeopackage(file)
	if err != nil {
		return nil, err
	}
	return &Target{handle: handle, file: file}, nil
}

func (target *Target) Close() error {
	return target.handle.Close()
}

// Table creates a feature table with an autoincrement fid, the given
// attribute columns and a geometry column, and returns a processing.Target
// writing into it.
func (target *Target) Table(name string, columns []processing.Column, gtype GeometryType, c crs.CRS) (processing.Target, error) {
	srs, err := crsToSRS(c)
	if err != nil {
		return nil, eris.Wrapf(err, "gpkg: table %s", name)
	}
	t := table{name: name, gcolumn: geometryColumn, gtype: gtype, srs: srs}
	t.columns = append(t.columns, column{name: "fid", ctype: "INTEGER", notnull: 1, pk: 1})
	for _, col := range columns {
		t.columns = append(t.columns, column{name: col.Name, ctype: col.Type})
	}
	t.columns = append(t.columns, column{name: geometryColumn, ctype: gtypeName(gtype)})

	if err = target.handle.UpdateSRS(t.srs); err != nil {
		return nil, eris.Wrapf(err, "gpkg: register srs %d", srs.ID)
	}
	if err = buildTable(target.handle, t); err != nil {
		return nil, err
	}
	return &tableTarget{handle: target.handle, table: t}, nil
}

func gtypeName(gtype GeometryType) string {
	switch gtype {
	case gpkg.Point:
		return "POINT"
	case gpkg.MultiPolygon:
		return "MULTIPOLYGON"
	case gpkg.Polygon:
		return "POLYGON"
	case gpkg.MultiPoint:
		return "MULTIPOINT"
	}
	return "GEOMETRY"
}

// buildTable creates a given destination table with the necessary gpkg_ information
func buildTable(h *gpkg.Handle, t table) error {
	if _, err := h.Exec(t.createSQL()); err != nil {
		return eris.Wrapf(err, "gpkg: create table %s", t.name)
	}

	err := h.AddGeometryTable(gpkg.TableDescription{
		Name:          t.name,
		ShortName:     t.name,
		Description:   t.name,
		GeometryField: t.gcolumn,
		GeometryType:  t.gtype,
		SRS:           int32(t.srs.ID),
		//
		Z: gpkg.Prohibited,
		M: gpkg.Prohibited,
	})
	return eris.Wrapf(err, "gpkg: add geometry table %s", t.name)
}

type tableTarget struct {
	handle *gpkg.Handle
	table  table
}

// WriteFeatures inserts all features in one transaction and updates the
// table extent.
func (target *tableTarget) WriteFeatures(features <-chan processing.Feature) error {
	tx, err := target.handle.Begin()
	if err != nil {
		return eris.Wrap(err, "gpkg: start a transaction")
	}

	stmt, err := tx.Prepare(target.table.insertSQL())
	if err != nil {
		_ = tx.Rollback()
		return eris.Wrap(err, "gpkg: prepare insert")
	}

	var ext *geom.Extent
	var count int
	for f := range features {
		g, err := geomhelp.ToGeom(f.Geometry())
		if err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return eris.Wrapf(err, "gpkg: table %s", target.table.name)
		}
		sb, err := gpkg.NewBinary(int32(target.table.srs.ID), g)
		if err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return eris.Wrap(err, "gpkg: create a binary geometry")
		}

		data := append(append([]any{}, f.Columns()...), sb)
		if _, err = stmt.Exec(data...); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return eris.Wrapf(err, "gpkg: insert feature %d into %s", count, target.table.name)
		}
		count++

		if ext == nil {
			ext, err = geom.NewExtentFromGeometry(g)
			if err != nil {
				ext = nil
				zap.L().Warn("failed to create extent", zap.Error(err))
			}
		} else if err = ext.AddGeometry(g); err != nil {
			zap.L().Warn("failed to extend extent", zap.Error(err))
		}
	}
	if err = stmt.Close(); err != nil {
		_ = tx.Rollback()
		return eris.Wrap(err, "gpkg: close statement")
	}
	if err = tx.Commit(); err != nil {
		return eris.Wrap(err, "gpkg: commit")
	}

	if ext != nil {
		if err = target.handle.UpdateGeometryExtent(target.table.name, ext); err != nil {
			return eris.Wrapf(err, "gpkg: update extent of %s", target.table.name)
		}
	}
	zap.L().Info("table written", zap.String("table", target.table.name), zap.Int("features", count))
	return nil
}
