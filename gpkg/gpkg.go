// Package gpkg reads boundaries and points of interest from, and writes scored
// grids to, OGC GeoPackages.
package gpkg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/gpkg"
	"github.com/rotisserie/eris"

	"github.com/pdok/walkability/crs"
	"github.com/pdok/walkability/geomhelp"
	"github.com/pdok/walkability/processing"
)

const geometryColumn = "geom"

type column struct {
	cid       int
	name      string
	ctype     string
	notnull   int
	dfltValue *string
	pk        int
}

type table struct {
	name    string
	columns []column
	gcolumn string
	gtype   gpkg.GeometryType
	srs     gpkg.SpatialReferenceSystem
}

// geometryTypeFromString returns the numeric value of a geometry type name
func geometryTypeFromString(geometrytype string) gpkg.GeometryType {
	switch strings.ToUpper(geometrytype) {
	case "POINT":
		return gpkg.Point
	case "POLYGON":
		return gpkg.Polygon
	case "MULTIPOINT":
		return gpkg.MultiPoint
	case "MULTIPOLYGON":
		return gpkg.MultiPolygon
	default:
		return gpkg.Geometry
	}
}

// srsToCRS maps a gpkg_spatial_ref_sys row to a CRS. Undefined systems
// (srs_id -1 and 0, or organization NONE) map to the zero CRS.
func srsToCRS(srs gpkg.SpatialReferenceSystem) crs.CRS {
	org := strings.ToUpper(strings.TrimSpace(srs.Organization))
	if org == "" || org == "NONE" || srs.OrganizationCoordsysID <= 0 {
		return crs.CRS{}
	}
	return crs.CRS{Authority: org, Code: strconv.Itoa(srs.OrganizationCoordsysID)}
}

func crsToSRS(c crs.CRS) (gpkg.SpatialReferenceSystem, error) {
	srid, err := c.SRID()
	if err != nil {
		return gpkg.SpatialReferenceSystem{}, err
	}
	return gpkg.SpatialReferenceSystem{
		Name:                   c.String(),
		ID:                     srid,
		Organization:           crs.AuthorityEPSG,
		OrganizationCoordsysID: srid,
		Definition:             "undefined",
		Description:            c.URI(),
	}, nil
}

func openGeopackage(file string) (*gpkg.Handle, error) {
	handle, err := gpkg.Open(file)
	if err != nil {
		return nil, eris.Wrapf(err, "gpkg: open %s", file)
	}
	return handle, nil
}

// Source reads the features of one table.
type Source struct {
	handle *gpkg.Handle
	table  table
}

// OpenSource opens file and selects the feature table with the given name, or
// the first feature table when name is empty.
func OpenSource(file, name string) (*Source, error) {
	if _, err := os.Stat(file); err != nil {
		return nil, eris.Wrapf(err, "gpkg: source %s", file)
	}
	handle, err := openGeopackage(file)
	if err != nil {
		return nil, err
	}
	tables, err := getTableInfo(handle)
	if err != nil {
		handle.Close()
		return nil, err
	}
	for _, t := range tables {
		if name == "" || t.name == name {
			return &Source{handle: handle, table: t}, nil
		}
	}
	handle.Close()
	return nil, eris.Errorf("gpkg: no feature table %q in %s", name, file)
}

func (source *Source) Close() error {
	return source.handle.Close()
}

func (source *Source) TableName() string {
	return source.table.name
}

// CRS of the table's geometry column.
func (source *Source) CRS() crs.CRS {
	return srsToCRS(source.table.srs)
}

// ColumnNames lists the attribute columns, geometry excluded, in the order
// ReadFeatures emits them.
func (source *Source) ColumnNames() []string {
	var names []string
	for _, c := range source.table.columns {
		if c.name != source.table.gcolumn {
			names = append(names, c.name)
		}
	}
	return names
}

func (source *Source) ReadFeatures(features chan<- processing.Feature) error {
	defer close(features)

	rows, err := source.handle.Query(source.table.selectSQL())
	if err != nil {
		return eris.Wrapf(err, "gpkg: query %s", source.table.name)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return eris.Wrap(err, "gpkg: read columns")
	}

	for rows.Next() {
		vals := make([]interface{}, len(cols))
		valPtrs := make([]interface{}, len(cols))
		for i := 0; i < len(cols); i++ {
			valPtrs[i] = &vals[i]
		}

		if err = rows.Scan(valPtrs...); err != nil {
			return eris.Wrap(err, "gpkg: read row values")
		}
		var c []any
		var g geom.Geometry

		for i, colName := range cols {
			switch colName {
			case source.table.gcolumn:
				raw, ok := vals[i].([]byte)
				if !ok {
					continue
				}
				wkbgeom, err := gpkg.DecodeGeometry(raw)
				if err != nil {
					return eris.Wrap(err, "gpkg: decode geometry")
				}
				g = wkbgeom.Geometry
			default:
				switch v := vals[i].(type) {
				case []uint8:
					c = append(c, string(v))
				case int64, float64, time.Time, string, nil:
					c = append(c, v)
				default:
					return eris.Errorf("gpkg: unexpected type for column %v: %T", colName, v)
				}
			}
		}
		if g == nil {
			continue
		}
		og, err := geomhelp.FromGeom(g)
		if err != nil {
			return eris.Wrapf(err, "gpkg: table %s", source.table.name)
		}
		features <- processing.NewFeature(c, og)
	}
	return eris.Wrap(rows.Err(), "gpkg: iterate rows")
}

func getTableInfo(h *gpkg.Handle) ([]table, error) {
	query := `SELECT table_name, column_name, geometry_type_name, srs_id FROM gpkg_geometry_columns;`
	rows, err := h.Query(query)
	if err != nil {
		return nil, eris.Wrapf(err, "gpkg: %v", query)
	}
	defer rows.Close()

	var tables []table
	for rows.Next() {
		var t table
		var gtype string
		var srsID int
		if err := rows.Scan(&t.name, &t.gcolumn, &gtype, &srsID); err != nil {
			return nil, eris.Wrap(err, "gpkg: read table information")
		}
		t.gtype = geometryTypeFromString(gtype)
		tables = append(tables, t)
		tables[len(tables)-1].srs.ID = srsID
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "gpkg: read table information")
	}
	for i := range tables {
		if tables[i].columns, err = getTableColumns(h, tables[i].name); err != nil {
			return nil, err
		}
		if tables[i].srs, err = getSpatialReferenceSystem(h, tables[i].srs.ID); err != nil {
			return nil, err
		}
	}
	return tables, nil
}

// getSpatialReferenceSystem extracts this based on the given SRS id
func getSpatialReferenceSystem(h *gpkg.Handle, id int) (gpkg.SpatialReferenceSystem, error) {
	var srs gpkg.SpatialReferenceSystem
	query := `SELECT srs_name, srs_id, organization, organization_coordsys_id, definition, description FROM gpkg_spatial_ref_sys WHERE srs_id = %v;`

	row := h.QueryRow(fmt.Sprintf(query, id))
	var description *string
	if err := row.Scan(&srs.Name, &srs.ID, &srs.Organization, &srs.OrganizationCoordsysID, &srs.Definition, &description); err != nil {
		return srs, eris.Wrapf(err, "gpkg: spatial reference system %d", id)
	}
	if description != nil {
		srs.Description = *description
	}
	return srs, nil
}

// getTableColumns collects the column information of a given table
func getTableColumns(h *gpkg.Handle, table string) ([]column, error) {
	var columns []column
	query := `PRAGMA table_info('%v');`
	rows, err := h.Query(fmt.Sprintf(query, table))
	if err != nil {
		return nil, eris.Wrapf(err, "gpkg: columns of %s", table)
	}
	defer rows.Close()

	for rows.Next() {
		var column column
		err := rows.Scan(&column.cid, &column.name, &column.ctype, &column.notnull, &column.dfltValue, &column.pk)
		if err != nil {
			return nil, eris.Wrap(err, "gpkg: read column information")
		}
		columns = append(columns, column)
	}
	return columns, eris.Wrap(rows.Err(), "gpkg: read column information")
}

// selectSQL builds a SELECT statement based on the table and columns
// used for reading the source features
func (t table) selectSQL() string {
	var csql []string
	for _, c := range t.columns {
		if c.name != t.gcolumn {
			csql = append(csql, `"`+c.name+`"`)
		}
	}
	csql = append(csql, `"`+t.gcolumn+`"`)
	return `SELECT ` + strings.Join(csql, `,`) + ` FROM "` + t.name + `";`
}

// createSQL creates a CREATE statement on the given table and column information
// used for creating feature tables in the target GeoPackage
func (t table) createSQL() string {
	create := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS "%v"`, t.name)
	var columnparts []string
	for _, column := range t.columns {
		columnpart := `"` + column.name + `" ` + column.ctype
		if column.notnull == 1 {
			columnpart = columnpart + ` NOT NULL`
		}
		if column.pk == 1 {
			columnpart = columnpart + ` PRIMARY KEY AUTOINCREMENT`
		}
		columnparts = append(columnparts, columnpart)
	}
	return create + `(` + strings.Join(columnparts, `, `) + `);`
}

// insertSQL used for writing the features, primary key excluded
func (t table) insertSQL() string {
	var csql, vsql []string
	for _, c := range t.columns {
		if c.name != t.gcolumn && c.pk != 1 {
			csql = append(csql, `"`+c.name+`"`)
			vsql = append(vsql, `?`)
		}
	}
	csql = append(csql, `"`+t.gcolumn+`"`)
	vsql = append(vsql, `?`)
	return `INSERT INTO "` + t.name + `"(` + strings.Join(csql, `,`) + `) VALUES(` + strings.Join(vsql, `,`) + `)`
}
