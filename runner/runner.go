// Package runner computes the walkability of configured areas: it loads the
// boundary and POIs, projects them to a metric CRS, scores the grid and
// writes the results.
package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdok/walkability/config"
	"github.com/pdok/walkability/crs"
	"github.com/pdok/walkability/geojsonfile"
	"github.com/pdok/walkability/gpkg"
	"github.com/pdok/walkability/osm"
	"github.com/pdok/walkability/processing"
	"github.com/pdok/walkability/report"
	"github.com/pdok/walkability/shapefile"
	"github.com/pdok/walkability/walkability"
)

const (
	CellsTable = "cells"
	POIsTable  = "pois"
)

// POIFetcher downloads POIs inside a WGS84 bounding box.
type POIFetcher interface {
	Fetch(ctx context.Context, bbox orb.Bound, filters osm.TagFilters) (walkability.POISet, error)
}

type Runner struct {
	cfg     *config.Config
	opts    walkability.Options
	target  crs.CRS
	fetcher POIFetcher
}

// New returns a Runner for cfg. Without a fetcher POIs are downloaded from
// the configured Overpass endpoint.
func New(cfg *config.Config, fetcher POIFetcher) (*Runner, error) {
	opts, err := cfg.Scoring.Options()
	if err != nil {
		return nil, err
	}
	target, err := cfg.Scoring.Target()
	if err != nil {
		return nil, err
	}
	if fetcher == nil {
		if fetcher, err = osm.NewClient(cfg.Overpass.Settings()); err != nil {
			return nil, err
		}
	}
	return &Runner{cfg: cfg, opts: opts, target: target, fetcher: fetcher}, nil
}

// Result of one area.
type Result struct {
	Summary report.Summary
	Grid    *walkability.Grid
	POIs    walkability.POISet
	// Files written.
	Files []string
}

// Area scores a single area and writes its outputs.
func (r *Runner) Area(ctx context.Context, area config.AreaConfig) (*Result, error) {
	start := time.Now()
	log := zap.L().With(zap.String("area", area.Name))
	log.Info("=== start area ===")

	boundary, err := LoadBoundary(area)
	if err != nil {
		return nil, err
	}
	boundary, wgs84, err := r.project(boundary)
	if err != nil {
		return nil, eris.Wrapf(err, "runner: project boundary of %s", area.Name)
	}
	log.Info("boundary projected", zap.Stringer("crs", boundary.CRS), zap.Float64("area_km2", boundary.Area()/1e6))

	pois, err := r.pois(ctx, area, wgs84)
	if err != nil {
		return nil, err
	}
	if pois, err = transformPOIs(pois, boundary.CRS); err != nil {
		return nil, eris.Wrapf(err, "runner: project pois of %s", area.Name)
	}
	inside := pois.Within(boundary)
	log.Info("pois inside boundary", zap.Int("pois", pois.Len()), zap.Int("inside", inside.Len()))

	grid, err := walkability.Run(boundary, inside, r.opts)
	if err != nil {
		return nil, eris.Wrapf(err, "runner: score %s", area.Name)
	}

	result := &Result{Grid: grid, POIs: inside, Summary: report.Summarize(area.Name, area.Group, grid, inside.Len())}
	if result.Files, err = r.write(area, grid, inside); err != nil {
		return nil, err
	}
	log.Info("=== done area ===", zap.Object("summary", result.Summary), zap.Duration("took", time.Since(start)))
	return result, nil
}

// Batch scores areas concurrently. An area that fails is logged and left
// out of the results; the returned error then counts the failures.
func (r *Runner) Batch(ctx context.Context, areas []config.AreaConfig) (*report.Results, error) {
	results := make([]*Result, len(areas))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i, area := range areas {
		i, area := i, area
		g.Go(func() error {
			result, err := r.Area(ctx, area)
			if err != nil {
				zap.L().Error("area failed", zap.String("area", area.Name), zap.Error(err))
				return nil
			}
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()

	summaries := report.NewResults()
	failed := 0
	for _, result := range results {
		if result == nil {
			failed++
			continue
		}
		if err := summaries.Add(result.Summary); err != nil {
			return summaries, err
		}
	}
	if failed > 0 {
		return summaries, eris.Errorf("runner: %d of %d areas failed", failed, len(areas))
	}
	return summaries, nil
}

// project moves the boundary to the target CRS, or to the UTM zone of its
// centroid. It also returns the WGS84 bounds, nil when the boundary CRS has
// no known transform; such a boundary is scored in its own CRS.
func (r *Runner) project(b walkability.Boundary) (walkability.Boundary, *orb.Bound, error) {
	var wgs84 *orb.Bound
	var centroid orb.Point
	if crs.Supported(b.CRS) {
		g, err := crs.ToWGS84(b.Geometry, b.CRS)
		if err != nil {
			return b, nil, err
		}
		bound := g.Bound()
		wgs84 = &bound
		centroid, _ = planar.CentroidArea(g)
	}

	to := r.target
	if to.IsZero() {
		if wgs84 == nil {
			to = b.CRS
		} else {
			to = crs.UTMZone(centroid)
		}
	}
	if to.IsGeographic() {
		return b, nil, eris.Wrapf(walkability.ErrCrsMismatch, "runner: boundary in geographic %s", to)
	}
	g, err := crs.Transform(b.Geometry, b.CRS, to)
	if err != nil {
		return b, nil, err
	}
	mp, ok := g.(orb.MultiPolygon)
	if !ok {
		return b, nil, eris.Errorf("runner: projected boundary is a %T", g)
	}
	return walkability.Boundary{CRS: to, Geometry: mp}, wgs84, nil
}

func (r *Runner) pois(ctx context.Context, area config.AreaConfig, wgs84 *orb.Bound) (walkability.POISet, error) {
	if area.POIs != "" {
		return LoadPOIs(area)
	}
	if wgs84 == nil {
		return walkability.POISet{}, eris.Errorf("runner: %s has no pois file and its boundary cannot be located in WGS84", area.Name)
	}
	return r.fetcher.Fetch(ctx, *wgs84, r.cfg.Overpass.Filters)
}

func transformPOIs(pois walkability.POISet, to crs.CRS) (walkability.POISet, error) {
	if pois.CRS.Equal(to) || pois.Len() == 0 {
		return walkability.POISet{CRS: to, Items: pois.Items}, nil
	}
	g, err := crs.Transform(orb.MultiPoint(pois.Points()), pois.CRS, to)
	if err != nil {
		return pois, err
	}
	points := g.(orb.MultiPoint)
	out := walkability.POISet{CRS: to, Items: make([]walkability.POI, pois.Len())}
	for i, poi := range pois.Items {
		poi.Point = points[i]
		out.Items[i] = poi
	}
	return out, nil
}

func (r *Runner) write(area config.AreaConfig, grid *walkability.Grid, pois walkability.POISet) ([]string, error) {
	out := r.cfg.Output
	if !out.GeoPackage && !out.GeoJSON {
		return nil, nil
	}
	if err := os.MkdirAll(out.Dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "runner: create %s", out.Dir)
	}
	base := filepath.Join(out.Dir, strcase.ToSnake(area.Name))

	var files []string
	var targets []processing.Target
	if out.GeoPackage {
		file := base + ".gpkg"
		target, err := gpkg.OpenTarget(file, out.Overwrite)
		if err != nil {
			return nil, err
		}
		defer target.Close()
		cells, err := target.Table(CellsTable, processing.CellColumns, gpkg.MultiPolygon, grid.CRS)
		if err != nil {
			return nil, err
		}
		points, err := target.Table(POIsTable, processing.POIColumns, gpkg.Point, grid.CRS)
		if err != nil {
			return nil, err
		}
		if err = processing.ProcessFeatures(processing.POISource{POIs: pois}, points); err != nil {
			return nil, err
		}
		targets = append(targets, cells)
		files = append(files, file)
	}
	if out.GeoJSON {
		file := base + ".geojson"
		target, err := geojsonfile.NewTarget(file, grid.CRS, processing.ColumnNames(processing.CellColumns))
		if err != nil {
			zap.L().Warn("skipping geojson output", zap.String("area", area.Name), zap.Error(err))
		} else {
			targets = append(targets, target)
			files = append(files, file)
		}
	}
	if len(targets) == 0 {
		return files, nil
	}
	if err := processing.ProcessFeatures(processing.GridSource{Grid: grid}, targets...); err != nil {
		return nil, err
	}
	return files, nil
}

// LoadBoundary reads the boundary of an area, choosing the reader by file
// extension. A configured CRS replaces the one of the file.
func LoadBoundary(area config.AreaConfig) (walkability.Boundary, error) {
	override, err := parseCRS(area.CRS)
	if err != nil {
		return walkability.Boundary{}, err
	}
	var b walkability.Boundary
	switch ext := strings.ToLower(filepath.Ext(area.Boundary)); ext {
	case ".geojson", ".json":
		b, err = geojsonfile.LoadBoundary(area.Boundary)
	case ".shp":
		b, err = shapefile.LoadBoundary(area.Boundary, override)
	case ".gpkg":
		b, err = gpkg.LoadBoundary(area.Boundary, area.BoundaryLayer)
	default:
		return b, eris.Errorf("runner: unsupported boundary file %s", area.Boundary)
	}
	if err != nil {
		return b, err
	}
	if !override.IsZero() {
		b.CRS = override
	}
	return b, nil
}

// LoadPOIs reads the POI file of an area.
func LoadPOIs(area config.AreaConfig) (walkability.POISet, error) {
	switch ext := strings.ToLower(filepath.Ext(area.POIs)); ext {
	case ".geojson", ".json":
		return geojsonfile.LoadPOIs(area.POIs)
	case ".gpkg":
		return gpkg.LoadPOIs(area.POIs, area.POILayer)
	}
	return walkability.POISet{}, eris.Errorf("runner: unsupported poi file %s", area.POIs)
}

func parseCRS(s string) (crs.CRS, error) {
	if s == "" {
		return crs.CRS{}, nil
	}
	return crs.Parse(s)
}
