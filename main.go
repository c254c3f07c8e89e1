package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/carlmjohnson/versioninfo"
	"github.com/iancoleman/strcase"
	"github.com/rotisserie/eris"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/pdok/walkability/config"
	"github.com/pdok/walkability/report"
	"github.com/pdok/walkability/runner"
)

const CONFIG string = `config`
const NAME string = `name`
const GROUP string = `group`
const BOUNDARY string = `boundary`
const BOUNDARYLAYER string = `boundaryLayer`
const BOUNDARYCRS string = `boundaryCrs`
const POIS string = `pois`
const POILAYER string = `poiLayer`
const OUTPUT string = `output`
const OVERWRITE string = `overwrite`
const CELLSIZE string = `cellSize`
const BANDS string = `bands`
const TARGETCRS string = `targetCrs`
const STRATEGY string = `strategy`
const WORKERS string = `workers`
const DEGENERATE string = `degenerate`

//nolint:funlen
func main() {
	app := cli.NewApp()
	app.Name = "walkability"
	app.Usage = "Grid based walkability scores for areas, from the distance of cells to points of interest"
	app.Version = versioninfo.Short()

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    CONFIG,
			Aliases: []string{"c"},
			Usage:   "YAML config file. Keys can be overridden with WALKABILITY_ prefixed environment variables",
			EnvVars: []string{strcase.ToScreamingSnake(CONFIG)},
		},
	}

	scoringFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    OUTPUT,
			Aliases: []string{"o"},
			Usage:   "Output directory",
			EnvVars: []string{strcase.ToScreamingSnake(OUTPUT)},
		},
		&cli.BoolFlag{
			Name:    OVERWRITE,
			Usage:   "Overwrite a target GPKG if it exists",
			EnvVars: []string{strcase.ToScreamingSnake(OVERWRITE)},
		},
		&cli.Float64Flag{
			Name:    CELLSIZE,
			Aliases: []string{"s"},
			Usage:   "Side of a grid cell in metres",
			EnvVars: []string{strcase.ToScreamingSnake(CELLSIZE)},
		},
		&cli.StringFlag{
			Name:    BANDS,
			Usage:   `Distance bands as <metres>:<points>, nearest first. E.g.: 400:3,800:2,1200:1`,
			EnvVars: []string{strcase.ToScreamingSnake(BANDS)},
		},
		&cli.StringFlag{
			Name:    TARGETCRS,
			Aliases: []string{"t"},
			Usage:   `CRS the grid is computed in: "utm" for the zone of the area, or e.g. EPSG:3857`,
			EnvVars: []string{strcase.ToScreamingSnake(TARGETCRS)},
		},
		&cli.StringFlag{
			Name:    STRATEGY,
			Usage:   `How distances are enumerated: "indexed" or "all-pairs"`,
			EnvVars: []string{strcase.ToScreamingSnake(STRATEGY)},
		},
		&cli.IntFlag{
			Name:    WORKERS,
			Aliases: []string{"w"},
			Usage:   "Goroutines scoring cells",
			EnvVars: []string{strcase.ToScreamingSnake(WORKERS)},
		},
		&cli.StringFlag{
			Name:    DEGENERATE,
			Usage:   `Score of all cells when every cell has the same raw score: "zero" or "nan"`,
			EnvVars: []string{strcase.ToScreamingSnake(DEGENERATE)},
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:  "score",
			Usage: "Score a single area",
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:     NAME,
					Aliases:  []string{"n"},
					Usage:    "Name of the area, also the base name of the output files",
					Required: true,
					EnvVars:  []string{strcase.ToScreamingSnake(NAME)},
				},
				&cli.StringFlag{
					Name:    GROUP,
					Usage:   "Group of the area, e.g. its continent",
					EnvVars: []string{strcase.ToScreamingSnake(GROUP)},
				},
				&cli.StringFlag{
					Name:     BOUNDARY,
					Aliases:  []string{"b"},
					Usage:    "Boundary file: GeoJSON, Shapefile or GPKG",
					Required: true,
					EnvVars:  []string{strcase.ToScreamingSnake(BOUNDARY)},
				},
				&cli.StringFlag{
					Name:    BOUNDARYLAYER,
					Usage:   "Table in a boundary GPKG, the first feature table if empty",
					EnvVars: []string{strcase.ToScreamingSnake(BOUNDARYLAYER)},
				},
				&cli.StringFlag{
					Name:    BOUNDARYCRS,
					Usage:   "CRS of the boundary, replacing the one of the file. E.g.: EPSG:32631",
					EnvVars: []string{strcase.ToScreamingSnake(BOUNDARYCRS)},
				},
				&cli.StringFlag{
					Name:    POIS,
					Aliases: []string{"p"},
					Usage:   "POI file: GeoJSON or GPKG. Downloaded from OpenStreetMap if empty",
					EnvVars: []string{strcase.ToScreamingSnake(POIS)},
				},
				&cli.StringFlag{
					Name:    POILAYER,
					Usage:   "Table in a POI GPKG, the first feature table if empty",
					EnvVars: []string{strcase.ToScreamingSnake(POILAYER)},
				},
			}, scoringFlags...),
			Action: func(c *cli.Context) error {
				cfg, err := loadConfig(c)
				if err != nil {
					return err
				}
				r, err := runner.New(cfg, nil)
				if err != nil {
					return err
				}
				result, err := r.Area(c.Context, config.AreaConfig{
					Name:          c.String(NAME),
					Group:         c.String(GROUP),
					Boundary:      c.String(BOUNDARY),
					BoundaryLayer: c.String(BOUNDARYLAYER),
					CRS:           c.String(BOUNDARYCRS),
					POIs:          c.String(POIS),
					POILayer:      c.String(POILAYER),
				})
				if err != nil {
					return err
				}
				results := report.NewResults()
				if err = results.Add(result.Summary); err != nil {
					return err
				}
				return results.WriteTable(os.Stdout)
			},
		},
		{
			Name:  "batch",
			Usage: "Score all areas of the config file and compare them",
			Flags: scoringFlags,
			Action: func(c *cli.Context) error {
				cfg, err := loadConfig(c)
				if err != nil {
					return err
				}
				if len(cfg.Areas) == 0 {
					return eris.New("no areas configured")
				}
				r, err := runner.New(cfg, nil)
				if err != nil {
					return err
				}
				zap.L().Info("=== start batch ===", zap.Int("areas", len(cfg.Areas)), zap.Int("concurrency", cfg.Concurrency))
				results, batchErr := r.Batch(c.Context, cfg.Areas)
				if err = results.WriteTable(os.Stdout); err != nil {
					return err
				}
				if best, ties, ok := results.Best(); ok {
					zap.L().Info("best area", zap.Object("summary", best), zap.Uint("ties", ties))
				}
				zap.L().Info("=== done batch ===")
				return batchErr
			},
		},
		{
			Name:  "init-config",
			Usage: "Print a config file with all defaults",
			Action: func(c *cli.Context) error {
				cfg, err := config.Default()
				if err != nil {
					return err
				}
				cfg.Areas = []config.AreaConfig{{Name: "Amsterdam", Group: "Europe", Boundary: "amsterdam.geojson"}}
				return config.WriteExample(os.Stdout, cfg)
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := app.RunContext(ctx, os.Args)
	stop()
	_ = zap.L().Sync()
	if err != nil {
		log.Fatal(err)
	}
}

// loadConfig reads the config file and applies the flags that were set.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String(CONFIG))
	if err != nil {
		return nil, err
	}
	if c.IsSet(OUTPUT) {
		cfg.Output.Dir = c.String(OUTPUT)
	}
	if c.IsSet(OVERWRITE) {
		cfg.Output.Overwrite = c.Bool(OVERWRITE)
	}
	if c.IsSet(CELLSIZE) {
		cfg.Scoring.CellSize = c.Float64(CELLSIZE)
	}
	if c.IsSet(BANDS) {
		cfg.Scoring.Bands = c.String(BANDS)
	}
	if c.IsSet(TARGETCRS) {
		cfg.Scoring.TargetCRS = c.String(TARGETCRS)
	}
	if c.IsSet(STRATEGY) {
		cfg.Scoring.Strategy = c.String(STRATEGY)
	}
	if c.IsSet(WORKERS) {
		cfg.Scoring.Workers = c.Int(WORKERS)
	}
	if c.IsSet(DEGENERATE) {
		cfg.Scoring.Degenerate = c.String(DEGENERATE)
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	if err = config.InitLogger(cfg.Log); err != nil {
		return nil, err
	}
	return cfg, nil
}
