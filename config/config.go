package config

import (
	"io"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/pdok/walkability/crs"
	"github.com/pdok/walkability/osm"
	"github.com/pdok/walkability/walkability"
)

// EnvPrefix prefixes environment variables overriding configuration keys,
// e.g. WALKABILITY_SCORING_CELL_SIZE.
const EnvPrefix = "WALKABILITY"

// TargetUTM selects the UTM zone of the boundary centroid as target CRS.
const TargetUTM = "utm"

// Config holds the full application configuration.
type Config struct {
	Log         LogConfig      `yaml:"log" mapstructure:"log"`
	Overpass    OverpassConfig `yaml:"overpass" mapstructure:"overpass"`
	Scoring     ScoringConfig  `yaml:"scoring" mapstructure:"scoring"`
	Output      OutputConfig   `yaml:"output" mapstructure:"output"`
	Concurrency int            `yaml:"concurrency" mapstructure:"concurrency" default:"2" validate:"min=1"`
	Areas       []AreaConfig   `yaml:"areas" mapstructure:"areas" validate:"unique=Name,dive"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level" default:"info"`
	Format string `yaml:"format" mapstructure:"format" default:"json" validate:"oneof=json console"`
}

// OverpassConfig configures POI downloads. Filters default to public
// transport stops and stations.
type OverpassConfig struct {
	Endpoint    string         `yaml:"endpoint" mapstructure:"endpoint" default:"https://overpass-api.de/api/interpreter" validate:"url"`
	Timeout     time.Duration  `yaml:"timeout" mapstructure:"timeout" default:"180s" validate:"gt=0"`
	Proxy       string         `yaml:"proxy" mapstructure:"proxy" validate:"omitempty,url"`
	MaxParallel int            `yaml:"max_parallel" mapstructure:"max_parallel" default:"1" validate:"min=1"`
	Filters     osm.TagFilters `yaml:"filters" mapstructure:"filters" validate:"min=1,dive"`
}

func (o *OverpassConfig) SetDefaults() {
	if len(o.Filters) == 0 {
		o.Filters = osm.DefaultTransitFilters()
	}
}

func (o OverpassConfig) Settings() osm.Settings {
	return osm.Settings{Endpoint: o.Endpoint, Timeout: o.Timeout, Proxy: o.Proxy, MaxParallel: o.MaxParallel}
}

type ScoringConfig struct {
	CellSize    float64 `yaml:"cell_size" mapstructure:"cell_size" default:"500" validate:"gt=0"`
	Bands       string  `yaml:"bands" mapstructure:"bands" default:"400:3,800:2,1200:1" validate:"required"`
	Degenerate  string  `yaml:"degenerate" mapstructure:"degenerate" default:"zero" validate:"oneof=zero nan"`
	Strategy    string  `yaml:"strategy" mapstructure:"strategy" default:"indexed" validate:"oneof=all-pairs indexed"`
	Workers     int     `yaml:"workers" mapstructure:"workers" default:"4" validate:"min=1"`
	MinCellArea float64 `yaml:"min_cell_area" mapstructure:"min_cell_area" validate:"min=0"`
	// TargetCRS is "utm" or a projected CRS such as EPSG:3857.
	TargetCRS string `yaml:"target_crs" mapstructure:"target_crs" default:"utm" validate:"required"`
}

// Options converts the scoring configuration into pipeline options.
func (s ScoringConfig) Options() (walkability.Options, error) {
	opts := walkability.DefaultOptions()
	var err error
	if opts.Bands, err = walkability.ParseBands(s.Bands); err != nil {
		return opts, err
	}
	if opts.Degenerate, err = walkability.ParseDegeneratePolicy(s.Degenerate); err != nil {
		return opts, err
	}
	if opts.Strategy, err = walkability.ParseStrategy(s.Strategy); err != nil {
		return opts, err
	}
	opts.CellSize = s.CellSize
	opts.Workers = s.Workers
	opts.MinCellArea = s.MinCellArea
	return opts, opts.Validate()
}

// Target returns the configured target CRS, or a zero CRS for "utm".
func (s ScoringConfig) Target() (crs.CRS, error) {
	if strings.EqualFold(s.TargetCRS, TargetUTM) {
		return crs.CRS{}, nil
	}
	c, err := crs.Parse(s.TargetCRS)
	if err != nil {
		return c, err
	}
	if !crs.Supported(c) || c.IsGeographic() {
		return c, eris.Wrapf(walkability.ErrCrsMismatch, "config: target crs %s is not a supported projected crs", c)
	}
	return c, nil
}

type OutputConfig struct {
	Dir        string `yaml:"dir" mapstructure:"dir" default:"output" validate:"required"`
	GeoPackage bool   `yaml:"geopackage" mapstructure:"geopackage" default:"true"`
	GeoJSON    bool   `yaml:"geojson" mapstructure:"geojson" default:"true"`
	Overwrite  bool   `yaml:"overwrite" mapstructure:"overwrite"`
}

// AreaConfig is one study area. Boundary and POIs are .geojson, .shp or
// .gpkg files; without POIs they are downloaded from OpenStreetMap.
type AreaConfig struct {
	Name  string `yaml:"name" mapstructure:"name" validate:"required"`
	Group string `yaml:"group,omitempty" mapstructure:"group"`
	// Boundary is the file holding the area polygons.
	Boundary string `yaml:"boundary" mapstructure:"boundary" validate:"required"`
	// BoundaryLayer names the table when Boundary is a GeoPackage.
	BoundaryLayer string `yaml:"boundary_layer,omitempty" mapstructure:"boundary_layer"`
	// CRS replaces the CRS of the boundary file, e.g. for a shapefile without
	// .prj.
	CRS      string `yaml:"crs,omitempty" mapstructure:"crs"`
	POIs     string `yaml:"pois,omitempty" mapstructure:"pois"`
	POILayer string `yaml:"poi_layer,omitempty" mapstructure:"poi_layer"`
}

// Default returns the configuration without any file or environment applied.
func Default() (*Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: set defaults")
	}
	return &cfg, nil
}

// Load reads configuration from path, when given, and the environment on
// top of the defaults.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// viper only resolves environment variables for keys it knows of
	flat, err := flatten(cfg)
	if err != nil {
		return nil, err
	}
	for k, val := range flat {
		v.SetDefault(k, val)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, eris.Wrapf(err, "config: read %s", path)
		}
	}
	// every key has a default, so decoding into a fresh value loses nothing
	var loaded Config
	if err := v.Unmarshal(&loaded); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := loaded.Validate(); err != nil {
		return nil, err
	}
	return &loaded, nil
}

func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return eris.Wrap(err, "config: invalid")
	}
	if _, err := c.Scoring.Options(); err != nil {
		return eris.Wrap(err, "config: invalid scoring")
	}
	if _, err := c.Scoring.Target(); err != nil {
		return err
	}
	return nil
}

// flatten turns cfg into dotted keys, e.g. "scoring.cell_size". Lists are
// kept whole.
func flatten(cfg *Config) (map[string]any, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, eris.Wrap(err, "config: marshal defaults")
	}
	var tree map[string]any
	if err = yaml.Unmarshal(raw, &tree); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal defaults")
	}
	flat := make(map[string]any)
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			if sub, ok := v.(map[string]any); ok {
				walk(prefix+k+".", sub)
				continue
			}
			flat[prefix+k] = v
		}
	}
	walk("", tree)
	return flat, nil
}

// WriteExample writes cfg as YAML, as a starting point for a config file.
func WriteExample(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return eris.Wrap(err, "config: encode")
	}
	return eris.Wrap(enc.Close(), "config: encode")
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
