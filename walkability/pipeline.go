package walkability

import (
	"github.com/rotisserie/eris"

	"github.com/pdok/walkability/mathhelp"
)

type Options struct {
	// CellSize is the side of a grid square in CRS units (metres).
	CellSize   float64
	Bands      Bands
	Degenerate DegeneratePolicy
	Strategy   Strategy
	Workers    int
	// MinCellArea drops clipped cells of at most this area.
	MinCellArea float64
}

func DefaultOptions() Options {
	return Options{
		CellSize:   500,
		Bands:      DefaultBands(),
		Degenerate: DegenerateZero,
		Strategy:   AllPairs,
		Workers:    1,
	}
}

func (o Options) Validate() error {
	if !mathhelp.IsFinite(o.CellSize) || o.CellSize <= 0 {
		return eris.Wrapf(ErrInvalidConfig, "walkability: cell size %v, must be positive", o.CellSize)
	}
	if err := o.Bands.Validate(); err != nil {
		return err
	}
	if o.Workers < 1 {
		return eris.Wrapf(ErrInvalidConfig, "walkability: %d workers", o.Workers)
	}
	if o.Strategy != AllPairs && o.Strategy != Indexed {
		return eris.Wrapf(ErrInvalidConfig, "walkability: unknown strategy %d", o.Strategy)
	}
	if o.Degenerate != DegenerateZero && o.Degenerate != DegenerateNaN {
		return eris.Wrapf(ErrInvalidConfig, "walkability: unknown degenerate policy %d", o.Degenerate)
	}
	if !mathhelp.IsFinite(o.MinCellArea) || o.MinCellArea < 0 {
		return eris.Wrapf(ErrInvalidConfig, "walkability: minimum cell area %v", o.MinCellArea)
	}
	return nil
}

// Run tiles the boundary, scores the cells against the POIs and normalizes
// the scores, in that order. All input is validated before any work starts.
func Run(boundary Boundary, pois POISet, opts Options) (*Grid, error) {
	if err := checkCRS(boundary.CRS, pois.CRS); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := boundary.validate(); err != nil {
		return nil, err
	}
	if err := pois.validate(); err != nil {
		return nil, err
	}

	grid, err := Tile(boundary, opts.CellSize, WithMinCellArea(opts.MinCellArea))
	if err != nil {
		return nil, err
	}
	if err = Score(grid, pois, opts.Bands, WithStrategy(opts.Strategy), WithWorkers(opts.Workers)); err != nil {
		return nil, err
	}
	Normalize(grid, opts.Degenerate)
	return grid, nil
}
