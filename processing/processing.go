// Package processing takes care of the logistics around reading from a Source
// and writing to one or more Targets. Not the scoring itself.
package processing

import (
	"math"
	"sync"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pdok/walkability/walkability"
)

var (
	CellColumns = []Column{
		{Name: "col", Type: "INTEGER"},
		{Name: "row", Type: "INTEGER"},
		{Name: "raw_score", Type: "INTEGER"},
		{Name: "was", Type: "REAL"},
		{Name: "area", Type: "REAL"},
	}
	POIColumns = []Column{
		{Name: "poi_id", Type: "TEXT"},
		{Name: "name", Type: "TEXT"},
		{Name: "category", Type: "TEXT"},
	}
)

func ColumnNames(columns []Column) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}

type feature struct {
	columns  []any
	geometry orb.Geometry
}

func (f feature) Columns() []any {
	return f.columns
}

func (f feature) Geometry() orb.Geometry {
	return f.geometry
}

// NewFeature builds a Feature from attribute values and a geometry.
func NewFeature(columns []any, geometry orb.Geometry) Feature {
	return feature{columns: columns, geometry: geometry}
}

// GridSource emits the scored cells of a grid with CellColumns. A NaN
// normalized score is emitted as nil.
type GridSource struct {
	Grid *walkability.Grid
}

func (s GridSource) ColumnNames() []string {
	return ColumnNames(CellColumns)
}

func (s GridSource) ReadFeatures(features chan<- Feature) error {
	defer close(features)
	if s.Grid == nil {
		return nil
	}
	for _, c := range s.Grid.Cells {
		var was any = c.NormalizedScore
		if math.IsNaN(c.NormalizedScore) {
			was = nil
		}
		features <- feature{
			columns:  []any{int64(c.Col), int64(c.Row), int64(c.RawScore), was, c.Area},
			geometry: c.Geometry,
		}
	}
	return nil
}

// POISource emits points of interest with POIColumns.
type POISource struct {
	POIs walkability.POISet
}

func (s POISource) ColumnNames() []string {
	return ColumnNames(POIColumns)
}

func (s POISource) ReadFeatures(features chan<- Feature) error {
	defer close(features)
	for _, p := range s.POIs.Items {
		features <- feature{
			columns:  []any{p.ID, p.Name, p.Category},
			geometry: p.Point,
		}
	}
	return nil
}

// Collect reads all features of a source into memory.
func Collect(source Source) ([]Feature, error) {
	features := make(chan Feature)
	errs := make(chan error, 1)
	go func() {
		errs <- source.ReadFeatures(features)
	}()
	var collected []Feature
	for f := range features {
		collected = append(collected, f)
	}
	return collected, <-errs
}

// writeFeaturesToTargets hands every incoming feature to every target, each
// target running in its own goroutine. A target that fails is drained so the
// others can finish.
func writeFeaturesToTargets(features <-chan Feature, targets []Target) (uint64, error) {
	targetChannels := make([]chan Feature, len(targets))
	errs := make([]error, len(targets))
	wg := sync.WaitGroup{}

	// create a channel and start a goroutine per target
	for i, target := range targets {
		i, target := i, target
		targetChannel := make(chan Feature)
		targetChannels[i] = targetChannel
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = target.WriteFeatures(targetChannel)
			for range targetChannel {
			}
		}()
	}

	// distribute the incoming features over the targets
	var count uint64
	for f := range features {
		count++
		for _, channel := range targetChannels {
			channel <- f
		}
	}

	// close the channels, the targets will do their last writing
	for _, targetChannel := range targetChannels {
		close(targetChannel)
	}

	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return count, err
		}
	}
	return count, nil
}

// ProcessFeatures reads all features from source and writes each of them to
// all targets.
func ProcessFeatures(source Source, targets ...Target) error {
	if len(targets) == 0 {
		return eris.New("processing: no targets")
	}
	features := make(chan Feature)
	readErr := make(chan error, 1)
	go func() {
		readErr <- source.ReadFeatures(features)
	}()

	count, err := writeFeaturesToTargets(features, targets)
	if rerr := <-readErr; rerr != nil {
		return eris.Wrap(rerr, "processing: read features")
	}
	if err != nil {
		return eris.Wrap(err, "processing: write features")
	}
	zap.L().Info("features processed", zap.Uint64("features", count), zap.Int("targets", len(targets)))
	return nil
}
