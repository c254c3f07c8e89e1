package processing

import (
	"github.com/paulmach/orb"
)

// Column describes one attribute column: a name and its SQLite type
// (INTEGER, REAL or TEXT).
type Column struct {
	Name string
	Type string
}

type Feature interface {
	Columns() []any
	Geometry() orb.Geometry
}

// Source emits features and closes the channel when done.
type Source interface {
	ColumnNames() []string
	ReadFeatures(chan<- Feature) error
}

// Target consumes features until the channel is closed.
type Target interface {
	WriteFeatures(<-chan Feature) error
}
