package walkability

import (
	"github.com/rotisserie/eris"
)

// Error kinds returned by the core. Callers match them with errors.Is; the
// returned errors wrap them with the offending detail.
var (
	ErrInvalidBoundary = eris.New("walkability: invalid boundary")
	ErrInvalidConfig   = eris.New("walkability: invalid configuration")
	ErrCrsMismatch     = eris.New("walkability: crs mismatch")
)
