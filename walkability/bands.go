package walkability

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/pdok/walkability/mathhelp"
)

// Band awards Points to a POI at a distance of at most UpperBound metres,
// unless an earlier band already matched.
type Band struct {
	UpperBound float64
	Points     int
}

// Bands are ordered by strictly increasing UpperBound. Distances beyond the
// last bound score 0.
type Bands []Band

// DefaultBands: 400 m scores 3, 800 m scores 2, 1200 m scores 1.
func DefaultBands() Bands {
	return Bands{{UpperBound: 400, Points: 3}, {UpperBound: 800, Points: 2}, {UpperBound: 1200, Points: 1}}
}

func (b Bands) Validate() error {
	if len(b) == 0 {
		return eris.Wrap(ErrInvalidConfig, "walkability: no distance bands")
	}
	prev := 0.
	for i, band := range b {
		if !mathhelp.IsFinite(band.UpperBound) || band.UpperBound <= 0 {
			return eris.Wrapf(ErrInvalidConfig, "walkability: band %d has upper bound %v, must be positive", i, band.UpperBound)
		}
		if i > 0 && band.UpperBound <= prev {
			return eris.Wrapf(ErrInvalidConfig, "walkability: band %d upper bound %v not above %v", i, band.UpperBound, prev)
		}
		if band.Points < 0 {
			return eris.Wrapf(ErrInvalidConfig, "walkability: band %d has negative points %d", i, band.Points)
		}
		prev = band.UpperBound
	}
	return nil
}

// Value is the contribution of one POI at distance d: the points of the first
// band whose upper bound is at least d, 0 when none is.
func (b Bands) Value(d float64) int {
	for _, band := range b {
		if d <= band.UpperBound {
			return band.Points
		}
	}
	return 0
}

// Reach is the largest distance that still scores.
func (b Bands) Reach() float64 {
	if len(b) == 0 {
		return 0
	}
	return b[len(b)-1].UpperBound
}

// String renders the bands the way ParseBands reads them.
func (b Bands) String() string {
	parts := make([]string, len(b))
	for i, band := range b {
		parts[i] = strconv.FormatFloat(band.UpperBound, 'f', -1, 64) + ":" + strconv.Itoa(band.Points)
	}
	return strings.Join(parts, ",")
}

// ParseBands reads "400:3,800:2,1200:1" and validates the result.
func ParseBands(s string) (Bands, error) {
	var bands Bands
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		bound, points, found := strings.Cut(part, ":")
		if !found {
			return nil, eris.Wrapf(ErrInvalidConfig, "walkability: band %q is not <metres>:<points>", part)
		}
		upper, err := strconv.ParseFloat(strings.TrimSpace(bound), 64)
		if err != nil {
			return nil, eris.Wrapf(ErrInvalidConfig, "walkability: band %q: %v", part, err)
		}
		value, err := strconv.Atoi(strings.TrimSpace(points))
		if err != nil {
			return nil, eris.Wrapf(ErrInvalidConfig, "walkability: band %q: %v", part, err)
		}
		bands = append(bands, Band{UpperBound: upper, Points: value})
	}
	if err := bands.Validate(); err != nil {
		return nil, err
	}
	return bands, nil
}
