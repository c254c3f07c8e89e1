package osm

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// TagFilter accepts elements whose Key tag has one of Values.
type TagFilter struct {
	Key    string   `yaml:"key" mapstructure:"key" validate:"required"`
	Values []string `yaml:"values" mapstructure:"values" validate:"required,min=1"`
}

// TagFilters match when any of their filters does. Order matters: the first
// matching key becomes the category of an element.
type TagFilters []TagFilter

// DefaultTransitFilters selects public transport stops and stations.
func DefaultTransitFilters() TagFilters {
	return TagFilters{
		{Key: "public_transport", Values: []string{"station", "stop_position", "stop_area", "platform"}},
		{Key: "railway", Values: []string{"station", "halt", "tram_stop", "subway_entrance"}},
		{Key: "highway", Values: []string{"bus_stop"}},
		{Key: "amenity", Values: []string{"bus_station", "ferry_terminal"}},
	}
}

// Category returns the key of the first filter the tags satisfy.
func (f TagFilters) Category(tags map[string]string) (string, bool) {
	for _, filter := range f {
		v, ok := tags[filter.Key]
		if !ok {
			continue
		}
		for _, accepted := range filter.Values {
			if v == accepted {
				return filter.Key, true
			}
		}
	}
	return "", false
}

// BuildQuery returns an Overpass QL query for all nodes and ways matching
// the filters inside bbox (lon/lat). Way nodes are recursed so their
// coordinates are part of the response.
func BuildQuery(filters TagFilters, bbox orb.Bound, timeout time.Duration) string {
	// overpass wants south,west,north,east
	area := fmt.Sprintf("(%.7f,%.7f,%.7f,%.7f)", bbox.Min.Lat(), bbox.Min.Lon(), bbox.Max.Lat(), bbox.Max.Lon())

	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n(\n", int(timeout.Seconds()))
	for _, filter := range filters {
		quoted := make([]string, len(filter.Values))
		for i, v := range filter.Values {
			quoted[i] = regexp.QuoteMeta(v)
		}
		selector := fmt.Sprintf(`["%s"~"^(%s)$"]`, filter.Key, strings.Join(quoted, "|"))
		fmt.Fprintf(&b, "  node%s%s;\n", selector, area)
		fmt.Fprintf(&b, "  way%s%s;\n", selector, area)
	}
	b.WriteString(");\nout body;\n>;\nout skel qt;\n")
	return b.String()
}
