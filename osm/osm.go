// Package osm downloads points of interest from OpenStreetMap through the
// Overpass API.
package osm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"github.com/serjvanilla/go-overpass"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/pdok/walkability/crs"
	"github.com/pdok/walkability/walkability"
)

const (
	DefaultEndpoint = "https://overpass-api.de/api/interpreter"
	DefaultTimeout  = 180 * time.Second
	DefaultName     = "Transport"
)

// Settings for the Overpass client. An empty Proxy falls back to the
// HTTP(S)_PROXY environment.
type Settings struct {
	Endpoint    string
	Timeout     time.Duration
	Proxy       string
	MaxParallel int
}

type Client struct {
	settings Settings
	http     *http.Client
	sem      *semaphore.Weighted
}

func NewClient(s Settings) (*Client, error) {
	if s.Endpoint == "" {
		s.Endpoint = DefaultEndpoint
	}
	if s.Timeout <= 0 {
		s.Timeout = DefaultTimeout
	}
	if s.MaxParallel < 1 {
		s.MaxParallel = 1
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if s.Proxy != "" {
		u, err := url.Parse(s.Proxy)
		if err != nil {
			return nil, eris.Wrapf(err, "osm: invalid proxy %q", s.Proxy)
		}
		transport.Proxy = http.ProxyURL(u)
	}
	return &Client{
		settings: s,
		http:     &http.Client{Timeout: s.Timeout, Transport: transport},
		sem:      semaphore.NewWeighted(int64(s.MaxParallel)),
	}, nil
}

// contextTransport attaches ctx to every request the overpass client sends.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.Clone(t.ctx))
}

type element struct {
	kind string
	id   int64
	poi  walkability.POI
}

// Fetch returns the POIs matching filters inside bbox (lon/lat) in CRS84.
// Ways become the centroid of their nodes, POIs sharing a coordinate are
// reported once.
func (c *Client) Fetch(ctx context.Context, bbox orb.Bound, filters TagFilters) (walkability.POISet, error) {
	if len(filters) == 0 {
		return walkability.POISet{}, eris.New("osm: no tag filters")
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return walkability.POISet{}, eris.Wrap(err, "osm: waiting for a query slot")
	}
	defer c.sem.Release(1)

	httpClient := *c.http
	httpClient.Transport = contextTransport{ctx: ctx, base: c.http.Transport}
	client := overpass.NewWithSettings(c.settings.Endpoint, 1, &httpClient)

	start := time.Now()
	query := BuildQuery(filters, bbox, c.settings.Timeout)
	result, err := client.Query(query)
	if err != nil {
		return walkability.POISet{}, eris.Wrapf(err, "osm: overpass query against %s", c.settings.Endpoint)
	}

	var elements []element
	for _, node := range result.Nodes {
		category, ok := filters.Category(node.Tags)
		if !ok {
			continue
		}
		elements = append(elements, element{
			kind: "node",
			id:   int64(node.ID),
			poi:  newPOI(category, node.Tags, orb.Point{node.Lon, node.Lat}),
		})
	}
	for _, way := range result.Ways {
		category, ok := filters.Category(way.Tags)
		if !ok {
			continue
		}
		center, ok := nodeCenter(way.Nodes)
		if !ok {
			continue
		}
		elements = append(elements, element{
			kind: "way",
			id:   int64(way.ID),
			poi:  newPOI(category, way.Tags, center),
		})
	}

	pois := dedupe(elements)
	zap.L().Info("pois fetched", zap.String("endpoint", c.settings.Endpoint), zap.Int("elements", len(elements)),
		zap.Int("pois", pois.Len()), zap.Duration("took", time.Since(start)))
	return pois, nil
}

// nodeCenter averages the node coordinates of a way. A closed way repeats
// its first node at the end, which is counted once.
func nodeCenter(nodes []*overpass.Node) (orb.Point, bool) {
	if n := len(nodes); n > 1 && nodes[0] != nil && nodes[n-1] != nil && nodes[0].ID == nodes[n-1].ID {
		nodes = nodes[:n-1]
	}
	var lon, lat float64
	count := 0
	for _, node := range nodes {
		if node == nil {
			continue
		}
		lon += node.Lon
		lat += node.Lat
		count++
	}
	if count == 0 {
		return orb.Point{}, false
	}
	return orb.Point{lon / float64(count), lat / float64(count)}, true
}

func newPOI(category string, tags map[string]string, p orb.Point) walkability.POI {
	name := tags["name"]
	if name == "" {
		name = DefaultName
	}
	return walkability.POI{Name: name, Category: category, Point: p}
}

// dedupe orders elements nodes first by id, then keeps the first POI per
// coordinate.
func dedupe(elements []element) walkability.POISet {
	sort.Slice(elements, func(i, j int) bool {
		if elements[i].kind != elements[j].kind {
			return elements[i].kind < elements[j].kind
		}
		return elements[i].id < elements[j].id
	})
	seen := make(map[orb.Point]bool, len(elements))
	pois := walkability.POISet{CRS: crs.CRS84(), Items: make([]walkability.POI, 0, len(elements))}
	for _, e := range elements {
		if seen[e.poi.Point] {
			continue
		}
		seen[e.poi.Point] = true
		poi := e.poi
		poi.ID = fmt.Sprintf("%s/%d", e.kind, e.id)
		pois.Items = append(pois.Items, poi)
	}
	return pois
}
