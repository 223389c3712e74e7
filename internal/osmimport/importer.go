// Package osmimport extracts food establishment candidates from an
// OpenStreetMap PBF extract. An element qualifies when it carries an
// fhrs:id tag, or a food related amenity or shop tag. Ways and
// relations are reduced to a representative point.
package osmimport

import (
	"context"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fooddata/fhrs-reconcile/internal/model"
)

// foodAmenities and foodShops mirror the categories the register
// covers. Anything tagged fhrs:id is kept regardless.
var foodAmenities = map[string]bool{
	"restaurant": true,
	"cafe":       true,
	"fast_food":  true,
	"pub":        true,
	"bar":        true,
	"nightclub":  true,
	"food_court": true,
	"ice_cream":  true,
	"canteen":    true,
}

var foodShops = map[string]bool{
	"bakery":        true,
	"butcher":       true,
	"cheese":        true,
	"confectionery": true,
	"convenience":   true,
	"deli":          true,
	"farm":          true,
	"fishmonger":    true,
	"greengrocer":   true,
	"supermarket":   true,
}

// Options controls the import scan.
type Options struct {
	// Workers is the decoder parallelism passed to the PBF scanner.
	Workers int
}

// Importer reads a PBF file in multiple passes: the first selects
// qualifying elements, later passes resolve the node coordinates that
// way and relation geometries need.
type Importer struct {
	path string
	opts Options
	log  *zap.Logger
}

// NewImporter creates an Importer for one PBF file.
func NewImporter(path string, opts Options) *Importer {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Importer{
		path: path,
		opts: opts,
		log:  zap.L().With(zap.String("component", "osmimport")),
	}
}

func relevant(tags osm.Tags) bool {
	if tags.Find("fhrs:id") != "" {
		return true
	}
	if foodAmenities[tags.Find("amenity")] {
		return true
	}
	return foodShops[tags.Find("shop")]
}

func objectFromTags(ref model.OSMRef, tags osm.Tags) *model.OSMObject {
	return &model.OSMObject{
		Ref:         ref,
		Name:        tags.Find("name"),
		Postcode:    tags.Find("addr:postcode"),
		NotPostcode: tags.Find("not:addr:postcode"),
		FHRSIDsRaw:  tags.Find("fhrs:id"),
	}
}

type pendingWay struct {
	obj   *model.OSMObject
	nodes []osm.NodeID
}

type pendingRelation struct {
	obj  *model.OSMObject
	ways []osm.WayID
	// node members contribute directly, some food courts are mapped
	// as relations of nodes
	nodes []osm.NodeID
}

// Run scans the file and returns the qualifying objects as model
// values, nodes first, then ways, then relations, each group in file
// order.
func (im *Importer) Run(ctx context.Context) ([]*model.OSMObject, error) {
	nodes, ways, relations, err := im.collect(ctx)
	if err != nil {
		return nil, err
	}

	needNodes := make(map[osm.NodeID]bool)
	needWays := make(map[osm.WayID]bool)
	for _, w := range ways {
		for _, id := range w.nodes {
			needNodes[id] = true
		}
	}
	for _, r := range relations {
		for _, id := range r.nodes {
			needNodes[id] = true
		}
		for _, id := range r.ways {
			needWays[id] = true
		}
	}

	nodeLocs, wayNodes, err := im.resolve(ctx, needNodes, needWays)
	if err != nil {
		return nil, err
	}
	// relation member ways pull in another round of nodes
	more := make(map[osm.NodeID]bool)
	for _, ids := range wayNodes {
		for _, id := range ids {
			if _, ok := nodeLocs[id]; !ok {
				more[id] = true
			}
		}
	}
	if len(more) > 0 {
		extra, _, err := im.resolve(ctx, more, nil)
		if err != nil {
			return nil, err
		}
		for id, pt := range extra {
			nodeLocs[id] = pt
		}
	}

	out := make([]*model.OSMObject, 0, len(nodes)+len(ways)+len(relations))
	out = append(out, nodes...)

	for _, w := range ways {
		if pt, ok := centroidOf(w.nodes, nil, nodeLocs, nil); ok {
			w.obj.Location = pt
		}
		out = append(out, w.obj)
	}
	for _, r := range relations {
		if pt, ok := centroidOf(r.nodes, r.ways, nodeLocs, wayNodes); ok {
			r.obj.Location = pt
		}
		out = append(out, r.obj)
	}

	im.log.Info("pbf import complete",
		zap.Int("nodes", len(nodes)),
		zap.Int("ways", len(ways)),
		zap.Int("relations", len(relations)),
	)
	return out, nil
}

// collect is the first pass: qualifying elements and their member refs.
func (im *Importer) collect(ctx context.Context) ([]*model.OSMObject, []pendingWay, []pendingRelation, error) {
	f, err := os.Open(im.path)
	if err != nil {
		return nil, nil, nil, eris.Wrap(err, "osmimport: open pbf")
	}
	defer f.Close() //nolint:errcheck

	var (
		nodes     []*model.OSMObject
		ways      []pendingWay
		relations []pendingRelation
	)

	scanner := osmpbf.New(ctx, f, im.opts.Workers)
	defer scanner.Close() //nolint:errcheck

	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Node:
			if !relevant(o.Tags) {
				continue
			}
			obj := objectFromTags(model.OSMRef{Type: model.TypeNode, ID: int64(o.ID)}, o.Tags)
			obj.Location = &model.Point{Lat: o.Lat, Lon: o.Lon}
			nodes = append(nodes, obj)

		case *osm.Way:
			if !relevant(o.Tags) {
				continue
			}
			w := pendingWay{
				obj: objectFromTags(model.OSMRef{Type: model.TypeWay, ID: int64(o.ID)}, o.Tags),
			}
			for _, n := range o.Nodes {
				w.nodes = append(w.nodes, n.ID)
			}
			ways = append(ways, w)

		case *osm.Relation:
			if !relevant(o.Tags) {
				continue
			}
			r := pendingRelation{
				obj: objectFromTags(model.OSMRef{Type: model.TypeRelation, ID: int64(o.ID)}, o.Tags),
			}
			for _, m := range o.Members {
				switch m.Type {
				case osm.TypeNode:
					r.nodes = append(r.nodes, osm.NodeID(m.Ref))
				case osm.TypeWay:
					r.ways = append(r.ways, osm.WayID(m.Ref))
				}
			}
			relations = append(relations, r)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, nil, eris.Wrap(err, "osmimport: scan pbf")
	}
	return nodes, ways, relations, nil
}

// resolve is a follow-up pass that picks up the coordinates of the
// requested nodes and the node lists of the requested ways.
func (im *Importer) resolve(ctx context.Context, needNodes map[osm.NodeID]bool, needWays map[osm.WayID]bool) (map[osm.NodeID]orb.Point, map[osm.WayID][]osm.NodeID, error) {
	nodeLocs := make(map[osm.NodeID]orb.Point, len(needNodes))
	wayNodes := make(map[osm.WayID][]osm.NodeID, len(needWays))
	if len(needNodes) == 0 && len(needWays) == 0 {
		return nodeLocs, wayNodes, nil
	}

	f, err := os.Open(im.path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "osmimport: open pbf")
	}
	defer f.Close() //nolint:errcheck

	scanner := osmpbf.New(ctx, f, im.opts.Workers)
	defer scanner.Close() //nolint:errcheck

	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Node:
			if needNodes[o.ID] {
				nodeLocs[o.ID] = orb.Point{o.Lon, o.Lat}
			}
		case *osm.Way:
			if needWays[o.ID] {
				ids := make([]osm.NodeID, 0, len(o.Nodes))
				for _, n := range o.Nodes {
					ids = append(ids, n.ID)
				}
				wayNodes[o.ID] = ids
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, eris.Wrap(err, "osmimport: scan pbf")
	}
	return nodeLocs, wayNodes, nil
}

// centroidOf reduces an element's member nodes, direct or via member
// ways, to a representative point. A closed outline uses the polygon
// centroid, anything else falls back to the centroid of its vertices.
func centroidOf(nodeIDs []osm.NodeID, wayIDs []osm.WayID, nodeLocs map[osm.NodeID]orb.Point, wayNodes map[osm.WayID][]osm.NodeID) (*model.Point, bool) {
	var pts []orb.Point
	for _, id := range nodeIDs {
		if pt, ok := nodeLocs[id]; ok {
			pts = append(pts, pt)
		}
	}
	for _, wid := range wayIDs {
		for _, id := range wayNodes[wid] {
			if pt, ok := nodeLocs[id]; ok {
				pts = append(pts, pt)
			}
		}
	}
	if len(pts) == 0 {
		return nil, false
	}

	if len(pts) >= 4 && pts[0] == pts[len(pts)-1] {
		ring := orb.Ring(pts)
		c, area := planar.CentroidArea(orb.Polygon{ring})
		if area != 0 {
			return &model.Point{Lat: c.Y(), Lon: c.X()}, true
		}
	}

	c, _ := planar.CentroidArea(orb.MultiPoint(pts))
	return &model.Point{Lat: c.Y(), Lon: c.X()}, true
}
