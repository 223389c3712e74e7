// Package model defines the shared data types for the FHRS/OSM
// reconciliation engine: OSM objects, FHRS establishments and authorities,
// and the links built between them.
package model

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// OSMType discriminates the three OpenStreetMap element kinds.
type OSMType string

const (
	TypeNode     OSMType = "node"
	TypeWay      OSMType = "way"
	TypeRelation OSMType = "relation"
)

// relationOffset shifts relation IDs into their own negative range so that
// a single int64 can address nodes, ways and relations without collision.
// Nodes keep their ID, ways are negated, relations are negated and offset.
const relationOffset = int64(1e17)

// OSMRef identifies an OSM element by type and ID.
type OSMRef struct {
	Type OSMType `json:"type"`
	ID   int64   `json:"id"`
}

func (r OSMRef) String() string {
	return fmt.Sprintf("%s/%d", r.Type, r.ID)
}

// SingleSpace encodes the ref into the single-ID-space scheme used by the
// importer and the database.
func (r OSMRef) SingleSpace() int64 {
	switch r.Type {
	case TypeWay:
		return -r.ID
	case TypeRelation:
		return -r.ID - relationOffset
	default:
		return r.ID
	}
}

// RefFromSingleSpace decodes a single-ID-space value back into a typed ref.
func RefFromSingleSpace(id int64) OSMRef {
	switch {
	case id <= -relationOffset:
		return OSMRef{Type: TypeRelation, ID: -id - relationOffset}
	case id < 0:
		return OSMRef{Type: TypeWay, ID: -id}
	default:
		return OSMRef{Type: TypeNode, ID: id}
	}
}

// ParseOSMType validates an OSM element type string.
func ParseOSMType(s string) (OSMType, error) {
	switch OSMType(s) {
	case TypeNode, TypeWay, TypeRelation:
		return OSMType(s), nil
	}
	return "", eris.Errorf("model: invalid OSM type %q", s)
}

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// OSMObject is a mapped point or area feature from the OSM snapshot.
// Ways and relations carry their polygon centroid as Location.
type OSMObject struct {
	Ref      OSMRef `json:"ref"`
	Location *Point `json:"location,omitempty"`
	Name     string `json:"name,omitempty"`

	// Postcode is the addr:postcode tag value; NotPostcode is the
	// not:addr:postcode override used when the survey postcode is known
	// to differ from the official one.
	Postcode    string `json:"postcode,omitempty"`
	NotPostcode string `json:"not_postcode,omitempty"`

	// FHRSIDsRaw is the raw fhrs:id tag value ("" when absent).
	// FHRSIDs and FHRSIDsValid are derived from it at snapshot build.
	FHRSIDsRaw   string  `json:"fhrs_ids_raw,omitempty"`
	FHRSIDs      []int64 `json:"fhrs_ids,omitempty"`
	FHRSIDsValid bool    `json:"fhrs_ids_valid"`
}

// HasPostcode reports whether the object carries any postcode-bearing tag.
func (o *OSMObject) HasPostcode() bool {
	return o.Postcode != "" || o.NotPostcode != ""
}
