package model

import "time"

// Establishment is a Food Hygiene Rating Scheme establishment from the
// register snapshot. Postcode holds the validated, reformatted postcode;
// PostcodeRaw preserves whatever the API supplied.
type Establishment struct {
	FHRSID       int64     `json:"fhrs_id"`
	Name         string    `json:"name"`
	AddressLines []string  `json:"address_lines,omitempty"` // up to 4 lines
	Postcode     string    `json:"postcode,omitempty"`
	PostcodeRaw  string    `json:"postcode_raw,omitempty"`
	Location     *Point    `json:"location,omitempty"`
	RatingDate   time.Time `json:"rating_date,omitzero"`
	AuthorityID  int       `json:"authority_id"`
}

// HasLocation reports whether the register supplied coordinates.
func (e *Establishment) HasLocation() bool {
	return e.Location != nil
}

// Authority is the local authority that publishes an establishment.
type Authority struct {
	Code          int       `json:"code"`
	Name          string    `json:"name"`
	RegionName    string    `json:"region_name,omitempty"`
	XMLURL        string    `json:"xml_url"`
	LastPublished time.Time `json:"last_published,omitzero"`
}
