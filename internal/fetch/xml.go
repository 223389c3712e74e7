package fetch

import (
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fooddata/fhrs-reconcile/internal/model"
)

const ratingDateLayout = "2006-01-02T15:04:05"

type authoritiesDoc struct {
	Authorities []authorityXML `xml:"authorities>authority"`
}

type authorityXML struct {
	Code          int    `xml:"LocalAuthorityIdCode"`
	Name          string `xml:"Name"`
	RegionName    string `xml:"RegionName"`
	FileName      string `xml:"FileName"`
	LastPublished string `xml:"LastPublishedDate"`
}

type establishmentsDoc struct {
	Establishments []establishmentXML `xml:"EstablishmentCollection>EstablishmentDetail"`
}

type establishmentXML struct {
	FHRSID        int64   `xml:"FHRSID"`
	BusinessName  string  `xml:"BusinessName"`
	AddressLine1  string  `xml:"AddressLine1"`
	AddressLine2  string  `xml:"AddressLine2"`
	AddressLine3  string  `xml:"AddressLine3"`
	AddressLine4  string  `xml:"AddressLine4"`
	PostCode      string  `xml:"PostCode"`
	RatingDate    string  `xml:"RatingDate"`
	AuthorityCode int     `xml:"LocalAuthorityCode"`
	Latitude      *string `xml:"Geocode>Latitude"`
	Longitude     *string `xml:"Geocode>Longitude"`
}

// ParseAuthorities decodes the Authorities endpoint payload.
func ParseAuthorities(data []byte) ([]model.Authority, error) {
	var doc authoritiesDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "fetch: decode authorities xml")
	}

	out := make([]model.Authority, 0, len(doc.Authorities))
	for _, a := range doc.Authorities {
		auth := model.Authority{
			Code:       a.Code,
			Name:       strings.TrimSpace(a.Name),
			RegionName: strings.TrimSpace(a.RegionName),
			XMLURL:     strings.TrimSpace(a.FileName),
		}
		if a.LastPublished != "" {
			t, err := time.Parse(ratingDateLayout, a.LastPublished)
			if err != nil {
				zap.L().Warn("unparseable authority publish date",
					zap.Int("authority", a.Code),
					zap.String("value", a.LastPublished))
			} else {
				auth.LastPublished = t
			}
		}
		out = append(out, auth)
	}
	return out, nil
}

// ParseEstablishments decodes one authority's establishment file into
// model values. Postcodes are validated and reformatted; the raw value
// is preserved alongside. A complete postcode found in an address line
// fills in a missing postcode field, scanning lines last to first so
// the latest such line wins.
func ParseEstablishments(data []byte) ([]model.Establishment, error) {
	var doc establishmentsDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "fetch: decode establishments xml")
	}

	out := make([]model.Establishment, 0, len(doc.Establishments))
	for _, e := range doc.Establishments {
		est := model.Establishment{
			FHRSID:      e.FHRSID,
			Name:        strings.TrimSpace(e.BusinessName),
			PostcodeRaw: strings.TrimSpace(e.PostCode),
			AuthorityID: e.AuthorityCode,
		}
		est.Postcode = CleanPostcode(e.PostCode)

		for _, line := range []string{e.AddressLine4, e.AddressLine3, e.AddressLine2, e.AddressLine1} {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if est.Postcode == "" && fullPostcode(line) {
				zap.L().Warn("moving postcode out of address line",
					zap.Int64("fhrs_id", e.FHRSID),
					zap.String("line", line))
				est.Postcode = CleanPostcode(line)
				continue
			}
			// lines were scanned in reverse, restore reading order
			est.AddressLines = append([]string{line}, est.AddressLines...)
		}

		if e.RatingDate != "" {
			if t, err := time.Parse(ratingDateLayout, e.RatingDate); err == nil {
				est.RatingDate = t
			}
		}

		if loc, ok := parseGeocode(e.Latitude, e.Longitude); ok {
			est.Location = loc
		}

		out = append(out, est)
	}
	return out, nil
}

func parseGeocode(latStr, lonStr *string) (*model.Point, bool) {
	if latStr == nil || lonStr == nil {
		return nil, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(*latStr), 64)
	if err != nil {
		return nil, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(*lonStr), 64)
	if err != nil {
		return nil, false
	}
	return &model.Point{Lat: lat, Lon: lon}, true
}
