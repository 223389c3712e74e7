package api

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/fooddata/fhrs-reconcile/internal/geo"
	"github.com/fooddata/fhrs-reconcile/internal/model"
)

// Result-size caps, matching what the map frontend can usefully render.
const (
	maxBBoxObjects     = 10000
	maxBBoxSuggestions = 1000
)

// parseBBox reads the l/b/r/t query parameters (west, south, east, north).
func parseBBox(r *http.Request) (geo.BBox, bool) {
	var (
		box geo.BBox
		err error
	)
	q := r.URL.Query()
	for _, p := range []struct {
		key  string
		dest *float64
	}{
		{"l", &box.MinLon},
		{"b", &box.MinLat},
		{"r", &box.MaxLon},
		{"t", &box.MaxLat},
	} {
		*p.dest, err = strconv.ParseFloat(q.Get(p.key), 64)
		if err != nil {
			return geo.BBox{}, false
		}
	}
	return box, box.Valid()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Error("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Service) requireView(w http.ResponseWriter) (view, bool) {
	v, ok := s.view()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no snapshot loaded")
	}
	return v, ok
}

// bbox parses the query box and enforces the viewport area cap.
func (s *Service) bbox(w http.ResponseWriter, r *http.Request) (geo.BBox, bool) {
	box, ok := parseBBox(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid bounding box")
		return geo.BBox{}, false
	}
	if (box.MaxLon-box.MinLon)*(box.MaxLat-box.MinLat) > s.maxBBox {
		writeError(w, http.StatusRequestEntityTooLarge, "bounding box too large, zoom in")
		return geo.BBox{}, false
	}
	return box, true
}

// objectsWithin collects the located objects inside the box, preserving
// snapshot order so responses are deterministic.
func (v view) objectsWithin(box geo.BBox) []*model.OSMObject {
	var out []*model.OSMObject
	for _, obj := range v.snap.Objects {
		if obj.Location != nil && box.Contains(*obj.Location) {
			out = append(out, obj)
		}
	}
	return out
}

func (v view) establishmentsWithin(box geo.BBox) []*model.Establishment {
	var out []*model.Establishment
	for _, est := range v.snap.Establishments {
		if est.Location != nil && box.Contains(*est.Location) {
			out = append(out, est)
		}
	}
	return out
}

func pointFeature(p model.Point, props geojson.Properties) *geojson.Feature {
	f := geojson.NewFeature(orb.Point{p.Lon, p.Lat})
	f.Properties = props
	return f
}

func lineFeature(a, b model.Point) *geojson.Feature {
	return geojson.NewFeature(orb.LineString{{a.Lon, a.Lat}, {b.Lon, b.Lat}})
}

// osmProperties builds the property set shared by every endpoint that
// returns OSM objects.
func (v view) osmProperties(obj *model.OSMObject) geojson.Properties {
	badIDs := ""
	if !obj.FHRSIDsValid {
		badIDs = obj.FHRSIDsRaw
	}
	return geojson.Properties{
		"name":             obj.Name,
		"osmType":          string(obj.Ref.Type),
		"osmIDByType":      obj.Ref.ID,
		"postcode":         obj.Postcode,
		"notPostcode":      obj.NotPostcode,
		"badFHRSIDsString": badIDs,
		"state":            string(v.result.ObjectState(obj.Ref)),
	}
}

// fhrsMappings renders an object's edge set. Location on the linked
// establishment is only needed by the distant layer.
func (v view) fhrsMappings(obj *model.OSMObject, includeLocation bool) []map[string]any {
	links := v.linksFor(obj.Ref)
	out := make([]map[string]any, 0, len(links))
	for _, link := range links {
		m := map[string]any{
			"fhrsID":         link.FHRSID,
			"postcodesMatch": link.PostcodesMatch,
			"distance":       link.DistanceMeters,
		}
		if est, ok := v.snap.Establishment(link.FHRSID); ok {
			e := map[string]any{
				"name":             est.Name,
				"postcode":         est.Postcode,
				"postcodeOriginal": est.PostcodeRaw,
				"ratingDate":       ratingDate(est),
			}
			if includeLocation && est.Location != nil {
				e["lat"] = est.Location.Lat
				e["lon"] = est.Location.Lon
			}
			m["fhrsEstablishment"] = e
		}
		out = append(out, m)
	}
	return out
}

func (v view) fhrsProperties(est *model.Establishment) geojson.Properties {
	return geojson.Properties{
		"name":             est.Name,
		"fhrsID":           est.FHRSID,
		"postcode":         est.Postcode,
		"postcodeOriginal": est.PostcodeRaw,
		"ratingDate":       ratingDate(est),
		"state":            string(v.result.EstablishmentStates[est.FHRSID]),
	}
}

// osmMappings renders the inbound edges of an establishment.
func (v view) osmMappings(est *model.Establishment) []map[string]any {
	links := v.result.ByFHRSID[est.FHRSID]
	out := make([]map[string]any, 0, len(links))
	for _, link := range links {
		m := map[string]any{
			"postcodesMatch": link.PostcodesMatch,
			"distance":       link.DistanceMeters,
		}
		for _, obj := range v.snap.Objects {
			if obj.Ref == link.OSM {
				m["osmObject"] = map[string]any{
					"name":        obj.Name,
					"osmType":     string(obj.Ref.Type),
					"osmIDByType": obj.Ref.ID,
					"postcode":    obj.Postcode,
					"notPostcode": obj.NotPostcode,
				}
				break
			}
		}
		out = append(out, m)
	}
	return out
}

func ratingDate(est *model.Establishment) string {
	if est.RatingDate.IsZero() {
		return ""
	}
	return est.RatingDate.Format("2006-01-02")
}

// handleOSM serves GET /api/osm: located objects within the box as a
// GeoJSON feature collection.
func (s *Service) handleOSM(w http.ResponseWriter, r *http.Request) {
	v, ok := s.requireView(w)
	if !ok {
		return
	}
	box, ok := s.bbox(w, r)
	if !ok {
		return
	}

	objects := v.objectsWithin(box)
	if len(objects) > maxBBoxObjects {
		writeError(w, http.StatusRequestEntityTooLarge, "too many objects, zoom in")
		return
	}

	fc := geojson.NewFeatureCollection()
	for _, obj := range objects {
		props := v.osmProperties(obj)
		props["fhrsMappings"] = v.fhrsMappings(obj, false)
		fc.Append(pointFeature(*obj.Location, props))
	}
	writeJSON(w, http.StatusOK, fc)
}

// handleFHRS serves GET /api/fhrs: located establishments within the box.
func (s *Service) handleFHRS(w http.ResponseWriter, r *http.Request) {
	v, ok := s.requireView(w)
	if !ok {
		return
	}
	box, ok := s.bbox(w, r)
	if !ok {
		return
	}

	ests := v.establishmentsWithin(box)
	if len(ests) > maxBBoxObjects {
		writeError(w, http.StatusRequestEntityTooLarge, "too many establishments, zoom in")
		return
	}

	fc := geojson.NewFeatureCollection()
	for _, est := range ests {
		props := v.fhrsProperties(est)
		props["osmMappings"] = v.osmMappings(est)
		fc.Append(pointFeature(*est.Location, props))
	}
	writeJSON(w, http.StatusOK, fc)
}

// handleFHRSSingle serves GET /api/fhrs/{id}: one establishment's
// properties plus its parsed address.
func (s *Service) handleFHRSSingle(w http.ResponseWriter, r *http.Request) {
	v, ok := s.requireView(w)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid FHRS ID")
		return
	}
	est, ok := v.snap.Establishment(id)
	if !ok {
		writeError(w, http.StatusNotFound, "no such establishment")
		return
	}

	props := v.fhrsProperties(est)
	props["parsedAddress"] = s.parser.ParseEstablishment(est)
	writeJSON(w, http.StatusOK, props)
}

// handleSuggest serves GET /api/suggest: unmatched objects within the box
// that have at least one candidate, with their suggested matches attached.
func (s *Service) handleSuggest(w http.ResponseWriter, r *http.Request) {
	v, ok := s.requireView(w)
	if !ok {
		return
	}
	box, ok := s.bbox(w, r)
	if !ok {
		return
	}

	objects := v.objectsWithin(box)
	if len(objects) > maxBBoxSuggestions {
		writeError(w, http.StatusRequestEntityTooLarge, "too many objects, zoom in")
		return
	}

	fc := geojson.NewFeatureCollection()
	for _, obj := range objects {
		suggestions := v.suggester.ForObject(obj)
		if len(suggestions) == 0 {
			continue
		}

		matches := make([]map[string]any, 0, len(suggestions))
		for _, sug := range suggestions {
			matches = append(matches, map[string]any{
				"name":             sug.Establishment.Name,
				"fhrsID":           sug.Establishment.FHRSID,
				"postcode":         sug.Establishment.Postcode,
				"postcodeOriginal": sug.Establishment.PostcodeRaw,
				"ratingDate":       ratingDate(sug.Establishment),
				"distance":         sug.DistanceMeters,
				"nameSimilarity":   sug.NameSimilarity,
				"parsedAddress":    sug.Address,
			})
		}

		props := v.osmProperties(obj)
		props["fhrsMappings"] = v.fhrsMappings(obj, false)
		props["suggestedMatches"] = matches
		fc.Append(pointFeature(*obj.Location, props))
	}
	writeJSON(w, http.StatusOK, fc)
}

// handleDistant serves GET /api/distant: objects with at least one match
// beyond the distance threshold, plus connector lines for the map.
func (s *Service) handleDistant(w http.ResponseWriter, r *http.Request) {
	v, ok := s.requireView(w)
	if !ok {
		return
	}
	box, ok := s.bbox(w, r)
	if !ok {
		return
	}

	points := geojson.NewFeatureCollection()
	lines := geojson.NewFeatureCollection()
	for _, obj := range v.objectsWithin(box) {
		var distant bool
		for _, link := range v.linksFor(obj.Ref) {
			if link.DistanceMeters != nil && *link.DistanceMeters > s.distantMeters {
				distant = true
				if est, ok := v.snap.Establishment(link.FHRSID); ok && est.Location != nil {
					lines.Append(lineFeature(*obj.Location, *est.Location))
				}
			}
		}
		if !distant {
			continue
		}
		props := v.osmProperties(obj)
		props["fhrsMappings"] = v.fhrsMappings(obj, true)
		points.Append(pointFeature(*obj.Location, props))
	}
	writeJSON(w, http.StatusOK, map[string]*geojson.FeatureCollection{
		"points": points,
		"lines":  lines,
	})
}

// districtEntry is one row of the stats endpoints.
type districtEntry struct {
	Code   string         `json:"code"`
	Name   string         `json:"name,omitempty"`
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

// handleStatsOSM serves GET /api/stats/osm: per-district totals of object
// states from the latest pass.
func (s *Service) handleStatsOSM(w http.ResponseWriter, r *http.Request) {
	v, ok := s.requireView(w)
	if !ok {
		return
	}
	out := make([]districtEntry, 0, len(v.district))
	for _, d := range v.district {
		counts := make(map[string]int, len(model.OSMStates))
		for _, state := range model.OSMStates {
			counts[string(state)] = d.OSM[state]
		}
		out = append(out, districtEntry{
			Code:   d.Code,
			Name:   s.districtName(d.Code),
			Counts: counts,
			Total:  d.OSMTotal(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleStatsFHRS serves GET /api/stats/fhrs.
func (s *Service) handleStatsFHRS(w http.ResponseWriter, r *http.Request) {
	v, ok := s.requireView(w)
	if !ok {
		return
	}
	out := make([]districtEntry, 0, len(v.district))
	for _, d := range v.district {
		counts := make(map[string]int, len(model.FHRSStates))
		for _, state := range model.FHRSStates {
			counts[string(state)] = d.FHRS[state]
		}
		out = append(out, districtEntry{
			Code:   d.Code,
			Name:   s.districtName(d.Code),
			Counts: counts,
			Total:  d.FHRSTotal(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleStatsHistory serves GET /api/stats/history?district=&dataset=:
// the capture time series recorded by the stats command.
func (s *Service) handleStatsHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "no stats history configured")
		return
	}
	district := r.URL.Query().Get("district")
	dataset := r.URL.Query().Get("dataset")
	if district == "" || (dataset != "osm" && dataset != "fhrs") {
		writeError(w, http.StatusBadRequest, "district and dataset=osm|fhrs required")
		return
	}

	points, err := s.history.History(r.Context(), district, dataset)
	if err != nil {
		zap.L().Error("api: stats history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "stats history unavailable")
		return
	}
	type historyPoint struct {
		CapturedAt time.Time `json:"capturedAt"`
		State      string    `json:"state"`
		Count      int       `json:"count"`
	}
	out := make([]historyPoint, 0, len(points))
	for _, p := range points {
		out = append(out, historyPoint{p.CapturedAt, p.State, p.Count})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleSurveyMe serves GET /api/surveyme: a CSV of dangling fhrs:id
// references, for offline resurvey tools.
func (s *Service) handleSurveyMe(w http.ResponseWriter, r *http.Request) {
	v, ok := s.requireView(w)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=surveyme.csv")
	cw := csv.NewWriter(w)
	cw.Write([]string{"type", "id", "lat", "lon", "name", "fhrs:id"})
	for _, obj := range v.snap.Objects {
		for _, link := range v.linksFor(obj.Ref) {
			if link.Found {
				continue
			}
			var lat, lon string
			if obj.Location != nil {
				lat = strconv.FormatFloat(obj.Location.Lat, 'f', -1, 64)
				lon = strconv.FormatFloat(obj.Location.Lon, 'f', -1, 64)
			}
			cw.Write([]string{
				string(obj.Ref.Type),
				strconv.FormatInt(obj.Ref.ID, 10),
				lat, lon,
				obj.Name,
				strconv.FormatInt(link.FHRSID, 10),
			})
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		zap.L().Error("api: write surveyme csv", zap.Error(err))
	}
}
