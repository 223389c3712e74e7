package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fooddata/fhrs-reconcile/internal/model"
)

const authoritiesXML = `<?xml version="1.0" encoding="utf-8"?>
<AuthorityList xmlns="http://schemas.datacontract.org/2004/07/FHRS.Model.Detailed">
  <authorities>
    <authority>
      <LocalAuthorityIdCode>123</LocalAuthorityIdCode>
      <Name>Testshire</Name>
      <RegionName>North West</RegionName>
      <FileName>http://ratings.food.gov.uk/OpenDataFiles/FHRS123en-GB.xml</FileName>
      <LastPublishedDate>2026-08-01T00:30:00</LastPublishedDate>
    </authority>
    <authority>
      <LocalAuthorityIdCode>456</LocalAuthorityIdCode>
      <Name>Exampleton</Name>
      <RegionName>London</RegionName>
      <FileName>http://ratings.food.gov.uk/OpenDataFiles/FHRS456en-GB.xml</FileName>
    </authority>
  </authorities>
</AuthorityList>`

const establishmentsXML = `<?xml version="1.0" encoding="utf-8"?>
<FHRSEstablishment>
  <EstablishmentCollection>
    <EstablishmentDetail>
      <FHRSID>100001</FHRSID>
      <BusinessName>The Blue Bell</BusinessName>
      <AddressLine1>12 High Street</AddressLine1>
      <AddressLine2>Testington</AddressLine2>
      <PostCode>ab1  2cd</PostCode>
      <RatingDate>2025-11-03T00:00:00</RatingDate>
      <LocalAuthorityCode>123</LocalAuthorityCode>
      <Geocode>
        <Latitude>53.5</Latitude>
        <Longitude>-2.25</Longitude>
      </Geocode>
    </EstablishmentDetail>
    <EstablishmentDetail>
      <FHRSID>100002</FHRSID>
      <BusinessName>Corner Shop</BusinessName>
      <AddressLine1>1 Low Road</AddressLine1>
      <AddressLine2>XY9 8ZW</AddressLine2>
      <LocalAuthorityCode>123</LocalAuthorityCode>
      <Geocode/>
    </EstablishmentDetail>
  </EstablishmentCollection>
</FHRSEstablishment>`

func TestParseAuthorities(t *testing.T) {
	got, err := ParseAuthorities([]byte(authoritiesXML))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 123, got[0].Code)
	assert.Equal(t, "Testshire", got[0].Name)
	assert.Equal(t, "North West", got[0].RegionName)
	assert.Equal(t, "http://ratings.food.gov.uk/OpenDataFiles/FHRS123en-GB.xml", got[0].XMLURL)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 30, 0, 0, time.UTC), got[0].LastPublished)

	assert.Equal(t, 456, got[1].Code)
	assert.True(t, got[1].LastPublished.IsZero())
}

func TestParseEstablishments(t *testing.T) {
	got, err := ParseEstablishments([]byte(establishmentsXML))
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, int64(100001), first.FHRSID)
	assert.Equal(t, "The Blue Bell", first.Name)
	assert.Equal(t, []string{"12 High Street", "Testington"}, first.AddressLines)
	assert.Equal(t, "AB1 2CD", first.Postcode)
	assert.Equal(t, "ab1  2cd", first.PostcodeRaw)
	assert.Equal(t, 123, first.AuthorityID)
	require.NotNil(t, first.Location)
	assert.InDelta(t, 53.5, first.Location.Lat, 1e-9)
	assert.InDelta(t, -2.25, first.Location.Lon, 1e-9)
}

func TestParseEstablishmentsBackfillsPostcodeFromAddress(t *testing.T) {
	got, err := ParseEstablishments([]byte(establishmentsXML))
	require.NoError(t, err)

	second := got[1]
	assert.Equal(t, "XY9 8ZW", second.Postcode)
	assert.Equal(t, "", second.PostcodeRaw)
	assert.Equal(t, []string{"1 Low Road"}, second.AddressLines, "rescued line is removed")
	assert.Nil(t, second.Location, "empty geocode yields no location")
}

func TestCleanPostcode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already clean", "AB1 2CD", "AB1 2CD"},
		{"lower with extra spaces", " ab1   2cd ", "AB1 2CD"},
		{"no space", "AB12CD", "AB1 2CD"},
		{"letter O for zero in inward part", "AB1 OCD", "AB1 0CD"},
		{"outward only", "AB1", "AB1"},
		{"two letter area", "SW1A 1AA", "SW1A 1AA"},
		{"not a postcode", "PRIVATE", ""},
		{"empty", "", ""},
		{"too long", "ABC1 2DE", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanPostcode(tt.in))
		})
	}
}

func TestRequiringFetch(t *testing.T) {
	newer := model.Authority{Code: 1, LastPublished: time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)}
	same := model.Authority{Code: 2, LastPublished: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)}
	undated := model.Authority{Code: 3}

	stored := map[int]time.Time{
		1: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		2: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}

	got := RequiringFetch([]model.Authority{newer, same, undated}, stored)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Code)
	assert.Equal(t, 3, got[1].Code)
}

func TestClientAuthorities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Authorities", r.URL.Path)
		assert.Equal(t, "2", r.Header.Get("x-api-version"))
		assert.Equal(t, "application/xml", r.Header.Get("Accept"))
		w.Write([]byte(authoritiesXML))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, RequestsPerSecond: 100})
	got, err := c.Authorities(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestClientEstablishmentsRetriesServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		assert.Empty(t, r.Header.Get("x-api-version"), "file host gets no version header")
		w.Write([]byte(establishmentsXML))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, MaxRetries: 3, RequestsPerSecond: 100})
	got, err := c.Establishments(context.Background(), model.Authority{Code: 123, XMLURL: srv.URL + "/file.xml"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestClientEstablishmentsNoURL(t *testing.T) {
	c := NewClient(Options{})
	_, err := c.Establishments(context.Background(), model.Authority{Code: 9})
	assert.Error(t, err)
}
