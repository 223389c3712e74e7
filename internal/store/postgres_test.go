package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fooddata/fhrs-reconcile/internal/boundary"
	"github.com/fooddata/fhrs-reconcile/internal/gazetteer"
	"github.com/fooddata/fhrs-reconcile/internal/model"
)

func TestReplaceObjects(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM osm_objects").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectCopyFrom(pgx.Identifier{"osm_objects"}, osmColumns).WillReturnResult(2)
	mock.ExpectCommit()

	s := NewPostgresWithPool(mock)
	objects := []*model.OSMObject{
		{
			Ref:        model.OSMRef{Type: model.TypeNode, ID: 1},
			Name:       "Acme Cafe",
			Location:   &model.Point{Lat: 51.5, Lon: -0.1},
			FHRSIDsRaw: "123",
		},
		{Ref: model.OSMRef{Type: model.TypeWay, ID: 2}},
	}
	require.NoError(t, s.ReplaceObjects(context.Background(), objects))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadObjects(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	name := "Acme Cafe"
	ids := "123;124"
	lat, lon := 51.5, -0.1
	rows := pgxmock.NewRows([]string{
		"id", "name", "lat", "lon", "fhrs_ids", "addr_postcode", "not_addr_postcode",
	}).
		AddRow(int64(1), &name, &lat, &lon, &ids, nil, nil).
		AddRow(int64(-2), nil, nil, nil, nil, nil, nil)

	mock.ExpectQuery("SELECT id, name, lat, lon").WillReturnRows(rows)

	s := NewPostgresWithPool(mock)
	got, err := s.LoadObjects(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, model.OSMRef{Type: model.TypeNode, ID: 1}, got[0].Ref)
	assert.Equal(t, "Acme Cafe", got[0].Name)
	assert.Equal(t, "123;124", got[0].FHRSIDsRaw)
	require.NotNil(t, got[0].Location)
	assert.InDelta(t, 51.5, got[0].Location.Lat, 1e-9)

	assert.Equal(t, model.OSMRef{Type: model.TypeWay, ID: 2}, got[1].Ref)
	assert.Nil(t, got[1].Location)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceEstablishments(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM fhrs_establishments").
		WithArgs(123).
		WillReturnResult(pgxmock.NewResult("DELETE", 10))
	mock.ExpectCopyFrom(pgx.Identifier{"fhrs_establishments"}, establishmentColumns).WillReturnResult(1)
	mock.ExpectCommit()

	s := NewPostgresWithPool(mock)
	ests := []model.Establishment{
		{
			FHRSID:       100001,
			Name:         "The Blue Bell",
			AddressLines: []string{"12 High Street"},
			Postcode:     "AB1 2CD",
			Location:     &model.Point{Lat: 53.5, Lon: -2.25},
			RatingDate:   time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC),
		},
	}
	require.NoError(t, s.ReplaceEstablishments(context.Background(), 123, ests))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceAuthorityEstablishments(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectAuthorityUpsert := func() {
		mock.ExpectBegin()
		mock.ExpectExec("CREATE TEMP TABLE").
			WillReturnResult(pgxmock.NewResult("CREATE", 0))
		mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_fhrs_authorities"}, authorityColumns).
			WillReturnResult(1)
		mock.ExpectExec("INSERT INTO").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()
	}

	// The authority row must exist before the establishments COPY, which
	// references it, and the publish date is only recorded afterwards.
	expectAuthorityUpsert()
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM fhrs_establishments").
		WithArgs(123).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"fhrs_establishments"}, establishmentColumns).WillReturnResult(1)
	mock.ExpectCommit()
	expectAuthorityUpsert()

	s := NewPostgresWithPool(mock)
	authority := model.Authority{
		Code:          123,
		Name:          "Testshire",
		XMLURL:        "https://ratings.food.gov.uk/OpenDataFiles/FHRS123en-GB.xml",
		LastPublished: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
	ests := []model.Establishment{
		{FHRSID: 100001, Name: "The Blue Bell", Postcode: "AB1 2CD"},
	}
	require.NoError(t, s.ReplaceAuthorityEstablishments(context.Background(), authority, ests))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthorityPublishDates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	published := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT code, last_published").
		WillReturnRows(pgxmock.NewRows([]string{"code", "last_published"}).
			AddRow(123, published))

	s := NewPostgresWithPool(mock)
	got, err := s.AuthorityPublishDates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[int]time.Time{123: published}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteObsoleteAuthorities(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM fhrs_authorities").
		WithArgs([]int{123, 456}).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	s := NewPostgresWithPool(mock)
	n, err := s.DeleteObsoleteAuthorities(context.Background(), []model.Authority{
		{Code: 123}, {Code: 456},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceAndLoadGazetteer(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM os_places").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("DELETE FROM os_roads").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"os_places"}, placeColumns).WillReturnResult(1)
	mock.ExpectCopyFrom(pgx.Identifier{"os_roads"}, roadColumns).WillReturnResult(1)
	mock.ExpectCommit()

	mock.ExpectQuery("SELECT (.+) FROM os_places").
		WillReturnRows(pgxmock.NewRows([]string{
			"os_id", "name", "name_std", "alt_name_std", "postcode_area", "place_type",
		}).AddRow("osgb001", "Weeton", "weeton", nil, strPtr("LS"), "Hamlet"))
	mock.ExpectQuery("SELECT (.+) FROM os_roads").
		WillReturnRows(pgxmock.NewRows([]string{
			"os_id", "name", "name_std", "alt_name_std", "postcode_area",
		}).AddRow("osgb002", "Mill Lane", "mill lane", nil, strPtr("LS")))

	s := NewPostgresWithPool(mock)
	places := []gazetteer.Name{
		{ID: "osgb001", Name: "Weeton", NameStd: "weeton", PostcodeArea: "LS", PlaceType: "Hamlet"},
	}
	roads := []gazetteer.Name{
		{ID: "osgb002", Name: "Mill Lane", NameStd: "mill lane", PostcodeArea: "LS"},
	}
	require.NoError(t, s.ReplaceGazetteer(context.Background(), places, roads))

	idx, err := s.LoadGazetteer(context.Background())
	require.NoError(t, err)
	typ, ok := idx.PlaceType("weeton", "LS")
	require.True(t, ok)
	assert.Equal(t, "hamlet", typ)
	assert.True(t, idx.IsRoad("mill lane", "LS"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func strPtr(s string) *string { return &s }

func TestMigrate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS osm_objects").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	s := NewPostgresWithPool(mock)
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceAndLoadDistricts(t *testing.T) {
	square := orb.MultiPolygon{
		{{{-1, 53}, {0, 53}, {0, 54}, {-1, 54}, {-1, 53}}},
	}
	d, err := boundary.NewDistrict("E07000001", "Testshire", square)
	require.NoError(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM districts").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"districts"}, districtColumns).WillReturnResult(1)
	mock.ExpectCommit()

	mock.ExpectQuery("SELECT code, name, boundary FROM districts").
		WillReturnRows(pgxmock.NewRows([]string{"code", "name", "boundary"}).
			AddRow("E07000001", "Testshire", d.WKB))

	s := NewPostgresWithPool(mock)
	require.NoError(t, s.ReplaceDistricts(context.Background(), []boundary.District{d}))

	loaded, err := s.LoadDistricts(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "E07000001", loaded[0].Code)
	assert.Equal(t, square, loaded[0].Outline)
	require.NoError(t, mock.ExpectationsWereMet())
}
