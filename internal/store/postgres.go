// Package store persists dataset snapshots and classification output.
// PostgreSQL holds the current snapshots, SQLite keeps the statistics
// time series for trend reporting.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/fooddata/fhrs-reconcile/internal/boundary"
	"github.com/fooddata/fhrs-reconcile/internal/db"
	"github.com/fooddata/fhrs-reconcile/internal/gazetteer"
	"github.com/fooddata/fhrs-reconcile/internal/model"
)

// PostgresStore holds the current OSM and register snapshots.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool, which the tests use to
// substitute pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS osm_objects (
	id                BIGINT PRIMARY KEY,
	name              TEXT,
	lat               DOUBLE PRECISION,
	lon               DOUBLE PRECISION,
	fhrs_ids          TEXT,
	addr_postcode     TEXT,
	not_addr_postcode TEXT
);

CREATE TABLE IF NOT EXISTS fhrs_authorities (
	code           INTEGER PRIMARY KEY,
	name           TEXT NOT NULL,
	region_name    TEXT,
	xml_url        TEXT NOT NULL,
	last_published TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS fhrs_establishments (
	fhrs_id        BIGINT PRIMARY KEY,
	name           TEXT NOT NULL,
	address_lines  JSONB,
	postcode       TEXT,
	postcode_raw   TEXT,
	lat            DOUBLE PRECISION,
	lon            DOUBLE PRECISION,
	rating_date    TIMESTAMPTZ,
	authority_code INTEGER NOT NULL REFERENCES fhrs_authorities(code) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_fhrs_establishments_authority ON fhrs_establishments(authority_code);
CREATE INDEX IF NOT EXISTS idx_fhrs_establishments_postcode ON fhrs_establishments(postcode);

CREATE TABLE IF NOT EXISTS districts (
	code     TEXT PRIMARY KEY,
	name     TEXT NOT NULL,
	boundary BYTEA
);

CREATE TABLE IF NOT EXISTS os_places (
	os_id         TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	name_std      TEXT NOT NULL,
	alt_name_std  TEXT,
	postcode_area TEXT,
	place_type    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS os_roads (
	os_id         TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	name_std      TEXT NOT NULL,
	alt_name_std  TEXT,
	postcode_area TEXT
);

CREATE INDEX IF NOT EXISTS idx_os_places_name_std ON os_places(name_std);
CREATE INDEX IF NOT EXISTS idx_os_roads_name_std ON os_roads(name_std);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

var osmColumns = []string{
	"id", "name", "lat", "lon", "fhrs_ids", "addr_postcode", "not_addr_postcode",
}

// ReplaceObjects swaps in a complete OSM snapshot. Imports are full
// reloads, never incremental diffs.
func (s *PostgresStore) ReplaceObjects(ctx context.Context, objects []*model.OSMObject) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace objects")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM osm_objects`); err != nil {
		return eris.Wrap(err, "postgres: clear osm_objects")
	}

	rows := make([][]any, 0, len(objects))
	for _, obj := range objects {
		var lat, lon any
		if obj.Location != nil {
			lat, lon = obj.Location.Lat, obj.Location.Lon
		}
		rows = append(rows, []any{
			obj.Ref.SingleSpace(),
			nullIfEmpty(obj.Name),
			lat, lon,
			nullIfEmpty(obj.FHRSIDsRaw),
			nullIfEmpty(obj.Postcode),
			nullIfEmpty(obj.NotPostcode),
		})
	}
	if _, err := db.CopyFrom(ctx, tx, "osm_objects", osmColumns, rows); err != nil {
		return err
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace objects")
}

// LoadObjects reads the full OSM snapshot back, ordered by id so a
// reconciliation pass sees a stable sequence.
func (s *PostgresStore) LoadObjects(ctx context.Context) ([]*model.OSMObject, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, lat, lon, fhrs_ids, addr_postcode, not_addr_postcode
		 FROM osm_objects ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load objects")
	}
	defer rows.Close()

	var out []*model.OSMObject
	for rows.Next() {
		var (
			id                   int64
			name, ids, pc, notPC *string
			lat, lon             *float64
		)
		if err := rows.Scan(&id, &name, &lat, &lon, &ids, &pc, &notPC); err != nil {
			return nil, eris.Wrap(err, "postgres: scan object")
		}
		obj := &model.OSMObject{
			Ref:         model.RefFromSingleSpace(id),
			Name:        deref(name),
			FHRSIDsRaw:  deref(ids),
			Postcode:    deref(pc),
			NotPostcode: deref(notPC),
		}
		if lat != nil && lon != nil {
			obj.Location = &model.Point{Lat: *lat, Lon: *lon}
		}
		out = append(out, obj)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate objects")
}

var authorityColumns = []string{"code", "name", "region_name", "xml_url", "last_published"}

// UpsertAuthorities merges the downloaded authority list by code.
func (s *PostgresStore) UpsertAuthorities(ctx context.Context, authorities []model.Authority) error {
	rows := make([][]any, 0, len(authorities))
	for _, a := range authorities {
		var published any
		if !a.LastPublished.IsZero() {
			published = a.LastPublished
		}
		rows = append(rows, []any{a.Code, a.Name, nullIfEmpty(a.RegionName), a.XMLURL, published})
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "fhrs_authorities",
		Columns:      authorityColumns,
		ConflictKeys: []string{"code"},
	}, rows)
	return eris.Wrap(err, "postgres: upsert authorities")
}

// AuthorityPublishDates returns the stored publish date per authority
// code, the input to deciding which authorities need a new download.
func (s *PostgresStore) AuthorityPublishDates(ctx context.Context) (map[int]time.Time, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT code, last_published FROM fhrs_authorities WHERE last_published IS NOT NULL`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: authority publish dates")
	}
	defer rows.Close()

	out := make(map[int]time.Time)
	for rows.Next() {
		var code int
		var published time.Time
		if err := rows.Scan(&code, &published); err != nil {
			return nil, eris.Wrap(err, "postgres: scan authority")
		}
		out[code] = published
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate authorities")
}

// DeleteObsoleteAuthorities removes stored authorities, and via the
// cascade their establishments, that the register no longer publishes.
func (s *PostgresStore) DeleteObsoleteAuthorities(ctx context.Context, current []model.Authority) (int64, error) {
	codes := make([]int, 0, len(current))
	for _, a := range current {
		codes = append(codes, a.Code)
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM fhrs_authorities WHERE NOT (code = ANY($1))`, codes)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete obsolete authorities")
	}
	return tag.RowsAffected(), nil
}

var establishmentColumns = []string{
	"fhrs_id", "name", "address_lines", "postcode", "postcode_raw",
	"lat", "lon", "rating_date", "authority_code",
}

// ReplaceEstablishments swaps in one authority's establishments, a
// full replacement of the slice the authority publishes.
func (s *PostgresStore) ReplaceEstablishments(ctx context.Context, authorityCode int, ests []model.Establishment) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace establishments")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`DELETE FROM fhrs_establishments WHERE authority_code = $1`, authorityCode); err != nil {
		return eris.Wrapf(err, "postgres: clear establishments for authority %d", authorityCode)
	}

	rows := make([][]any, 0, len(ests))
	for _, est := range ests {
		lines, err := json.Marshal(est.AddressLines)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal address lines for %d", est.FHRSID)
		}
		var lat, lon any
		if est.Location != nil {
			lat, lon = est.Location.Lat, est.Location.Lon
		}
		var rated any
		if !est.RatingDate.IsZero() {
			rated = est.RatingDate
		}
		rows = append(rows, []any{
			est.FHRSID, est.Name, lines,
			nullIfEmpty(est.Postcode), nullIfEmpty(est.PostcodeRaw),
			lat, lon, rated, authorityCode,
		})
	}
	if _, err := db.CopyFrom(ctx, tx, "fhrs_establishments", establishmentColumns, rows); err != nil {
		return eris.Wrapf(err, "postgres: establishments for authority %d", authorityCode)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace establishments")
}

// ReplaceAuthorityEstablishments stores one authority's establishments and
// then records its publish date. The authority row goes in first with the
// date cleared, because establishments reference it; the date is only
// written once the new establishments are committed, so a run that fails
// partway fetches that authority again next time.
func (s *PostgresStore) ReplaceAuthorityEstablishments(ctx context.Context, authority model.Authority, ests []model.Establishment) error {
	pending := authority
	pending.LastPublished = time.Time{}
	if err := s.UpsertAuthorities(ctx, []model.Authority{pending}); err != nil {
		return err
	}
	if err := s.ReplaceEstablishments(ctx, authority.Code, ests); err != nil {
		return err
	}
	return s.UpsertAuthorities(ctx, []model.Authority{authority})
}

// LoadEstablishments reads the full register snapshot, ordered by id.
func (s *PostgresStore) LoadEstablishments(ctx context.Context) ([]*model.Establishment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT fhrs_id, name, address_lines, postcode, postcode_raw, lat, lon, rating_date, authority_code
		 FROM fhrs_establishments ORDER BY fhrs_id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load establishments")
	}
	defer rows.Close()

	var out []*model.Establishment
	for rows.Next() {
		var (
			est      model.Establishment
			lines    []byte
			pc, raw  *string
			lat, lon *float64
			rated    *time.Time
		)
		if err := rows.Scan(&est.FHRSID, &est.Name, &lines, &pc, &raw, &lat, &lon, &rated, &est.AuthorityID); err != nil {
			return nil, eris.Wrap(err, "postgres: scan establishment")
		}
		if len(lines) > 0 {
			if err := json.Unmarshal(lines, &est.AddressLines); err != nil {
				return nil, eris.Wrapf(err, "postgres: decode address lines for %d", est.FHRSID)
			}
		}
		est.Postcode = deref(pc)
		est.PostcodeRaw = deref(raw)
		if lat != nil && lon != nil {
			est.Location = &model.Point{Lat: *lat, Lon: *lon}
		}
		if rated != nil {
			est.RatingDate = *rated
		}
		out = append(out, &est)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate establishments")
}

var districtColumns = []string{"code", "name", "boundary"}

// ReplaceDistricts swaps in a complete boundary set.
func (s *PostgresStore) ReplaceDistricts(ctx context.Context, districts []boundary.District) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace districts")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM districts`); err != nil {
		return eris.Wrap(err, "postgres: clear districts")
	}

	rows := make([][]any, 0, len(districts))
	for _, d := range districts {
		rows = append(rows, []any{d.Code, d.Name, d.WKB})
	}
	if _, err := db.CopyFrom(ctx, tx, "districts", districtColumns, rows); err != nil {
		return err
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace districts")
}

// LoadDistricts reads the boundary set back, decoding each stored outline.
func (s *PostgresStore) LoadDistricts(ctx context.Context) ([]boundary.District, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT code, name, boundary FROM districts ORDER BY code`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load districts")
	}
	defer rows.Close()

	var out []boundary.District
	for rows.Next() {
		var (
			code, name string
			wkb        []byte
		)
		if err := rows.Scan(&code, &name, &wkb); err != nil {
			return nil, eris.Wrap(err, "postgres: scan district")
		}
		d, err := boundary.FromWKB(code, name, wkb)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate districts")
}

var (
	placeColumns = []string{"os_id", "name", "name_std", "alt_name_std", "postcode_area", "place_type"}
	roadColumns  = []string{"os_id", "name", "name_std", "alt_name_std", "postcode_area"}
)

// ReplaceGazetteer swaps in a complete OS Open Names extract, places and
// roads together.
func (s *PostgresStore) ReplaceGazetteer(ctx context.Context, places, roads []gazetteer.Name) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace gazetteer")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM os_places`); err != nil {
		return eris.Wrap(err, "postgres: clear os_places")
	}
	if _, err := tx.Exec(ctx, `DELETE FROM os_roads`); err != nil {
		return eris.Wrap(err, "postgres: clear os_roads")
	}

	placeRows := make([][]any, 0, len(places))
	for _, p := range places {
		placeRows = append(placeRows, []any{
			p.ID, p.Name, p.NameStd,
			nullIfEmpty(p.AltNameStd), nullIfEmpty(p.PostcodeArea), p.PlaceType,
		})
	}
	roadRows := make([][]any, 0, len(roads))
	for _, r := range roads {
		roadRows = append(roadRows, []any{
			r.ID, r.Name, r.NameStd,
			nullIfEmpty(r.AltNameStd), nullIfEmpty(r.PostcodeArea),
		})
	}
	if _, err := db.CopyFrom(ctx, tx, "os_places", placeColumns, placeRows); err != nil {
		return err
	}
	if _, err := db.CopyFrom(ctx, tx, "os_roads", roadColumns, roadRows); err != nil {
		return err
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace gazetteer")
}

// LoadGazetteer reads the stored extract back into a lookup index.
func (s *PostgresStore) LoadGazetteer(ctx context.Context) (*gazetteer.Index, error) {
	places, err := s.loadNames(ctx,
		`SELECT os_id, name, name_std, alt_name_std, postcode_area, place_type
		 FROM os_places ORDER BY os_id`, true)
	if err != nil {
		return nil, err
	}
	roads, err := s.loadNames(ctx,
		`SELECT os_id, name, name_std, alt_name_std, postcode_area
		 FROM os_roads ORDER BY os_id`, false)
	if err != nil {
		return nil, err
	}
	return gazetteer.NewIndex(places, roads), nil
}

func (s *PostgresStore) loadNames(ctx context.Context, query string, withType bool) ([]gazetteer.Name, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load gazetteer")
	}
	defer rows.Close()

	var out []gazetteer.Name
	for rows.Next() {
		var (
			n         gazetteer.Name
			alt, area *string
		)
		dest := []any{&n.ID, &n.Name, &n.NameStd, &alt, &area}
		if withType {
			dest = append(dest, &n.PlaceType)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, eris.Wrap(err, "postgres: scan gazetteer name")
		}
		n.AltNameStd = deref(alt)
		n.PostcodeArea = deref(area)
		out = append(out, n)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate gazetteer")
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
