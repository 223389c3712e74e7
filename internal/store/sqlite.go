package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/fooddata/fhrs-reconcile/internal/model"
	"github.com/fooddata/fhrs-reconcile/internal/stats"
)

// StatsStore keeps the per-district statistics time series in SQLite.
// One row per (capture, district, dataset, state); history queries
// read the series back per district.
type StatsStore struct {
	db *sql.DB
}

// NewStatsStore opens a SQLite database at the given path and
// configures WAL mode.
func NewStatsStore(dsn string) (*StatsStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &StatsStore{db: db}, nil
}

const statsMigration = `
CREATE TABLE IF NOT EXISTS district_stats (
	captured_at   DATETIME NOT NULL,
	district_code TEXT NOT NULL,
	dataset       TEXT NOT NULL CHECK (dataset IN ('osm', 'fhrs')),
	state         TEXT NOT NULL,
	count         INTEGER NOT NULL,
	PRIMARY KEY (captured_at, district_code, dataset, state)
);

CREATE INDEX IF NOT EXISTS idx_district_stats_district ON district_stats(district_code, captured_at);
`

func (s *StatsStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, statsMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *StatsStore) Close() error {
	return s.db.Close()
}

// Record writes one capture of the full aggregation. All rows share
// the supplied timestamp so a capture can be read back as a unit.
func (s *StatsStore) Record(ctx context.Context, capturedAt time.Time, aggregated stats.DistrictStats) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin record stats")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO district_stats (captured_at, district_code, dataset, state, count) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	at := capturedAt.UTC()
	for _, d := range aggregated {
		for state, count := range d.OSM {
			if _, err := stmt.ExecContext(ctx, at, d.Code, "osm", string(state), count); err != nil {
				return eris.Wrapf(err, "sqlite: insert osm stats for %s", d.Code)
			}
		}
		for state, count := range d.FHRS {
			if _, err := stmt.ExecContext(ctx, at, d.Code, "fhrs", string(state), count); err != nil {
				return eris.Wrapf(err, "sqlite: insert fhrs stats for %s", d.Code)
			}
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit record stats")
}

// CapturePoint is one state's count at one moment for one district.
type CapturePoint struct {
	CapturedAt time.Time `json:"captured_at"`
	State      string    `json:"state"`
	Count      int       `json:"count"`
}

// History reads a district's series for one dataset, oldest first.
func (s *StatsStore) History(ctx context.Context, districtCode, dataset string) ([]CapturePoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT captured_at, state, count FROM district_stats
		 WHERE district_code = ? AND dataset = ?
		 ORDER BY captured_at, state`,
		districtCode, dataset)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: history for %s", districtCode)
	}
	defer rows.Close() //nolint:errcheck

	var out []CapturePoint
	for rows.Next() {
		var p CapturePoint
		if err := rows.Scan(&p.CapturedAt, &p.State, &p.Count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan capture point")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate history")
}

// Latest reads the most recent capture back as a full aggregation.
func (s *StatsStore) Latest(ctx context.Context) (stats.DistrictStats, error) {
	var at time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT captured_at FROM district_stats ORDER BY captured_at DESC LIMIT 1`).Scan(&at)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest capture time")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT district_code, dataset, state, count FROM district_stats
		 WHERE captured_at = ? ORDER BY district_code`,
		at)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest capture")
	}
	defer rows.Close() //nolint:errcheck

	byCode := make(map[string]*stats.DistrictCounts)
	var order []string
	for rows.Next() {
		var code, dataset, state string
		var count int
		if err := rows.Scan(&code, &dataset, &state, &count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan capture row")
		}
		d, ok := byCode[code]
		if !ok {
			d = &stats.DistrictCounts{
				Code: code,
				OSM:  make(map[model.OSMState]int),
				FHRS: make(map[model.FHRSState]int),
			}
			byCode[code] = d
			order = append(order, code)
		}
		switch dataset {
		case "osm":
			d.OSM[model.OSMState(state)] = count
		case "fhrs":
			d.FHRS[model.FHRSState(state)] = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate capture")
	}

	out := make(stats.DistrictStats, 0, len(order))
	for _, code := range order {
		out = append(out, *byCode[code])
	}
	return out, nil
}
