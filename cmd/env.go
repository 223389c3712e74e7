package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/fooddata/fhrs-reconcile/internal/fetch"
	"github.com/fooddata/fhrs-reconcile/internal/reconcile"
	"github.com/fooddata/fhrs-reconcile/internal/store"
)

// openStore connects to Postgres and ensures the schema is current.
func openStore(ctx context.Context) (*store.PostgresStore, error) {
	st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func openStats(ctx context.Context) (*store.StatsStore, error) {
	st, err := store.NewStatsStore(cfg.Store.StatsDB)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func fhrsClient() *fetch.Client {
	return fetch.NewClient(fetch.Options{
		BaseURL:           cfg.FHRS.BaseURL,
		UserAgent:         cfg.FHRS.UserAgent,
		Timeout:           time.Duration(cfg.FHRS.TimeoutSecs) * time.Second,
		MaxRetries:        cfg.FHRS.MaxRetries,
		RequestsPerSecond: cfg.FHRS.RequestsPerSecond,
	})
}

// loadSnapshot reads both datasets out of the store.
func loadSnapshot(ctx context.Context, st *store.PostgresStore) (*reconcile.Snapshot, error) {
	objects, err := st.LoadObjects(ctx)
	if err != nil {
		return nil, err
	}
	establishments, err := st.LoadEstablishments(ctx)
	if err != nil {
		return nil, err
	}
	if len(objects) == 0 && len(establishments) == 0 {
		return nil, eris.New("store is empty; run import-osm and update-fhrs first")
	}
	return reconcile.NewSnapshot(objects, establishments), nil
}
