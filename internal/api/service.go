// Package api serves the classified datasets over HTTP: bounding-box
// queries for both datasets as GeoJSON, per-establishment detail with a
// parsed address, match suggestions, district statistics and the distant
// match review layer.
package api

import (
	"context"
	"sync"

	"github.com/fooddata/fhrs-reconcile/internal/address"
	"github.com/fooddata/fhrs-reconcile/internal/model"
	"github.com/fooddata/fhrs-reconcile/internal/reconcile"
	"github.com/fooddata/fhrs-reconcile/internal/stats"
	"github.com/fooddata/fhrs-reconcile/internal/store"
	"github.com/fooddata/fhrs-reconcile/internal/suggest"
)

// HistorySource provides the per-district capture history behind the
// stats history endpoint. *store.StatsStore satisfies it.
type HistorySource interface {
	History(ctx context.Context, districtCode, dataset string) ([]store.CapturePoint, error)
}

// Options configures a Service. Zero values fall back to the documented
// defaults; History and DistrictNames may be nil.
type Options struct {
	Parser        *address.Parser
	Suggest       suggest.Options
	DistantMeters float64
	// MaxBBoxDegrees caps the lon*lat area a single query may cover.
	MaxBBoxDegrees float64
	History        HistorySource
	DistrictNames  map[string]string
}

// Service answers API queries against the most recent reconciliation
// pass. Refresh swaps the whole view atomically, so a request sees one
// consistent pass even while a new one is being installed.
type Service struct {
	mu        sync.RWMutex
	snap      *reconcile.Snapshot
	result    *reconcile.Result
	suggester *suggest.Engine
	district  stats.DistrictStats

	parser        *address.Parser
	distantMeters float64
	maxBBox       float64
	suggestOpts   suggest.Options
	history       HistorySource
	districtNames map[string]string
}

// NewService returns a service with no snapshot loaded. Handlers answer
// 503 until the first Refresh.
func NewService(opts Options) *Service {
	if opts.Parser == nil {
		opts.Parser = address.NewParser(nil)
	}
	if opts.DistantMeters <= 0 {
		opts.DistantMeters = 250
	}
	if opts.MaxBBoxDegrees <= 0 {
		opts.MaxBBoxDegrees = 0.25
	}
	return &Service{
		parser:        opts.Parser,
		distantMeters: opts.DistantMeters,
		maxBBox:       opts.MaxBBoxDegrees,
		suggestOpts:   opts.Suggest,
		history:       opts.History,
		districtNames: opts.DistrictNames,
	}
}

// Refresh installs the output of a reconciliation pass. The suggestion
// index is rebuilt here, off the request path.
func (s *Service) Refresh(snap *reconcile.Snapshot, result *reconcile.Result, district stats.DistrictStats) {
	suggester := suggest.NewEngine(snap, result, s.parser, s.suggestOpts)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	s.result = result
	s.suggester = suggester
	s.district = district
}

// view is one consistent read of the current pass.
type view struct {
	snap      *reconcile.Snapshot
	result    *reconcile.Result
	suggester *suggest.Engine
	district  stats.DistrictStats
}

func (s *Service) view() (view, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil || s.result == nil {
		return view{}, false
	}
	return view{
		snap:      s.snap,
		result:    s.result,
		suggester: s.suggester,
		district:  s.district,
	}, true
}

func (s *Service) districtName(code string) string {
	if name, ok := s.districtNames[code]; ok {
		return name
	}
	return ""
}

// linksFor returns the current pass's edge set for one object.
func (v view) linksFor(ref model.OSMRef) []model.Link {
	return v.result.ByObject[ref]
}
