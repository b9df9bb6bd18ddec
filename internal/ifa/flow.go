package ifa

import (
	"log/slog"
	"time"

	"github.com/cici0602/sepolicy-engine/internal/diag"
	"github.com/cici0602/sepolicy-engine/internal/metrics"
	"github.com/cici0602/sepolicy-engine/internal/policyview"
)

// Engine bundles a built graph with the ambient wiring (logging,
// metrics) every query records through, mirroring the constructor shape
// ruleindex.Build and dta.BuildTable already establish.
type Engine struct {
	Graph   *Graph
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// NewEngine wraps g with the engine's ambient wiring. The query methods
// validate their start/end/direction arguments consistently across all
// three query kinds.
func NewEngine(g *Graph, logger *slog.Logger, m *metrics.Metrics) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{Graph: g, Logger: logger, Metrics: m}
}

func validStartType(view policyview.Interface, t int) error {
	if t == policyview.SelfType {
		return diag.New(diag.InvalidInput, "start type must not be the reserved self type")
	}
	if _, ok := view.Type(t); !ok {
		return diag.New(diag.InvalidInput, "start type %d does not exist in the policy view", t)
	}
	return nil
}

// DirectFlows runs a direct-flow query, recording query metrics.
func (e *Engine) DirectFlows(view policyview.Interface, startType int, dir Dir, filters DirectFilters) ([]IFlow, error) {
	if err := validStartType(view, startType); err != nil {
		return nil, err
	}
	start := time.Now()
	flows := Direct(e.Graph, startType, dir, filters)
	if e.Metrics != nil {
		e.Metrics.ObserveIFQuery("direct", len(flows))
	}
	e.Logger.Debug("direct flow query", slog.Int("start_type", startType), slog.Int("results", len(flows)), slog.Duration("elapsed", time.Since(start)))
	return flows, nil
}

// TransitiveFlows runs a shortest-path transitive query, recording query
// metrics. dir must be DirIn or DirOut; any other value returns an
// InvalidInput error.
func (e *Engine) TransitiveFlows(view policyview.Interface, startType int, dir Dir, filters TransitiveFilters) ([]FlowPath, error) {
	if err := validStartType(view, startType); err != nil {
		return nil, err
	}
	if dir != DirIn && dir != DirOut {
		return nil, diag.New(diag.InvalidInput, "transitive queries require DirIn or DirOut, got %v", dir)
	}
	start := time.Now()
	paths := Transitive(e.Graph, startType, dir, filters)
	if e.Metrics != nil {
		e.Metrics.ObserveIFQuery("transitive", len(paths))
	}
	e.Logger.Debug("transitive flow query", slog.Int("start_type", startType), slog.Int("results", len(paths)), slog.Duration("elapsed", time.Since(start)))
	return paths, nil
}

// NewMultiPathIterator validates arguments and returns a fresh random-BFS
// iterator (spec.md section 4.3, "Random-BFS multi-path"). seed should
// be derived from wall time by the caller.
func (e *Engine) NewMultiPathIterator(view policyview.Interface, startType, endType int, dir Dir, minWeight int, seed int64) (*PathIterator, error) {
	if err := validStartType(view, startType); err != nil {
		return nil, err
	}
	if err := validStartType(view, endType); err != nil {
		return nil, err
	}
	if dir != DirIn && dir != DirOut {
		return nil, diag.New(diag.InvalidInput, "multi-path queries require DirIn or DirOut, got %v", dir)
	}
	return NewPathIterator(e.Graph, startType, endType, dir, minWeight, seed), nil
}

// FindMore advances it by one outer-loop round and records query
// metrics for the batch it returns (spec.md section 4.3: "A call
// returns the incremental count of paths found").
func (e *Engine) FindMore(it *PathIterator) []FlowPath {
	start := time.Now()
	batch := it.Next()
	if e.Metrics != nil {
		e.Metrics.ObserveIFQuery("multipath", len(batch))
	}
	e.Logger.Debug("multi-path find_more", slog.String("iterator", it.ID.String()), slog.Int("found", len(batch)), slog.Duration("elapsed", time.Since(start)))
	return batch
}
