package ruleindex

import (
	"log/slog"
	"time"

	"github.com/cici0602/sepolicy-engine/internal/diag"
	"github.com/cici0602/sepolicy-engine/internal/metrics"
	"github.com/cici0602/sepolicy-engine/internal/policyview"
)

// BuildOptions configures Build. All fields are optional; nil/zero
// values fall back to safe defaults.
type BuildOptions struct {
	NumBuckets int
	Callback   diag.Callback
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

// Build expands every rule in view into its canonical keys and merges
// duplicates, producing the rule index described in spec.md section
// 4.1. Neverallow rules are excluded (rule 4: they do not grant
// permissions and are validated elsewhere).
func Build(view policyview.Interface, opts BuildOptions) *Index {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	idx := NewIndex(opts.NumBuckets)

	for _, r := range view.AVRules() {
		if r.Kind == policyview.RuleNeverAllow {
			continue
		}
		insertAVRule(idx, view, r)
	}
	for _, r := range view.TERules() {
		insertTERule(idx, view, r, opts.Callback, logger)
	}

	stats := idx.Stats()
	logger.Debug("rule index built",
		slog.Int("nodes", idx.NumNodes()),
		slog.Int("buckets_used", stats.NumBucketsUsed),
		slog.Int("max_bucket_depth", stats.MaxBucketDepth),
		slog.Duration("elapsed", time.Since(start)),
	)
	if opts.Metrics != nil {
		opts.Metrics.ObserveIndexBuild(time.Since(start), idx.NumNodes(), stats.MaxBucketDepth)
	}

	return idx
}

func insertAVRule(idx *Index, view policyview.Interface, r policyview.AVRule) {
	srcTypes := expandSrc(view, r.Src, r.Flags)
	for _, classID := range r.Classes {
		perms := expandPerms(view, classID, r.Perms, r.Flags)
		for _, src := range srcTypes {
			tgtTypes := expandTgt(view, r.Tgt, r.Flags, src)
			for _, tgt := range tgtTypes {
				key := Key{Kind: r.Kind, Src: src, Tgt: tgt, Class: classID}
				node := idx.Insert(key, r.Cond)
				for _, p := range perms {
					idx.AddDatum(node, p)
				}
				idx.AddRuleProvenance(node, r.ID, 0)
			}
		}
	}
}

func insertTERule(idx *Index, view policyview.Interface, r policyview.TERule, cb diag.Callback, logger *slog.Logger) {
	srcTypes := expandSrc(view, r.Src, r.Flags)
	for _, classID := range r.Classes {
		for _, src := range srcTypes {
			tgtTypes := expandTgt(view, r.Tgt, r.Flags, src)
			for _, tgt := range tgtTypes {
				key := Key{Kind: r.Kind, Src: src, Tgt: tgt, Class: classID}
				node, ok := idx.InsertTE(key, r.Cond, cb, logger)
				if !ok {
					continue
				}
				idx.SetDefault(node, r.DefaultIdx)
				idx.AddRuleProvenance(node, r.ID, 0)
			}
		}
	}
}
