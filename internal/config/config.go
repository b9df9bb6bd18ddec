// Package config provides configuration types for the sepolicy-engine
// analysis engine.
package config

import (
	"github.com/cici0602/sepolicy-engine/internal/cond"
	"github.com/cici0602/sepolicy-engine/internal/policyview"
	"github.com/cici0602/sepolicy-engine/internal/ruleindex"
)

// EngineConfig is the top-level configuration for the engine.
type EngineConfig struct {
	// Index configures rule-index construction.
	Index IndexConfig `yaml:"index" mapstructure:"index"`

	// Cond configures conditional-expression evaluation limits.
	Cond CondConfig `yaml:"cond" mapstructure:"cond"`

	// IFA configures information-flow analysis defaults.
	IFA IFAConfig `yaml:"ifa" mapstructure:"ifa"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log" mapstructure:"log"`

	// MetricsAddr is the address a Prometheus metrics listener binds to
	// (e.g. "127.0.0.1:9090"). Empty disables the listener.
	MetricsAddr string `yaml:"metrics_addr" mapstructure:"metrics_addr" validate:"omitempty,hostname_port"`
}

// IndexConfig configures rule-index construction.
type IndexConfig struct {
	// HashBuckets is the bucket count of the rule index's primary hash
	// table. Defaults to ruleindex.HashBuckets (spec.md section 6: "2^15").
	HashBuckets int `yaml:"hash_buckets" mapstructure:"hash_buckets" validate:"omitempty,min=1"`
}

// CondConfig configures conditional-expression evaluation.
type CondConfig struct {
	// MaxBools is the limit on distinct booleans a conditional expression
	// may reference before evaluation conservatively short-circuits to
	// false. Defaults to cond.DefaultMaxBools.
	MaxBools int `yaml:"max_bools" mapstructure:"max_bools" validate:"omitempty,min=1"`

	// MaxDepth is the evaluation stack depth bound. Defaults to
	// cond.DefaultMaxDepth.
	MaxDepth int `yaml:"max_depth" mapstructure:"max_depth" validate:"omitempty,min=1"`
}

// IFAConfig configures information-flow analysis defaults.
type IFAConfig struct {
	// PermMapPath is the path to a permission-map file. Empty means no
	// permission map is loaded, so IF queries fail with
	// MissingPermissionMap until one is supplied at runtime.
	PermMapPath string `yaml:"perm_map_path" mapstructure:"perm_map_path"`

	// MinWeight is the default pruning weight for direct/transitive/
	// multi-path queries that don't specify one explicitly (spec.md
	// section 4.3, "max_len = 11 - min_weight").
	MinWeight int `yaml:"min_weight" mapstructure:"min_weight" validate:"omitempty,min=1,max=10"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level sets the minimum log level. Valid values: "debug", "info",
	// "warn", "error". Defaults to "info".
	Level string `yaml:"level" mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`

	// Format selects the slog handler. Valid values: "text", "json".
	// Defaults to "text".
	Format string `yaml:"format" mapstructure:"format" validate:"omitempty,oneof=text json"`
}

// SetDefaults applies sensible default values to the configuration,
// mirroring the constants each analysis package already defaults to when
// constructed directly.
func (c *EngineConfig) SetDefaults() {
	if c.Index.HashBuckets == 0 {
		c.Index.HashBuckets = ruleindex.HashBuckets
	}
	if c.Cond.MaxBools == 0 {
		c.Cond.MaxBools = cond.DefaultMaxBools
	}
	if c.Cond.MaxDepth == 0 {
		c.Cond.MaxDepth = cond.DefaultMaxDepth
	}
	if c.IFA.MinWeight == 0 {
		c.IFA.MinWeight = policyview.MinWeight
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// NewEvaluator builds a *cond.Evaluator from the configured limits.
func (c *EngineConfig) NewEvaluator() *cond.Evaluator {
	return &cond.Evaluator{MaxBools: c.Cond.MaxBools, MaxDepth: c.Cond.MaxDepth}
}
