package config

import "testing"

func TestValidateAcceptsDefaults(t *testing.T) {
	var cfg EngineConfig
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaulted config = %v, want nil", err)
	}
}

func TestValidateRejectsOutOfRangeMinWeight(t *testing.T) {
	cfg := EngineConfig{IFA: IFAConfig{MinWeight: 11}}
	cfg.SetDefaults()

	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for min_weight above 10")
	}
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := EngineConfig{Log: LogConfig{Level: "verbose"}}
	cfg.SetDefaults()
	cfg.Log.Level = "verbose" // SetDefaults only fills empty strings

	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for an invalid log level")
	}
}

func TestValidateRejectsMaxDepthAboveMaxBools(t *testing.T) {
	cfg := EngineConfig{Cond: CondConfig{MaxBools: 5, MaxDepth: 10}}
	cfg.SetDefaults()

	if err := cfg.Validate(); err == nil {
		t.Error("expected an error when max_depth exceeds max_bools")
	}
}

func TestValidateRejectsBadMetricsAddr(t *testing.T) {
	cfg := EngineConfig{MetricsAddr: "not-a-valid-addr!!"}
	cfg.SetDefaults()

	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for a malformed metrics_addr")
	}
}
