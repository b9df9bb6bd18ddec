// Package cmd provides the CLI commands for sepolicy-engine.
package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/cici0602/sepolicy-engine/internal/config"
	"github.com/cici0602/sepolicy-engine/internal/metrics"
	"github.com/cici0602/sepolicy-engine/internal/policyview"
)

var (
	cfgFile    string
	policyPath string
	verbose    bool

	engineCfg     *config.EngineConfig
	logger        *slog.Logger
	engineMetrics *metrics.Metrics
)

var rootCmd = &cobra.Command{
	Use:   "sepolicy-engine",
	Short: "SELinux policy analysis engine",
	Long: `sepolicy-engine analyzes SELinux policies: it builds a canonical rule
index, enumerates domain transitions, and traces information flow between
types.

This binary ships a minimal JSON-based policy loader for demonstration;
parsing a real binary policy is out of scope (see --policy).

Configuration is loaded from sepolicy-engine.yaml in the current directory
or /etc/sepolicy-engine/, overridable with SEPOLICY_ENGINE_* environment
variables.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		engineCfg = cfg

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		} else if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			level = slog.LevelInfo
		}
		handlerOpts := &slog.HandlerOptions{Level: level}
		var handler slog.Handler
		if cfg.Log.Format == "json" {
			handler = slog.NewJSONHandler(os.Stderr, handlerOpts)
		} else {
			handler = slog.NewTextHandler(os.Stderr, handlerOpts)
		}
		logger = slog.New(handler)

		reg := prometheus.NewRegistry()
		engineMetrics = metrics.New(reg)
		if cfg.MetricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			go func() {
				if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
					logger.Error("metrics listener stopped", slog.String("error", err.Error()))
				}
			}()
			logger.Info("metrics listening", slog.String("addr", cfg.MetricsAddr))
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./sepolicy-engine.yaml)")
	rootCmd.PersistentFlags().StringVar(&policyPath, "policy", "", "path to a JSON policy fixture (required)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func initConfig() {
	config.InitViper(cfgFile)
}

// requirePolicy loads the policy fixture named by --policy, failing with
// a clear message if the flag was never set.
func requirePolicy() (*policyview.View, error) {
	if policyPath == "" {
		return nil, fmt.Errorf("--policy is required")
	}
	return loadFixture(policyPath)
}
