package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment
// variables. If configFile is empty, it searches for sepolicy-engine.yaml/
// .yml in the current directory and /etc/sepolicy-engine. An explicit
// extension is required so Viper's config search never matches the
// "sepolicy-engine" binary itself.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		viper.SetConfigName("sepolicy-engine")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SEPOLICY_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

func findConfigFile() string {
	paths := []string{".", "/etc/sepolicy-engine"}
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "sepolicy-engine"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

func bindNestedEnvKeys() {
	_ = viper.BindEnv("index.hash_buckets")
	_ = viper.BindEnv("cond.max_bools")
	_ = viper.BindEnv("cond.max_depth")
	_ = viper.BindEnv("ifa.perm_map_path")
	_ = viper.BindEnv("ifa.min_weight")
	_ = viper.BindEnv("log.level")
	_ = viper.BindEnv("log.format")
	_ = viper.BindEnv("metrics_addr")
}

// LoadConfig reads the configuration file, applies environment overrides,
// sets defaults, and returns the validated EngineConfig.
func LoadConfig() (*EngineConfig, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg EngineConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// ConfigFileUsed returns the path to the configuration file that was
// loaded, or empty if none was found (env vars/defaults only).
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
