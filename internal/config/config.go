// Package config loads workflowd's process configuration (storage, registry
// directories, LLM config path, metrics), grounded on
// internal/cli/config.Load in the go-coffee example repo: viper defaults +
// a YAML file + WORKFLOWD_-prefixed environment overrides, unmarshalled
// into a plain struct rather than read ad hoc by flag.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is workflowd's full process configuration.
type Config struct {
	LogLevel string `mapstructure:"log_level"`

	Store StoreConfig `mapstructure:"store"`
	Dirs  DirsConfig  `mapstructure:"dirs"`
	LLM   LLMConfig   `mapstructure:"llm"`

	Metrics MetricsConfig `mapstructure:"metrics"`
}

// StoreConfig selects and configures the persistence backend (spec.md
// §4.8/SPEC_FULL.md §4.8a).
type StoreConfig struct {
	// Driver is "embedded" (default, JSON-snapshotted in-process store) or
	// "postgres".
	Driver string `mapstructure:"driver"`
	// Path is the embedded store's snapshot file path.
	Path string `mapstructure:"path"`
	// DSN is the postgres connection string, used when Driver is "postgres".
	DSN string `mapstructure:"dsn"`
}

// DirsConfig points at the on-disk descriptor directories the registries
// load from.
type DirsConfig struct {
	DAGs          string `mapstructure:"dags"`
	LocalTools    string `mapstructure:"local_tools"`
	RemoteTools   string `mapstructure:"remote_tools"`
	Agents        string `mapstructure:"agents"`
	WorkflowDebug string `mapstructure:"workflow_debug"`
}

// LLMConfig points at the hot-reloadable LLM provider/model config file.
type LLMConfig struct {
	ConfigPath string `mapstructure:"config_path"`
}

// MetricsConfig controls the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Load reads configuration from (in ascending priority) built-in defaults,
// a "workflowd.yaml" file on the search path, and WORKFLOWD_-prefixed
// environment variables. cfgFile, if non-empty, is read directly instead of
// searched for.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("workflowd")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/workflowd")
		v.AddConfigPath("/etc/workflowd")
	}

	v.SetEnvPrefix("WORKFLOWD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("store.driver", "embedded")
	v.SetDefault("store.path", "./data/workflowd.json")

	v.SetDefault("dirs.dags", "./config/dags")
	v.SetDefault("dirs.local_tools", "./config/tools/local")
	v.SetDefault("dirs.remote_tools", "./config/tools/remote")
	v.SetDefault("dirs.agents", "./config/agents")
	v.SetDefault("dirs.workflow_debug", "./data/workflow_debug")

	v.SetDefault("llm.config_path", "./config/llm.json")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9102")
}
