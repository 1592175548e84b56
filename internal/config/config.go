// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"net"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"firestige.xyz/osisim/internal/core"
	"firestige.xyz/osisim/internal/core/codec"
)

// GlobalConfig represents the top-level configuration.
// Maps to the `osisim:` root key in the config file.
type GlobalConfig struct {
	Log     LogConfig     `mapstructure:"log"`
	Stack   StackConfig   `mapstructure:"stack"`
	Trace   TraceConfig   `mapstructure:"trace"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Capture CaptureConfig `mapstructure:"capture"`
}

// ─── Stack ───

// StackConfig selects the codec installed on each layer.
type StackConfig struct {
	Profile string            `mapstructure:"profile"` // binary | marker | mac
	Layers  map[string]string `mapstructure:"layers"`  // layer key -> variant, overrides the profile
	Sender  SenderConfig      `mapstructure:"sender"`
}

// SenderConfig controls the identifier embedded by MAC-aware data link
// framing. An empty ID means discover it from a network interface.
type SenderConfig struct {
	ID        string `mapstructure:"id"`
	Interface string `mapstructure:"interface"` // empty = first usable interface
}

// ─── Trace ───

// TraceConfig controls per-layer trace output.
type TraceConfig struct {
	Console bool `mapstructure:"console"` // "<Layer> <Direction>: <value>" lines on stdout
	Color   bool `mapstructure:"color"`
	Log     bool `mapstructure:"log"` // same lines through the logger at debug level
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// ─── Capture ───

// CaptureConfig controls recording of wire frames.
type CaptureConfig struct {
	Pcap PcapConfig `mapstructure:"pcap"`
}

// PcapConfig records every sent wire frame into a pcap file.
type PcapConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level      string           `mapstructure:"level"`       // trace / debug / info / warn / error
	Format     string           `mapstructure:"format"`      // text / json
	Pattern    string           `mapstructure:"pattern"`     // text only: %time %level %field %msg %caller %n
	TimeFormat string           `mapstructure:"time_format"` // Go reference time layout
	Outputs    LogOutputsConfig `mapstructure:"outputs"`
}

// LogOutputsConfig contains log output destinations besides the console.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Path     string         `mapstructure:"path"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups"`
	Compress   bool `mapstructure:"compress"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the file structure `osisim: ...`.
type configRoot struct {
	Osisim GlobalConfig `mapstructure:"osisim"`
}

// Load loads configuration from file. An empty path yields the defaults.
// The file uses `osisim:` as root key; env vars use the OSISIM_ prefix
// (e.g. OSISIM_STACK_PROFILE).
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// key "osisim.log.level" -> env "OSISIM_LOG_LEVEL"
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Osisim

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *GlobalConfig {
	cfg, err := Load("")
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("osisim.log.level", "info")
	v.SetDefault("osisim.log.format", "text")
	v.SetDefault("osisim.log.pattern", "%time [%level] %field %msg%n")
	v.SetDefault("osisim.log.time_format", "2006-01-02 15:04:05")
	v.SetDefault("osisim.log.outputs.file.enabled", false)
	v.SetDefault("osisim.log.outputs.file.path", "/var/log/osisim/osisim.log")
	v.SetDefault("osisim.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("osisim.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("osisim.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("osisim.log.outputs.file.rotation.compress", true)

	// Stack defaults
	v.SetDefault("osisim.stack.profile", "binary")
	v.SetDefault("osisim.stack.sender.id", "")
	v.SetDefault("osisim.stack.sender.interface", "")

	// Trace defaults
	v.SetDefault("osisim.trace.console", true)
	v.SetDefault("osisim.trace.color", true)
	v.SetDefault("osisim.trace.log", false)

	// Metrics defaults
	v.SetDefault("osisim.metrics.enabled", false)
	v.SetDefault("osisim.metrics.listen", ":9091")
	v.SetDefault("osisim.metrics.path", "/metrics")

	// Capture defaults
	v.SetDefault("osisim.capture.pcap.enabled", false)
	v.SetDefault("osisim.capture.pcap.path", "osisim.pcap")
}

// ValidateAndApplyDefaults validates configuration and normalizes keys.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be trace/debug/info/warn/error)", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("invalid log format: %s (must be json/text)", cfg.Log.Format)
	}
	if cfg.Log.Outputs.File.Enabled && cfg.Log.Outputs.File.Path == "" {
		return fmt.Errorf("log.outputs.file.path is required when log.outputs.file.enabled=true")
	}

	// ── Stack validation ──
	if cfg.Stack.Profile == "" {
		return fmt.Errorf("stack.profile is required")
	}
	if _, err := codec.Profile(cfg.Stack.Profile); err != nil {
		return fmt.Errorf("stack.profile: %w", err)
	}
	layers := make(map[string]string, len(cfg.Stack.Layers))
	for key, variant := range cfg.Stack.Layers {
		layer, ok := core.ParseLayer(key)
		if !ok {
			return fmt.Errorf("unknown layer in stack.layers: %s", key)
		}
		if variant == "" {
			return fmt.Errorf("stack.layers.%s: empty variant", layer.Key())
		}
		if !slices.Contains(codec.Variants(layer), variant) {
			return fmt.Errorf("stack.layers.%s: unknown variant %q (must be one of %v)", layer.Key(), variant, codec.Variants(layer))
		}
		layers[layer.Key()] = variant
	}
	cfg.Stack.Layers = layers

	// ── Metrics validation ──
	if cfg.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(cfg.Metrics.Listen); err != nil {
			return fmt.Errorf("invalid metrics.listen %q: %w", cfg.Metrics.Listen, err)
		}
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			return fmt.Errorf("metrics.path must start with '/': %s", cfg.Metrics.Path)
		}
	}

	// ── Capture validation ──
	if cfg.Capture.Pcap.Enabled && cfg.Capture.Pcap.Path == "" {
		return fmt.Errorf("capture.pcap.path is required when capture.pcap.enabled=true")
	}

	return nil
}
