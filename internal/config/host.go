package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// HostConfig is the complete host configuration.
type HostConfig struct {
	LogLevel       string       `mapstructure:"log_level"`
	MetricsEnabled bool         `mapstructure:"metrics_enabled"`
	MetricsPort    int          `mapstructure:"metrics_port"`
	Wasm           WasmConfig   `mapstructure:"wasm"`
	Canvas         CanvasConfig `mapstructure:"canvas"`
	Frame          FrameConfig  `mapstructure:"frame"`
	Input          InputConfig  `mapstructure:"input"`
	Assets         AssetsConfig `mapstructure:"assets"`
	GL             GLConfig     `mapstructure:"gl"`
}

// WasmConfig holds Wasm runtime configuration.
type WasmConfig struct {
	// Memory limit per module (in pages, 64KB each).
	MemoryPages uint32 `mapstructure:"memory_pages"`
	// Keep debug info for guest stack traces.
	Debug bool `mapstructure:"debug"`
	// Compilation cache directory, shared by main and worker runtimes.
	CacheDir string `mapstructure:"cache_dir"`
	// Maximum instances, the main instance included.
	MaxInstances int `mapstructure:"max_instances"`
	// Text codec: auto or fallback.
	TextCodec string `mapstructure:"text_codec"`
}

// CanvasConfig is the initial drawing surface size.
type CanvasConfig struct {
	Width  int32 `mapstructure:"width"`
	Height int32 `mapstructure:"height"`
}

// FrameConfig controls the frame loop.
type FrameConfig struct {
	RateHz int `mapstructure:"rate_hz"`
}

// InputConfig controls the remote input listener.
type InputConfig struct {
	// Listen address for the websocket input server. Empty disables it.
	Listen string `mapstructure:"listen"`
}

// AssetsConfig points at an optional asset manifest.
type AssetsConfig struct {
	Manifest string `mapstructure:"manifest"`
}

// GLConfig controls the GL backend.
type GLConfig struct {
	// Trace file receiving every GL command as a JSON line. Empty disables it.
	Trace string `mapstructure:"trace"`
	// Context versions the headless backend offers, in preference order.
	Versions []string `mapstructure:"versions"`
}

// LoadHostConfig loads defaults, then the optional file at configPath, then
// WASMTOYS_* environment overrides.
func LoadHostConfig(configPath string) (*HostConfig, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_enabled", false)
	v.SetDefault("metrics_port", 9090)

	// Wasm defaults
	v.SetDefault("wasm.memory_pages", 256) // 16MB
	v.SetDefault("wasm.debug", false)
	v.SetDefault("wasm.cache_dir", "")
	v.SetDefault("wasm.max_instances", 16)
	v.SetDefault("wasm.text_codec", "auto")

	v.SetDefault("canvas.width", 800)
	v.SetDefault("canvas.height", 600)
	v.SetDefault("frame.rate_hz", 60)
	v.SetDefault("input.listen", "")
	v.SetDefault("assets.manifest", "")
	v.SetDefault("gl.trace", "")
	v.SetDefault("gl.versions", []string{"webgl2", "webgl"})

	v.SetEnvPrefix("wasmtoys")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg HostConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks value ranges.
func (c *HostConfig) Validate() error {
	if c.Frame.RateHz <= 0 {
		return fmt.Errorf("frame.rate_hz must be positive, got %d", c.Frame.RateHz)
	}
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return fmt.Errorf("canvas size must be positive, got %dx%d", c.Canvas.Width, c.Canvas.Height)
	}
	if c.Wasm.MaxInstances < 0 {
		return fmt.Errorf("wasm.max_instances must not be negative, got %d", c.Wasm.MaxInstances)
	}
	switch c.Wasm.TextCodec {
	case "", "auto", "fallback":
	default:
		return fmt.Errorf("unknown wasm.text_codec %q", c.Wasm.TextCodec)
	}
	return nil
}

// MaxWorkers is the worker cap implied by MaxInstances, which counts the main
// instance. Zero means unlimited.
func (c *HostConfig) MaxWorkers() int {
	if c.Wasm.MaxInstances == 0 {
		return 0
	}
	if c.Wasm.MaxInstances == 1 {
		return -1
	}
	return c.Wasm.MaxInstances - 1
}
