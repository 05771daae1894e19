// Package config holds the render settings. Settings load from a YAML file, are overridden by HDRPR_*
// environment variables and are validated before use. A Store publishes changes to the render pass.
package config

import (
	"io"
	"os"
	"strings"

	"github.com/Carmen-Shannon/hdrpr/engine/renderer"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HDRPR_"

// ErrUnknownPlugin is returned for a plugin name no backend implements.
var ErrUnknownPlugin = errors.New("unknown render plugin")

// Config is the full set of render settings.
type Config struct {
	Plugin        string `yaml:"plugin" mapstructure:"plugin"`
	MaxSamples    int    `yaml:"max_samples" mapstructure:"max_samples"`
	Width         int    `yaml:"width" mapstructure:"width"`
	Height        int    `yaml:"height" mapstructure:"height"`
	SyncWorkers   int    `yaml:"sync_workers" mapstructure:"sync_workers"`
	LogLevel      string `yaml:"log_level" mapstructure:"log_level"`
	LogFormat     string `yaml:"log_format" mapstructure:"log_format"`
	MetricsAddr   string `yaml:"metrics_addr" mapstructure:"metrics_addr"`
	WatchImages   bool   `yaml:"watch_images" mapstructure:"watch_images"`
	LightSegments int    `yaml:"light_segments" mapstructure:"light_segments"`
}

// Default returns the settings used for everything a file or the environment leaves unset.
func Default() Config {
	return Config{
		Plugin:        "tahoe",
		MaxSamples:    64,
		Width:         1280,
		Height:        720,
		SyncWorkers:   4,
		LogLevel:      "info",
		LogFormat:     "console",
		LightSegments: 32,
	}
}

// PluginType returns the parsed plugin. Call Validate first; unknown names map to tahoe.
func (c Config) PluginType() renderer.PluginType {
	p, _ := renderer.ParsePluginType(c.Plugin)
	return p
}

// Validate checks every setting.
//
// Returns:
//   - error: the first invalid setting, ErrUnknownPlugin for a bad plugin name
func (c Config) Validate() error {
	if _, ok := renderer.ParsePluginType(c.Plugin); !ok {
		return errors.Wrapf(ErrUnknownPlugin, "plugin %q", c.Plugin)
	}
	switch {
	case c.MaxSamples < 1:
		return errors.Errorf("max_samples must be positive, got %d", c.MaxSamples)
	case c.Width < 1 || c.Height < 1:
		return errors.Errorf("viewport must be at least 1x1, got %dx%d", c.Width, c.Height)
	case c.SyncWorkers < 1:
		return errors.Errorf("sync_workers must be positive, got %d", c.SyncWorkers)
	case c.LightSegments < 3:
		return errors.Errorf("light_segments must be at least 3, got %d", c.LightSegments)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return errors.Errorf("log_format must be json or console, got %q", c.LogFormat)
	}
	return nil
}

// Decode reads YAML settings on top of the defaults.
//
// Parameters:
//   - r: the YAML source
//
// Returns:
//   - Config: the decoded settings, not yet validated
//   - error: decode failure
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, errors.Wrap(err, "decode config")
	}
	return cfg, nil
}

// ApplyEnv overrides settings from HDRPR_<FIELD> variables, e.g. HDRPR_MAX_SAMPLES=128.
// Values are weakly typed so numbers and booleans may be given as strings.
//
// Parameters:
//   - cfg: the settings to override
//   - environ: KEY=VALUE pairs, typically os.Environ()
//
// Returns:
//   - Config: the overridden settings
//   - error: a value that does not convert to its field type
func ApplyEnv(cfg Config, environ []string) (Config, error) {
	overrides := make(map[string]any)
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		name, ok := strings.CutPrefix(key, EnvPrefix)
		if !ok || name == "" {
			continue
		}
		overrides[strings.ToLower(name)] = value
	}
	if len(overrides) == 0 {
		return cfg, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return cfg, errors.Wrap(err, "create env decoder")
	}
	if err := decoder.Decode(overrides); err != nil {
		return cfg, errors.Wrap(err, "decode environment overrides")
	}
	return cfg, nil
}

// Load reads a YAML file, applies the process environment and validates the result.
// An empty path skips the file.
//
// Parameters:
//   - path: the YAML file, or ""
//
// Returns:
//   - Config: the settings
//   - error: read, decode or validation failure
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, errors.Wrap(err, "open config")
		}
		defer f.Close()
		if cfg, err = Decode(f); err != nil {
			return cfg, errors.Wrap(err, path)
		}
	}

	cfg, err := ApplyEnv(cfg, os.Environ())
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}
