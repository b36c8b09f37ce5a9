package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every supported environment variable, e.g. ELPH_DEVICE.
const EnvPrefix = "ELPH"

type fileConfig struct {
	Device      string `toml:"device"`
	Baud        int    `toml:"baud"`
	ReadTimeout string `toml:"read_timeout"`

	CharDelay         string `toml:"char_delay"`
	LineDelay         string `toml:"line_delay"`
	LongLineThreshold int    `toml:"long_line_threshold"`
	LongLineDelay     string `toml:"long_line_delay"`
	PerMoveDelay      string `toml:"per_move_delay"`
	MovesMarker       string `toml:"moves_marker"`

	SettleDelay  string `toml:"settle_delay"`
	PollInterval string `toml:"poll_interval"`

	LogFile   string `toml:"log_file"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// LoadFile overlays the keys defined in the TOML file at path onto cfg.
// Keys absent from the file leave cfg untouched.
func LoadFile(path string, cfg *Config) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("device") {
		cfg.Device = strings.TrimSpace(raw.Device)
	}
	if meta.IsDefined("baud") {
		cfg.Baud = raw.Baud
	}
	if meta.IsDefined("long_line_threshold") {
		cfg.LongLineThreshold = raw.LongLineThreshold
	}
	if meta.IsDefined("moves_marker") {
		cfg.MovesMarker = raw.MovesMarker
	}
	if meta.IsDefined("log_file") {
		cfg.LogFile = strings.TrimSpace(raw.LogFile)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("log_format") {
		cfg.LogFormat = strings.TrimSpace(raw.LogFormat)
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"read_timeout", raw.ReadTimeout, &cfg.ReadTimeout},
		{"char_delay", raw.CharDelay, &cfg.CharDelay},
		{"line_delay", raw.LineDelay, &cfg.LineDelay},
		{"long_line_delay", raw.LongLineDelay, &cfg.LongLineDelay},
		{"per_move_delay", raw.PerMoveDelay, &cfg.PerMoveDelay},
		{"settle_delay", raw.SettleDelay, &cfg.SettleDelay},
		{"poll_interval", raw.PollInterval, &cfg.PollInterval},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}
	return nil
}

// LoadEnv overlays ELPH_* environment variables onto cfg. Only variables
// that are set override the existing value.
func LoadEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("load environment: %w", err)
	}
	return nil
}

// Load builds the configuration from defaults, an optional file and the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := LoadEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
