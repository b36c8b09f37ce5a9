// Package config defines the runtime configuration of the bridge.
//
// Precedence order (highest wins):
//  1. CLI flags (cmd/elph-bridge)
//  2. ELPH_* environment variables (LoadEnv)
//  3. TOML config file (LoadFile)
//  4. Defaults (Default)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	serial "github.com/luhtfiimanal/elph-bridge"
)

// Config holds every tuneable of a bridge session.
type Config struct {
	// Serial channel
	Device      string        `split_words:"true"`
	Baud        int           `split_words:"true"`
	ReadTimeout time.Duration `split_words:"true"`

	// Pacing
	CharDelay         time.Duration `split_words:"true"`
	LineDelay         time.Duration `split_words:"true"`
	LongLineThreshold int           `split_words:"true"`
	LongLineDelay     time.Duration `split_words:"true"`
	PerMoveDelay      time.Duration `split_words:"true"`
	MovesMarker       string        `split_words:"true"`

	// Session
	SettleDelay  time.Duration `split_words:"true"`
	PollInterval time.Duration `split_words:"true"`

	// Diagnostics
	LogFile   string `split_words:"true"`
	LogLevel  string `split_words:"true"`
	LogFormat string `split_words:"true"`
}

// Error is an invalid configuration value.
type Error struct {
	Field   string
	Value   any
	Message string
}

func (e *Error) Error() string {
	msg := "config: " + e.Field
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	return msg + ": " + e.Message
}

// Default returns the settings the ELPH is known to work with.
func Default() Config {
	return Config{
		Device:      DefaultDevice,
		Baud:        DefaultBaud,
		ReadTimeout: DefaultReadTimeout,

		CharDelay:         DefaultCharDelay,
		LineDelay:         DefaultLineDelay,
		LongLineThreshold: DefaultLongLineThreshold,
		LongLineDelay:     DefaultLongLineDelay,
		PerMoveDelay:      DefaultPerMoveDelay,
		MovesMarker:       DefaultMovesMarker,

		SettleDelay:  DefaultSettleDelay,
		PollInterval: DefaultPollInterval,

		LogFile:   filepath.Join(os.TempDir(), DefaultLogName),
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Device) == "" {
		return &Error{Field: "device", Message: "is required"}
	}
	if !serial.SupportedBaud(c.Baud) {
		return &Error{Field: "baud", Value: c.Baud, Message: "unsupported baud rate"}
	}

	durations := []struct {
		name string
		d    time.Duration
	}{
		{"read-timeout", c.ReadTimeout},
		{"char-delay", c.CharDelay},
		{"line-delay", c.LineDelay},
		{"long-line-delay", c.LongLineDelay},
		{"per-move-delay", c.PerMoveDelay},
		{"settle-delay", c.SettleDelay},
	}
	for _, d := range durations {
		if d.d < 0 {
			return &Error{Field: d.name, Value: d.d, Message: "must not be negative"}
		}
	}

	if c.LongLineThreshold < 0 {
		return &Error{Field: "long-line-threshold", Value: c.LongLineThreshold, Message: "must not be negative"}
	}
	if c.MovesMarker == "" {
		return &Error{Field: "moves-marker", Message: "must not be empty"}
	}
	if c.PollInterval <= 0 || c.PollInterval >= MaxPollInterval {
		return &Error{Field: "poll-interval", Value: c.PollInterval, Message: fmt.Sprintf("must be in (0, %s)", MaxPollInterval)}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return &Error{Field: "log-level", Value: c.LogLevel, Message: "expected debug, info, warn or error"}
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return &Error{Field: "log-format", Value: c.LogFormat, Message: "expected text or json"}
	}
	return nil
}

// SerialConfig returns the port settings.
func (c *Config) SerialConfig() serial.Config {
	return serial.Config{
		Device:      c.Device,
		BaudRate:    c.Baud,
		ReadTimeout: c.ReadTimeout,
	}
}
