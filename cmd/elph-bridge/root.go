package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/luhtfiimanal/elph-bridge/internal/bridge"
	"github.com/luhtfiimanal/elph-bridge/internal/config"
	"github.com/luhtfiimanal/elph-bridge/internal/logging"
)

// version is overridable at link time:
//
//	go build -ldflags "-X main.version=1.1.0"
var version = "1.0.0" //nolint:gochecknoglobals

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// cliOptions mirrors config.Config; only flags the user actually set are applied.
type cliOptions struct {
	cfg        config.Config
	configPath string
	showHelp   bool
	showVer    bool
}

// execute parses args, runs one bridge session and returns the process exit code.
func execute(ctx context.Context, args []string, stdin *os.File, stdout io.Writer, stderr *os.File) int {
	opts := cliOptions{cfg: config.Default()}
	fs := flag.NewFlagSet("elph-bridge", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// ── serial ───────────────────────────────────────────────────
	fs.StringVarP(&opts.configPath, "config", "c", "", "TOML config file")
	fs.StringVarP(&opts.cfg.Device, "device", "d", opts.cfg.Device, "Serial device")
	fs.IntVarP(&opts.cfg.Baud, "baud", "b", opts.cfg.Baud, "Baud rate")
	fs.DurationVar(&opts.cfg.ReadTimeout, "read-timeout", opts.cfg.ReadTimeout, "Serial read timeout")

	// ── pacing ───────────────────────────────────────────────────
	fs.DurationVar(&opts.cfg.CharDelay, "char-delay", opts.cfg.CharDelay, "Delay after each character")
	fs.DurationVar(&opts.cfg.LineDelay, "line-delay", opts.cfg.LineDelay, "Delay after each line terminator")
	fs.IntVar(&opts.cfg.LongLineThreshold, "long-line-threshold", opts.cfg.LongLineThreshold, "Lines longer than this get extra delay")
	fs.DurationVar(&opts.cfg.LongLineDelay, "long-line-delay", opts.cfg.LongLineDelay, "Base extra delay for long lines")
	fs.DurationVar(&opts.cfg.PerMoveDelay, "per-move-delay", opts.cfg.PerMoveDelay, "Extra delay per move in a long position command")
	fs.DurationVar(&opts.cfg.SettleDelay, "settle-delay", opts.cfg.SettleDelay, "Wait after opening the port")
	fs.DurationVar(&opts.cfg.PollInterval, "poll-interval", opts.cfg.PollInterval, "Host input readiness timeout")

	// ── diagnostics ──────────────────────────────────────────────
	fs.StringVarP(&opts.cfg.LogFile, "log", "l", opts.cfg.LogFile, `Diagnostic log file ("-" for stderr, "" to disable)`)
	fs.StringVar(&opts.cfg.LogLevel, "log-level", opts.cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&opts.cfg.LogFormat, "log-format", opts.cfg.LogFormat, "Log format: text, json")

	fs.BoolVar(&opts.showVer, "version", false, "Print version and exit")
	fs.BoolVarP(&opts.showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(stderr, fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(stderr, "elph-bridge: %v\n", err)
		return exitUsage
	}
	if opts.showHelp {
		printUsage(stderr, fs)
		return exitOK
	}
	if opts.showVer {
		fmt.Fprintf(stderr, "elph-bridge %s\n", version)
		return exitOK
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "elph-bridge: unexpected argument %q\n", fs.Arg(0))
		return exitUsage
	}

	// ── configure ────────────────────────────────────────────────
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "elph-bridge: %v\n", err)
		return exitFailure
	}
	applyFlags(fs, &opts.cfg, &cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "elph-bridge: %v\n", err)
		return exitFailure
	}

	sink, err := logging.Open(logging.Options{
		Path:   cfg.LogFile,
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "elph-bridge: warning: %v; continuing without a log\n", err)
	}
	defer sink.Close()

	// ── run ──────────────────────────────────────────────────────
	session := bridge.New(cfg, stdin, stdout, sink.Logger)
	if err := session.Start(); err != nil {
		fmt.Fprintf(stderr, "elph-bridge: %v\n", err)
		return exitFailure
	}
	if err := session.Run(ctx); err != nil {
		fmt.Fprintf(stderr, "elph-bridge: %v\n", err)
	}
	return exitOK
}

// applyFlags copies every flag the user set from flagged onto cfg, so flags
// win over the environment and the config file.
func applyFlags(fs *flag.FlagSet, flagged, cfg *config.Config) {
	str := map[string]struct{ src, dst *string }{
		"device":     {&flagged.Device, &cfg.Device},
		"log":        {&flagged.LogFile, &cfg.LogFile},
		"log-level":  {&flagged.LogLevel, &cfg.LogLevel},
		"log-format": {&flagged.LogFormat, &cfg.LogFormat},
	}
	for name, p := range str {
		if fs.Changed(name) {
			*p.dst = *p.src
		}
	}

	ints := map[string]struct{ src, dst *int }{
		"baud":                {&flagged.Baud, &cfg.Baud},
		"long-line-threshold": {&flagged.LongLineThreshold, &cfg.LongLineThreshold},
	}
	for name, p := range ints {
		if fs.Changed(name) {
			*p.dst = *p.src
		}
	}

	durations := map[string]struct{ src, dst *time.Duration }{
		"read-timeout":    {&flagged.ReadTimeout, &cfg.ReadTimeout},
		"char-delay":      {&flagged.CharDelay, &cfg.CharDelay},
		"line-delay":      {&flagged.LineDelay, &cfg.LineDelay},
		"long-line-delay": {&flagged.LongLineDelay, &cfg.LongLineDelay},
		"per-move-delay":  {&flagged.PerMoveDelay, &cfg.PerMoveDelay},
		"settle-delay":    {&flagged.SettleDelay, &cfg.SettleDelay},
		"poll-interval":   {&flagged.PollInterval, &cfg.PollInterval},
	}
	for name, p := range durations {
		if fs.Changed(name) {
			*p.dst = *p.src
		}
	}
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, `elph-bridge v%s – UCI to ELPH serial bridge

Relays UCI commands from stdin to an ELPH chess computer on a serial port,
suppresses the device's echo, and writes its replies to stdout.

Usage:
  elph-bridge [options]

Options:
`, version)
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintf(w, `
Environment:
  ELPH_DEVICE, ELPH_BAUD, ELPH_CHAR_DELAY, ELPH_LINE_DELAY, ELPH_LOG_FILE, ...
  override the config file; flags override both.

Examples:
  elph-bridge -d /dev/ttyUSB0                  Default ELPH settings
  elph-bridge -c ~/.config/elph.toml -l -      Config file, log to stderr
`)
}
