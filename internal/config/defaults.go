package config

import "time"

// Defaults match the ELPH's BIOS serial handler, which echoes every byte and
// has no input buffer to speak of.
const (
	DefaultDevice      = "/dev/ttyUSB0"
	DefaultBaud        = 19200
	DefaultReadTimeout = 100 * time.Millisecond

	// DefaultCharDelay keeps the BIOS echo from falling behind.
	DefaultCharDelay = 3 * time.Millisecond
	// DefaultLineDelay gives the device time to parse a completed line.
	DefaultLineDelay = 30 * time.Millisecond

	DefaultLongLineThreshold = 80
	DefaultLongLineDelay     = 50 * time.Millisecond
	// DefaultPerMoveDelay covers one MAKE_MOVE replay on the device.
	DefaultPerMoveDelay = 25 * time.Millisecond
	DefaultMovesMarker  = " moves "

	DefaultSettleDelay  = 300 * time.Millisecond
	DefaultPollInterval = 5 * time.Millisecond
	// MaxPollInterval keeps loop latency below the pacing granularity.
	MaxPollInterval = 10 * time.Millisecond

	DefaultLogName   = "elph-bridge.log"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)
