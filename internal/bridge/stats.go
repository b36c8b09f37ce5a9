package bridge

import (
	"log/slog"
	"time"
)

// Stats counts what a session moved in each direction.
type Stats struct {
	LinesSent      int
	LinesSkipped   int // blank lines never transmitted
	Echoes         int
	PartialEchoes  int
	LinesForwarded int
	BytesToDevice  int64
	BytesFromDev   int64
	BytesDiscarded int64 // stale device input flushed at start
	ExtraDelay     time.Duration
}

// LogValue implements slog.LogValuer.
func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("sent", s.LinesSent),
		slog.Int("skipped", s.LinesSkipped),
		slog.Int("echoes", s.Echoes),
		slog.Int("partial_echoes", s.PartialEchoes),
		slog.Int("forwarded", s.LinesForwarded),
		slog.Int64("bytes_out", s.BytesToDevice),
		slog.Int64("bytes_in", s.BytesFromDev),
		slog.Int64("bytes_discarded", s.BytesDiscarded),
		slog.Duration("extra_delay", s.ExtraDelay),
	)
}
