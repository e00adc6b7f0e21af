package remixdb

import (
	"log/slog"

	"github.com/Kevin-Yang1/remixdb/internal/engine"
)

// EventListener exports internal/engine.EventListener, matching the
// teacher's pattern of aliasing observability types out of an internal
// package at the root (_examples/cockroachdb-pebble/event.go).
type EventListener = engine.EventListener

// CompactionInfo exports internal/engine.CompactionInfo.
type CompactionInfo = engine.CompactionInfo

// RecoveredInfo exports internal/engine.RecoveredInfo.
type RecoveredInfo = engine.RecoveredInfo

// MakeLoggingEventListener returns an EventListener that logs every event
// through logger at Info level, for callers who want visibility without
// writing their own callbacks. A nil logger uses slog.Default().
func MakeLoggingEventListener(logger *slog.Logger) EventListener {
	if logger == nil {
		logger = slog.Default()
	}
	return EventListener{
		CompactionBegin: func(jobID int64) {
			logger.Info("compaction begin", "job", jobID)
		},
		CompactionEnd: func(info CompactionInfo) {
			if info.Err != nil {
				logger.Info("compaction end", "job", info.JobID, "error", info.Err)
				return
			}
			logger.Info("compaction end", "job", info.JobID, "version", info.Version, "reinserted", info.Reinserted)
		},
		Recovered: func(info RecoveredInfo) {
			logger.Info("wal recovered", "fresh", info.Fresh, "records", info.Records)
		},
	}
}
