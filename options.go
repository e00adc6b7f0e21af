package remixdb

import (
	"runtime"

	"github.com/Kevin-Yang1/remixdb/internal/engine"
	"github.com/Kevin-Yang1/remixdb/internal/vfs"
)

// Options configures Open, matching spec.md §6's configuration table and
// the teacher's options.go pattern: a plain struct with an EnsureDefaults
// method callers may invoke themselves (Open calls it unconditionally).
type Options struct {
	// FS is the filesystem Open operates on. Defaults to vfs.Default (the
	// real disk). Tests substitute an *vfs.MemFS.
	FS vfs.FS

	// CacheSizeMB sizes the shared block cache. Zero selects the default
	// (64); a negative value disables caching.
	CacheSizeMB int
	// MTSizeMB is the per-physical-memtable size that triggers a
	// WMT/IMT switch and compaction pass.
	MTSizeMB int
	// WALSizeMB bounds the current WAL file's size, forcing a switch even
	// if MTSizeMB has not yet been reached. Zero selects the default (128);
	// a negative value disables this trigger.
	WALSizeMB int

	// Ckeys enables compressed data blocks in newly written SSTables.
	Ckeys bool
	// Tags enables the REMIX point-lookup hash-tag array in newly written
	// SSTables.
	Tags bool

	// NrWorkers is the number of compaction worker goroutines.
	NrWorkers int
	// CoPerWorker is the number of partitions each compaction worker may
	// process concurrently.
	CoPerWorker int
	// WorkerCores, if positive, sets runtime.GOMAXPROCS for the process
	// hosting this database, matching the original's worker_cores pinning
	// knob. Most callers should leave this zero.
	WorkerCores int

	// MaxRejectBytesPerCompaction bounds cumulative rejected-partition
	// overlap per compaction pass. Defaults to MTSizeMB>>4, per spec.md
	// §4.3; set it to a negative value to disable rejection outright
	// (every partition rewritten on every pass) instead of taking the
	// default.
	MaxRejectBytesPerCompaction int64

	// EventListener receives structured notifications of recovery and
	// compaction activity. The zero value is silent; see
	// MakeLoggingEventListener for a log/slog-backed default.
	EventListener EventListener
}

const (
	defaultCacheSizeMB = 64
	defaultMTSizeMB    = 32
	defaultWALSizeMB   = 128
	defaultNrWorkers   = 4
	defaultCoPerWorker = 2
)

// EnsureDefaults returns a copy of o with every zero-valued field filled in,
// matching the teacher's Options.EnsureDefaults idiom of being safe to call
// on a value that may already be fully populated.
func (o Options) EnsureDefaults() Options {
	if o.FS == nil {
		o.FS = vfs.Default
	}
	if o.CacheSizeMB == 0 {
		o.CacheSizeMB = defaultCacheSizeMB
	}
	if o.MTSizeMB == 0 {
		o.MTSizeMB = defaultMTSizeMB
	}
	if o.WALSizeMB == 0 {
		o.WALSizeMB = defaultWALSizeMB
	}
	if o.NrWorkers == 0 {
		o.NrWorkers = defaultNrWorkers
	}
	if o.CoPerWorker == 0 {
		o.CoPerWorker = defaultCoPerWorker
	}
	if o.MaxRejectBytesPerCompaction == 0 {
		o.MaxRejectBytesPerCompaction = int64(o.MTSizeMB) << 20 >> 4
	}
	return o
}

func (o Options) toEngineConfig(dir string) engine.Config {
	if o.WorkerCores > 0 {
		runtime.GOMAXPROCS(o.WorkerCores)
	}
	return engine.Config{
		FS:                 o.FS,
		Dir:                dir,
		MTSizeBytes:        int64(o.MTSizeMB) << 20,
		WALSizeBytes:       int64(o.WALSizeMB) << 20,
		CacheSizeBytes:     int64(o.CacheSizeMB) << 20,
		Ckeys:              o.Ckeys,
		Tags:               o.Tags,
		CompactWorkers:     o.NrWorkers,
		CompactCoPerWorker: o.CoPerWorker,
		MaxRejectBytes:     o.MaxRejectBytesPerCompaction,
		EventListener:      o.EventListener,
	}
}
