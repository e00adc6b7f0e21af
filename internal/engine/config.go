package engine

import "github.com/Kevin-Yang1/remixdb/internal/vfs"

// Config is the fully-defaulted set of knobs the engine runs with. The
// public remixdb package resolves user-supplied Options into a Config
// before calling Open; every field here corresponds to one of spec.md §6's
// configuration keys.
type Config struct {
	FS  vfs.FS
	Dir string

	// MTSizeBytes is the mtsz threshold (per physical memtable) that
	// triggers a WMT/IMT switch.
	MTSizeBytes int64
	// WALSizeBytes is the per-file size that forces a switch even if mtsz
	// has not yet been reached, bounding worst-case replay time.
	WALSizeBytes int64
	// CacheSizeBytes sizes the shared block cache; zero disables caching.
	CacheSizeBytes int64

	// Ckeys enables compressed data blocks in newly written SSTables.
	Ckeys bool
	// Tags enables the REMIX point-lookup hash-tag array in newly written
	// SSTables.
	Tags bool

	// CompactWorkers and CompactCoPerWorker size the compaction worker
	// pool: CompactWorkers physical goroutines, each handling up to
	// CompactCoPerWorker partitions concurrently via errgroup.SetLimit.
	CompactWorkers     int
	CompactCoPerWorker int
	// MaxRejectBytes bounds cumulative rejected-partition overlap per
	// compaction pass; zero disables rejection (every partition rewritten).
	MaxRejectBytes int64

	// EventListener receives structured notifications of recovery and
	// compaction activity. The zero value is a silent listener.
	EventListener EventListener
}
