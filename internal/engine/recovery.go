package engine

import (
	"github.com/Kevin-Yang1/remixdb/internal/base"
	"github.com/Kevin-Yang1/remixdb/internal/vfs"
	"github.com/Kevin-Yang1/remixdb/internal/wal"
)

// recoverOrInit opens the WAL and either stamps it fresh (a brand-new
// database directory) or replays it into the initial WMT, mirroring
// original_source/xdb.c's xdb_open: wal_open followed by either
// wal_init_fresh or wal_recover depending on whether the directory already
// held a log. Replay happens before Open returns, while e is not yet
// visible to any other goroutine, so it writes directly into the view
// ring's slot-0 WMT without going through a Ref.
func (e *Engine) recoverOrInit() error {
	fresh := !e.cfg.FS.Exists(vfs.Join(e.cfg.Dir, "wal1"))

	w, err := wal.Open(e.cfg.FS, e.cfg.Dir)
	if err != nil {
		return err
	}
	e.wal = w

	if fresh {
		if err := w.InitFresh(); err != nil {
			return err
		}
		e.cfg.EventListener.recovered(RecoveredInfo{Fresh: true})
		return nil
	}

	wmt := e.ring.current().wmt
	n := 0
	if err := w.Recover(func(rec *base.Record) error {
		wmt.Put(rec)
		n++
		return nil
	}); err != nil {
		return err
	}
	e.cfg.EventListener.recovered(RecoveredInfo{Records: n})
	return nil
}
