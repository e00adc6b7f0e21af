package sstable

import "sync/atomic"

// Stats accumulates write/read amplification counters for observability,
// exposed through Engine.StatWrites/StatReads per spec.md §4.5.
type Stats struct {
	writes atomic.Int64
	reads  atomic.Int64
}

func (s *Stats) addWrite(n int64) {
	if s != nil {
		s.writes.Add(n)
	}
}

func (s *Stats) addRead(n int64) {
	if s != nil {
		s.reads.Add(n)
	}
}

// Writes returns the cumulative number of bytes written to data/index
// files since the Stats was created.
func (s *Stats) Writes() int64 { return s.writes.Load() }

// Reads returns the cumulative number of bytes read from data files since
// the Stats was created.
func (s *Stats) Reads() int64 { return s.reads.Load() }
