package sstable

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Kevin-Yang1/remixdb/internal/base"
	"github.com/Kevin-Yang1/remixdb/internal/vfs"
	"github.com/cockroachdb/datadriven"
	"github.com/stretchr/testify/require"
)

// parseRecordLine turns "key:value" or "key:DEL" into a *base.Record.
func parseRecordLine(t *testing.T, line string) *base.Record {
	t.Helper()
	parts := strings.SplitN(line, ":", 2)
	require.Len(t, parts, 2)
	if parts[1] == "DEL" {
		return base.NewRecord([]byte(parts[0]), nil, true)
	}
	return base.NewRecord([]byte(parts[0]), []byte(parts[1]), false)
}

func parseRecordLines(t *testing.T, block string) []*base.Record {
	t.Helper()
	var recs []*base.Record
	for _, line := range strings.Split(strings.TrimSpace(block), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		recs = append(recs, parseRecordLine(t, line))
	}
	return recs
}

// splitSections splits td.Input into the "old" and "imt" blocks, each
// introduced by its own bare marker line (datadriven reserves "----" for
// the output separator, so it cannot appear inside the input itself).
func splitSections(t *testing.T, input string) (old, imt string) {
	t.Helper()
	const oldMarker, imtMarker = "old", "imt"
	lines := strings.Split(input, "\n")
	var cur *strings.Builder
	var oldB, imtB strings.Builder
	for _, line := range lines {
		switch strings.TrimSpace(line) {
		case oldMarker:
			cur = &oldB
			continue
		case imtMarker:
			cur = &imtB
			continue
		}
		if cur != nil {
			cur.WriteString(line)
			cur.WriteString("\n")
		}
	}
	return oldB.String(), imtB.String()
}

// TestMergeIntoDataDriven exercises mergeInto's old/imt union against
// scripted fixtures, mirroring the teacher's span-coalescing data-driven
// tests (internal/rangekey/coalesce_test.go) but for partition merge output.
func TestMergeIntoDataDriven(t *testing.T) {
	datadriven.RunTest(t, "testdata/merge", func(t *testing.T, td *datadriven.TestData) string {
		switch td.Cmd {
		case "merge":
			oldBlock, imtBlock := splitSections(t, td.Input)
			oldRecs := parseRecordLines(t, oldBlock)
			imtRecs := parseRecordLines(t, imtBlock)

			fs := vfs.NewMem()
			var old *Table
			if len(oldRecs) > 0 {
				oldW, err := NewWriter(fs, "db/old.sstx", WriterOptions{}, nil)
				require.NoError(t, err)
				for _, r := range oldRecs {
					require.NoError(t, oldW.Add(r))
				}
				_, err = oldW.Finish(fs, "db/old.ssty")
				require.NoError(t, err)
				old, err = OpenTable(fs, "db/old.sstx", "db/old.ssty", "old", nil, nil)
				require.NoError(t, err)
			}

			w, err := NewWriter(fs, "db/new.sstx", WriterOptions{}, nil)
			require.NoError(t, err)
			require.NoError(t, mergeInto(w, old, imtRecs))
			_, err = w.Finish(fs, "db/new.ssty")
			require.NoError(t, err)
			merged, err := OpenTable(fs, "db/new.sstx", "db/new.ssty", "new", nil, nil)
			require.NoError(t, err)

			var b strings.Builder
			it := merged.NewIter()
			it.SeekToFirst()
			for it.Valid() {
				rec := it.Peek()
				if rec.Tombstone {
					fmt.Fprintf(&b, "%s:DEL\n", rec.Key)
				} else {
					fmt.Fprintf(&b, "%s:%s\n", rec.Key, rec.Value)
				}
				it.Next()
			}
			return b.String()

		default:
			return fmt.Sprintf("unrecognized command %q", td.Cmd)
		}
	})
}
