package metrics

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatencyStatsFromDurations(t *testing.T) {
	var ds []time.Duration
	for i := 100; i >= 1; i-- {
		ds = append(ds, time.Duration(i)*time.Millisecond)
	}
	st := LatencyStatsFromDurations(ds)
	assert.Equal(t, 100, st.N)
	assert.InDelta(t, 50, st.P50Ms, 1)
	assert.InDelta(t, 99, st.P99Ms, 1)
	assert.InDelta(t, 50.5, st.AvgMs, 1e-9)

	assert.Equal(t, LatencyStats{}, LatencyStatsFromDurations(nil))
}

func TestWriteStageBCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report", "b.csv")
	rows := []StageBRow{{Mode: "load", Queries: 10, QPS: 1}, {Mode: "mmap", Queries: 10, QPS: 2}}
	require.NoError(t, WriteStageBCSV(rows, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Mode", records[0][0])
	assert.Equal(t, "mmap", records[2][0])
}

func TestDiff(t *testing.T) {
	t0 := time.Now()
	before := Snapshot{TS: t0, HeapAlloc: 1 << 20, NumGC: 3}
	after := Snapshot{TS: t0.Add(2 * time.Second), HeapAlloc: 5 << 20, NumGC: 5}
	rate, gc := Diff(before, after)
	assert.InDelta(t, float64(2<<20), rate, 1e-9)
	assert.Equal(t, uint32(2), gc)

	// shrinking heap and zero elapsed time report nothing
	rate, _ = Diff(after, Snapshot{TS: after.TS.Add(time.Second), HeapAlloc: 1})
	assert.Zero(t, rate)
	rate, gc = Diff(before, before)
	assert.Zero(t, rate)
	assert.Zero(t, gc)
}

func TestTake(t *testing.T) {
	s := Take()
	assert.NotZero(t, s.HeapAlloc)
	assert.False(t, s.TS.IsZero())
	assert.Equal(t, 1.5, MB(3<<19))
}
