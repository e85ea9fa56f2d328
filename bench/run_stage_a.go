package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ic-timon/kmerdb/bench/gen"
	"github.com/ic-timon/kmerdb/bench/metrics"
	"github.com/ic-timon/kmerdb/kmerdb"
)

// 阶段 A: alpha × threshold 网格下的合并 + 原子发布吞吐
func runStageA(opts stageOpts) {
	const k = 21
	const maxSamples = 20

	alphaList := []float64{0, 0.5, 1}
	threshList := []float64{0, 0.5, 0.9}

	table, err := gen.Species(opts.species, maxSamples, 42)
	if err != nil {
		panic(err)
	}
	species, err := table.Finalize()
	if err != nil {
		panic(err)
	}
	// 同一编码的多次计数会累加，可能超过样本数，这里保证不重复
	codes := dedup(gen.RandomCodes(opts.kmers, k, 42))
	counts, err := gen.RandomCounts(species, codes, 7)
	if err != nil {
		panic(err)
	}

	dir, err := os.MkdirTemp("", "kmerdb-stage-a-")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	var rows []metrics.StageARow
	for _, alpha := range alphaList {
		for _, thresh := range threshList {
			fmt.Printf("阶段 A: Alpha=%.2f Threshold=%.2f Kmers=%d Species=%d\n", alpha, thresh, counts.Len(), len(species))

			metrics.GC()
			before := metrics.Take()

			cfg := kmerdb.DefaultConfig()
			cfg.Alpha = alpha
			cfg.Threshold = thresh
			cfg.Workers = opts.workers
			coord := kmerdb.NewCoordinator(table, cfg, nil)
			out := filepath.Join(dir, fmt.Sprintf("a%.2f_t%.2f.db", alpha, thresh))
			db, err := coord.Run(context.Background(), counts, out)
			if err != nil {
				panic(err)
			}

			after := metrics.Take()
			allocRate, gcDelta := metrics.Diff(before, after)
			st := coord.Stats()
			fi, err := os.Stat(out)
			if err != nil {
				panic(err)
			}
			row := metrics.StageARow{
				Alpha:        alpha,
				Threshold:    thresh,
				KmerCount:    st.Kmers,
				Kept:         db.Len(),
				RunDurMs:     float64(st.Elapsed.Nanoseconds()) / 1e6,
				KmersPerSec:  float64(st.Kmers) / st.Elapsed.Seconds(),
				FileSizeMB:   metrics.MB(uint64(fi.Size())),
				AllocRateMBs: allocRate / (1 << 20),
				NumGC:        gcDelta,
			}
			rows = append(rows, row)
			fmt.Printf("  Run=%.0fms Kept=%d/%d %.0f kmers/s File=%.1fMB\n",
				row.RunDurMs, row.Kept, row.KmerCount, row.KmersPerSec, row.FileSizeMB)
		}
	}

	path := metrics.ReportPath("bench_report_stage_a_")
	if err := metrics.WriteStageACSV(rows, path); err != nil {
		panic(err)
	}
	fmt.Printf("报告已写入 %s\n", path)
}

func dedup(codes []kmerdb.KmerCode) []kmerdb.KmerCode {
	seen := make(map[kmerdb.KmerCode]struct{}, len(codes))
	out := codes[:0]
	for _, c := range codes {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
