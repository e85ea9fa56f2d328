// 阶段 B: 对比全量加载 vs mmap 打开的点查询性能
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ic-timon/kmerdb/bench/gen"
	"github.com/ic-timon/kmerdb/bench/metrics"
	"github.com/ic-timon/kmerdb/kmerdb"
)

type lookuper interface {
	Lookup(code kmerdb.KmerCode) ([]float32, bool)
}

func runStageB(opts stageOpts) {
	const k = 21
	const maxSamples = 20
	const totalRequests = 100_000
	const concurrency = 16
	const runs = 5 // 多轮取平均

	table, err := gen.Species(opts.species, maxSamples, 12345)
	if err != nil {
		panic(err)
	}
	species, err := table.Finalize()
	if err != nil {
		panic(err)
	}
	codes := dedup(gen.RandomCodes(opts.kmers, k, 12345))
	counts, err := gen.RandomCounts(species, codes, 99)
	if err != nil {
		panic(err)
	}

	dir, err := os.MkdirTemp("", "kmerdb-stage-b-")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "stage-b.db")

	// 阈值 0：全部保留，一半查询命中
	if _, err := kmerdb.NewCoordinator(table, kmerdb.DefaultConfig(), nil).Run(context.Background(), counts, path); err != nil {
		panic(err)
	}
	half := min(totalRequests/2, len(codes))
	queries := append(codes[:half:half], gen.RandomCodes(totalRequests-half, k, 777)...)

	var rows []metrics.StageBRow

	// 1. 全量加载
	fmt.Println("阶段 B: 全量加载模式")
	metrics.GC()
	t0 := time.Now()
	db, err := kmerdb.Load(path, true)
	if err != nil {
		panic(err)
	}
	openDur := time.Since(t0)
	metrics.GC()
	rows = append(rows, benchLookups("load", db, queries, concurrency, runs, openDur))

	// 2. mmap
	fmt.Println("阶段 B: mmap 模式")
	db = nil
	metrics.GC()
	t1 := time.Now()
	r, err := kmerdb.Open(path)
	if err != nil {
		panic(err)
	}
	defer r.Close()
	openDur = time.Since(t1)
	rows = append(rows, benchLookups("mmap", r, queries, concurrency, runs, openDur))

	if rows[0].QPS > 0 {
		fmt.Printf("  对比: mmap/加载 QPS 比=%.2f\n", rows[1].QPS/rows[0].QPS)
	}
	report := metrics.ReportPath("bench_report_stage_b_")
	if err := metrics.WriteStageBCSV(rows, report); err != nil {
		panic(err)
	}
	fmt.Printf("报告已写入 %s\n", report)
}

func benchLookups(mode string, l lookuper, queries []kmerdb.KmerCode, concurrency, runs int, openDur time.Duration) metrics.StageBRow {
	var sumQps, sumP50, sumP99 float64
	var hits int
	for r := 0; r < runs; r++ {
		t0 := time.Now()
		durations, h := runLookups(l, queries, concurrency)
		elapsed := time.Since(t0).Seconds()
		stats := metrics.LatencyStatsFromDurations(durations)
		sumQps += float64(len(queries)) / elapsed
		sumP50 += stats.P50Ms
		sumP99 += stats.P99Ms
		hits = h
	}
	snap := metrics.Take()
	row := metrics.StageBRow{
		Mode:        mode,
		Queries:     len(queries),
		HitRate:     float64(hits) / float64(len(queries)),
		OpenDurMs:   float64(openDur.Nanoseconds()) / 1e6,
		QPS:         sumQps / float64(runs),
		LookupP50Ms: sumP50 / float64(runs),
		LookupP99Ms: sumP99 / float64(runs),
		HeapAllocMB: metrics.MB(snap.HeapAlloc),
		MaxRSSMB:    metrics.MB(snap.MaxRSS),
	}
	fmt.Printf("  %s Open=%.2fms QPS=%.0f P50=%.4fms P99=%.4fms Hit=%.2f Heap=%.1fMB RSS=%.1fMB (avg of %d runs)\n",
		mode, row.OpenDurMs, row.QPS, row.LookupP50Ms, row.LookupP99Ms, row.HitRate, row.HeapAllocMB, row.MaxRSSMB, runs)
	return row
}

func runLookups(l lookuper, queries []kmerdb.KmerCode, concurrency int) ([]time.Duration, int) {
	total := len(queries)
	durations := make([]time.Duration, total)
	hits := make([]int, concurrency)
	per := (total + concurrency - 1) / concurrency
	var wg sync.WaitGroup
	for c := 0; c < concurrency; c++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			base := worker * per
			for i := base; i < base+per && i < total; i++ {
				t1 := time.Now()
				if _, ok := l.Lookup(queries[i]); ok {
					hits[worker]++
				}
				durations[i] = time.Since(t1)
			}
		}(c)
	}
	wg.Wait()
	n := 0
	for _, h := range hits {
		n += h
	}
	return durations, n
}
