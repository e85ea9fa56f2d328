// Package metrics 采集合并与查询压测的运行时指标
package metrics

import (
	"runtime"
	"runtime/debug"
	"time"
)

// Snapshot 某一时刻的堆与进程内存
type Snapshot struct {
	TS        time.Time
	HeapAlloc uint64
	HeapInuse uint64
	NumGC     uint32
	// MaxRSS 进程峰值常驻内存（字节），包含 mmap 读入的页；不支持的平台为 0
	MaxRSS uint64
}

// Take 采集当前快照
func Take() Snapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Snapshot{
		TS:        time.Now(),
		HeapAlloc: m.HeapAlloc,
		HeapInuse: m.HeapInuse,
		NumGC:     m.NumGC,
		MaxRSS:    maxRSS(),
	}
}

// GC 强制回收，使下一次快照只反映存活数据
func GC() {
	runtime.GC()
	debug.FreeOSMemory()
}

// Diff 两次快照间的堆增长速率（bytes/s）与 GC 次数
func Diff(before, after Snapshot) (allocRateBps float64, gcDelta uint32) {
	elapsed := after.TS.Sub(before.TS).Seconds()
	if elapsed <= 0 {
		return 0, 0
	}
	if after.HeapAlloc > before.HeapAlloc {
		allocRateBps = float64(after.HeapAlloc-before.HeapAlloc) / elapsed
	}
	if after.NumGC >= before.NumGC {
		gcDelta = after.NumGC - before.NumGC
	}
	return allocRateBps, gcDelta
}

// MB 字节转 MiB
func MB(b uint64) float64 {
	return float64(b) / 1024 / 1024
}
