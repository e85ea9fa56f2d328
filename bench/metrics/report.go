// Package metrics 提供运行时指标采集
package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// LatencyStats 延迟统计
type LatencyStats struct {
	P50Ms float64
	P95Ms float64
	P99Ms float64
	AvgMs float64
	N     int
}

// StageARow 阶段 A 单行数据
type StageARow struct {
	Alpha        float64
	Threshold    float64
	KmerCount    int
	Kept         int
	RunDurMs     float64
	KmersPerSec  float64
	FileSizeMB   float64
	AllocRateMBs float64
	NumGC        uint32
}

// StageBRow 阶段 B 单行数据
type StageBRow struct {
	Mode        string
	Queries     int
	HitRate     float64
	OpenDurMs   float64
	QPS         float64
	LookupP50Ms float64
	LookupP99Ms float64
	HeapAllocMB float64
	MaxRSSMB    float64 // 峰值 RSS，只增不减，故先跑加载模式再跑 mmap
}

// Percentile 计算切片中第 p 百分位（0-100），输入需已排序
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	idx := int(float64(len(sorted)-1) * p / 100)
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

// LatencyStatsFromDurations 从耗时列表计算 P50/P95/P99
func LatencyStatsFromDurations(durations []time.Duration) LatencyStats {
	if len(durations) == 0 {
		return LatencyStats{}
	}
	ms := make([]float64, len(durations))
	var sum float64
	for i, d := range durations {
		ms[i] = float64(d.Nanoseconds()) / 1e6
		sum += ms[i]
	}
	sort.Float64s(ms)
	return LatencyStats{
		P50Ms: Percentile(ms, 50),
		P95Ms: Percentile(ms, 95),
		P99Ms: Percentile(ms, 99),
		AvgMs: sum / float64(len(ms)),
		N:     len(ms),
	}
}

// WriteStageACSV 写入阶段 A 报告
func WriteStageACSV(rows []StageARow, path string) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			fmt.Sprintf("%.2f", r.Alpha),
			fmt.Sprintf("%.2f", r.Threshold),
			fmt.Sprintf("%d", r.KmerCount),
			fmt.Sprintf("%d", r.Kept),
			fmt.Sprintf("%.2f", r.RunDurMs),
			fmt.Sprintf("%.0f", r.KmersPerSec),
			fmt.Sprintf("%.2f", r.FileSizeMB),
			fmt.Sprintf("%.2f", r.AllocRateMBs),
			fmt.Sprintf("%d", r.NumGC),
		})
	}
	return writeCSV(path, []string{"Alpha", "Threshold", "KmerCount", "Kept", "RunDurMs", "KmersPerSec", "FileSizeMB", "AllocRateMBs", "NumGC"}, records)
}

// WriteStageBCSV 写入阶段 B 报告
func WriteStageBCSV(rows []StageBRow, path string) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.Mode,
			fmt.Sprintf("%d", r.Queries),
			fmt.Sprintf("%.3f", r.HitRate),
			fmt.Sprintf("%.2f", r.OpenDurMs),
			fmt.Sprintf("%.2f", r.QPS),
			fmt.Sprintf("%.4f", r.LookupP50Ms),
			fmt.Sprintf("%.4f", r.LookupP99Ms),
			fmt.Sprintf("%.2f", r.HeapAllocMB),
			fmt.Sprintf("%.2f", r.MaxRSSMB),
		})
	}
	return writeCSV(path, []string{"Mode", "Queries", "HitRate", "OpenDurMs", "QPS", "LookupP50Ms", "LookupP99Ms", "HeapAllocMB", "MaxRSSMB"}, records)
}

func writeCSV(path string, header []string, records [][]string) error {
	_ = os.MkdirAll(filepath.Dir(path), 0755)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(records); err != nil {
		return err
	}
	return f.Sync()
}

// ReportDir 报告输出目录
const ReportDir = "report"

// ReportPath 生成 report/ 目录下带日期的报告路径
func ReportPath(prefix string) string {
	return filepath.Join(ReportDir, prefix+time.Now().Format("20060102")+".csv")
}
