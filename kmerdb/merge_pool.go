package kmerdb

import (
	"context"
	"runtime"
	"sync"
)

// mergeJob 单个连续升序编码区间的合并任务
type mergeJob struct {
	ctx     context.Context
	idx     int
	codes   []KmerCode
	results []mergeResult
	wg      *sync.WaitGroup
}

// mergeResult 区间内保留的 k-mer，仍为升序；dropped 为低于阈值被丢弃的数量
type mergeResult struct {
	codes   []KmerCode
	probs   [][]float32
	dropped int
	err     error
}

// mergeWorkerPool 常驻 worker 池，处理互不相交的编码区间。
// 结果写入区间对应的槽位，按槽位顺序拼接即保持键的严格升序。
type mergeWorkerPool struct {
	merger *Merger
	counts *CountStore
	jobs   chan mergeJob
	wg     sync.WaitGroup
}

// newMergeWorkerPool 创建并启动 worker 池，nWorkers <= 0 时使用 NumCPU
func newMergeWorkerPool(merger *Merger, counts *CountStore, nWorkers, bufSize int) *mergeWorkerPool {
	if nWorkers <= 0 {
		nWorkers = runtime.NumCPU()
	}
	p := &mergeWorkerPool{
		merger: merger,
		counts: counts,
		jobs:   make(chan mergeJob, bufSize),
	}
	for i := 0; i < nWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *mergeWorkerPool) worker() {
	defer p.wg.Done()
	raw := make([]int64, p.merger.SpeciesNum())
	for job := range p.jobs {
		job.results[job.idx] = p.mergeRange(job.ctx, job.codes, raw)
		job.wg.Done()
	}
}

func (p *mergeWorkerPool) mergeRange(ctx context.Context, codes []KmerCode, raw []int64) mergeResult {
	if err := ctx.Err(); err != nil {
		return mergeResult{err: err}
	}
	n := p.merger.SpeciesNum()
	res := mergeResult{codes: make([]KmerCode, 0, len(codes)), probs: make([][]float32, 0, len(codes))}
	pool := make([]float32, len(codes)*n)
	for _, code := range codes {
		if err := p.counts.CountsInto(raw, code); err != nil {
			return mergeResult{err: err}
		}
		probs := pool[:n:n]
		keep, err := p.merger.MergeInto(probs, raw)
		if err != nil {
			return mergeResult{err: err}
		}
		if !keep {
			res.dropped++
			continue
		}
		pool = pool[n:]
		res.codes = append(res.codes, code)
		res.probs = append(res.probs, probs)
	}
	return res
}

// Submit 提交任务，队列满时阻塞
func (p *mergeWorkerPool) Submit(job mergeJob) {
	p.jobs <- job
}

// Close 关闭池，等待已排队任务完成后 worker 退出
func (p *mergeWorkerPool) Close() {
	close(p.jobs)
	p.wg.Wait()
}
