package kmerdb

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State is a Coordinator lifecycle state.
type State uint8

const (
	// StateCollecting finalizes the species table and gathers the k-mer codes.
	StateCollecting State = iota
	// StateComputing merges counts into probabilities.
	StateComputing
	// StateWriting publishes the database.
	StateWriting
	// StateDone is terminal: the database was published.
	StateDone
	// StateFailed is terminal: see Coordinator.Err.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCollecting:
		return "collecting"
	case StateComputing:
		return "computing"
	case StateWriting:
		return "writing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == StateDone || s == StateFailed }

// RunStats summarizes a run.
type RunStats struct {
	Kmers   int // distinct codes seen in any species
	Kept    int
	Dropped int
	Elapsed time.Duration
}

// Coordinator drives one merge run: Collecting -> Computing -> Writing -> Done, or
// Failed from any state. A Coordinator runs at most once.
type Coordinator struct {
	cfg     *Config
	species *SpeciesTable
	log     *Logger

	mu      sync.Mutex
	state   State
	started bool
	err     error
	stats   RunStats
}

// NewCoordinator creates a coordinator for the species in table. cfg may be nil to use
// DefaultConfig(); only Alpha, Threshold, Workers and RangeSize are used. log may be nil.
func NewCoordinator(table *SpeciesTable, cfg *Config, log *Logger) *Coordinator {
	if log == nil {
		log = NoopLogger()
	}
	return &Coordinator{cfg: cfg.OrDefault(), species: table, log: log}
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error that moved the coordinator to StateFailed.
func (c *Coordinator) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Stats returns the statistics of the last run.
func (c *Coordinator) Stats() RunStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Coordinator) transition(ctx context.Context, to State) {
	c.mu.Lock()
	from := c.state
	c.state = to
	c.mu.Unlock()
	c.log.LogPhase(ctx, from, to)
}

func (c *Coordinator) fail(ctx context.Context, err error) error {
	c.mu.Lock()
	from := c.state
	c.state = StateFailed
	c.err = err
	c.mu.Unlock()
	c.log.LogPhase(ctx, from, StateFailed)
	return err
}

// Run merges counts and publishes the result atomically at output. On failure nothing
// is published at output and the coordinator ends in StateFailed.
func (c *Coordinator) Run(ctx context.Context, counts *CountStore, output string) (*Database, error) {
	c.mu.Lock()
	if c.started {
		state := c.state
		c.mu.Unlock()
		return nil, invalidf("run", "coordinator already ran (state %s)", state)
	}
	c.started = true
	c.mu.Unlock()

	db, err := c.build(ctx, counts)
	if err != nil {
		return nil, c.fail(ctx, err)
	}

	c.transition(ctx, StateWriting)
	var verify func(string) error
	if c.cfg.Strict {
		verify = func(staged string) error { return verifyStaged(staged, db) }
	}
	err = db.publish(ctx, output, verify)
	c.log.LogPublish(ctx, output, db.Len(), err)
	if err != nil {
		return nil, c.fail(ctx, err)
	}
	c.transition(ctx, StateDone)
	return db, nil
}

// build runs the collecting and computing phases.
func (c *Coordinator) build(ctx context.Context, counts *CountStore) (*Database, error) {
	start := time.Now()
	species, err := c.species.Finalize()
	if err != nil {
		return nil, err
	}
	if counts == nil {
		counts = NewCountStore(len(species), 1)
	}
	if counts.SpeciesNum() != len(species) {
		return nil, newError(KindConsistency, "collect", fmt.Errorf("%w: count store has %d species, table has %d", ErrMismatchedVectorLength, counts.SpeciesNum(), len(species)))
	}
	merger, err := NewMerger(species, c.cfg.Alpha, c.cfg.Threshold)
	if err != nil {
		return nil, err
	}
	codes := counts.Codes().ToArray()
	if err := ctx.Err(); err != nil {
		return nil, ioError("collect", "", err)
	}

	c.transition(ctx, StateComputing)
	ranges := splitRanges(codes, c.cfg.RangeSize)
	results := make([]mergeResult, len(ranges))
	pool := newMergeWorkerPool(merger, counts, c.cfg.Workers, len(ranges))
	var wg sync.WaitGroup
	wg.Add(len(ranges))
	for i, r := range ranges {
		pool.Submit(mergeJob{ctx: ctx, idx: i, codes: r, results: results, wg: &wg})
	}
	wg.Wait()
	pool.Close()

	db := NewDatabase(species)
	kept, dropped := 0, 0
	for _, r := range results {
		if r.err != nil {
			if ctx.Err() != nil {
				return nil, ioError("compute", "", r.err)
			}
			return nil, r.err
		}
		kept += len(r.codes)
		dropped += r.dropped
	}
	db.Codes = make([]KmerCode, 0, kept)
	db.Probs = make([][]float32, 0, kept)
	for _, r := range results {
		db.Codes = append(db.Codes, r.codes...)
		db.Probs = append(db.Probs, r.probs...)
	}
	db.Header.Size = uint32(len(db.Codes))

	elapsed := time.Since(start)
	c.mu.Lock()
	c.stats = RunStats{Kmers: len(codes), Kept: kept, Dropped: dropped, Elapsed: elapsed}
	c.mu.Unlock()
	c.log.LogMerge(ctx, len(codes), kept, dropped, elapsed)
	return db, nil
}

// splitRanges cuts the ascending codes into contiguous, disjoint ranges of at most size.
func splitRanges(codes []KmerCode, size int) [][]KmerCode {
	if size <= 0 {
		size = defaultRangeSize
	}
	out := make([][]KmerCode, 0, (len(codes)+size-1)/size)
	for len(codes) > 0 {
		n := min(size, len(codes))
		out = append(out, codes[:n:n])
		codes = codes[n:]
	}
	return out
}

// verifyStaged re-opens the staged file and checks it against db before it is renamed.
func verifyStaged(path string, db *Database) error {
	r, err := Open(path)
	if err != nil {
		return err
	}
	defer r.Close()
	if err := r.Validate(); err != nil {
		return withPath(err, path)
	}
	if r.Len() != db.Len() {
		return &Error{Kind: KindConsistency, Op: "verify", Path: path, Err: fmt.Errorf("%w: %d entries on disk, %d built", ErrTruncatedFile, r.Len(), db.Len())}
	}
	return nil
}
