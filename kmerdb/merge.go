package kmerdb

import (
	"fmt"
	"math"
)

// Merger converts raw per-species counts into smoothed probabilities and applies the
// retention threshold. It holds no mutable state and is safe for concurrent use.
type Merger struct {
	denominators []uint32
	alpha        float64
	threshold    float64
}

// NewMerger creates a merger for the given species order.
// alpha must be >= 0 and threshold in [0,1].
func NewMerger(species []SpeciesCount, alpha, threshold float64) (*Merger, error) {
	const op = "merge"
	if len(species) == 0 {
		return nil, newError(KindInvalidParameter, op, ErrEmptyDatabase)
	}
	if math.IsNaN(alpha) || math.IsInf(alpha, 0) || alpha < 0 {
		return nil, invalidf(op, "alpha %g must be a finite value >= 0", alpha)
	}
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return nil, invalidf(op, "threshold %g outside [0,1]", threshold)
	}
	m := &Merger{
		denominators: make([]uint32, len(species)),
		alpha:        alpha,
		threshold:    threshold,
	}
	for i, s := range species {
		if s.Samples == 0 {
			return nil, invalidf(op, "species %q has no sample genomes", s.Name)
		}
		m.denominators[i] = s.Samples
	}
	return m, nil
}

// SpeciesNum returns the expected vector length.
func (m *Merger) SpeciesNum() int { return len(m.denominators) }

// Alpha returns the smoothing constant.
func (m *Merger) Alpha() float64 { return m.alpha }

// Threshold returns the retention threshold.
func (m *Merger) Threshold() float64 { return m.threshold }

// Merge computes p_i = (c_i + alpha) / (n_i + alpha) for every species, narrowed to
// float32. keep is false when no narrowed p_i reaches float32(threshold); probs is still returned so callers can inspect
// dropped vectors.
func (m *Merger) Merge(counts []int64) (probs []float32, keep bool, err error) {
	probs = make([]float32, len(m.denominators))
	keep, err = m.MergeInto(probs, counts)
	if err != nil {
		return nil, false, err
	}
	return probs, keep, nil
}

// MergeInto is Merge writing into dst, which must have SpeciesNum elements.
func (m *Merger) MergeInto(dst []float32, counts []int64) (bool, error) {
	const op = "merge"
	if len(counts) != len(m.denominators) || len(dst) != len(m.denominators) {
		return false, newError(KindConsistency, op, fmt.Errorf("%w: got %d counts, want %d", ErrMismatchedVectorLength, len(counts), len(m.denominators)))
	}
	var maxP float32
	for i, c := range counts {
		n := m.denominators[i]
		if c < 0 {
			return false, invalidf(op, "negative count %d for species %d", c, i)
		}
		if uint64(c) > uint64(n) {
			return false, invalidf(op, "count %d exceeds %d sample genomes for species %d", c, n, i)
		}
		p := float32((float64(c) + m.alpha) / (float64(n) + m.alpha))
		maxP = max(maxP, p)
		dst[i] = p
	}
	// Compared as stored, so every kept vector in the file satisfies the threshold.
	return maxP >= float32(m.threshold), nil
}
