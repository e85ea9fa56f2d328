// Package kmer encodes nucleotide k-mers as 2-bit packed integers.
//
// A = 0, C = 1, G = 2, T = 3, first base in the most significant position. The
// canonical code of a k-mer is the smaller of its forward and reverse complement
// codes, so a k-mer and its reverse complement encode identically.
package kmer

import "fmt"

// MaxK is the largest k that fits a uint64 code.
const MaxK = 32

var baseCode = func() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = -1
	}
	for b, c := range map[byte]int8{'A': 0, 'C': 1, 'G': 2, 'T': 3} {
		t[b] = c
		t[b+'a'-'A'] = c
	}
	return t
}()

const bases = "ACGT"

func mask(k int) uint64 {
	if k == MaxK {
		return ^uint64(0)
	}
	return 1<<(2*uint(k)) - 1
}

// CheckK returns an error if k is outside [1, MaxK].
func CheckK(k int) error {
	if k < 1 || k > MaxK {
		return fmt.Errorf("k %d outside [1,%d]", k, MaxK)
	}
	return nil
}

// ReverseComplement returns the code of the reverse complement of code.
func ReverseComplement(code uint64, k int) uint64 {
	var rc uint64
	for i := 0; i < k; i++ {
		rc = rc<<2 | (3 - code&3)
		code >>= 2
	}
	return rc
}

// Canonical returns min(code, ReverseComplement(code)).
func Canonical(code uint64, k int) uint64 {
	return min(code, ReverseComplement(code, k))
}

// Encode returns the canonical code of seq, whose length is k. ok is false if seq is
// longer than MaxK or contains a base other than A, C, G or T.
func Encode(seq []byte) (code uint64, ok bool) {
	k := len(seq)
	if k == 0 || k > MaxK {
		return 0, false
	}
	for _, b := range seq {
		c := baseCode[b]
		if c < 0 {
			return 0, false
		}
		code = code<<2 | uint64(c)
	}
	return Canonical(code, k), true
}

// Decode returns the bases of code.
func Decode(code uint64, k int) string {
	out := make([]byte, k)
	for i := k - 1; i >= 0; i-- {
		out[i] = bases[code&3]
		code >>= 2
	}
	return string(out)
}

// ForEach calls fn with the canonical code of every k-length window of seq that
// contains only A, C, G and T. Windows spanning any other byte are skipped.
func ForEach(seq []byte, k int, fn func(code uint64)) {
	if k < 1 || k > MaxK {
		return
	}
	m := mask(k)
	shift := 2 * uint(k-1)
	var fwd, rev uint64
	valid := 0
	for _, b := range seq {
		c := baseCode[b]
		if c < 0 {
			valid = 0
			fwd, rev = 0, 0
			continue
		}
		fwd = (fwd<<2 | uint64(c)) & m
		rev = rev>>2 | uint64(3-c)<<shift
		if valid < k {
			valid++
		}
		if valid == k {
			fn(min(fwd, rev))
		}
	}
}
