package kmerdb

import (
	"bytes"
	"fmt"

	"github.com/ic-timon/kmerdb/kmerdb/store"
)

// Reader serves point lookups from an mmap'd database file without materializing it.
// Entries are located by binary search over the fixed-stride probability section.
// Safe for concurrent use until Close.
type Reader struct {
	header Header
	view   store.View
	data   []byte // probability section
	stride int
}

// Open maps the database at path and validates its header and length.
// The returned Reader must be closed.
func Open(path string) (*Reader, error) {
	view, err := store.OpenMmap(path)
	if err != nil {
		return nil, ioError("open", path, err)
	}
	r, err := newReader(view)
	if err != nil {
		view.Close()
		return nil, withPath(err, path)
	}
	return r, nil
}

func newReader(view store.View) (*Reader, error) {
	const op = "open"
	data := view.Bytes()
	if off, ok := store.PeekOffset(data); ok && uint64(len(data)) < off {
		return nil, newError(KindFormat, op, fmt.Errorf("%w: %d bytes, species table ends at %d", ErrTruncatedFile, len(data), off))
	}
	h, err := DecodeHeader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) < h.FileSize() {
		return nil, newError(KindFormat, op, fmt.Errorf("%w: %d bytes, header declares %d", ErrTruncatedFile, len(data), h.FileSize()))
	}
	if a, ok := view.(interface{ AdviseRandom(off int64) }); ok {
		a.AdviseRandom(int64(h.Offset))
	}
	return &Reader{
		header: *h,
		view:   view,
		data:   data[h.Offset:h.FileSize()],
		stride: h.EntrySize(),
	}, nil
}

// Header returns the database header.
func (r *Reader) Header() *Header { return &r.header }

// Len returns the number of entries.
func (r *Reader) Len() int { return int(r.header.Size) }

// Code returns the k-mer code of entry i.
func (r *Reader) Code(i int) KmerCode {
	return store.ByteOrder.Uint64(r.data[i*r.stride:])
}

// Entry decodes entry i into a fresh vector.
func (r *Reader) Entry(i int) (KmerCode, []float32) {
	probs := make([]float32, r.header.SpeciesNum())
	code := decodeEntry(r.data[i*r.stride:(i+1)*r.stride], probs)
	return code, probs
}

// Search returns the smallest entry index whose code is >= code.
func (r *Reader) Search(code KmerCode) int {
	lo, hi := 0, r.Len()
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if r.Code(mid) < code {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Lookup returns the probability vector stored for code.
func (r *Reader) Lookup(code KmerCode) ([]float32, bool) {
	i := r.Search(code)
	if i >= r.Len() || r.Code(i) != code {
		return nil, false
	}
	_, probs := r.Entry(i)
	return probs, true
}

// Validate scans every key and fails with ErrUnsortedData on the first non-increasing one.
func (r *Reader) Validate() error {
	for i := 1; i < r.Len(); i++ {
		if prev, cur := r.Code(i-1), r.Code(i); cur <= prev {
			return newError(KindFormat, "validate", fmt.Errorf("%w: code %d at entry %d after %d", ErrUnsortedData, cur, i, prev))
		}
	}
	return nil
}

// Close releases the mapping. Vectors returned by Lookup remain valid.
func (r *Reader) Close() error {
	if r.view == nil {
		return nil
	}
	err := r.view.Close()
	r.view = nil
	r.data = nil
	return err
}
