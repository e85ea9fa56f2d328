package kmerdb

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/ic-timon/kmerdb/kmerdb/store"
)

const (
	ioBufferSize = 1 << 20
	decodeChunk  = 1 << 16 // entries per vector backing array
)

// WriteTo serializes the database to w. It fails with ErrUnsortedData or
// ErrMismatchedVectorLength before writing anything if an invariant is broken.
func (db *Database) WriteTo(w io.Writer) (int64, error) {
	const op = "write"
	if err := db.validate(op); err != nil {
		return 0, err
	}
	h := &store.Header{Size: uint32(len(db.Codes)), Species: toStoreSpecies(db.Header.Species)}
	headerBytes, err := store.EncodeHeader(h)
	if err != nil {
		return 0, newError(KindInvalidParameter, op, err)
	}
	db.Header.Size = h.Size
	db.Header.Offset = h.Offset

	bw := bufio.NewWriterSize(w, ioBufferSize)
	var written int64
	n, err := bw.Write(headerBytes)
	written += int64(n)
	if err != nil {
		return written, ioError(op, "", err)
	}
	entry := make([]byte, store.EntrySize(db.Header.SpeciesNum()))
	for i, code := range db.Codes {
		encodeEntry(entry, code, db.Probs[i])
		n, err := bw.Write(entry)
		written += int64(n)
		if err != nil {
			return written, ioError(op, "", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return written, ioError(op, "", err)
	}
	return written, nil
}

func encodeEntry(dst []byte, code KmerCode, probs []float32) {
	store.ByteOrder.PutUint64(dst, code)
	off := store.CodeFieldSize
	for _, p := range probs {
		store.ByteOrder.PutUint32(dst[off:], math.Float32bits(p))
		off += store.ProbFieldSize
	}
}

// decodeEntry reads one entry; probs must have one element per species.
func decodeEntry(src []byte, probs []float32) KmerCode {
	off := store.CodeFieldSize
	for i := range probs {
		probs[i] = math.Float32frombits(store.ByteOrder.Uint32(src[off:]))
		off += store.ProbFieldSize
	}
	return store.ByteOrder.Uint64(src)
}

// DecodeHeader reads and validates the header and species table from r.
func DecodeHeader(r io.Reader) (*Header, error) {
	h, err := store.DecodeHeader(r)
	if err != nil {
		return nil, headerError("read header", err)
	}
	return headerFromStore(h), nil
}

func headerError(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrBadMagic):
		return newError(KindFormat, op, fmt.Errorf("%w: %w", ErrCorruptHeader, err))
	case errors.Is(err, store.ErrOffsetMismatch):
		return newError(KindConsistency, op, fmt.Errorf("%w: %w", ErrCorruptHeader, err))
	case errors.Is(err, store.ErrShortHeader):
		return newError(KindFormat, op, fmt.Errorf("%w: %w", ErrTruncatedFile, err))
	default:
		return ioError(op, "", err)
	}
}

// Decode reads a complete database from r. In strict mode every key must be greater
// than the one before it. No partial database is returned on error.
func Decode(r io.Reader, strict bool) (*Database, error) {
	const op = "decode"
	br := bufio.NewReaderSize(r, ioBufferSize)
	h, err := DecodeHeader(br)
	if err != nil {
		return nil, err
	}
	n := h.SpeciesNum()
	// Size comes from the file; cap preallocation so a corrupt header cannot force a
	// huge allocation before truncation is detected.
	capHint := min(int(h.Size), decodeChunk)
	db := &Database{
		Header: *h,
		Codes:  make([]KmerCode, 0, capHint),
		Probs:  make([][]float32, 0, capHint),
	}
	var pool []float32
	entry := make([]byte, h.EntrySize())
	for i := 0; i < int(h.Size); i++ {
		if len(pool) < n {
			pool = make([]float32, min(int(h.Size)-i, decodeChunk)*n)
		}
		if _, err := io.ReadFull(br, entry); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, newError(KindFormat, op, fmt.Errorf("%w: entry %d of %d", ErrTruncatedFile, i, h.Size))
			}
			return nil, ioError(op, "", err)
		}
		probs := pool[:n:n]
		pool = pool[n:]
		code := decodeEntry(entry, probs)
		if strict && i > 0 && code <= db.Codes[i-1] {
			return nil, newError(KindFormat, op, fmt.Errorf("%w: code %d at entry %d after %d", ErrUnsortedData, code, i, db.Codes[i-1]))
		}
		db.Codes = append(db.Codes, code)
		db.Probs = append(db.Probs, probs)
	}
	return db, nil
}

// ReadHeader reads only the header of the database at path.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ioError("open", path, err)
	}
	defer f.Close()
	h, err := DecodeHeader(bufio.NewReader(f))
	if err != nil {
		return nil, withPath(err, path)
	}
	return h, nil
}

// Load reads the complete database at path.
func Load(path string, strict bool) (*Database, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ioError("open", path, err)
	}
	defer f.Close()
	if err := checkLength(f); err != nil {
		return nil, withPath(err, path)
	}
	db, err := Decode(f, strict)
	if err != nil {
		return nil, withPath(err, path)
	}
	return db, nil
}

// checkLength compares the file size with the size its header declares, then rewinds f.
func checkLength(f *os.File) error {
	const op = "decode"
	st, err := f.Stat()
	if err != nil {
		return ioError(op, "", err)
	}
	var prefix [store.HeaderSize]byte
	n, err := io.ReadFull(f, prefix[:])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return ioError(op, "", err)
	}
	if off, ok := store.PeekOffset(prefix[:n]); ok && uint64(st.Size()) < off {
		return newError(KindFormat, op, fmt.Errorf("%w: %d bytes, species table ends at %d", ErrTruncatedFile, st.Size(), off))
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return ioError(op, "", err)
	}
	return nil
}

func withPath(err error, path string) error {
	var e *Error
	if errors.As(err, &e) && e.Path == "" {
		e.Path = path
	}
	return err
}
