package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// Magic identifies a k-mer probability database file.
	Magic = "DBBR"

	// MagicSize is the width of the magic field.
	MagicSize = 4
	// SizeFieldSize is the width of the entry-count field.
	SizeFieldSize = 4
	// SpeciesNumFieldSize is the width of the species-count field.
	SpeciesNumFieldSize = 4
	// OffsetFieldSize is the width of the probability-section offset field.
	OffsetFieldSize = 8

	// HeaderSize is the fixed part of the header that precedes the species table.
	HeaderSize = MagicSize + SizeFieldSize + SpeciesNumFieldSize + OffsetFieldSize

	// NameFieldSize is the fixed, NUL padded species name field.
	NameFieldSize = 64
	// SampleFieldSize is the width of a species sample count.
	SampleFieldSize = 4
	// SpeciesEntrySize is one species table row.
	SpeciesEntrySize = NameFieldSize + SampleFieldSize

	// CodeFieldSize is the width of a k-mer code.
	CodeFieldSize = 8
	// ProbFieldSize is the width of one float32 probability.
	ProbFieldSize = 4
)

// ByteOrder is used for every multi-byte field in the file.
var ByteOrder = binary.LittleEndian

var (
	// ErrBadMagic is returned when the first bytes are not Magic.
	ErrBadMagic = errors.New("invalid magic")
	// ErrOffsetMismatch is returned when the declared offset disagrees with the species table.
	ErrOffsetMismatch = errors.New("probability offset mismatch")
	// ErrShortHeader is returned when the stream ends inside the header.
	ErrShortHeader = errors.New("header too short")
	// ErrNameField is returned for names that do not fit the name field.
	ErrNameField = errors.New("species name does not fit name field")
)

// Species is one persisted species table row.
type Species struct {
	Name    string
	Samples uint32
}

// Header holds the persisted database metadata.
type Header struct {
	Size       uint32 // number of k-mer entries
	SpeciesNum uint32
	Offset     uint64 // first byte of the probability section
	Species    []Species
}

// fixedHeader is the on-disk prefix, written with binary.Write.
type fixedHeader struct {
	Magic      [MagicSize]byte
	Size       uint32
	SpeciesNum uint32
	Offset     uint64
}

// maxSpeciesHint caps the species slice preallocation; the count comes from the file
// and rows are only trusted once read.
const maxSpeciesHint = 256

// PeekOffset returns the declared probability offset of b without reading the species
// table. ok is false if b is shorter than HeaderSize or does not start with Magic.
func PeekOffset(b []byte) (off uint64, ok bool) {
	if len(b) < HeaderSize || string(b[:MagicSize]) != Magic {
		return 0, false
	}
	return ByteOrder.Uint64(b[HeaderSize-OffsetFieldSize:]), true
}

// DataOffset returns the probability section offset for n species.
func DataOffset(n int) uint64 {
	return uint64(HeaderSize) + uint64(n)*uint64(SpeciesEntrySize)
}

// EntrySize returns the stride of one probability entry for n species.
func EntrySize(n int) int {
	return CodeFieldSize + n*ProbFieldSize
}

// EncodeHeader writes the header and species table to a byte slice.
// Offset and SpeciesNum are derived from Species.
func EncodeHeader(h *Header) ([]byte, error) {
	if h == nil {
		return nil, errors.New("header is nil")
	}
	h.SpeciesNum = uint32(len(h.Species))
	h.Offset = DataOffset(len(h.Species))
	fh := fixedHeader{Size: h.Size, SpeciesNum: h.SpeciesNum, Offset: h.Offset}
	copy(fh.Magic[:], Magic)

	w := bytes.NewBuffer(make([]byte, 0, h.Offset))
	if err := binary.Write(w, ByteOrder, &fh); err != nil {
		return nil, err
	}
	var name [NameFieldSize]byte
	for _, s := range h.Species {
		if len(s.Name) > NameFieldSize || strings.IndexByte(s.Name, 0) >= 0 {
			return nil, fmt.Errorf("%w: %q", ErrNameField, s.Name)
		}
		clear(name[:])
		copy(name[:], s.Name)
		w.Write(name[:])
		if err := binary.Write(w, ByteOrder, s.Samples); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

// DecodeHeader reads the header and species table from r, leaving r positioned at the
// start of the probability section. Returns ErrBadMagic or ErrOffsetMismatch on a
// malformed header.
func DecodeHeader(r io.Reader) (*Header, error) {
	var fh fixedHeader
	if err := binary.Read(r, ByteOrder, &fh); err != nil {
		return nil, shortRead(err)
	}
	if string(fh.Magic[:]) != Magic {
		return nil, ErrBadMagic
	}
	if want := DataOffset(int(fh.SpeciesNum)); fh.Offset != want {
		return nil, fmt.Errorf("%w: declared %d, species table ends at %d", ErrOffsetMismatch, fh.Offset, want)
	}
	h := &Header{
		Size:       fh.Size,
		SpeciesNum: fh.SpeciesNum,
		Offset:     fh.Offset,
		Species:    make([]Species, 0, min(fh.SpeciesNum, maxSpeciesHint)),
	}
	var row [SpeciesEntrySize]byte
	for i := uint32(0); i < fh.SpeciesNum; i++ {
		if _, err := io.ReadFull(r, row[:]); err != nil {
			return nil, shortRead(err)
		}
		name := row[:NameFieldSize]
		if n := bytes.IndexByte(name, 0); n >= 0 {
			name = name[:n]
		}
		h.Species = append(h.Species, Species{
			Name:    string(name),
			Samples: ByteOrder.Uint32(row[NameFieldSize:]),
		})
	}
	return h, nil
}

// PayloadSize returns the byte length of the probability section.
func (h *Header) PayloadSize() uint64 {
	return uint64(h.Size) * uint64(EntrySize(int(h.SpeciesNum)))
}

// FileSize returns the expected total file size.
func (h *Header) FileSize() uint64 {
	return h.Offset + h.PayloadSize()
}

func shortRead(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", ErrShortHeader, err)
	}
	return err
}
