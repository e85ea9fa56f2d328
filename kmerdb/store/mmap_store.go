package store

import (
	"os"

	"github.com/edsrzf/mmap-go"
)

// MmapView is a View backed by an mmap'd file.
type MmapView struct {
	f    *os.File
	data mmap.MMap
}

// OpenMmap opens a file and returns a read-only View. Empty files are mapped as a nil
// slice since a zero-length mapping is rejected by the OS.
func OpenMmap(path string) (*MmapView, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if st.Size() == 0 {
		return &MmapView{f: f}, nil
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &MmapView{f: f, data: m}, nil
}

// Bytes returns the full mapped file.
func (s *MmapView) Bytes() []byte {
	return s.data
}

// AdviseRandom hints that the region starting at off is read by random access.
// Errors are ignored; the hint is advisory.
func (s *MmapView) AdviseRandom(off int64) {
	if s.data == nil || off < 0 || off >= int64(len(s.data)) {
		return
	}
	page := int64(os.Getpagesize())
	adviseRandom(s.data[off-off%page:])
}

// Close unmaps the file and closes it.
func (s *MmapView) Close() error {
	if s.data != nil {
		if err := s.data.Unmap(); err != nil {
			return err
		}
		s.data = nil
	}
	if s.f != nil {
		err := s.f.Close()
		s.f = nil
		return err
	}
	return nil
}
