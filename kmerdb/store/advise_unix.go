//go:build linux || darwin || freebsd || netbsd || openbsd

package store

import "golang.org/x/sys/unix"

// adviseRandom disables readahead on b, which only hurts binary search.
// b must start on a page boundary.
func adviseRandom(b []byte) {
	_ = unix.Madvise(b, unix.MADV_RANDOM)
}
