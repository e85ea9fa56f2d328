//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package store

func adviseRandom(b []byte) {}
