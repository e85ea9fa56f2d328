//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package metrics

func maxRSS() uint64 { return 0 }
