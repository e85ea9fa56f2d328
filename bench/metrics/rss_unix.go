//go:build linux || darwin || freebsd || netbsd || openbsd

package metrics

import (
	"runtime"

	"golang.org/x/sys/unix"
)

func maxRSS() uint64 {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0
	}
	// darwin 以字节为单位，其余平台为 KiB
	if runtime.GOOS == "darwin" {
		return uint64(ru.Maxrss)
	}
	return uint64(ru.Maxrss) * 1024
}
