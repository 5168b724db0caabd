//go:build unix

package analyzer

import "golang.org/x/sys/unix"

// PeakRSS reports the process's maximum resident set size in bytes, or 0
// when unavailable. Linux reports ru_maxrss in KiB.
func PeakRSS() uint64 {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0
	}
	return uint64(ru.Maxrss) * 1024
}
