//go:build linux

package pulse

import (
	"time"

	"golang.org/x/sys/unix"
)

// Monotonic reads CLOCK_MONOTONIC_RAW, which NTP never slews.
func Monotonic() time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC_RAW, &ts); err != nil {
		return goMonotonic()
	}
	return time.Duration(ts.Nano())
}
