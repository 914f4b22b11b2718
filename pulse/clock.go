package pulse

import "time"

var epoch = time.Now()

// goMonotonic relies on the monotonic reading carried by time.Time.
func goMonotonic() time.Duration {
	return time.Since(epoch)
}
