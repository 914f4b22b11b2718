//go:build !linux

package pulse

import "time"

// Monotonic returns time elapsed since the package was initialized.
func Monotonic() time.Duration {
	return goMonotonic()
}
