// Package pulse times digital pulses on a GPIO line by polling it against a
// monotonic clock.
//
// Everything here spins. Nothing sleeps, because the scheduler's sleep
// granularity is an order of magnitude coarser than the pulses being timed.
package pulse

import (
	"runtime"
	"time"

	"periph.io/x/periph/conn/gpio"
)

// Reader is the part of a gpio.PinIn that polling needs.
type Reader interface {
	Read() gpio.Level
}

// Clock returns a monotonic timestamp.  Only the difference between two
// readings is meaningful.
type Clock func() time.Duration

// Result is the outcome of MeasureWidth.
type Result struct {
	Duration time.Duration
	TimedOut bool
}

// WaitForLevel blocks until r reads level.  It reports true if timeout
// elapsed first.
func WaitForLevel(r Reader, level gpio.Level, timeout time.Duration, now Clock) (timedOut bool) {
	start := now()
	for r.Read() != level {
		if now()-start >= timeout {
			return true
		}
	}
	return false
}

// MeasureWidth waits for r to reach level and then measures how long it
// stays there.  Each of the two waits is bounded by timeout on its own.  If
// either of them times out the returned Duration is zero.
//
// The calling goroutine is locked to its OS thread for the whole window so
// the runtime does not migrate it halfway through a pulse.
func MeasureWidth(r Reader, level gpio.Level, timeout time.Duration, now Clock) Result {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if WaitForLevel(r, level, timeout, now) {
		return Result{TimedOut: true}
	}
	start := now()
	if WaitForLevel(r, !level, timeout, now) {
		return Result{TimedOut: true}
	}
	return Result{Duration: now() - start}
}

// Hold spins for d.
func Hold(d time.Duration, now Clock) {
	start := now()
	for now()-start < d {
	}
}
