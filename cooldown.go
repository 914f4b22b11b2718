package hcsr04

import "time"

// cooldown is the period during which a sensor refuses to probe.  It is
// idle until armed, and goes idle again on its own once the deadline
// passes; nothing needs to reset it.
type cooldown struct {
	deadline time.Time
}

func (c *cooldown) active(now time.Time) bool {
	return !c.deadline.IsZero() && now.Before(c.deadline)
}

func (c *cooldown) arm(now time.Time, d time.Duration) {
	c.deadline = now.Add(d)
}
