package samples

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// controlChecker asserts that manager mutations run serially on one
// control context. Go has no thread identity, so overlap is what gets
// detected: a mutation that starts while another is still running.
type controlChecker struct {
	active atomic.Int32
	strict bool
	log    *logrus.Entry

	violations atomic.Int64
}

// enter marks the start of a mutation. The returned func marks its end.
func (c *controlChecker) enter(op string) func() {
	if n := c.active.Add(1); n > 1 {
		c.violations.Add(1)
		c.log.WithField("op", op).Error("sample manager mutated outside the control context")

		if c.strict {
			c.active.Add(-1)
			panic("samples: concurrent mutation in " + op)
		}
	}

	return func() { c.active.Add(-1) }
}
