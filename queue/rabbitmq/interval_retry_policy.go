package rabbitmq

import (
	"time"
)

// NewDefaultMaxInterval grows from 100ms by a factor of 2 per try and gives up after 2h.
func NewDefaultMaxInterval() *MaxInterval {
	return &MaxInterval{
		base:          100 * time.Millisecond,
		max:           2 * time.Hour,
		multiplicator: 2,
	}
}

// NewMaxInterval panics on zero arguments.
func NewMaxInterval(baseInterval, maxInterval time.Duration, multiplicator int) *MaxInterval {
	if baseInterval == 0 {
		panic("interval should not be 0")
	}
	if multiplicator == 0 {
		panic("multiplicator should not be 0")
	}
	if maxInterval == 0 {
		panic("max interval should not be 0")
	}

	return &MaxInterval{
		base:          baseInterval,
		max:           maxInterval,
		multiplicator: multiplicator,
	}
}

// MaxInterval is a RetryPolicy with linearly growing pauses capped by max.
type MaxInterval struct {
	base          time.Duration
	max           time.Duration
	multiplicator int
}

// TryNum returns the pause before try i and whether to stop.
func (m *MaxInterval) TryNum(i int) (time.Duration, bool) {
	d := m.base * time.Duration(i*m.multiplicator)
	if d > m.max {
		return 0, true
	}
	return d, false
}
