package backoff

import (
	"math"
	"time"
)

// Backoff computes the delay before the next retry. The retries argument is
// the number of attempts that have already failed, starting at 0.
type Backoff interface {
	Duration(retries int) time.Duration
}

// ExponentialBackoff grows the delay by Base^retries.
type ExponentialBackoff struct {
	Interval time.Duration
	Base     int
}

var _ Backoff = (*ExponentialBackoff)(nil)

func (b *ExponentialBackoff) Duration(retries int) time.Duration {
	return b.Interval * time.Duration(math.Pow(float64(b.Base), float64(retries)))
}

// ConstantBackoff returns the same delay regardless of retries.
type ConstantBackoff struct {
	Interval time.Duration
}

var _ Backoff = (*ConstantBackoff)(nil)

func (b *ConstantBackoff) Duration(retries int) time.Duration {
	return b.Interval
}

// ScheduledBackoff walks a fixed schedule and sticks to the last entry once
// retries run past the end. An empty schedule yields no delay.
type ScheduledBackoff struct {
	Schedule []time.Duration
}

var _ Backoff = (*ScheduledBackoff)(nil)

func (b *ScheduledBackoff) Duration(retries int) time.Duration {
	if len(b.Schedule) == 0 {
		return 0
	}
	if retries >= len(b.Schedule) {
		return b.Schedule[len(b.Schedule)-1]
	}
	return b.Schedule[retries]
}
