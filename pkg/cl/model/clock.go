package model

import (
	"sync"
	"time"
)

// Clock supplies the current time to components that stamp records.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns a Clock reading UTC wall time.
func SystemClock() Clock {
	return systemClock{}
}

// StepClock returns start on the first call and advances by step on every later call.
// Tests use it to observe that timestamps move forward between operations.
type StepClock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

// NewStepClock creates a StepClock.
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	return &StepClock{next: start, step: step}
}

func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next = c.next.Add(c.step)
	return now
}
