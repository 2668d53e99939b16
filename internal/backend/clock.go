package backend

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Sequencer is the source of logical time for tokens and placeholders.
// testutil.DeterministicClock satisfies it.
type Sequencer interface {
	Next() int64
}

// Clock is a monotonic logical clock. Every token and placeholder an arena
// creates is stamped with a strictly increasing seq from it, so records
// order deterministically without wall-clock time.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock that resumes after start. Used when an arena
// continues numbering from records loaded out of a store.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// SessionGenerator names an arena session. Session ids are part of every
// placeholder and spec id.
type SessionGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable session ids.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7. It panics if the system
// random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
