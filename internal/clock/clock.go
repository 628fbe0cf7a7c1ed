// Package clock provides an injectable time source so tests can control
// "now" without sleeping. The real implementation wraps time.Now directly;
// nothing here does more than that one call.
package clock

import "time"

// Clock is a monotonic time source.
type Clock interface {
	Now() time.Time
}

// Real is the production Clock, backed by the standard library.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Fixed is a test Clock that always returns the same instant.
type Fixed struct {
	At time.Time
}

func (f Fixed) Now() time.Time { return f.At }
