// Package model defines the core data types shared across the dispatch
// pipeline: payments, queue entries, processor identity, health snapshots,
// and accounting records.
package model

import (
	"fmt"
	"strconv"
	"time"
)

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// ProcessorID identifies one of the two downstream payment processors.
type ProcessorID string

const (
	ProcessorDefault  ProcessorID = "default"
	ProcessorFallback ProcessorID = "fallback"
)

func (p ProcessorID) Valid() bool {
	return p == ProcessorDefault || p == ProcessorFallback
}

// Cents is an integer amount of currency minor units. All internal
// arithmetic uses Cents; decimal strings only ever appear at the JSON
// boundary.
type Cents int64

// ParseAmount converts a decimal amount (as decoded from JSON, e.g. 19.9)
// into Cents, rejecting anything that isn't a positive value expressible
// with at most two fractional digits.
func ParseAmount(amount float64) (Cents, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("amount must be positive, got %v", amount)
	}
	scaled := amount * 100
	rounded := int64(scaled + 0.5)
	if diff := scaled - float64(rounded); diff > 1e-6 || diff < -1e-6 {
		return 0, fmt.Errorf("amount must have at most two decimal digits, got %v", amount)
	}
	return Cents(rounded), nil
}

// Float64 renders Cents back to a decimal amount for the JSON boundary.
func (c Cents) Float64() float64 {
	return float64(c) / 100
}

// String renders Cents as a fixed two-decimal string.
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + strconv.FormatInt(v/100, 10) + "." + pad2(v%100)
}

func pad2(v int64) string {
	s := strconv.FormatInt(v, 10)
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// ParseTimestamp parses an RFC3339-with-milliseconds timestamp as used on
// the wire for requestedAt.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t.UTC(), nil
	}
	// Accept the broader RFC3339Nano form too — clients are not required
	// to match our exact millisecond formatting on the way in.
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// FormatTimestamp renders a time.Time in the wire format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// Bucket returns the one-second bucket key (unix seconds) a timestamp
// belongs to.
func Bucket(t time.Time) int64 {
	return t.UTC().Unix()
}

// Payment is the unit of work accepted at ingestion. Once RequestedAt is
// set it never changes — every retry and accounting row uses that value.
type Payment struct {
	CorrelationID string
	Amount        Cents
	RequestedAt   time.Time
}

// QueueEntry wraps a Payment with worker-pool bookkeeping.
type QueueEntry struct {
	Payment   Payment
	Attempts  int
	LastError string
}

// HealthSnapshot is the Health Oracle's cached view of one processor.
type HealthSnapshot struct {
	Failing         bool
	MinResponseTime time.Duration
	ObservedAt      time.Time
}

// AccountingRecord is an immutable fact: this processor accounted for this
// amount at this requestedAt. Never mutated once written.
type AccountingRecord struct {
	Processor     ProcessorID
	CorrelationID string
	RequestedAt   time.Time
	Amount        Cents
}

// ProcessorTotals is one processor's contribution to a Summary.
type ProcessorTotals struct {
	TotalRequests int64
	TotalAmount   Cents
}

// Summary is the aggregated response for GET /payments-summary.
type Summary struct {
	Default  ProcessorTotals
	Fallback ProcessorTotals
}
