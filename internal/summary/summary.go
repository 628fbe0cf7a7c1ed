// Package summary implements the Accounting & Summary component
// (spec.md §4.6): resolving a [from,to] ISO-8601 window to the bucket
// range the Shared Store Client understands, and aggregating per-processor
// totals over it.
package summary

import (
	"context"
	"fmt"

	"github.com/paymentdispatch/intermediary/internal/apperr"
	"github.com/paymentdispatch/intermediary/internal/clock"
	"github.com/paymentdispatch/intermediary/internal/model"
	"github.com/paymentdispatch/intermediary/internal/store"
)

// Service answers GET /payments-summary.
type Service struct {
	store store.Store
	clock clock.Clock
}

func New(st store.Store, clk clock.Clock) *Service {
	return &Service{store: st, clock: clk}
}

// Window resolves to bucket range [fromBucket, toBucket], per spec.md
// §4.6: "Resolve from to its bucket (floor to second) and to to its bucket
// (ceil to second)". An absent from starts at the epoch; an absent to ends
// at the current bucket, so payments whose requestedAt lies after the
// clock's current time are not counted. RangeSum walks the range one bucket
// key at a time, so an unbounded upper sentinel would turn an "unbounded"
// query into an unbounded scan.
func Window(fromStr, toStr string, clk clock.Clock) (fromBucket, toBucket int64, err error) {
	if fromStr == "" {
		fromBucket = 0
	} else {
		t, parseErr := model.ParseTimestamp(fromStr)
		if parseErr != nil {
			return 0, 0, fmt.Errorf("%w: invalid from timestamp", apperr.ErrValidation)
		}
		fromBucket = model.Bucket(t)
	}

	if toStr == "" {
		toBucket = model.Bucket(clk.Now())
	} else {
		t, parseErr := model.ParseTimestamp(toStr)
		if parseErr != nil {
			return 0, 0, fmt.Errorf("%w: invalid to timestamp", apperr.ErrValidation)
		}
		toBucket = ceilBucket(t)
	}

	if toBucket < fromBucket {
		return 0, 0, fmt.Errorf("%w: to precedes from", apperr.ErrValidation)
	}
	return fromBucket, toBucket, nil
}

func ceilBucket(t interface{ UnixNano() int64 }) int64 {
	nanos := t.UnixNano()
	floor := nanos / int64(1_000_000_000)
	if nanos%int64(1_000_000_000) != 0 {
		floor++
	}
	return floor
}

// Get aggregates committed payments for both processors over [fromStr,
// toStr] (each an optional ISO-8601 timestamp).
func (s *Service) Get(ctx context.Context, fromStr, toStr string) (model.Summary, error) {
	fromBucket, toBucket, err := Window(fromStr, toStr, s.clock)
	if err != nil {
		return model.Summary{}, err
	}

	def, err := s.totals(ctx, model.ProcessorDefault, fromBucket, toBucket)
	if err != nil {
		return model.Summary{}, err
	}
	fb, err := s.totals(ctx, model.ProcessorFallback, fromBucket, toBucket)
	if err != nil {
		return model.Summary{}, err
	}
	return model.Summary{Default: def, Fallback: fb}, nil
}

func (s *Service) totals(ctx context.Context, processor model.ProcessorID, fromBucket, toBucket int64) (model.ProcessorTotals, error) {
	count, sum, err := s.store.RangeSum(ctx, processor, fromBucket, toBucket)
	if err != nil {
		return model.ProcessorTotals{}, err
	}
	return model.ProcessorTotals{TotalRequests: count, TotalAmount: sum}, nil
}
