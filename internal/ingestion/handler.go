// Package ingestion implements the Ingestion Handler (spec.md §4.1):
// POST /payments validates the request, stamps requestedAt if absent, and
// hands the payment off to the Shared Store Client without ever touching a
// downstream processor on this path.
package ingestion

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/paymentdispatch/intermediary/internal/apperr"
	"github.com/paymentdispatch/intermediary/internal/clock"
	"github.com/paymentdispatch/intermediary/internal/model"
	"github.com/paymentdispatch/intermediary/internal/store"
)

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// Request is the wire shape of a POST /payments body.
type Request struct {
	CorrelationID string  `json:"correlationId" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	RequestedAt   string  `json:"requestedAt,omitempty"`
}

// Service owns the Enqueue path.
type Service struct {
	store store.Store
	clock clock.Clock
}

func New(st store.Store, clk clock.Clock) *Service {
	return &Service{store: st, clock: clk}
}

// Accept validates req, assigns requestedAt from the clock if absent, and
// enqueues the resulting QueueEntry. Returned errors are tagged with
// apperr.ErrValidation or apperr.ErrStoreUnavailable so the HTTP surface
// can map them to 422 / 503 without inspecting message text.
func (s *Service) Accept(ctx context.Context, req Request) error {
	if err := getValidator().Struct(req); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}

	amount, err := model.ParseAmount(req.Amount)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}

	requestedAt := s.clock.Now().UTC()
	if req.RequestedAt != "" {
		parsed, err := model.ParseTimestamp(req.RequestedAt)
		if err != nil {
			return fmt.Errorf("%w: invalid requestedAt", apperr.ErrValidation)
		}
		requestedAt = parsed
	}

	entry := model.QueueEntry{
		Payment: model.Payment{
			CorrelationID: req.CorrelationID,
			Amount:        amount,
			RequestedAt:   requestedAt,
		},
	}
	return s.store.Enqueue(ctx, entry)
}
