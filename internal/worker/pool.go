// Package worker implements the Dispatch Worker Pool (spec.md §4.5): N
// cooperative workers pulling from the queue, asking the Health Oracle
// which processor to use, submitting through the Processor Client, and
// committing, requeueing, or dead-lettering based on the outcome.
package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/paymentdispatch/intermediary/internal/config"
	"github.com/paymentdispatch/intermediary/internal/model"
	"github.com/paymentdispatch/intermediary/internal/processorclient"
	"github.com/paymentdispatch/intermediary/internal/store"
)

// Chooser picks the processor to dispatch to for the current attempt —
// satisfied by *health.Oracle.
type Chooser interface {
	Choose(ctx context.Context) model.ProcessorID
}

// Submitter submits one payment and classifies the result — satisfied by
// *processorclient.Client.
type Submitter interface {
	Submit(ctx context.Context, payment model.Payment) (processorclient.Outcome, error)
}

// Pool owns the worker goroutines and their shared dependencies.
type Pool struct {
	store   store.Store
	chooser Chooser
	clients map[model.ProcessorID]Submitter
	audit   *store.AuditLog // optional; nil disables audit-row writes
	workers int
	logger  *zap.Logger
}

// New builds a Pool. audit may be nil.
func New(st store.Store, chooser Chooser, clients map[model.ProcessorID]Submitter, audit *store.AuditLog, workers int, logger *zap.Logger) *Pool {
	return &Pool{
		store:   st,
		chooser: chooser,
		clients: clients,
		audit:   audit,
		workers: workers,
		logger:  logger,
	}
}

// Run starts the configured number of worker goroutines and blocks until
// ctx is cancelled and every in-flight dispatch has finished. Cancelling
// ctx only stops workers from picking up new entries; a dispatch already
// underway runs to completion on its own context (see loop).
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.loop(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (p *Pool) loop(ctx context.Context, id int) {
	for {
		if ctx.Err() != nil {
			return
		}
		entry, err := p.store.Dequeue(ctx, config.DequeueTimeout)
		if err != nil {
			p.logger.Warn("dequeue failed", zap.Int("worker", id), zap.Error(err))
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if entry == nil {
			continue
		}
		// Once dequeued, this entry is owned by this worker: finish
		// dispatching it on an unbounded context so a shutdown
		// cancellation of ctx (which only stops the *next* Dequeue)
		// can never abort an in-flight Submit or commit.
		p.dispatch(context.Background(), *entry)
	}
}

func (p *Pool) dispatch(ctx context.Context, entry model.QueueEntry) {
	processor := p.chooser.Choose(ctx)
	client, ok := p.clients[processor]
	if !ok {
		p.logger.Error("no client configured for chosen processor", zap.String("processor", string(processor)))
		p.deadLetter(ctx, entry, "no client for processor "+string(processor))
		return
	}

	outcome, err := client.Submit(ctx, entry.Payment)
	switch outcome {
	case processorclient.OutcomeSuccess:
		p.commit(ctx, processor, entry)
	case processorclient.OutcomePermanent:
		reason := "permanent processor rejection"
		if err != nil {
			reason = err.Error()
		}
		p.deadLetter(ctx, entry, reason)
	default:
		p.retryOrDeadLetter(ctx, entry, err)
	}
}

// commit implements I1: only the attempt that wins MarkAccounted bumps the
// counters and writes the audit row. Every other attempt — including a
// processor-side duplicate treated as Success — is a safe no-op drop.
func (p *Pool) commit(ctx context.Context, processor model.ProcessorID, entry model.QueueEntry) {
	first, err := p.store.MarkAccounted(ctx, entry.Payment.CorrelationID)
	if err != nil {
		p.logger.Error("mark accounted failed", zap.String("correlationId", entry.Payment.CorrelationID), zap.Error(err))
		return
	}
	if !first {
		return
	}

	bucket := model.Bucket(entry.Payment.RequestedAt)
	if err := p.store.Bump(ctx, processor, bucket, entry.Payment.Amount); err != nil {
		p.logger.Error("bump counters failed", zap.String("correlationId", entry.Payment.CorrelationID), zap.Error(err))
		return
	}

	if p.audit != nil {
		rec := model.AccountingRecord{
			Processor:     processor,
			CorrelationID: entry.Payment.CorrelationID,
			RequestedAt:   entry.Payment.RequestedAt,
			Amount:        entry.Payment.Amount,
		}
		if err := p.audit.Append(rec); err != nil {
			p.logger.Warn("audit append failed", zap.String("correlationId", entry.Payment.CorrelationID), zap.Error(err))
		}
	}
}

func (p *Pool) retryOrDeadLetter(ctx context.Context, entry model.QueueEntry, submitErr error) {
	entry.Attempts++
	if submitErr != nil {
		entry.LastError = submitErr.Error()
	}

	if entry.Attempts >= config.MaxAttempts {
		p.deadLetter(ctx, entry, entry.LastError)
		return
	}

	delay := delayForAttempt(entry.Attempts)
	if err := p.store.Requeue(ctx, entry, delay); err != nil {
		p.logger.Error("requeue failed", zap.String("correlationId", entry.Payment.CorrelationID), zap.Error(err))
	}
}

func (p *Pool) deadLetter(ctx context.Context, entry model.QueueEntry, reason string) {
	entry.LastError = reason
	if err := p.store.DeadLetter(ctx, entry); err != nil {
		p.logger.Error("dead-letter failed", zap.String("correlationId", entry.Payment.CorrelationID), zap.Error(err))
	}
}
