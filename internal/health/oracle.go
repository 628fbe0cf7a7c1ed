// Package health implements the Health Oracle (spec.md §4.4): it probes
// each processor's health endpoint on a cadence, elects exactly one
// prober per processor across clustered instances via a store-mediated
// lock, and exposes the choose() routing policy to the Dispatch Worker
// Pool.
package health

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/paymentdispatch/intermediary/internal/config"
	"github.com/paymentdispatch/intermediary/internal/model"
	"github.com/paymentdispatch/intermediary/internal/processorclient"
	"github.com/paymentdispatch/intermediary/internal/store"
)

// Oracle owns the probe loop and the read-mostly snapshot cache consulted
// by the worker pool on every dispatch attempt.
type Oracle struct {
	store      store.Store
	clients    map[model.ProcessorID]*processorclient.Client
	instanceID string
	logger     *zap.Logger
	cache      *snapshotCache
}

// New builds an Oracle. clients must contain an entry for both
// model.ProcessorDefault and model.ProcessorFallback.
func New(st store.Store, clients map[model.ProcessorID]*processorclient.Client, instanceID string, logger *zap.Logger) *Oracle {
	return &Oracle{
		store:      st,
		clients:    clients,
		instanceID: instanceID,
		logger:     logger,
		cache:      newSnapshotCache(config.FastResponseThreshold, st),
	}
}

// Run drives the periodic probe loop until ctx is cancelled.
func (o *Oracle) Run(ctx context.Context) {
	ticker := time.NewTicker(config.HealthProbeInterval)
	defer ticker.Stop()

	o.probeAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.probeAll(ctx)
		}
	}
}

func (o *Oracle) probeAll(ctx context.Context) {
	for processor, client := range o.clients {
		o.probeOne(ctx, processor, client)
	}
}

// probeOne attempts to become the elected prober for processor and, if
// elected, calls out to the processor and writes the result back into the
// shared store. Instances that lose the election simply skip this tick —
// they'll still read whatever the elected instance wrote.
func (o *Oracle) probeOne(ctx context.Context, processor model.ProcessorID, client *processorclient.Client) {
	elected, err := o.store.AcquireProbeLock(ctx, processor, o.instanceID, config.HealthLockTTL)
	if err != nil {
		o.logger.Warn("probe lock acquisition failed", zap.String("processor", string(processor)), zap.Error(err))
		return
	}
	if !elected {
		return
	}

	result, err := client.Health(ctx)
	if err != nil {
		o.logger.Warn("health probe failed", zap.String("processor", string(processor)), zap.Error(err))
		return
	}

	snap := model.HealthSnapshot{
		Failing:         result.Failing,
		MinResponseTime: result.MinResponseTime,
		ObservedAt:      time.Now().UTC(),
	}
	if err := o.store.SetHealth(ctx, processor, snap); err != nil {
		o.logger.Warn("failed to persist health snapshot", zap.String("processor", string(processor)), zap.Error(err))
		return
	}
	o.logger.Debug("health snapshot refreshed",
		zap.String("processor", string(processor)),
		zap.Bool("failing", snap.Failing),
		zap.Duration("minResponseTime", snap.MinResponseTime),
	)
}

// Choose picks a processor for the next dispatch attempt, applying the
// choose() policy from spec.md §4.4 to the freshest known snapshots.
func (o *Oracle) Choose(ctx context.Context) model.ProcessorID {
	def := o.cache.get(ctx, model.ProcessorDefault)
	fb := o.cache.get(ctx, model.ProcessorFallback)
	return choose(def, fb)
}

// choose implements the 5-rule policy verbatim: default is preferred for
// its lower fees, and the oracle only routes to fallback when default is
// demonstrably unhealthy or substantially slower.
func choose(def, fb model.HealthSnapshot) model.ProcessorID {
	switch {
	case !def.Failing && def.MinResponseTime <= config.FastResponseThreshold:
		return model.ProcessorDefault
	case def.Failing && !fb.Failing:
		return model.ProcessorFallback
	case !def.Failing && !fb.Failing && def.MinResponseTime <= fb.MinResponseTime*2:
		return model.ProcessorDefault
	case def.Failing && fb.Failing:
		return model.ProcessorDefault
	default:
		return model.ProcessorFallback
	}
}
