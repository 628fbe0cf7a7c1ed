package store

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Sweeper periodically moves due entries from the delayed sorted set back
// onto the FIFO queue, implementing the "sorted set + sweeper" strategy
// spec.md §9 prefers at scale over sleeping-in-worker. One sweeper per
// instance is harmless (ZRangeByScore + ZRem on the due members is
// idempotent across concurrent sweepers; a member already removed by a
// peer is simply skipped).
type Sweeper struct {
	rdb      *redis.Client
	interval time.Duration
	logger   *zap.Logger
}

// NewSweeper builds a Sweeper that checks for due entries every interval.
func NewSweeper(rdb *redis.Client, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{rdb: rdb, interval: interval, logger: logger}
}

// Run blocks, sweeping on a ticker until ctx is cancelled.
func (sw *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sw.sweepOnce(ctx)
		}
	}
}

func (sw *Sweeper) sweepOnce(ctx context.Context) {
	now := float64(time.Now().UnixMilli())
	due, err := sw.rdb.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min: "0",
		Max: formatScore(now),
	}).Result()
	if err != nil {
		sw.logger.Warn("sweep_range_failed", zap.Error(err))
		return
	}
	for _, member := range due {
		moved, err := sw.moveOne(ctx, member)
		if err != nil {
			sw.logger.Warn("sweep_move_failed", zap.Error(err))
			continue
		}
		if moved {
			sw.logger.Debug("sweep_requeued")
		}
	}
}

// moveOne atomically removes member from the delayed set and, only if the
// removal actually took effect (i.e. we won the race against a concurrent
// sweeper), pushes it onto the live queue.
func (sw *Sweeper) moveOne(ctx context.Context, member string) (bool, error) {
	removed, err := sw.rdb.ZRem(ctx, delayedKey, member).Result()
	if err != nil {
		return false, err
	}
	if removed == 0 {
		return false, nil
	}
	if err := sw.rdb.LPush(ctx, queueKey, member).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
