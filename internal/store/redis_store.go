package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/paymentdispatch/intermediary/internal/apperr"
	"github.com/paymentdispatch/intermediary/internal/model"
)

// wireEntry is the JSON shape a QueueEntry takes inside Redis list/zset
// values. RequestedAt is carried as a formatted string so the invariant
// "once requestedAt is set it never changes" survives a round trip without
// relying on JSON's float/time handling.
type wireEntry struct {
	CorrelationID string `json:"correlationId"`
	AmountCents   int64  `json:"amountCents"`
	RequestedAt   string `json:"requestedAt"`
	Attempts      int    `json:"attempts"`
	LastError     string `json:"lastError,omitempty"`
}

func toWire(e model.QueueEntry) wireEntry {
	return wireEntry{
		CorrelationID: e.Payment.CorrelationID,
		AmountCents:   int64(e.Payment.Amount),
		RequestedAt:   model.FormatTimestamp(e.Payment.RequestedAt),
		Attempts:      e.Attempts,
		LastError:     e.LastError,
	}
}

func (w wireEntry) toEntry() (model.QueueEntry, error) {
	requestedAt, err := model.ParseTimestamp(w.RequestedAt)
	if err != nil {
		return model.QueueEntry{}, err
	}
	return model.QueueEntry{
		Payment: model.Payment{
			CorrelationID: w.CorrelationID,
			Amount:        model.Cents(w.AmountCents),
			RequestedAt:   requestedAt,
		},
		Attempts:  w.Attempts,
		LastError: w.LastError,
	}, nil
}

// RedisStore is the production Store implementation, backed by a single
// shared *redis.Client (one connection pool for the whole process, per
// spec.md §5).
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore builds a Store from a redis:// DSN.
func NewRedisStore(dsn string) (*RedisStore, error) {
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisStore{rdb: redis.NewClient(opts)}, nil
}

// NewRedisStoreFromClient wraps an existing client — used by tests against
// miniredis.
func NewRedisStoreFromClient(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Ping verifies the store is reachable — called once at startup so a
// misconfigured or unreachable Redis fails fast instead of surfacing as a
// wall of 503s on the first requests.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Client exposes the underlying *redis.Client so the Sweeper can run its
// ZRangeByScore/ZRem/LPush pipeline against the same shared connection
// pool (spec.md §5: one store connection pool per instance) instead of
// opening a second one.
func (s *RedisStore) Client() *redis.Client {
	return s.rdb
}

func wrapUnavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
}

func (s *RedisStore) Enqueue(ctx context.Context, entry model.QueueEntry) error {
	data, err := json.Marshal(toWire(entry))
	if err != nil {
		return fmt.Errorf("%w: encode entry: %v", apperr.ErrInternal, err)
	}
	if err := s.rdb.LPush(ctx, queueKey, data).Err(); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

func (s *RedisStore) Dequeue(ctx context.Context, timeout time.Duration) (*model.QueueEntry, error) {
	res, err := s.rdb.BRPop(ctx, timeout, queueKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	// res is [key, value]
	var w wireEntry
	if err := json.Unmarshal([]byte(res[1]), &w); err != nil {
		return nil, fmt.Errorf("%w: decode entry: %v", apperr.ErrInternal, err)
	}
	entry, err := w.toEntry()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInternal, err)
	}
	return &entry, nil
}

func (s *RedisStore) Requeue(ctx context.Context, entry model.QueueEntry, delay time.Duration) error {
	data, err := json.Marshal(toWire(entry))
	if err != nil {
		return fmt.Errorf("%w: encode entry: %v", apperr.ErrInternal, err)
	}
	due := time.Now().Add(delay).UnixMilli()
	if err := s.rdb.ZAdd(ctx, delayedKey, redis.Z{Score: float64(due), Member: data}).Err(); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

func (s *RedisStore) DeadLetter(ctx context.Context, entry model.QueueEntry) error {
	data, err := json.Marshal(toWire(entry))
	if err != nil {
		return fmt.Errorf("%w: encode entry: %v", apperr.ErrInternal, err)
	}
	if err := s.rdb.LPush(ctx, deadKey, data).Err(); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

func (s *RedisStore) MarkAccounted(ctx context.Context, correlationID string) (bool, error) {
	added, err := s.rdb.SAdd(ctx, accountedKey, correlationID).Result()
	if err != nil {
		return false, wrapUnavailable(err)
	}
	return added == 1, nil
}

func (s *RedisStore) Bump(ctx context.Context, processor model.ProcessorID, bucket int64, amount model.Cents) error {
	key := bucketKey(processor, bucket)
	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, key, "count", 1)
	pipe.HIncrBy(ctx, key, "sum_cents", int64(amount))
	if _, err := pipe.Exec(ctx); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

func (s *RedisStore) RangeSum(ctx context.Context, processor model.ProcessorID, fromBucket, toBucket int64) (int64, model.Cents, error) {
	if toBucket < fromBucket {
		return 0, 0, nil
	}
	n := toBucket - fromBucket + 1
	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.SliceCmd, 0, n)
	for b := fromBucket; b <= toBucket; b++ {
		cmds = append(cmds, pipe.HMGet(ctx, bucketKey(processor, b), "count", "sum_cents"))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, wrapUnavailable(err)
	}

	var totalCount int64
	var totalSum model.Cents
	for _, cmd := range cmds {
		vals := cmd.Val()
		if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
			continue
		}
		count, sum, err := parseBucketFields(vals[0], vals[1])
		if err != nil {
			continue
		}
		totalCount += count
		totalSum += sum
	}
	return totalCount, totalSum, nil
}

func parseBucketFields(rawCount, rawSum any) (int64, model.Cents, error) {
	countStr, ok := rawCount.(string)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected count field type")
	}
	sumStr, ok := rawSum.(string)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected sum field type")
	}
	var count, sum int64
	if _, err := fmt.Sscanf(countStr, "%d", &count); err != nil {
		return 0, 0, err
	}
	if _, err := fmt.Sscanf(sumStr, "%d", &sum); err != nil {
		return 0, 0, err
	}
	return count, model.Cents(sum), nil
}

func (s *RedisStore) GetHealth(ctx context.Context, processor model.ProcessorID) (model.HealthSnapshot, bool, error) {
	data, err := s.rdb.Get(ctx, healthKey(processor)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.HealthSnapshot{}, false, nil
	}
	if err != nil {
		return model.HealthSnapshot{}, false, wrapUnavailable(err)
	}
	var w wireHealth
	if err := json.Unmarshal(data, &w); err != nil {
		return model.HealthSnapshot{}, false, fmt.Errorf("%w: decode health: %v", apperr.ErrInternal, err)
	}
	return w.toSnapshot(), true, nil
}

func (s *RedisStore) SetHealth(ctx context.Context, processor model.ProcessorID, snap model.HealthSnapshot) error {
	data, err := json.Marshal(fromSnapshot(snap))
	if err != nil {
		return fmt.Errorf("%w: encode health: %v", apperr.ErrInternal, err)
	}
	if err := s.rdb.Set(ctx, healthKey(processor), data, 0).Err(); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

func (s *RedisStore) AcquireProbeLock(ctx context.Context, processor model.ProcessorID, instanceID string, ttl time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, healthLockKey(processor), instanceID, ttl).Result()
	if err != nil {
		return false, wrapUnavailable(err)
	}
	return ok, nil
}

type wireHealth struct {
	Failing           bool  `json:"failing"`
	MinResponseTimeMs int64 `json:"minResponseTimeMs"`
	ObservedAtUnixMs  int64 `json:"observedAtUnixMs"`
}

func fromSnapshot(s model.HealthSnapshot) wireHealth {
	return wireHealth{
		Failing:           s.Failing,
		MinResponseTimeMs: s.MinResponseTime.Milliseconds(),
		ObservedAtUnixMs:  s.ObservedAt.UnixMilli(),
	}
}

func (w wireHealth) toSnapshot() model.HealthSnapshot {
	return model.HealthSnapshot{
		Failing:         w.Failing,
		MinResponseTime: time.Duration(w.MinResponseTimeMs) * time.Millisecond,
		ObservedAt:      time.UnixMilli(w.ObservedAtUnixMs).UTC(),
	}
}
