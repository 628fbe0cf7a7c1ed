// Package store implements the Shared Store Client described in spec.md
// §4.2: a thin client over Redis providing the list/counter/cache
// operations the ingestion handler, worker pool, health oracle, and
// summary endpoint all share. A second file (auditlog.go) implements the
// optional local append-only audit trail over BoltDB.
package store

import (
	"context"
	"time"

	"github.com/paymentdispatch/intermediary/internal/model"
)

// Store is the Shared Store Client interface. One implementation
// (RedisStore) backs production; tests exercise it against miniredis.
type Store interface {
	// Enqueue appends entry to the FIFO work queue.
	Enqueue(ctx context.Context, entry model.QueueEntry) error

	// Dequeue blocks up to timeout for an entry, returning nil if none
	// arrived (not an error — idle workers are expected to loop).
	Dequeue(ctx context.Context, timeout time.Duration) (*model.QueueEntry, error)

	// Requeue re-inserts entry at the tail after delay has elapsed.
	Requeue(ctx context.Context, entry model.QueueEntry, delay time.Duration) error

	// DeadLetter records an entry that exhausted retries or hit a
	// permanent failure; it will not be retried automatically.
	DeadLetter(ctx context.Context, entry model.QueueEntry) error

	// MarkAccounted atomically adds correlationID to the idempotency set,
	// returning true iff it was not already present (I1).
	MarkAccounted(ctx context.Context, correlationID string) (bool, error)

	// Bump increments the count/sum pair for (processor, bucket).
	Bump(ctx context.Context, processor model.ProcessorID, bucket int64, amount model.Cents) error

	// RangeSum sums counts/sums over buckets in [fromBucket, toBucket].
	RangeSum(ctx context.Context, processor model.ProcessorID, fromBucket, toBucket int64) (count int64, sum model.Cents, err error)

	// GetHealth returns the cached snapshot for processor, if any.
	GetHealth(ctx context.Context, processor model.ProcessorID) (snap model.HealthSnapshot, ok bool, err error)

	// SetHealth writes the latest snapshot for processor.
	SetHealth(ctx context.Context, processor model.ProcessorID, snap model.HealthSnapshot) error

	// AcquireProbeLock attempts to become the elected prober for
	// processor for ttl. Returns false if another instance holds it.
	AcquireProbeLock(ctx context.Context, processor model.ProcessorID, instanceID string, ttl time.Duration) (bool, error)
}
