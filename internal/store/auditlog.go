package store

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	goBolt "go.etcd.io/bbolt"

	"github.com/paymentdispatch/intermediary/internal/model"
)

// AuditLog is a local, append-only record of successful accounting
// commits, kept only for debugging — spec.md §3's "optionally an
// append-only row used only for audit/debugging". It is never consulted
// by the summary endpoint; the Redis bucket counters (RangeSum) are the
// sole source of truth there.
//
// Adapted from the teacher's internal/database package: the gob-encoded
// CRUD-over-BoltDB shape is kept, but the record and its key axis change —
// rows are keyed by a time-sortable ULID rather than correlationId, since
// a correlationId is meant to appear at most once (I1) and using it as the
// audit key would hide a double-write bug instead of surfacing it.
type AuditLog struct {
	db *goBolt.DB
}

const auditBucket = "accounting_audit"

// OpenAuditLog opens (creating if absent) a BoltDB file at path.
func OpenAuditLog(path string) (*AuditLog, error) {
	db, err := goBolt.Open(path, 0600, &goBolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	err = db.Update(func(tx *goBolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(auditBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create audit bucket: %w", err)
	}
	return &AuditLog{db: db}, nil
}

func (a *AuditLog) Close() error {
	return a.db.Close()
}

// auditRow is the gob-serialized on-disk shape.
type auditRow struct {
	Processor     model.ProcessorID
	CorrelationID string
	RequestedAt   time.Time
	AmountCents   int64
}

// Append writes one immutable row for rec, keyed by a fresh ULID.
func (a *AuditLog) Append(rec model.AccountingRecord) error {
	row := auditRow{
		Processor:     rec.Processor,
		CorrelationID: rec.CorrelationID,
		RequestedAt:   rec.RequestedAt,
		AmountCents:   int64(rec.Amount),
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(row); err != nil {
		return fmt.Errorf("encode audit row: %w", err)
	}
	key := []byte(ulid.Make().String())
	return a.db.Update(func(tx *goBolt.Tx) error {
		bucket := tx.Bucket([]byte(auditBucket))
		return bucket.Put(key, buf.Bytes())
	})
}

// CountByCorrelationID returns how many audit rows exist for
// correlationID — used by tests to verify I1 (at most one accounting row
// per payment) independently of the Redis idempotency set.
func (a *AuditLog) CountByCorrelationID(correlationID string) (int, error) {
	count := 0
	err := a.db.View(func(tx *goBolt.Tx) error {
		bucket := tx.Bucket([]byte(auditBucket))
		return bucket.ForEach(func(_, v []byte) error {
			var row auditRow
			if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&row); err != nil {
				return err
			}
			if row.CorrelationID == correlationID {
				count++
			}
			return nil
		})
	})
	return count, err
}
