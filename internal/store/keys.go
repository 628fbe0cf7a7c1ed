package store

import (
	"fmt"

	"github.com/paymentdispatch/intermediary/internal/model"
)

// Key conventions, per spec.md §6.
const (
	queueKey     = "payments:queue"
	delayedKey   = "payments:delayed"
	deadKey      = "payments:dead"
	accountedKey = "payments:accounted"
)

func bucketKey(p model.ProcessorID, bucket int64) string {
	return fmt.Sprintf("acct:%s:%d", p, bucket)
}

func healthKey(p model.ProcessorID) string {
	return fmt.Sprintf("health:%s", p)
}

func healthLockKey(p model.ProcessorID) string {
	return fmt.Sprintf("health:lock:%s", p)
}
