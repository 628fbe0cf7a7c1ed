package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/paymentdispatch/intermediary/internal/model"
)

func TestAuditLogAppendAndCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	log, err := OpenAuditLog(path)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	rec := model.AccountingRecord{
		Processor:     model.ProcessorDefault,
		CorrelationID: "corr-1",
		RequestedAt:   time.Now().UTC(),
		Amount:        1990,
	}
	require.NoError(t, log.Append(rec))

	count, err := log.CountByCorrelationID("corr-1")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	count, err = log.CountByCorrelationID("missing")
	require.NoError(t, err)
	require.Equal(t, 0, count)
}
