package summary

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/paymentdispatch/intermediary/internal/clock"
	"github.com/paymentdispatch/intermediary/internal/model"
	"github.com/paymentdispatch/intermediary/internal/store"
)

func newTestService(t *testing.T, now time.Time) (*Service, store.Store) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	st := store.NewRedisStoreFromClient(rdb)
	return New(st, clock.Fixed{At: now}), st
}

func TestWindowDefaultsToEpochAndNow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	from, to, err := Window("", "", clock.Fixed{At: now})
	require.NoError(t, err)
	require.Equal(t, int64(0), from)
	require.Equal(t, model.Bucket(now), to)
}

func TestWindowCeilsToFragment(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	from, to, err := Window("2025-06-01T12:00:00.000Z", "2025-06-01T12:00:00.500Z", clock.Fixed{At: now})
	require.NoError(t, err)
	require.Equal(t, model.Bucket(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)), from)
	require.Equal(t, model.Bucket(time.Date(2025, 6, 1, 12, 0, 1, 0, time.UTC)), to)
}

func TestWindowRejectsMalformedTimestamp(t *testing.T) {
	_, _, err := Window("not-a-date", "", clock.Fixed{At: time.Now()})
	require.Error(t, err)
}

func TestWindowRejectsInvertedRange(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	_, _, err := Window("2025-06-01T12:00:05.000Z", "2025-06-01T12:00:00.000Z", clock.Fixed{At: now})
	require.Error(t, err)
}

func TestGetAggregatesPerProcessorWithinWindow(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, st := newTestService(t, base.Add(time.Hour))
	ctx := context.Background()

	require.NoError(t, st.Bump(ctx, model.ProcessorDefault, model.Bucket(base), 1990))
	require.NoError(t, st.Bump(ctx, model.ProcessorDefault, model.Bucket(base.Add(time.Second)), 1000))
	require.NoError(t, st.Bump(ctx, model.ProcessorFallback, model.Bucket(base), 500))
	// Outside the queried window below.
	require.NoError(t, st.Bump(ctx, model.ProcessorDefault, model.Bucket(base.Add(10*time.Second)), 777))

	summary, err := svc.Get(ctx, model.FormatTimestamp(base), model.FormatTimestamp(base.Add(time.Second)))
	require.NoError(t, err)
	require.EqualValues(t, 2, summary.Default.TotalRequests)
	require.Equal(t, model.Cents(2990), summary.Default.TotalAmount)
	require.EqualValues(t, 1, summary.Fallback.TotalRequests)
	require.Equal(t, model.Cents(500), summary.Fallback.TotalAmount)
}

func TestGetWithNoWindowReturnsAllBuckets(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, st := newTestService(t, base.Add(time.Hour))
	ctx := context.Background()

	require.NoError(t, st.Bump(ctx, model.ProcessorDefault, model.Bucket(base), 1990))

	summary, err := svc.Get(ctx, "", "")
	require.NoError(t, err)
	require.EqualValues(t, 1, summary.Default.TotalRequests)
	require.Equal(t, model.Cents(1990), summary.Default.TotalAmount)
}
