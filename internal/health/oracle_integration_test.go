package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/paymentdispatch/intermediary/internal/model"
	"github.com/paymentdispatch/intermediary/internal/processorclient"
	"github.com/paymentdispatch/intermediary/internal/store"
)

func newIntegrationStore(t *testing.T) store.Store {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return store.NewRedisStoreFromClient(rdb)
}

func healthyServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"failing":false,"minResponseTime":5}`))
	}))
}

func TestProbeOnePublishesSnapshotForElectedInstance(t *testing.T) {
	st := newIntegrationStore(t)
	srv := healthyServer()
	defer srv.Close()

	clients := map[model.ProcessorID]*processorclient.Client{
		model.ProcessorDefault:  processorclient.New(srv.URL, 2),
		model.ProcessorFallback: processorclient.New(srv.URL, 2),
	}
	oracle := New(st, clients, "instance-a", zap.NewNop())

	oracle.probeOne(context.Background(), model.ProcessorDefault, clients[model.ProcessorDefault])

	snap, ok, err := st.GetHealth(context.Background(), model.ProcessorDefault)
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, snap.Failing)
	require.Equal(t, 5*time.Millisecond, snap.MinResponseTime)
}

func TestProbeOneSkipsWhenNotElected(t *testing.T) {
	st := newIntegrationStore(t)
	srv := healthyServer()
	defer srv.Close()

	_, err := st.AcquireProbeLock(context.Background(), model.ProcessorDefault, "other-instance", 5*time.Second)
	require.NoError(t, err)

	clients := map[model.ProcessorID]*processorclient.Client{
		model.ProcessorDefault: processorclient.New(srv.URL, 2),
	}
	oracle := New(st, clients, "instance-a", zap.NewNop())
	oracle.probeOne(context.Background(), model.ProcessorDefault, clients[model.ProcessorDefault])

	_, ok, err := st.GetHealth(context.Background(), model.ProcessorDefault)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOracleChooseReadsThroughToStore(t *testing.T) {
	st := newIntegrationStore(t)
	require.NoError(t, st.SetHealth(context.Background(), model.ProcessorDefault, model.HealthSnapshot{
		Failing: true, ObservedAt: time.Now().UTC(),
	}))
	require.NoError(t, st.SetHealth(context.Background(), model.ProcessorFallback, model.HealthSnapshot{
		Failing: false, MinResponseTime: 20 * time.Millisecond, ObservedAt: time.Now().UTC(),
	}))

	oracle := New(st, map[model.ProcessorID]*processorclient.Client{}, "instance-a", zap.NewNop())
	require.Equal(t, model.ProcessorFallback, oracle.Choose(context.Background()))
}
