package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/paymentdispatch/intermediary/internal/clock"
	"github.com/paymentdispatch/intermediary/internal/ingestion"
	"github.com/paymentdispatch/intermediary/internal/model"
	"github.com/paymentdispatch/intermediary/internal/store"
	"github.com/paymentdispatch/intermediary/internal/summary"
)

func newTestRouter(t *testing.T, now time.Time) http.Handler {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	st := store.NewRedisStoreFromClient(rdb)
	clk := clock.Fixed{At: now}
	ingest := ingestion.New(st, clk)
	summarySvc := summary.New(st, clk)
	return NewRouter(ingest, summarySvc, zap.NewNop())
}

func TestPostPaymentsAccepted(t *testing.T) {
	router := newTestRouter(t, time.Now())
	body, _ := json.Marshal(ingestion.Request{CorrelationID: "a", Amount: 19.90})
	req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)
}

func TestPostPaymentsValidationFailure(t *testing.T) {
	router := newTestRouter(t, time.Now())
	body, _ := json.Marshal(ingestion.Request{CorrelationID: "", Amount: 19.90})
	req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPostPaymentsMalformedBody(t *testing.T) {
	router := newTestRouter(t, time.Now())
	req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGetSummaryReturnsTotals(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	router := newTestRouter(t, now)

	body, _ := json.Marshal(ingestion.Request{CorrelationID: "a", Amount: 19.90, RequestedAt: model.FormatTimestamp(now)})
	postReq := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewReader(body))
	postRec := httptest.NewRecorder()
	router.ServeHTTP(postRec, postReq)
	require.Equal(t, http.StatusAccepted, postRec.Code)

	// The dispatch worker pool isn't running in this test, so the entry sits
	// on the queue and the summary below reflects zero accounted payments.
	getReq := httptest.NewRequest(http.MethodGet, "/payments-summary", nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, getReq)
	require.Equal(t, http.StatusOK, getRec.Code)

	var resp summaryResponse
	require.NoError(t, json.NewDecoder(getRec.Body).Decode(&resp))
	// Nothing has been dispatched/accounted yet — still zero.
	require.Equal(t, int64(0), resp.Default.TotalRequests)
}

func TestGetSummaryInvalidWindow(t *testing.T) {
	router := newTestRouter(t, time.Now())
	req := httptest.NewRequest(http.MethodGet, "/payments-summary?from=not-a-date", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, time.Now())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
