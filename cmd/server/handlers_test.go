package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"stockdash/internal/cache"
	"stockdash/internal/market"
	"stockdash/internal/upstream/yahoo"
)

type fakeQuoter struct {
	quoteFn   func(symbol string) (*yahoo.Quote, error)
	historyFn func(symbol, rng string) ([]yahoo.HistoryPoint, error)
	lastRange string
}

func (f *fakeQuoter) Quote(_ context.Context, symbol string) (*yahoo.Quote, error) {
	return f.quoteFn(symbol)
}

func (f *fakeQuoter) History(_ context.Context, symbol, rng string) ([]yahoo.HistoryPoint, error) {
	f.lastRange = rng
	return f.historyFn(symbol, rng)
}

func newTestRouter(q market.Quoter) http.Handler {
	svc := market.NewService(q, cache.New(), 30*time.Second, 60*time.Second, zap.NewNop())
	return newRouter(svc, "", zap.NewNop())
}

func goodQuoter() *fakeQuoter {
	return &fakeQuoter{
		quoteFn: func(string) (*yahoo.Quote, error) {
			return &yahoo.Quote{Price: 102.5, PreviousClose: 100, Change: 2.5, ChangePercent: 2.5, IsUp: true}, nil
		},
		historyFn: func(string, string) ([]yahoo.HistoryPoint, error) {
			return []yahoo.HistoryPoint{{Time: 1, Price: 10}, {Time: 3, Price: 12}}, nil
		},
	}
}

func TestHandleQuote_OK(t *testing.T) {
	t.Parallel()

	router := newTestRouter(goodQuoter())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/quote/AAPL", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var q yahoo.Quote
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &q))
	assert.Equal(t, 102.5, q.Price)
	assert.True(t, q.IsUp)
}

func TestHandleQuote_FailureIsJSONError(t *testing.T) {
	t.Parallel()

	q := goodQuoter()
	q.quoteFn = func(string) (*yahoo.Quote, error) { return nil, errors.New("upstream status 503") }
	router := newTestRouter(q)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/quote/AAPL", nil))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "upstream status 503", body["error"])
}

func TestHandleBatch_RejectsEmptySymbols(t *testing.T) {
	t.Parallel()

	router := newTestRouter(goodQuoter())
	for _, payload := range []string{`{"symbols":[]}`, `{}`, `not json`} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/batch", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusBadRequest, rr.Code, payload)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		require.Equal(t, "symbols must be a non-empty array", body["error"], payload)
	}
}

func TestHandleBatch_MixedResults(t *testing.T) {
	t.Parallel()

	q := goodQuoter()
	q.quoteFn = func(symbol string) (*yahoo.Quote, error) {
		if symbol == "BAD" {
			return nil, errors.New("boom")
		}
		return &yahoo.Quote{Price: 1, IsUp: true}, nil
	}
	router := newTestRouter(q)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/batch", strings.NewReader(`{"symbols":["GOOD","BAD"]}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body, 2)

	var good yahoo.Quote
	require.NoError(t, json.Unmarshal(body["GOOD"], &good))
	assert.Equal(t, 1.0, good.Price)

	var bad map[string]string
	require.NoError(t, json.Unmarshal(body["BAD"], &bad))
	assert.Equal(t, "boom", bad["error"])
}

func TestHandleHistory_DefaultsRange(t *testing.T) {
	t.Parallel()

	q := goodQuoter()
	router := newTestRouter(q)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/history/AAPL", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "1d", q.lastRange)

	var points []yahoo.HistoryPoint
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &points))
	require.Equal(t, []yahoo.HistoryPoint{{Time: 1, Price: 10}, {Time: 3, Price: 12}}, points)
}

func TestHandleHistory_PassesRangeThrough(t *testing.T) {
	t.Parallel()

	q := goodQuoter()
	router := newTestRouter(q)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/history/AAPL?range=5d", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "5d", q.lastRange)
}

func TestHandleHistory_FailureIsJSONError(t *testing.T) {
	t.Parallel()

	q := goodQuoter()
	q.historyFn = func(string, string) ([]yahoo.HistoryPoint, error) { return nil, errors.New("boom") }
	router := newTestRouter(q)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/history/AAPL", nil))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "boom", body["error"])
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	router := newTestRouter(goodQuoter())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}
