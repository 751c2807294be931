package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const finderBody = `{"resultSets":[{"name":"LeagueGameFinderResults","headers":["GAME_ID"],"rowSet":[["0022500001"]]}]}`

func newTestClient(url string, maxRetries int) *Client {
	return New(url, 5*time.Second, maxRetries, time.Millisecond)
}

func TestClient_RetriesTransientStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(finderBody))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 3)
	tables, err := c.LeagueGameFinder(context.Background(), "2025-26", "00", "Regular Season")
	require.NoError(t, err, "Should succeed after transient failures")
	require.Len(t, tables, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "Should have retried twice before succeeding")
}

func TestClient_PermanentStatusNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 3)
	_, err := c.BoxScoreSummary(context.Background(), "0022500001")
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.False(t, statusErr.Transient())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "Permanent errors must not be retried")
}

func TestClient_RetryBudgetExhausted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 2)
	_, err := c.BoxScoreSummary(context.Background(), "0022500001")
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.True(t, statusErr.Transient())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "Initial attempt plus two retries")
}

func TestClient_SendsStatsHeaders(t *testing.T) {
	var gotOrigin, gotReferer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOrigin = r.Header.Get("x-nba-stats-origin")
		gotReferer = r.Header.Get("Referer")
		w.Write([]byte(finderBody))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 0)
	_, err := c.LeagueGameFinder(context.Background(), "2025-26", "00", "Regular Season")
	require.NoError(t, err)
	assert.Equal(t, "stats", gotOrigin)
	assert.Equal(t, "https://stats.nba.com/", gotReferer)
}

func TestClient_BoxScoreAdvancedParams(t *testing.T) {
	var query map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Write([]byte(`{"resultSets":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 0)
	_, err := c.BoxScoreAdvanced(context.Background(), "0022500366", 4, 4)
	require.NoError(t, err)
	assert.Equal(t, "0022500366", query["GameID"][0])
	assert.Equal(t, "4", query["StartPeriod"][0])
	assert.Equal(t, "4", query["EndPeriod"][0])
	assert.Equal(t, "0", query["RangeType"][0])
}

func TestClient_ThrottleRespectsCancellation(t *testing.T) {
	c := newTestClient("http://localhost", 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Throttle(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}
