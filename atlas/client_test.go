package atlas

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DCSO/mtucorr/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testResults = `[
 {"msm_id": 25741785, "prb_id": 6012, "timestamp": 1688547600, "type": "dns",
  "resultset": [{"af": 4, "result": {"ANCOUNT": 1}}, {"af": 4, "result": {"ANCOUNT": 1}}]},
 {"msm_id": 25741785, "prb_id": 6013, "timestamp": 1688547700, "type": "dns",
  "error": {"timeout": 5000}, "resultset": [{"af": 4, "error": {"timeout": 5000}}]},
 {"msm_id": 25741785, "prb_id": 6014, "timestamp": 1688551199, "type": "dns",
  "error": {"timeout": 5000}}
]`

func TestClientResults(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/measurements/25741785/results/", r.URL.Path)
		assert.Equal(t, "1688547600", r.URL.Query().Get("start"))
		assert.Equal(t, "1688551199", r.URL.Query().Get("stop"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(testResults))
	}))
	defer ts.Close()

	c := MakeClient(ts.URL, time.Second)
	start := time.Date(2023, 7, 5, 9, 0, 0, 0, time.UTC)
	stop := time.Date(2023, 7, 5, 9, 59, 59, 0, time.UTC)

	res, err := c.Results(context.Background(), 25741785, start, stop)
	require.NoError(t, err)
	require.Len(t, res, 3)

	_, err = c.Results(context.Background(), 25741785, start, stop)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "second call should be cached")

	failures := FailureReports(res)
	assert.Equal(t, []types.FailureReport{
		{ProbeID: 6013, Timestamp: time.Unix(1688547700, 0).UTC()},
		{ProbeID: 6014, Timestamp: time.Unix(1688551199, 0).UTC()},
	}, failures)
	assert.Equal(t, 3, CountQueries(res))
}

func TestClientNoData(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "not found"}`, http.StatusNotFound)
	}))
	defer ts.Close()

	c := MakeClient(ts.URL, time.Second)
	_, err := c.Results(context.Background(), 1, time.Unix(0, 0), time.Unix(3599, 0))
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}
