package atlas

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/DCSO/mtucorr/types"

	"github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
)

// DefaultBaseURL is the RIPE Atlas REST API endpoint.
const DefaultBaseURL = "https://atlas.ripe.net/api/v2"

const defaultTimeout = 60 * time.Second

// ErrNoData is returned if the API has no results for a measurement.
var ErrNoData = errors.New("no data found for measurement")

// Client fetches measurement results from the RIPE Atlas API. Results are
// cached per measurement and time range for the lifetime of the client.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Cache   *cache.Cache
	Logger  *log.Entry
}

// MakeClient returns a new Client for the API at the given base URL.
func MakeClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		BaseURL: baseURL,
		HTTP: &http.Client{
			Timeout: timeout,
		},
		Cache: cache.New(cache.NoExpiration, 0),
		Logger: log.WithFields(log.Fields{
			"domain": "atlas",
		}),
	}
}

func cacheKey(msmID int, start, stop time.Time) string {
	return fmt.Sprintf("%d/%d/%d", msmID, start.Unix(), stop.Unix())
}

// Results returns all results of the given measurement between start and
// stop (inclusive).
func (c *Client) Results(ctx context.Context, msmID int, start, stop time.Time) ([]types.AtlasResult, error) {
	key := cacheKey(msmID, start, stop)
	if v, ok := c.Cache.Get(key); ok {
		return v.([]types.AtlasResult), nil
	}

	q := url.Values{}
	q.Set("start", strconv.FormatInt(start.Unix(), 10))
	q.Set("stop", strconv.FormatInt(stop.Unix(), 10))
	u := fmt.Sprintf("%s/measurements/%d/results/?%s", c.BaseURL, msmID, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	l := c.Logger.WithFields(log.Fields{
		"msm_id": msmID,
		"start":  start.UTC(),
		"stop":   stop.UTC(),
	})
	l.Debug("fetching results")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w %d: %v", ErrNoData, msmID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w %d: HTTP status %s", ErrNoData, msmID, resp.Status)
	}

	var results []types.AtlasResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("%w %d: %v", ErrNoData, msmID, err)
	}
	if len(results) == 0 {
		l.Warn("no results for measurement")
	}
	c.Cache.Set(key, results, cache.NoExpiration)
	return results, nil
}

// FailureReports returns a failure report for each result with an error
// marker.
func FailureReports(results []types.AtlasResult) []types.FailureReport {
	var reports []types.FailureReport
	for i := range results {
		if !results[i].Failed() {
			continue
		}
		reports = append(reports, types.FailureReport{
			ProbeID:   results[i].PrbID,
			Timestamp: time.Unix(results[i].Timestamp, 0).UTC(),
		})
	}
	return reports
}

// CountQueries returns the number of queries issued in the given results.
func CountQueries(results []types.AtlasResult) int {
	n := 0
	for i := range results {
		n += len(results[i].ResultSet)
	}
	return n
}
