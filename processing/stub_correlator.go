package processing

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/DCSO/mtucorr/input"
	"github.com/DCSO/mtucorr/types"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrNoUsableCorrelation is returned if no stub log record could be
	// matched with any reported failure. The window must not be reported.
	ErrNoUsableCorrelation = errors.New("no log records correlate with reported failures")
	// ErrNoQueries is returned if the measurement reported no queries for
	// a window, so no failure ratio can be given.
	ErrNoQueries = errors.New("no queries reported for window")
)

// StubResult is the outcome of correlating stub resolver logs with failure
// reports.
type StubResult struct {
	TotalQueries int
	// FailedQueries is NaN if no log record could be correlated.
	FailedQueries float64
	PercentFailed float64
	// MTU is the most common MTU among the correlated records.
	MTU types.OptString
	// Rows holds one correlated record per failed probe, sorted by probe ID.
	Rows  Table
	Table TableStats
}

// Stats returns the result as report statistics.
func (r StubResult) Stats() types.QueryStats {
	return types.QueryStats{
		TotalQueries:  r.TotalQueries,
		FailedQueries: int(r.FailedQueries),
		PercentFailed: r.PercentFailed,
	}
}

// StubCorrelator matches queries seen from stub resolvers with the probes
// that reported a failure.
type StubCorrelator struct {
	Reader *input.LogReader
	Logger *log.Entry
}

// MakeStubCorrelator returns a new StubCorrelator reading logs using the
// given reader.
func MakeStubCorrelator(reader *input.LogReader) *StubCorrelator {
	return &StubCorrelator{
		Reader: reader,
		Logger: log.WithFields(log.Fields{
			"domain": "stub",
		}),
	}
}

// PercentOf returns 100*part/total rounded to two decimal places.
func PercentOf(part, total int) float64 {
	return math.Round(100*float64(part)/float64(total)*100) / 100
}

func optKey(o types.OptString) string {
	if !o.Valid {
		return "-"
	}
	return "+" + o.Value
}

func stubRowKey(r *types.NormalizedRecord) string {
	probe, _ := r.NumericProbeID()
	return strings.Join([]string{
		strconv.Itoa(probe),
		optKey(r.Identity.MTU),
		optKey(r.Identity.ResolverType),
		optKey(r.Record),
		r.EDNSBufferSize.String(),
		r.Query,
	}, "\x00")
}

func probeKey(r *types.NormalizedRecord) string {
	probe, _ := r.NumericProbeID()
	return strconv.Itoa(probe)
}

// compareMTU orders MTU values as strings, so "900" sorts after "1500".
// Absent values sort last.
func compareMTU(a, b types.OptString) int {
	switch {
	case !a.Valid && !b.Valid:
		return 0
	case !a.Valid:
		return 1
	case !b.Valid:
		return -1
	}
	return strings.Compare(a.Value, b.Value)
}

// modeMTU returns the most common present MTU value. Ties go to the value
// that occurs first.
func modeMTU(t Table) types.OptString {
	counts := make(map[string]int)
	var order []string
	for i := range t {
		m := t[i].Identity.MTU
		if !m.Valid {
			continue
		}
		if _, ok := counts[m.Value]; !ok {
			order = append(order, m.Value)
		}
		counts[m.Value]++
	}
	var mode types.OptString
	best := 0
	for _, v := range order {
		if counts[v] > best {
			best = counts[v]
			mode = types.SomeString(v)
		}
	}
	return mode
}

// Correlate reads the stub logs for the hours the given failures were
// reported in and counts the failed probes that can be found in the logs,
// for queries of the given IP version. totalQueries is the number of
// queries the measurement issued in the window.
func (c *StubCorrelator) Correlate(failures []types.FailureReport, ip int,
	totalQueries int) (StubResult, error) {
	result := StubResult{
		TotalQueries:  totalQueries,
		FailedQueries: math.NaN(),
		PercentFailed: math.NaN(),
	}
	record, ok := RecordTypeForIP(ip)
	if !ok {
		return result, fmt.Errorf("invalid IP version %d", ip)
	}

	failed := make(map[int]struct{}, len(failures))
	for _, f := range failures {
		failed[f.ProbeID] = struct{}{}
	}

	table, tstats := BuildTable(c.Reader.Lines(input.FailureHours(failures)))
	result.Table = tstats

	joined := table.Filter(func(r *types.NormalizedRecord) bool {
		if r.HasPadding() {
			return false
		}
		if r.Identity.ResolverType != types.SomeString(types.HopStub) {
			return false
		}
		if r.Record != types.SomeString(record) {
			return false
		}
		probe, ok := r.NumericProbeID()
		if !ok {
			return false
		}
		_, ok = failed[probe]
		return ok
	})
	c.Logger.WithFields(log.Fields{
		"ip":       ip,
		"lines":    tstats.Lines,
		"records":  len(table),
		"failures": len(failures),
		"matched":  len(joined),
	}).Debug("stub records correlated")
	if len(joined) == 0 {
		return result, ErrNoUsableCorrelation
	}

	sorted := slices.Clone(joined)
	slices.SortStableFunc(sorted, func(a, b types.NormalizedRecord) int {
		return compareMTU(a.Identity.MTU, b.Identity.MTU)
	})
	collapsed := sorted.Unique(stubRowKey)
	result.MTU = modeMTU(collapsed)

	perProbe := collapsed.Unique(probeKey)
	slices.SortStableFunc(perProbe, func(a, b types.NormalizedRecord) int {
		pa, _ := a.NumericProbeID()
		pb, _ := b.NumericProbeID()
		return pa - pb
	})
	result.Rows = perProbe
	result.FailedQueries = float64(len(perProbe))

	if totalQueries <= 0 {
		return result, ErrNoQueries
	}
	result.PercentFailed = PercentOf(len(perProbe), totalQueries)
	return result, nil
}
