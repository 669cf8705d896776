package processing

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"fmt"
	"time"

	"github.com/DCSO/mtucorr/input"
	"github.com/DCSO/mtucorr/types"

	log "github.com/sirupsen/logrus"
)

// HeaderOverhead returns the IP plus UDP header size for the given IP
// version.
func HeaderOverhead(ip int) (int, bool) {
	switch ip {
	case 4:
		return 28, true
	case 6:
		return 48, true
	}
	return 0, false
}

// FragmentationPair is a TCP query joined with the UDP attempt of the same
// logical query.
type FragmentationPair struct {
	TCP types.NormalizedRecord
	UDP types.NormalizedRecord
}

// UDPMTU returns the MTU of the UDP attempt.
func (p FragmentationPair) UDPMTU() int {
	v, _ := p.UDP.Identity.MTU.Int()
	return v
}

// FragmentationResult is the outcome of correlating resolver hop UDP and
// TCP queries.
type FragmentationResult struct {
	TotalQueries  int
	FailedQueries int
	PercentFailed float64
	// Pairs are all TCP queries with a matching UDP attempt.
	Pairs []FragmentationPair
	// Flagged are the pairs considered fragmentation failures.
	Flagged []FragmentationPair
	Table   TableStats
}

// Stats returns the result as report statistics.
func (r FragmentationResult) Stats() types.QueryStats {
	return types.QueryStats{
		TotalQueries:  r.TotalQueries,
		FailedQueries: r.FailedQueries,
		PercentFailed: r.PercentFailed,
	}
}

// FragmentationCorrelator matches UDP queries at the recursive resolver hop
// with their TCP retries.
type FragmentationCorrelator struct {
	Reader *input.LogReader
	Logger *log.Entry
}

// MakeFragmentationCorrelator returns a new FragmentationCorrelator reading
// logs using the given reader.
func MakeFragmentationCorrelator(reader *input.LogReader) *FragmentationCorrelator {
	return &FragmentationCorrelator{
		Reader: reader,
		Logger: log.WithFields(log.Fields{
			"domain": "rslv",
		}),
	}
}

// complete returns true if all fields the resolver hop analysis needs are
// present and numeric where required.
func complete(r *types.NormalizedRecord) bool {
	if r.Time == "" || r.Address == "" || r.Protocol == "" || r.Query == "" {
		return false
	}
	if !r.Identity.ResolverType.Valid || !r.Record.Valid || !r.EDNSBufferSize.Valid {
		return false
	}
	if _, ok := r.NumericProbeID(); !ok {
		return false
	}
	if _, ok := r.Identity.MTU.Int(); !ok {
		return false
	}
	return true
}

func queryKey(r *types.NormalizedRecord) string {
	return r.Query
}

// Pair joins each TCP record with the first UDP record sharing its variable
// section. TCP records without such a partner are left out.
func Pair(tcp, udp Table) []FragmentationPair {
	byVS := make(map[string]int, len(udp))
	for i := range udp {
		if _, ok := byVS[udp[i].VariableSection]; !ok {
			byVS[udp[i].VariableSection] = i
		}
	}
	var pairs []FragmentationPair
	for i := range tcp {
		j, ok := byVS[tcp[i].VariableSection]
		if !ok {
			continue
		}
		pairs = append(pairs, FragmentationPair{
			TCP: tcp[i],
			UDP: udp[j],
		})
	}
	return pairs
}

// Correlate reads the resolver hop logs for the hours from begin to end and
// counts TCP queries whose UDP attempt advertised a path capacity, minus
// header overhead, larger than the EDNS buffer size of the TCP query.
// totalQueries is the number of queries the measurement issued in the
// window.
func (c *FragmentationCorrelator) Correlate(ip int, begin, end time.Time,
	totalQueries int) (FragmentationResult, error) {
	result := FragmentationResult{
		TotalQueries: totalQueries,
	}
	record, ok := RecordTypeForIP(ip)
	if !ok {
		return result, fmt.Errorf("invalid IP version %d", ip)
	}
	overhead, _ := HeaderOverhead(ip)

	table, tstats := BuildTable(c.Reader.Lines(input.HourRange(begin, end)))
	result.Table = tstats

	rows := table.Filter(func(r *types.NormalizedRecord) bool {
		return complete(r) &&
			r.Identity.ResolverType.Value == types.HopRslv &&
			r.Record.Value == record
	})
	tcp := rows.Filter(func(r *types.NormalizedRecord) bool {
		return r.Protocol == types.ProtoTCP && !r.HasPadding()
	}).Unique(queryKey)
	udp := rows.Filter(func(r *types.NormalizedRecord) bool {
		return r.Protocol == types.ProtoUDP && !r.HasPadding()
	}).Unique(queryKey)

	result.Pairs = Pair(tcp, udp)
	for _, p := range result.Pairs {
		if p.UDPMTU()-overhead > p.TCP.EDNSBufferSize.Value {
			result.Flagged = append(result.Flagged, p)
		}
	}
	result.FailedQueries = len(result.Flagged)

	c.Logger.WithFields(log.Fields{
		"ip":      ip,
		"lines":   tstats.Lines,
		"records": len(rows),
		"tcp":     len(tcp),
		"udp":     len(udp),
		"pairs":   len(result.Pairs),
		"flagged": result.FailedQueries,
	}).Debug("resolver hop records correlated")

	if totalQueries <= 0 {
		return result, ErrNoQueries
	}
	result.PercentFailed = PercentOf(result.FailedQueries, totalQueries)
	return result, nil
}
