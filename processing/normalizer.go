package processing

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"iter"
	"strconv"
	"strings"

	"github.com/DCSO/mtucorr/types"

	"github.com/miekg/dns"
)

const (
	questionMarker = "QUESTION SECTION:\n;"
	recordMarker   = "IN\t "
	udpSizeMarker  = "udp: "
	idMarker       = "id: "
)

// Normalize extracts a NormalizedRecord from a log line. It returns false if
// the query message has no question section.
func Normalize(l types.LogLine) (types.NormalizedRecord, bool) {
	qm := l.QueryMessage

	_, after, found := strings.Cut(qm, questionMarker)
	if !found {
		return types.NormalizedRecord{}, false
	}
	query, _, _ := strings.Cut(after, "\t")
	query = strings.ToLower(query)

	rec := types.NormalizedRecord{
		Time:     l.QueryTime,
		Address:  l.QueryAddress,
		Protocol: l.SocketProtocol,
		Query:    query,
		Identity: DecodeQueryIdentity(query),
	}

	if _, after, found := strings.Cut(qm, recordMarker); found {
		record, _, _ := strings.Cut(after, "\n")
		rec.Record = types.SomeString(record)
	}

	rec.EDNSBufferSize = ednsBufferSize(qm)

	rec.VariableSection, _, _ = strings.Cut(query, ".")

	return rec, true
}

// ednsBufferSize returns the advertised UDP payload size from the last OPT
// pseudo-record dump in the message.
func ednsBufferSize(qm string) types.OptInt {
	idx := strings.LastIndex(qm, udpSizeMarker)
	if idx < 0 {
		return types.OptInt{}
	}
	size, _, _ := strings.Cut(qm[idx+len(udpSizeMarker):], "\n")
	if _, after, found := strings.Cut(size, idMarker); found {
		size = after
	}
	v, err := strconv.Atoi(strings.TrimSpace(size))
	if err != nil {
		return types.OptInt{}
	}
	return types.SomeInt(v)
}

// Table is an ordered list of normalized records.
type Table []types.NormalizedRecord

// TableStats counts what happened while building a Table.
type TableStats struct {
	Lines     int
	Malformed int
}

// BuildTable normalizes all lines in the given sequence, dropping lines
// without a question section.
func BuildTable(lines iter.Seq[types.LogLine]) (Table, TableStats) {
	var t Table
	var stats TableStats
	for l := range lines {
		stats.Lines++
		rec, ok := Normalize(l)
		if !ok {
			stats.Malformed++
			continue
		}
		t = append(t, rec)
	}
	return t, stats
}

// Filter returns the records for which keep returns true, in order.
func (t Table) Filter(keep func(*types.NormalizedRecord) bool) Table {
	var out Table
	for i := range t {
		if keep(&t[i]) {
			out = append(out, t[i])
		}
	}
	return out
}

// Unique removes all but the first record for each key, keeping order.
func (t Table) Unique(key func(*types.NormalizedRecord) string) Table {
	seen := make(map[string]struct{}, len(t))
	var out Table
	for i := range t {
		k := key(&t[i])
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t[i])
	}
	return out
}

// RecordTypeForIP returns the DNS record type queried for addresses of the
// given IP version.
func RecordTypeForIP(ip int) (string, bool) {
	switch ip {
	case 4:
		return dns.TypeToString[dns.TypeA], true
	case 6:
		return dns.TypeToString[dns.TypeAAAA], true
	}
	return "", false
}
