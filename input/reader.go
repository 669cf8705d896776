package input

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"errors"
	"iter"
	"sync/atomic"
	"time"

	"github.com/DCSO/mtucorr/types"
	"github.com/DCSO/mtucorr/util"

	log "github.com/sirupsen/logrus"
)

// LogReader turns a set of hours into a sequence of log lines read from a
// LogSource.
type LogReader struct {
	Source    LogSource
	Logger    *log.Entry
	LinesRead atomic.Uint64
}

// MakeLogReader returns a new LogReader reading from the given source.
func MakeLogReader(src LogSource) *LogReader {
	return &LogReader{
		Source: src,
		Logger: log.WithFields(log.Fields{
			"domain": "reader",
			"source": src.GetName(),
		}),
	}
}

// Identifiers maps the given hours to source identifiers, removing duplicates
// but keeping the order of first occurrence.
func (r *LogReader) Identifiers(hours []time.Time) []string {
	seen := make(map[string]struct{}, len(hours))
	ids := make([]string, 0, len(hours))
	for _, h := range hours {
		id := r.Source.Identifier(h)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// Lines returns a sequence of all parseable log lines for the given hours.
// Each identifier is read at most once per iteration. Unavailable sources
// are skipped with a warning; the first unparseable line ends the current
// source with a warning. Iterating the sequence again rereads the sources.
func (r *LogReader) Lines(hours []time.Time) iter.Seq[types.LogLine] {
	ids := r.Identifiers(hours)
	return func(yield func(types.LogLine) bool) {
		for _, id := range ids {
			if !r.readSource(id, yield) {
				return
			}
		}
	}
}

// readSource yields the lines of one source and returns false if the consumer
// asked to stop.
func (r *LogReader) readSource(id string, yield func(types.LogLine) bool) bool {
	lines, err := r.Source.Open(id)
	if err != nil {
		r.Logger.WithField("id", id).Warnf("log source unavailable: %v", err)
		return true
	}
	var lineNo uint64
	for raw, err := range lines {
		lineNo++
		if err != nil {
			r.Logger.WithFields(log.Fields{
				"id":   id,
				"line": lineNo,
			}).Warnf("error reading log source, skipping rest: %v", err)
			return true
		}
		l, err := util.ParseLogLine(raw)
		if err != nil {
			if errors.Is(err, util.ErrNoMessage) {
				r.Logger.WithField("id", id).Debug("skipping line without message")
				continue
			}
			r.Logger.WithFields(log.Fields{
				"id":   id,
				"line": lineNo,
			}).Warnf("malformed log line, skipping rest of source: %v", err)
			return true
		}
		r.LinesRead.Add(1)
		l.Source = id
		if !yield(l) {
			return false
		}
	}
	return true
}

// HourRange returns the hours begin, begin+1h, ... strictly before end.
func HourRange(begin, end time.Time) []time.Time {
	var hours []time.Time
	for h := begin; h.Before(end); h = h.Add(time.Hour) {
		hours = append(hours, h)
	}
	return hours
}

// FailureHours returns the hours in which the given failures were reported,
// in report order.
func FailureHours(reports []types.FailureReport) []time.Time {
	hours := make([]time.Time, 0, len(reports))
	for _, rep := range reports {
		hours = append(hours, rep.Timestamp.UTC().Truncate(time.Hour))
	}
	return hours
}
