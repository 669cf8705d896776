package processing

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"errors"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/DCSO/mtucorr/input"
	"github.com/DCSO/mtucorr/types"

	"github.com/stretchr/testify/assert"
)

func makeStubTestSource() (*testSource, time.Time) {
	src := makeTestSource()
	ts := time.Date(2023, 7, 5, 9, 10, 0, 0, time.UTC)
	// two distinct queries of probe 6012, one logged twice
	src.Add(ts, "192.0.2.1", "UDP", makeQueryMessage("abcdef-1688548200-6012-stub.1500.pmtu4.rootcanary.net.", "A", 1232))
	src.Add(ts, "192.0.2.1", "UDP", makeQueryMessage("abcdef-1688548200-6012-stub.1500.pmtu4.rootcanary.net.", "A", 1232))
	src.Add(ts, "192.0.2.1", "UDP", makeQueryMessage("ghijkl-1688548201-6012-stub.1500.pmtu4.rootcanary.net.", "A", 1232))
	src.Add(ts, "192.0.2.2", "UDP", makeQueryMessage("mnopqr-1688548202-6013-stub.1400.pmtu4.rootcanary.net.", "A", 1232))
	// not failed
	src.Add(ts, "192.0.2.3", "UDP", makeQueryMessage("stuvwa-1688548203-6014-stub.1400.pmtu4.rootcanary.net.", "A", 1232))
	// other IP version
	src.Add(ts, "2001:db8::2", "UDP", makeQueryMessage("mnopqr-1688548202-6013-stub.1280.pmtu6.rootcanary.net.", "AAAA", 1232))
	// other hop
	src.Add(ts, "192.0.2.1", "UDP", makeQueryMessage("bcdefg-1688548204-6012-rslv.1500.pmtu4.rootcanary.net.", "A", 1232))
	// padding
	src.Add(ts, "192.0.2.2", "UDP", makeQueryMessage("xyzabc-1688548205-6013-stub.1500.pmtu4.rootcanary.net.", "A", 1232))
	// non-numeric probe
	src.Add(ts, "192.0.2.2", "UDP", makeQueryMessage("abcdef-1688548206-foo-stub.1500.pmtu4.rootcanary.net.", "A", 1232))
	return src, ts
}

func TestStubCorrelator(t *testing.T) {
	src, ts := makeStubTestSource()
	c := MakeStubCorrelator(input.MakeLogReader(src))

	failures := []types.FailureReport{
		{ProbeID: 6013, Timestamp: ts.Add(10 * time.Minute)},
		{ProbeID: 6012, Timestamp: ts},
		{ProbeID: 6013, Timestamp: ts.Add(20 * time.Minute)},
		{ProbeID: 9999, Timestamp: ts},
	}
	res, err := c.Correlate(failures, 4, 80)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 2.0, res.FailedQueries)
	assert.Equal(t, 80, res.TotalQueries)
	assert.Equal(t, 2.5, res.PercentFailed)
	assert.Equal(t, types.SomeString("1500"), res.MTU)
	if assert.Len(t, res.Rows, 2) {
		p0, _ := res.Rows[0].NumericProbeID()
		p1, _ := res.Rows[1].NumericProbeID()
		assert.Equal(t, 6012, p0)
		assert.Equal(t, 6013, p1)
	}
	assert.Equal(t, types.QueryStats{TotalQueries: 80, FailedQueries: 2, PercentFailed: 2.5}, res.Stats())
}

func TestStubCorrelatorIPv6(t *testing.T) {
	src, ts := makeStubTestSource()
	c := MakeStubCorrelator(input.MakeLogReader(src))
	res, err := c.Correlate([]types.FailureReport{{ProbeID: 6013, Timestamp: ts}}, 6, 10)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 1.0, res.FailedQueries)
	assert.Equal(t, 10.0, res.PercentFailed)
	assert.Equal(t, types.SomeString("1280"), res.MTU)
}

func TestStubCorrelatorNoFailures(t *testing.T) {
	src, _ := makeStubTestSource()
	c := MakeStubCorrelator(input.MakeLogReader(src))

	res, err := c.Correlate(nil, 4, 80)
	if !errors.Is(err, ErrNoUsableCorrelation) {
		t.Fatalf("expected ErrNoUsableCorrelation, got %v", err)
	}
	assert.True(t, math.IsNaN(res.FailedQueries))
}

func TestStubCorrelatorNoMatches(t *testing.T) {
	src, ts := makeStubTestSource()
	c := MakeStubCorrelator(input.MakeLogReader(src))

	res, err := c.Correlate([]types.FailureReport{{ProbeID: 9999, Timestamp: ts}}, 4, 80)
	if !errors.Is(err, ErrNoUsableCorrelation) {
		t.Fatalf("expected ErrNoUsableCorrelation, got %v", err)
	}
	assert.True(t, math.IsNaN(res.FailedQueries))

	// logs for another hour are not read
	_, err = c.Correlate([]types.FailureReport{{ProbeID: 6012, Timestamp: ts.Add(time.Hour)}}, 4, 80)
	assert.ErrorIs(t, err, ErrNoUsableCorrelation)
}

func TestStubCorrelatorNoQueries(t *testing.T) {
	src, ts := makeStubTestSource()
	c := MakeStubCorrelator(input.MakeLogReader(src))
	_, err := c.Correlate([]types.FailureReport{{ProbeID: 6012, Timestamp: ts}}, 4, 0)
	assert.ErrorIs(t, err, ErrNoQueries)
}

func TestStubCorrelatorInvalidIP(t *testing.T) {
	c := MakeStubCorrelator(input.MakeLogReader(makeTestSource()))
	_, err := c.Correlate(nil, 5, 80)
	assert.Error(t, err)
}

func TestPercentOf(t *testing.T) {
	assert.Equal(t, 2.5, PercentOf(5, 200))
	assert.Equal(t, 33.33, PercentOf(1, 3))
	assert.Equal(t, 66.67, PercentOf(2, 3))
	assert.Equal(t, 0.0, PercentOf(0, 7))
}

func TestCompareMTU(t *testing.T) {
	assert.Positive(t, compareMTU(some("900"), some("1500")))
	assert.Negative(t, compareMTU(some("1280"), some("900")))
	assert.Positive(t, compareMTU(some("1500"), some("1280")))
	assert.Zero(t, compareMTU(some("1500"), some("1500")))
	assert.Negative(t, compareMTU(some("1500"), absent))
	assert.Positive(t, compareMTU(absent, some("1500")))
	assert.Zero(t, compareMTU(absent, absent))
	assert.Negative(t, compareMTU(some("1500"), some("abc")))
}

func TestModeMTU(t *testing.T) {
	mk := func(mtus ...types.OptString) Table {
		var tb Table
		for _, m := range mtus {
			tb = append(tb, types.NormalizedRecord{
				Identity: types.QueryIdentity{MTU: m},
			})
		}
		return tb
	}
	assert.Equal(t, some("1400"), modeMTU(mk(some("1500"), some("1400"), some("1400"))))
	// ties go to the first value
	assert.Equal(t, some("1280"), modeMTU(mk(some("1280"), some("1500"), some("1500"), some("1280"))))
	assert.Equal(t, some("1500"), modeMTU(mk(absent, absent, some("1500"))))
	assert.Equal(t, absent, modeMTU(mk(absent)))
	assert.Equal(t, absent, modeMTU(nil))

	// after sorting, tied values of different width resolve in string order
	tb := mk(some("900"), some("1280"))
	slices.SortStableFunc(tb, func(a, b types.NormalizedRecord) int {
		return compareMTU(a.Identity.MTU, b.Identity.MTU)
	})
	assert.Equal(t, some("1280"), modeMTU(tb))
}
