package processing

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"testing"
	"time"

	"github.com/DCSO/mtucorr/input"
	"github.com/DCSO/mtucorr/types"

	"github.com/stretchr/testify/assert"
)

func makeRslvTestSource() (*testSource, time.Time) {
	src := makeTestSource()
	ts := time.Date(2023, 7, 5, 9, 10, 0, 0, time.UTC)
	// flagged: 1500 - 28 = 1472 > 1400
	src.Add(ts, "198.51.100.1", "UDP", makeQueryMessage("aaaaaa-1688548200-6012-rslv.1500.pmtu4.rootcanary.net.", "A", 1232))
	src.Add(ts, "198.51.100.1", "TCP", makeQueryMessage("aaaaaa-1688548200-6012-rslv.1500.pmtu4.rootcanary.net.", "A", 1400))
	src.Add(ts, "198.51.100.1", "TCP", makeQueryMessage("aaaaaa-1688548200-6012-rslv.1500.pmtu4.rootcanary.net.", "A", 1400))
	// later UDP query with the same variable section is not joined
	src.Add(ts, "198.51.100.9", "UDP", makeQueryMessage("aaaaaa-1688548200-6012-rslv.1280.pmtu4.other.net.", "A", 1232))
	// not flagged: 1280 - 28 = 1252 <= 1400
	src.Add(ts, "198.51.100.2", "UDP", makeQueryMessage("bbbbbb-1688548201-6013-rslv.1280.pmtu4.rootcanary.net.", "A", 1232))
	src.Add(ts, "198.51.100.2", "TCP", makeQueryMessage("bbbbbb-1688548201-6013-rslv.1280.pmtu4.rootcanary.net.", "A", 1400))
	// TCP without UDP attempt
	src.Add(ts, "198.51.100.3", "TCP", makeQueryMessage("cccccc-1688548202-6014-rslv.1500.pmtu4.rootcanary.net.", "A", 1000))
	// incomplete TCP record (no EDNS)
	src.Add(ts, "198.51.100.4", "UDP", makeQueryMessage("dddddd-1688548203-6015-rslv.1500.pmtu4.rootcanary.net.", "A", 1232))
	src.Add(ts, "198.51.100.4", "TCP", makeQueryMessage("dddddd-1688548203-6015-rslv.1500.pmtu4.rootcanary.net.", "A", 0))
	// stub hop
	src.Add(ts, "198.51.100.5", "UDP", makeQueryMessage("eeeeee-1688548204-6016-stub.1500.pmtu4.rootcanary.net.", "A", 1232))
	src.Add(ts, "198.51.100.5", "TCP", makeQueryMessage("eeeeee-1688548204-6016-stub.1500.pmtu4.rootcanary.net.", "A", 1000))
	// IPv6: 1500 - 48 = 1452 > 1232
	src.Add(ts, "2001:db8::1", "UDP", makeQueryMessage("ffffff-1688548205-6017-rslv.1500.pmtu6.rootcanary.net.", "AAAA", 1232))
	src.Add(ts, "2001:db8::1", "TCP", makeQueryMessage("ffffff-1688548205-6017-rslv.1500.pmtu6.rootcanary.net.", "AAAA", 1232))
	// padding
	src.Add(ts, "2001:db8::2", "UDP", makeQueryMessage("gggggg-1688548206-6018-rslv.xx.1500.pmtu6.rootcanary.net.", "AAAA", 1232))
	src.Add(ts, "2001:db8::2", "TCP", makeQueryMessage("gggggg-1688548206-6018-rslv.xx.1500.pmtu6.rootcanary.net.", "AAAA", 1232))
	return src, ts
}

func TestFragmentationCorrelatorIPv4(t *testing.T) {
	src, _ := makeRslvTestSource()
	c := MakeFragmentationCorrelator(input.MakeLogReader(src))
	begin := time.Date(2023, 7, 5, 9, 0, 0, 0, time.UTC)

	res, err := c.Correlate(4, begin, begin.Add(time.Hour-time.Second), 100)
	if err != nil {
		t.Fatal(err)
	}
	assert.Len(t, res.Pairs, 2)
	if assert.Len(t, res.Flagged, 1) {
		p := res.Flagged[0]
		assert.Equal(t, "198.51.100.1", p.TCP.Address)
		assert.Equal(t, "198.51.100.1", p.UDP.Address)
		assert.Equal(t, 1500, p.UDPMTU())
		assert.Equal(t, types.SomeInt(1400), p.TCP.EDNSBufferSize)
	}
	assert.Equal(t, types.QueryStats{TotalQueries: 100, FailedQueries: 1, PercentFailed: 1}, res.Stats())
}

func TestFragmentationCorrelatorIPv6(t *testing.T) {
	src, _ := makeRslvTestSource()
	c := MakeFragmentationCorrelator(input.MakeLogReader(src))
	begin := time.Date(2023, 7, 5, 9, 0, 0, 0, time.UTC)

	res, err := c.Correlate(6, begin, begin.Add(time.Hour-time.Second), 40)
	if err != nil {
		t.Fatal(err)
	}
	assert.Len(t, res.Pairs, 1)
	assert.Equal(t, 1, res.FailedQueries)
	assert.Equal(t, 2.5, res.PercentFailed)
}

func TestFragmentationCorrelatorOtherHour(t *testing.T) {
	src, _ := makeRslvTestSource()
	c := MakeFragmentationCorrelator(input.MakeLogReader(src))
	begin := time.Date(2023, 7, 5, 10, 0, 0, 0, time.UTC)

	res, err := c.Correlate(4, begin, begin.Add(time.Hour-time.Second), 100)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 0, res.FailedQueries)
	assert.Equal(t, 0.0, res.PercentFailed)
}

func TestFragmentationCorrelatorNoQueries(t *testing.T) {
	src, _ := makeRslvTestSource()
	c := MakeFragmentationCorrelator(input.MakeLogReader(src))
	begin := time.Date(2023, 7, 5, 9, 0, 0, 0, time.UTC)
	_, err := c.Correlate(4, begin, begin.Add(time.Hour), 0)
	assert.ErrorIs(t, err, ErrNoQueries)
}

func TestPairAtMostOne(t *testing.T) {
	mk := func(vs string, query string, proto types.SocketProtocol) types.NormalizedRecord {
		return types.NormalizedRecord{
			Query:           query,
			VariableSection: vs,
			Protocol:        proto,
		}
	}
	tcp := Table{
		mk("a", "a.1", types.ProtoTCP),
		mk("b", "b.1", types.ProtoTCP),
		mk("c", "c.1", types.ProtoTCP),
	}
	udp := Table{
		mk("a", "a.1", types.ProtoUDP),
		mk("a", "a.2", types.ProtoUDP),
		mk("c", "c.1", types.ProtoUDP),
	}
	pairs := Pair(tcp, udp)
	if assert.Len(t, pairs, 2) {
		assert.Equal(t, "a.1", pairs[0].UDP.Query)
		assert.Equal(t, "c.1", pairs[1].UDP.Query)
	}
}

func TestHeaderOverhead(t *testing.T) {
	v, ok := HeaderOverhead(4)
	assert.True(t, ok)
	assert.Equal(t, 28, v)
	v, ok = HeaderOverhead(6)
	assert.True(t, ok)
	assert.Equal(t, 48, v)
	_, ok = HeaderOverhead(5)
	assert.False(t, ok)
}
