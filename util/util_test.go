package util

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"bufio"
	"os"
	"reflect"
	"testing"

	"github.com/DCSO/mtucorr/types"
)

var lines = []types.LogLine{
	types.LogLine{
		QueryTime:      "2020-08-01T13:02:11.53Z",
		QueryAddress:   "192.0.2.53",
		SocketProtocol: types.ProtoUDP,
		QueryMessage:   ";; opcode: QUERY, status: NOERROR, id: 47721\n;; flags: cd; QUERY: 1, ANSWER: 0, AUTHORITY: 0, ADDITIONAL: 1\n\n;; QUESTION SECTION:\n;abcdef-1596286931-6012-stub.1500.pmtu4.rootcanary.net.\tIN\t A\n\n;; ADDITIONAL SECTION:\n\n;; OPT PSEUDOSECTION:\n; EDNS: version 0; flags: do; udp: 1232\n",
	},
	types.LogLine{
		QueryTime:      "2020-08-01T13:02:12.01Z",
		QueryAddress:   "2001:db8::53",
		SocketProtocol: types.ProtoTCP,
		QueryMessage:   ";; opcode: QUERY, status: NOERROR, id: 1771\n;; flags: cd; QUERY: 1, ANSWER: 0, AUTHORITY: 0, ADDITIONAL: 0\n\n;; QUESTION SECTION:\n;ghijkl-1596286932-6013-rslv.1280.pmtu6.rootcanary.net.\tIN\t AAAA\n",
	},
	types.LogLine{
		QueryTime:      "2020-08-01T13:02:13.00Z",
		QueryAddress:   "192.0.2.54",
		SocketProtocol: types.ProtoUDP,
		QueryMessage:   ";; opcode: QUERY, status: NOERROR, id: 4\n",
	},
}

func TestParseLogLine(t *testing.T) {
	f, err := os.Open("testdata/dnstap_sample.json")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	i := 0
	for scanner.Scan() {
		l, err := ParseLogLine(scanner.Bytes())
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(lines[i], l) {
			t.Fatalf("line %d parsed incorrectly:\n%+v\n%+v", i, lines[i], l)
		}
		i++
	}
	if i != len(lines) {
		t.Fatalf("unexpected number of lines: %d", i)
	}
}

func TestParseLogLineInvalid(t *testing.T) {
	for _, in := range []string{
		`{"message": {"query_time": "2020-08-01T13:02:11Z", "query_address":`,
		`this is not JSON`,
		`[1, 2, 3]`,
		``,
		`{"message": {"query_time": "t" "query_message": "q"}}`,
		`{"message": {"query_message": "q"}, garbage}`,
		`{"message": {"query_message": "q"}}trailing`,
	} {
		if _, err := ParseLogLine([]byte(in)); err == nil {
			t.Fatalf("missed error for input %q", in)
		}
	}
}

func TestParseLogLineNoMessage(t *testing.T) {
	_, err := ParseLogLine([]byte(`{"type":"MESSAGE","identity":"ns1"}`))
	if err != ErrNoMessage {
		t.Fatalf("unexpected error: %v", err)
	}
}
