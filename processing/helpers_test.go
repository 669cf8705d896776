package processing

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"encoding/json"
	"fmt"
	"iter"
	"time"

	"github.com/DCSO/mtucorr/input"
)

func makeQueryMessage(qname string, rtype string, udpSize int) string {
	qm := ";; opcode: QUERY, status: NOERROR, id: 4711\n" +
		";; flags: cd; QUERY: 1, ANSWER: 0, AUTHORITY: 0, ADDITIONAL: 1\n\n" +
		";; QUESTION SECTION:\n;" + qname + "\tIN\t " + rtype + "\n"
	if udpSize > 0 {
		qm += fmt.Sprintf("\n;; ADDITIONAL SECTION:\n\n;; OPT PSEUDOSECTION:\n; EDNS: version 0; flags: do; udp: %d\n", udpSize)
	}
	return qm
}

func makeLogLine(ts time.Time, addr string, proto string, qm string) string {
	out, err := json.Marshal(map[string]interface{}{
		"type": "MESSAGE",
		"message": map[string]interface{}{
			"type":            "AUTH_QUERY",
			"query_time":      ts.UTC().Format(time.RFC3339Nano),
			"query_address":   addr,
			"socket_protocol": proto,
			"query_message":   qm,
		},
	})
	if err != nil {
		panic(err)
	}
	return string(out)
}

// testSource is a LogSource keeping hourly logs in memory.
type testSource struct {
	Data map[string][]string
}

func makeTestSource() *testSource {
	return &testSource{
		Data: make(map[string][]string),
	}
}

func (s *testSource) GetName() string {
	return "test source"
}

func (s *testSource) Identifier(hour time.Time) string {
	return hour.UTC().Format("2006010215")
}

func (s *testSource) Add(ts time.Time, addr string, proto string, qm string) {
	id := s.Identifier(ts)
	s.Data[id] = append(s.Data[id], makeLogLine(ts, addr, proto, qm))
}

func (s *testSource) Open(id string) (iter.Seq2[[]byte, error], error) {
	lines, ok := s.Data[id]
	if !ok {
		return nil, input.ErrSourceUnavailable
	}
	return func(yield func([]byte, error) bool) {
		for _, l := range lines {
			if !yield([]byte(l), nil) {
				return
			}
		}
	}, nil
}
