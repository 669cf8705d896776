package util

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"encoding/json"
	"errors"
	"os"
	"strings"

	"github.com/DCSO/mtucorr/types"

	"github.com/buger/jsonparser"
)

// ToolName is a string containing the name of this software, lowercase.
var ToolName = "mtucorr"

// ErrNoMessage is returned for JSON log lines without a "message" subobject.
var ErrNoMessage = errors.New("log line has no message object")

// ErrInvalidJSON is returned for log lines that are not well-formed JSON.
var ErrInvalidJSON = errors.New("log line is not valid JSON")

var logkeys = [][]string{
	[]string{"message", "query_time"},      // 0
	[]string{"message", "query_address"},   // 1
	[]string{"message", "socket_protocol"}, // 2
	[]string{"message", "query_message"},   // 3
}

// ParseLogLine extracts the relevant fields from a dnstap JSON log line, as
// written by the dnstap tool in JSON mode, into a LogLine struct. Missing
// fields are left empty, invalid JSON yields an error.
func ParseLogLine(raw []byte) (l types.LogLine, parseerr error) {
	l = types.LogLine{}
	if !json.Valid(raw) {
		return l, ErrInvalidJSON
	}
	found := false
	jsonparser.EachKey(raw, func(idx int, value []byte, vt jsonparser.ValueType,
		err error) {
		if parseerr != nil {
			return
		}
		if err != nil {
			parseerr = err
			return
		}
		found = true
		switch idx {
		case 0:
			l.QueryTime, err = jsonparser.ParseString(value)
		case 1:
			l.QueryAddress, err = jsonparser.ParseString(value)
		case 2:
			var proto string
			proto, err = jsonparser.ParseString(value)
			l.SocketProtocol = types.SocketProtocol(proto)
		case 3:
			l.QueryMessage, err = jsonparser.ParseString(value)
		}
		if err != nil {
			parseerr = err
		}
	}, logkeys...)
	if parseerr != nil {
		return l, parseerr
	}
	if _, vt, _, err := jsonparser.Get(raw); err != nil || vt != jsonparser.Object {
		if err == nil {
			err = errors.New("log line is not a JSON object")
		}
		return l, err
	}
	if !found {
		if _, _, _, err := jsonparser.Get(raw, "message"); err != nil {
			return l, ErrNoMessage
		}
	}
	return l, nil
}

// GetSensorID returns the machine ID of the system it is being run on, or
// the string "<no_machine_id>"" if the ID cannot be determined.
func GetSensorID() (string, error) {
	if _, err := os.Stat("/etc/machine-id"); os.IsNotExist(err) {
		return "<no_machine_id>", nil
	}
	b, err := os.ReadFile("/etc/machine-id")
	if err != nil {
		return "<no_machine_id>", nil
	}
	return strings.TrimSpace(string(b)), nil
}
