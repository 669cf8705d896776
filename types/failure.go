package types

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"bytes"
	"encoding/json"
	"time"
)

// FailureReport is an active measurement result for a probe that did not
// receive a response in the given time window.
type FailureReport struct {
	ProbeID   int
	Timestamp time.Time
}

// AtlasResultSetEntry is a single query attempt within an Atlas DNS result.
type AtlasResultSetEntry struct {
	Time     int64           `json:"time,omitempty"`
	AF       int             `json:"af,omitempty"`
	DestAddr string          `json:"dst_addr,omitempty"`
	Proto    string          `json:"proto,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    json.RawMessage `json:"error,omitempty"`
}

// AtlasResult is one result object as returned by the RIPE Atlas results
// API for a DNS measurement.
type AtlasResult struct {
	MsmID     int                   `json:"msm_id"`
	PrbID     int                   `json:"prb_id"`
	Timestamp int64                 `json:"timestamp"`
	Type      string                `json:"type,omitempty"`
	From      string                `json:"from,omitempty"`
	ResultSet []AtlasResultSetEntry `json:"resultset,omitempty"`
	// Error is set if the probe did not get a response. Its content is
	// not interpreted, only its presence.
	Error json.RawMessage `json:"error,omitempty"`
}

// Failed returns true if the result carries an error marker.
func (r *AtlasResult) Failed() bool {
	return len(r.Error) > 0 && !bytes.Equal(r.Error, []byte("null"))
}
