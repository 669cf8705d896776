package types

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"strings"
)

// PaddingMarker is the character the experiment's naming scheme uses to pad
// query names. Query names containing it do not carry protocol data.
const PaddingMarker = "x"

// QueryIdentity holds the experiment metadata encoded in a DNS query name.
type QueryIdentity struct {
	ProbeID      OptString `json:"probe_id"`
	ResolverType OptString `json:"resolver_type"`
	MTU          OptString `json:"mtu"`
}

// NormalizedRecord is a single parsed DNS query observation.
type NormalizedRecord struct {
	Time     string         `json:"time"`
	Address  string         `json:"address"`
	Protocol SocketProtocol `json:"protocol"`
	// Query is the lower-cased query name as found in the question section.
	Query    string        `json:"dns_query"`
	Identity QueryIdentity `json:"identity"`
	// Record is the queried DNS record type, e.g. "A" or "AAAA".
	Record         OptString `json:"record"`
	EDNSBufferSize OptInt    `json:"edns_buffer_size"`
	// VariableSection is the left-most label of the query name, used to
	// match a UDP attempt with its TCP retry.
	VariableSection string `json:"variable_section"`
}

// NumericProbeID returns the probe ID as an integer. Records with absent or
// non-numeric probe IDs return false and never match any probe.
func (r *NormalizedRecord) NumericProbeID() (int, bool) {
	return r.Identity.ProbeID.Int()
}

// HasPadding returns true if the query name contains the padding marker.
func (r *NormalizedRecord) HasPadding() bool {
	return strings.Contains(r.Query, PaddingMarker)
}
