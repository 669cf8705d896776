package types

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

// SocketProtocol is the transport a logged DNS query arrived on.
type SocketProtocol string

const (
	// ProtoUDP marks queries received over UDP.
	ProtoUDP SocketProtocol = "UDP"
	// ProtoTCP marks queries received over TCP.
	ProtoTCP SocketProtocol = "TCP"
)

// LogLine is one raw observation as read from a dnstap log source, i.e. the
// contents of the "message" subobject of a single JSON log line.
type LogLine struct {
	QueryTime      string
	QueryAddress   string
	SocketProtocol SocketProtocol
	// QueryMessage is the dig-style text rendering of the DNS query,
	// including the question section and, if present, the EDNS OPT
	// pseudo-section.
	QueryMessage string
	// Source is the identifier of the log source this line was read from.
	Source string
}
