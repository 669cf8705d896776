package types

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"fmt"
)

// QueryStats is the outcome of one correlation for a window.
type QueryStats struct {
	TotalQueries  int
	FailedQueries int
	PercentFailed float64
}

// HourReport is the per-hour output record consumed by reporting tools.
type HourReport struct {
	Datetime string    `json:"datetime"`
	MTU      OptString `json:"mtu"`

	TotalQueriesIPv4Stub  int     `json:"total_queries_ipv4_stub"`
	FailedQueriesIPv4Stub int     `json:"failed_queries_ipv4_stub"`
	PercentFailedIPv4Stub float64 `json:"%failed_queries_ipv4_stub"`
	TotalQueriesIPv6Stub  int     `json:"total_queries_ipv6_stub"`
	FailedQueriesIPv6Stub int     `json:"failed_queries_ipv6_stub"`
	PercentFailedIPv6Stub float64 `json:"%failed_queries_ipv6_stub"`
	TotalQueriesIPv4Rslv  int     `json:"total_queries_ipv4_rslv"`
	FailedQueriesIPv4Rslv int     `json:"failed_queries_ipv4_rslv"`
	PercentFailedIPv4Rslv float64 `json:"%failed_queries_ipv4_rslv"`
	TotalQueriesIPv6Rslv  int     `json:"total_queries_ipv6_rslv"`
	FailedQueriesIPv6Rslv int     `json:"failed_queries_ipv6_rslv"`
	PercentFailedIPv6Rslv float64 `json:"%failed_queries_ipv6_rslv"`
}

// Hop names as used in report keys.
const (
	HopStub = "stub"
	HopRslv = "rslv"
)

// SetStats stores the given stats for a resolver hop and IP version.
func (r *HourReport) SetStats(hop string, ip int, s QueryStats) error {
	var total, failed *int
	var pct *float64
	switch {
	case hop == HopStub && ip == 4:
		total, failed, pct = &r.TotalQueriesIPv4Stub, &r.FailedQueriesIPv4Stub, &r.PercentFailedIPv4Stub
	case hop == HopStub && ip == 6:
		total, failed, pct = &r.TotalQueriesIPv6Stub, &r.FailedQueriesIPv6Stub, &r.PercentFailedIPv6Stub
	case hop == HopRslv && ip == 4:
		total, failed, pct = &r.TotalQueriesIPv4Rslv, &r.FailedQueriesIPv4Rslv, &r.PercentFailedIPv4Rslv
	case hop == HopRslv && ip == 6:
		total, failed, pct = &r.TotalQueriesIPv6Rslv, &r.FailedQueriesIPv6Rslv, &r.PercentFailedIPv6Rslv
	default:
		return fmt.Errorf("unknown hop/IP version combination: %s/%d", hop, ip)
	}
	*total = s.TotalQueries
	*failed = s.FailedQueries
	*pct = s.PercentFailed
	return nil
}
