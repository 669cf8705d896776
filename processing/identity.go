package processing

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"regexp"
	"strings"

	"github.com/DCSO/mtucorr/types"

	log "github.com/sirupsen/logrus"
)

var (
	reProbeDigits = regexp.MustCompile(`[0-9]{4}`)
	decoderLogger = log.WithFields(log.Fields{
		"domain": "decoder",
	})
)

// identityMatcher decodes a query identity from the dash-separated fields of
// a query name. Match returns false if the matcher does not apply to the
// given number of fields.
type identityMatcher struct {
	Name  string
	Match func(fields []string) (types.QueryIdentity, bool)
}

// identityMatchers are tried in order, the first applicable one wins.
var identityMatchers = []identityMatcher{
	{Name: "normal", Match: matchNormal},
	{Name: "two", Match: matchTwo},
	{Name: "single", Match: matchSingle},
}

func label(s string, i int) (string, bool) {
	labels := strings.Split(s, ".")
	if i >= len(labels) {
		return "", false
	}
	return labels[i], true
}

// matchNormal handles names like
// "<random>-<timestamp>-<probe>-<type>.<mtu>.<zone>".
func matchNormal(fields []string) (types.QueryIdentity, bool) {
	if len(fields) < 4 {
		return types.QueryIdentity{}, false
	}
	id := types.QueryIdentity{}

	probe := fields[2]
	if probe == "" {
		probe = fields[3]
	}
	id.ProbeID = types.SomeString(probe)

	rtype, _ := label(fields[3], 0)
	id.ResolverType = types.SomeString(rtype)

	mtu, ok := label(fields[3], 1)
	if ok && strings.Contains(mtu, types.PaddingMarker) {
		mtu, ok = label(fields[3], 2)
	}
	if !ok && len(fields) > 4 {
		mtu, ok = label(fields[4], 1)
	}
	if ok {
		id.MTU = types.SomeString(mtu)
	}
	return id, true
}

// matchTwo handles names like "<prefix>.<probe>-<suffix>" and "<probe>-<suffix>".
func matchTwo(fields []string) (types.QueryIdentity, bool) {
	if len(fields) != 2 {
		return types.QueryIdentity{}, false
	}
	probe := fields[0]
	if second, ok := label(probe, 1); ok {
		probe = second
	}
	return types.QueryIdentity{
		ProbeID: types.SomeString(probe),
	}, true
}

// matchSingle scans undelimited names for the first four-digit run.
func matchSingle(fields []string) (types.QueryIdentity, bool) {
	if len(fields) != 1 {
		return types.QueryIdentity{}, false
	}
	id := types.QueryIdentity{}
	if m := reProbeDigits.FindString(fields[0]); m != "" {
		id.ProbeID = types.SomeString(m)
	}
	return id, true
}

// DecodeQueryIdentity recovers probe ID, resolver type and MTU from a query
// name. Names with an unrecognized number of fields yield an identity with
// all fields absent and a warning.
func DecodeQueryIdentity(query string) types.QueryIdentity {
	fields := strings.Split(strings.ToLower(query), "-")
	for _, m := range identityMatchers {
		if id, ok := m.Match(fields); ok {
			return id
		}
	}
	decoderLogger.WithFields(log.Fields{
		"query":  query,
		"fields": len(fields),
	}).Warn("unknown query name scheme")
	return types.QueryIdentity{}
}
