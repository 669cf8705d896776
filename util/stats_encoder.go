package util

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"bytes"
	"strings"
	"sync"

	"github.com/DCSO/fluxline"
	log "github.com/sirupsen/logrus"
)

// StatsEncoder encodes pipeline statistics as InfluxDB line protocol and
// ships them using a Submitter. Struct fields to be encoded must carry an
// 'influx' tag.
type StatsEncoder struct {
	sync.Mutex
	Encoder   *fluxline.Encoder
	Buffer    bytes.Buffer
	Logger    *log.Entry
	Tags      map[string]string
	Submitter Submitter
}

// MakeStatsEncoder creates a new stats encoder submitting via the given
// Submitter.
func MakeStatsEncoder(submitter Submitter) *StatsEncoder {
	a := &StatsEncoder{
		Logger: log.WithFields(log.Fields{
			"domain": "statscollect",
		}),
		Submitter: submitter,
		Tags:      make(map[string]string),
	}
	a.Encoder = fluxline.NewEncoder(&a.Buffer)
	return a
}

// Submit encodes the data annotated with 'influx' tags in the passed struct,
// tagged with the encoder's default tags plus the given extra tags, and
// sends it to the configured submitter.
func (a *StatsEncoder) Submit(val interface{}, extraTags map[string]string) {
	tags := make(map[string]string, len(a.Tags)+len(extraTags))
	for k, v := range a.Tags {
		tags[k] = v
	}
	for k, v := range extraTags {
		tags[k] = v
	}

	a.Lock()
	defer a.Unlock()
	a.Buffer.Reset()
	if err := a.Encoder.EncodeWithoutTypes(ToolName, val, tags); err != nil {
		a.Logger.Warn(err)
	}
	line := strings.TrimSpace(a.Buffer.String())
	if line == "" {
		a.Logger.Warn("skipping empty influx line")
		return
	}
	a.Submitter.SubmitWithHeaders([]byte(line), "", "text/plain", map[string]string{
		"database":         "telegraf",
		"retention_policy": "default",
	})
}
