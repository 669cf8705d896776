package util

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"time"

	"github.com/lestrrat-go/strftime"
)

// HourTemplate renders strftime patterns such as
// "/var/log/nsd/nsd-dnstap.log.%Y%m%d-%H" into per-hour names. Hours are
// always rendered in UTC.
type HourTemplate struct {
	Pattern string
	f       *strftime.Strftime
}

// MakeHourTemplate compiles the given strftime pattern.
func MakeHourTemplate(pattern string) (*HourTemplate, error) {
	f, err := strftime.New(pattern)
	if err != nil {
		return nil, err
	}
	return &HourTemplate{
		Pattern: pattern,
		f:       f,
	}, nil
}

// Format returns the name for the hour containing t.
func (h *HourTemplate) Format(t time.Time) string {
	return h.f.FormatString(t.UTC())
}
