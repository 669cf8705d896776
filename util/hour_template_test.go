package util

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"testing"
	"time"
)

func TestHourTemplate(t *testing.T) {
	h, err := MakeHourTemplate("/var/log/nsd/nsd-dnstap.log.%Y%m%d-%H")
	if err != nil {
		t.Fatal(err)
	}
	ts := time.Date(2023, 7, 5, 9, 59, 59, 0, time.UTC)
	if v := h.Format(ts); v != "/var/log/nsd/nsd-dnstap.log.20230705-09" {
		t.Fatalf("unexpected name: %s", v)
	}
	local := time.Date(2023, 7, 5, 11, 10, 0, 0, time.FixedZone("CEST", 2*3600))
	if v := h.Format(local); v != "/var/log/nsd/nsd-dnstap.log.20230705-09" {
		t.Fatalf("unexpected name for zoned time: %s", v)
	}
}
