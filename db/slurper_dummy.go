package db

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"context"

	"github.com/DCSO/mtucorr/types"
)

// DummySlurper is a slurper that just consumes reports with no action.
type DummySlurper struct {
	done chan struct{}
}

// Run starts a DummySlurper.
func (s *DummySlurper) Run(ctx context.Context, reportchan chan types.HourReport) {
	s.done = make(chan struct{})
	go func() {
		for range reportchan {
		}
		close(s.done)
	}()
}

// Finish waits for the report channel to be drained.
func (s *DummySlurper) Finish() {
	if s.done != nil {
		<-s.done
	}
}
