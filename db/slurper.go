package db

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"context"

	"github.com/DCSO/mtucorr/types"
)

// Slurper is an interface for a worker that can be started (Run()) with a
// given channel delivering hourly reports, storing them in an associated
// data store. Finish() blocks until all reports from the (closed) channel
// have been written.
type Slurper interface {
	Run(context.Context, chan types.HourReport)
	Finish()
}
