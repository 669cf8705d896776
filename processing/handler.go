package processing

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"github.com/DCSO/mtucorr/types"
)

// Handler is an interface describing the behaviour for a component to
// handle hourly reports produced by the analysis.
type Handler interface {
	GetName() string
	Consume(*types.HourReport) error
}
