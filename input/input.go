package input

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"errors"
	"iter"
	"time"
)

// ErrSourceUnavailable is returned by a LogSource if no log data exists for a
// given identifier.
var ErrSourceUnavailable = errors.New("log source unavailable")

// LogSource is an interface describing the behaviour for a component that
// provides raw JSON log lines, grouped into one unit per hour.
type LogSource interface {
	GetName() string
	// Identifier returns the name of the unit holding the logs for the
	// given hour, e.g. a file name or a Redis key.
	Identifier(hour time.Time) string
	// Open checks that the unit exists and returns a sequence of its raw
	// lines. An error yielded by the sequence terminates it.
	Open(id string) (iter.Seq2[[]byte, error], error)
}
