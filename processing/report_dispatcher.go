package processing

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"sync"

	"github.com/DCSO/mtucorr/types"
	"github.com/DCSO/mtucorr/util"

	log "github.com/sirupsen/logrus"
)

// ReportDispatcherPerfStats contains performance stats written to InfluxDB
// for monitoring.
type ReportDispatcherPerfStats struct {
	Dispatched uint64 `influx:"reports_dispatched"`
	Errors     uint64 `influx:"report_handler_errors"`
}

// ReportDispatcher is a component to collect and apply a set of Handlers to
// a stream of HourReports.
type ReportDispatcher struct {
	Lock         sync.Mutex
	Handlers     []Handler
	DBHandler    Handler
	PerfStats    ReportDispatcherPerfStats
	Logger       *log.Entry
	StatsEncoder *util.StatsEncoder
}

// DBHandler writes consumed reports to a database.
type DBHandler struct {
	OutChan chan types.HourReport
}

// GetName just returns the name of the default handler
func (h *DBHandler) GetName() string {
	return "default handler"
}

// Consume simply emits the consumed report on the default output channel
func (h *DBHandler) Consume(r *types.HourReport) error {
	h.OutChan <- *r
	return nil
}

// MakeReportDispatcher returns a new ReportDispatcher. The channel passed
// as an argument is used as an output channel for the default handler, which
// simply forwards reports to a given channel (for example to be written to a
// database)
func MakeReportDispatcher(databaseOut chan types.HourReport) *ReportDispatcher {
	ad := &ReportDispatcher{
		Logger: log.WithFields(log.Fields{
			"domain": "dispatch",
		}),
	}
	if databaseOut != nil {
		ad.DBHandler = &DBHandler{
			OutChan: databaseOut,
		}
		ad.Logger.WithFields(log.Fields{
			"name": ad.DBHandler.GetName(),
		}).Debugf("report handler added")
	}
	return ad
}

// RegisterHandler adds the given Handler to the set of callbacks to be
// called on each report received by the dispatcher.
func (ad *ReportDispatcher) RegisterHandler(h Handler) {
	ad.Lock.Lock()
	ad.Handlers = append(ad.Handlers, h)
	ad.Lock.Unlock()
	ad.Logger.WithFields(log.Fields{
		"name": h.GetName(),
	}).Info("report handler added")
}

// Dispatch applies the set of handlers currently registered in the
// dispatcher to the report passed to it. Handler errors are logged.
func (ad *ReportDispatcher) Dispatch(r *types.HourReport) {
	ad.Lock.Lock()
	handlers := ad.Handlers
	ad.Lock.Unlock()
	if ad.DBHandler != nil {
		handlers = append(handlers[:len(handlers):len(handlers)], ad.DBHandler)
	}
	errs := uint64(0)
	for _, h := range handlers {
		if err := h.Consume(r); err != nil {
			errs++
			ad.Logger.WithFields(log.Fields{
				"name":     h.GetName(),
				"datetime": r.Datetime,
			}).Warn(err)
		}
	}
	ad.Lock.Lock()
	ad.PerfStats.Dispatched++
	ad.PerfStats.Errors += errs
	ad.Lock.Unlock()
}

// SubmitStats registers a StatsEncoder for runtime stats submission.
func (ad *ReportDispatcher) SubmitStats(sc *util.StatsEncoder) {
	ad.StatsEncoder = sc
}

// Finish submits the final dispatch counters, if a StatsEncoder is set.
func (ad *ReportDispatcher) Finish() {
	if ad.StatsEncoder == nil {
		return
	}
	ad.Lock.Lock()
	myStats := ad.PerfStats
	ad.Lock.Unlock()
	ad.StatsEncoder.Submit(myStats, nil)
}
