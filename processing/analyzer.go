package processing

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/DCSO/mtucorr/atlas"
	"github.com/DCSO/mtucorr/types"
	"github.com/DCSO/mtucorr/util"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ReportTimeFormat is the format of window start times in reports.
const ReportTimeFormat = "2006-01-02 15:04:05"

// ResultFetcher obtains measurement results for a time range.
type ResultFetcher interface {
	Results(ctx context.Context, msmID int, start, stop time.Time) ([]types.AtlasResult, error)
}

// Measurements maps IP versions to the measurement IDs for each hop.
type Measurements struct {
	Stub map[int]int
	Rslv map[int]int
}

// DefaultMeasurements are the IDs of the public 2023 path MTU measurements.
var DefaultMeasurements = Measurements{
	Stub: map[int]int{4: 25741785, 6: 25741786},
	Rslv: map[int]int{4: 25741787, 6: 25741788},
}

// CorrelationPerfStats contains per-correlation stats written to InfluxDB
// for monitoring.
type CorrelationPerfStats struct {
	LinesRead        uint64 `influx:"lines_read"`
	RecordsMalformed uint64 `influx:"records_malformed"`
	Records          uint64 `influx:"records"`
	Correlated       uint64 `influx:"correlated"`
}

func makeCorrelationPerfStats(ts TableStats, correlated int) CorrelationPerfStats {
	return CorrelationPerfStats{
		LinesRead:        uint64(ts.Lines),
		RecordsMalformed: uint64(ts.Malformed),
		Records:          uint64(ts.Lines - ts.Malformed),
		Correlated:       uint64(correlated),
	}
}

// WindowResult holds the report for one window together with the
// correlation details it was built from.
type WindowResult struct {
	Begin         time.Time
	End           time.Time
	Report        types.HourReport
	Stub          map[int]StubResult
	Fragmentation map[int]FragmentationResult
}

// WindowAnalyzer runs all correlations for hourly windows.
type WindowAnalyzer struct {
	Fetcher       ResultFetcher
	Stub          *StubCorrelator
	Fragmentation *FragmentationCorrelator
	Measurements  Measurements
	Workers       int
	StatsEncoder  *util.StatsEncoder
	Logger        *log.Entry
}

// MakeWindowAnalyzer returns a new WindowAnalyzer.
func MakeWindowAnalyzer(fetcher ResultFetcher, stub *StubCorrelator,
	frag *FragmentationCorrelator, m Measurements) *WindowAnalyzer {
	return &WindowAnalyzer{
		Fetcher:       fetcher,
		Stub:          stub,
		Fragmentation: frag,
		Measurements:  m,
		Workers:       1,
		Logger: log.WithFields(log.Fields{
			"domain": "analyzer",
		}),
	}
}

// SubmitStats registers a StatsEncoder for per-window stats submission.
func (a *WindowAnalyzer) SubmitStats(sc *util.StatsEncoder) {
	a.StatsEncoder = sc
}

func (a *WindowAnalyzer) submitStats(hop string, ip int, begin time.Time, s CorrelationPerfStats) {
	if a.StatsEncoder == nil {
		return
	}
	a.StatsEncoder.Submit(s, map[string]string{
		"hop":    hop,
		"ip":     strconv.Itoa(ip),
		"window": begin.UTC().Format("2006010215"),
	})
}

// DayWindows returns the 24 hourly windows of the given day, each from
// HH:00:00 to HH:59:59.
func DayWindows(date time.Time) [][2]time.Time {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	windows := make([][2]time.Time, 24)
	for i := range windows {
		begin := day.Add(time.Duration(i) * time.Hour)
		windows[i] = [2]time.Time{begin, begin.Add(time.Hour - time.Second)}
	}
	return windows
}

func (a *WindowAnalyzer) stub(ctx context.Context, ip int, begin, end time.Time) (StubResult, error) {
	msm, ok := a.Measurements.Stub[ip]
	if !ok {
		return StubResult{}, fmt.Errorf("no stub measurement for IPv%d", ip)
	}
	results, err := a.Fetcher.Results(ctx, msm, begin, end)
	if err != nil {
		return StubResult{}, err
	}
	res, err := a.Stub.Correlate(atlas.FailureReports(results), ip, len(results))
	correlated := 0
	if err == nil {
		correlated = int(res.FailedQueries)
	}
	a.submitStats(types.HopStub, ip, begin, makeCorrelationPerfStats(res.Table, correlated))
	return res, err
}

func (a *WindowAnalyzer) rslv(ctx context.Context, ip int, begin, end time.Time) (FragmentationResult, error) {
	msm, ok := a.Measurements.Rslv[ip]
	if !ok {
		return FragmentationResult{}, fmt.Errorf("no resolver measurement for IPv%d", ip)
	}
	results, err := a.Fetcher.Results(ctx, msm, begin, end)
	if err != nil {
		return FragmentationResult{}, err
	}
	res, err := a.Fragmentation.Correlate(ip, begin, end, atlas.CountQueries(results))
	a.submitStats(types.HopRslv, ip, begin, makeCorrelationPerfStats(res.Table, res.FailedQueries))
	return res, err
}

// AnalyzeWindow runs the stub and resolver hop correlations for both IP
// versions in the given window. Any failing correlation fails the window.
func (a *WindowAnalyzer) AnalyzeWindow(ctx context.Context, begin, end time.Time) (WindowResult, error) {
	wr := WindowResult{
		Begin: begin,
		End:   end,
		Report: types.HourReport{
			Datetime: begin.UTC().Format(ReportTimeFormat),
		},
		Stub:          make(map[int]StubResult),
		Fragmentation: make(map[int]FragmentationResult),
	}
	for _, ip := range []int{4, 6} {
		res, err := a.stub(ctx, ip, begin, end)
		if err != nil {
			return wr, fmt.Errorf("stub IPv%d: %w", ip, err)
		}
		if ip == 4 {
			wr.Report.MTU = res.MTU
		}
		wr.Stub[ip] = res
		if err := wr.Report.SetStats(types.HopStub, ip, res.Stats()); err != nil {
			return wr, err
		}
	}
	for _, ip := range []int{4, 6} {
		res, err := a.rslv(ctx, ip, begin, end)
		if err != nil {
			return wr, fmt.Errorf("rslv IPv%d: %w", ip, err)
		}
		wr.Fragmentation[ip] = res
		if err := wr.Report.SetStats(types.HopRslv, ip, res.Stats()); err != nil {
			return wr, err
		}
	}
	return wr, nil
}

// runWindows calls fn for each window of the given day, with at most
// Workers calls in flight. Windows for which fn fails are logged and
// skipped. An error is only returned if the context is cancelled.
func (a *WindowAnalyzer) runWindows(ctx context.Context, date time.Time,
	fn func(ctx context.Context, i int, begin, end time.Time) error) error {
	g, gctx := errgroup.WithContext(ctx)
	workers := a.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)
	for i, w := range DayWindows(date) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := fn(gctx, i, w[0], w[1]); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				a.Logger.WithFields(log.Fields{
					"window": w[0].UTC().Format(ReportTimeFormat),
				}).Errorf("skipping window: %v", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// AnalyzeDay analyzes all hourly windows of the given day. Windows that
// fail are logged and left out. The results are ordered by hour, also
// when windows are analyzed in parallel. An error is only returned if the
// context is cancelled.
func (a *WindowAnalyzer) AnalyzeDay(ctx context.Context, date time.Time) ([]WindowResult, error) {
	slots := make([]*WindowResult, 24)
	err := a.runWindows(ctx, date, func(ctx context.Context, i int, begin, end time.Time) error {
		wr, err := a.AnalyzeWindow(ctx, begin, end)
		if err != nil {
			return err
		}
		slots[i] = &wr
		return nil
	})
	if err != nil {
		return nil, err
	}

	var out []WindowResult
	for _, wr := range slots {
		if wr != nil {
			out = append(out, *wr)
		}
	}
	return out, nil
}

// FragmentationDay runs only the resolver hop correlation for one IP
// version over all hourly windows of the given day, independent of the
// stub side. Results are ordered by hour; failing windows are left out.
func (a *WindowAnalyzer) FragmentationDay(ctx context.Context, date time.Time, ip int) ([]FragmentationResult, error) {
	slots := make([]*FragmentationResult, 24)
	err := a.runWindows(ctx, date, func(ctx context.Context, i int, begin, end time.Time) error {
		res, err := a.rslv(ctx, ip, begin, end)
		if err != nil {
			return fmt.Errorf("rslv IPv%d: %w", ip, err)
		}
		slots[i] = &res
		return nil
	})
	if err != nil {
		return nil, err
	}

	var out []FragmentationResult
	for _, r := range slots {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}
