package daemon

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inamon/inamon/pkg/events"
)

const (
	// healthWindow is how far back GET /health looks for polls.
	healthWindow = time.Minute
	recordCount  = 60
)

var (
	// loopInterval holds the poll interval in nanoseconds. SIGHUP rewrites
	// it while the poll loop and handlers read it.
	loopInterval atomic.Int64
	pollRecorder = NewTimeSeriesRecorder(recordCount)

	pollErrMu   sync.Mutex
	pollErr     error
	lastStatus  uint8
	statusKnown bool
)

func init() {
	setPollInterval(5 * time.Second)
}

func pollInterval() time.Duration {
	return time.Duration(loopInterval.Load())
}

func setPollInterval(d time.Duration) {
	loopInterval.Store(int64(d))
}

// TimeSeriesRecorder records the last N poll times.
type TimeSeriesRecorder struct {
	MaxRecordCount int
	LastPollTimes  []time.Time
	mu             *sync.Mutex
}

// NewTimeSeriesRecorder returns a new TimeSeriesRecorder.
func NewTimeSeriesRecorder(maxRecordCount int) *TimeSeriesRecorder {
	return &TimeSeriesRecorder{
		MaxRecordCount: maxRecordCount,
		LastPollTimes:  make([]time.Time, 0),
		mu:             &sync.Mutex{},
	}
}

// AddRecordNow adds a new record with the current time.
func (r *TimeSeriesRecorder) AddRecordNow() {
	r.AddRecord(time.Now())
}

// AddRecord adds a new record.
func (r *TimeSeriesRecorder) AddRecord(t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Strip monotonic clock reading so time.Since stays accurate
	// across suspend.
	t = t.Round(0)

	if len(r.LastPollTimes) >= r.MaxRecordCount {
		r.LastPollTimes = r.LastPollTimes[1:]
	}
	r.LastPollTimes = append(r.LastPollTimes, t)
}

// ClearRecords clears all records.
func (r *TimeSeriesRecorder) ClearRecords() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.LastPollTimes = make([]time.Time, 0)
}

// GetRecords returns a copy of the records.
func (r *TimeSeriesRecorder) GetRecords() []time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]time.Time, len(r.LastPollTimes))
	copy(out, r.LastPollTimes)
	return out
}

// GetRecordsIn returns the number of continuous records in the last duration.
func (r *TimeSeriesRecorder) GetRecordsIn(last time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	maxGap := pollInterval() + time.Second

	// The last record must be within one interval from now.
	if len(r.LastPollTimes) > 0 && time.Since(r.LastPollTimes[len(r.LastPollTimes)-1]) >= maxGap {
		return 0
	}

	// Continuous records are at most one interval plus 1s apart.
	count := 0
	for i := len(r.LastPollTimes) - 1; i >= 0; i-- {
		record := r.LastPollTimes[i]
		if time.Since(record) > last {
			break
		}

		theRecordAfter := record
		if i+1 < len(r.LastPollTimes) {
			theRecordAfter = r.LastPollTimes[i+1]
		}

		if theRecordAfter.Sub(record) >= maxGap {
			break
		}
		count++
	}

	return count
}

func lastPollError() error {
	pollErrMu.Lock()
	defer pollErrMu.Unlock()
	return pollErr
}

func setPollError(err error) {
	pollErrMu.Lock()
	defer pollErrMu.Unlock()
	pollErr = err
}

// pollLoop samples the device every poll interval until ctx is done.
func pollLoop(ctx context.Context) {
	for {
		poll()

		select {
		case <-ctx.Done():
			return
		case <-time.After(pollInterval()):
		}
	}
}

// poll takes one telemetry snapshot, logs it and publishes it.
func poll() {
	t, err := dev.Telemetry()
	if err != nil {
		logrus.Errorf("failed to poll telemetry: %v", err)
		setPollError(err)
		return
	}
	setPollError(nil)
	pollRecorder.AddRecordNow()

	fields := logrus.Fields{
		"busVoltageIn": t.BusVoltageIn,
		"currentIn":    t.CurrentIn,
		"powerIn":      t.PowerIn,
		"samples":      t.EnergySampleCount,
	}
	if t.AveragePower != nil {
		fields["averagePower"] = *t.AveragePower
	}
	logrus.WithFields(fields).Debug("telemetry sampled")

	sseHub.Publish(events.TelemetrySampled, t)

	checkStatus()
}

// checkStatus logs STATUS_BYTE whenever it changes.
func checkStatus() {
	s, err := dev.Status()
	if err != nil {
		logrus.Warnf("failed to read status: %v", err)
		return
	}

	if statusKnown && s.Byte == lastStatus {
		return
	}
	statusKnown = true
	lastStatus = s.Byte

	entry := logrus.WithFields(logrus.Fields{
		"status": s.Byte,
		"word":   s.Word,
		"iout":   s.Iout,
		"input":  s.Input,
	})
	if s.Byte != 0 {
		entry.Warn("INA233 reports a fault")
	} else {
		entry.Info("INA233 status clear")
	}
}
