package daemon

import (
	"sync"
	"testing"
	"time"

	"github.com/inamon/inamon/pkg/ina233"
)

func TestTimeSeriesRecorder_GetRecordsIn(t *testing.T) {
	type fields struct {
		MaxRecordCount int
		LastPollTimes  []time.Time
		mu             *sync.Mutex
	}
	type args struct {
		last time.Duration
	}
	tests := []struct {
		name   string
		fields fields
		args   args
		want   int
	}{
		{
			name: "test noncontinuous records",
			fields: fields{
				MaxRecordCount: 10,
				LastPollTimes: []time.Time{
					time.Now().Add(-time.Second * 31).Add(-10 * time.Millisecond),
					time.Now().Add(-time.Second * 20).Add(-10 * time.Millisecond),
					time.Now().Add(-time.Second * 10).Add(-10 * time.Millisecond),
				},
				mu: &sync.Mutex{},
			},
			args: args{
				last: time.Second * 40,
			},
			want: 2,
		},
		{
			name: "test continuous records",
			fields: fields{
				MaxRecordCount: 10,
				LastPollTimes: []time.Time{
					time.Now().Add(-time.Second * 70).Add(-10 * time.Millisecond),
					time.Now().Add(-time.Second * 60).Add(-10 * time.Millisecond),
					time.Now().Add(-time.Second * 40).Add(-10 * time.Millisecond),
					time.Now().Add(-time.Second * 30).Add(-10 * time.Millisecond),
					time.Now().Add(-time.Second * 20).Add(-10 * time.Millisecond),
					time.Now().Add(-time.Second * 10).Add(-10 * time.Millisecond),
				},
				mu: &sync.Mutex{},
			},
			args: args{
				last: time.Second * 50,
			},
			want: 4,
		},
		{
			name: "test stale last record",
			fields: fields{
				MaxRecordCount: 10,
				LastPollTimes: []time.Time{
					time.Now().Add(-time.Second * 40).Add(-10 * time.Millisecond),
					time.Now().Add(-time.Second * 30).Add(-10 * time.Millisecond),
					time.Now().Add(-time.Second * 20).Add(-10 * time.Millisecond),
				},
				mu: &sync.Mutex{},
			},
			args: args{
				last: time.Second * 50,
			},
			want: 0,
		},
		{
			name: "test no records",
			fields: fields{
				MaxRecordCount: 10,
				mu:             &sync.Mutex{},
			},
			args: args{
				last: time.Minute,
			},
			want: 0,
		},
	}
	for _, tt := range tests {
		setPollInterval(time.Second * 10)
		t.Run(tt.name, func(t *testing.T) {
			r := &TimeSeriesRecorder{
				MaxRecordCount: tt.fields.MaxRecordCount,
				LastPollTimes:  tt.fields.LastPollTimes,
				mu:             tt.fields.mu,
			}
			if got := r.GetRecordsIn(tt.args.last); got != tt.want {
				t.Errorf("GetRecordsIn() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTimeSeriesRecorderBounded(t *testing.T) {
	r := NewTimeSeriesRecorder(3)
	base := time.Now()
	for i := 0; i < 5; i++ {
		r.AddRecord(base.Add(time.Duration(i) * time.Second))
	}

	records := r.GetRecords()
	if len(records) != 3 {
		t.Fatalf("len = %d, want 3", len(records))
	}
	if !records[0].Equal(base.Add(2 * time.Second)) {
		t.Errorf("oldest = %v, want base+2s", records[0])
	}

	r.ClearRecords()
	if len(r.GetRecords()) != 0 {
		t.Errorf("records not cleared")
	}
}

func TestPollRecordsErrors(t *testing.T) {
	setupTestDaemon(t)

	poll()
	if err := lastPollError(); err != nil {
		t.Fatalf("lastPollError() = %v", err)
	}
	if len(pollRecorder.GetRecords()) != 1 {
		t.Fatalf("records = %d, want 1", len(pollRecorder.GetRecords()))
	}

	dev = ina233.New(ina233.NewMockConnection())
	poll()
	if err := lastPollError(); err == nil {
		t.Errorf("lastPollError() = nil after uncalibrated poll")
	}
	if len(pollRecorder.GetRecords()) != 1 {
		t.Errorf("failed poll was recorded")
	}
}
