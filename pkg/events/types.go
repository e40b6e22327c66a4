package events

import "encoding/json"

// Event name constants
const (
	CalibrationApplied = "calibration.applied"
	EnergyCleared      = "energy.cleared"
	FaultsCleared      = "faults.cleared"
	LimitsUpdated      = "limits.updated"
	TelemetrySampled   = "telemetry.sampled"
)

// Event is a generic SSE event from daemon.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// CalibrationAppliedEvent is the payload for calibration.applied.
type CalibrationAppliedEvent struct {
	ShuntResistance float64 `json:"shuntResistance"`
	MaxCurrent      float64 `json:"maxCurrent"`
	Cal             uint16  `json:"cal"`
	Ts              int64   `json:"ts"`
}

// EnergyClearedEvent is the payload for energy.cleared. Source is "api"
// or "schedule".
type EnergyClearedEvent struct {
	Source string `json:"source"`
	Ts     int64  `json:"ts"`
}

// DecodeAs decodes the event payload into T. Empty Data yields the zero
// value of T and a nil error.
//
// Example:
//
//	payload, err := events.DecodeAs[events.EnergyClearedEvent](ev)
//	if err != nil { /* handle */ }
//	fmt.Println(payload.Source)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
