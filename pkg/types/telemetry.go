package types

import "time"

// Telemetry is one decoded snapshot of the chip.
// This struct is shared between the daemon and client packages.
type Telemetry struct {
	Timestamp         time.Time `json:"timestamp"`
	BusVoltageIn      float64   `json:"busVoltageIn"`  // V
	BusVoltageOut     float64   `json:"busVoltageOut"` // V
	ShuntVoltage      float64   `json:"shuntVoltage"`  // mV
	CurrentIn         float64   `json:"currentIn"`     // mA
	CurrentOut        float64   `json:"currentOut"`    // mA
	PowerIn           float64   `json:"powerIn"`       // mW
	AveragePower      *float64  `json:"averagePower,omitempty"`
	EnergySampleCount uint32    `json:"energySampleCount"`
}

// Status mirrors the PMBus status registers.
type Status struct {
	Byte        uint8  `json:"byte"`
	Word        uint16 `json:"word"`
	Iout        uint8  `json:"iout"`
	Input       uint8  `json:"input"`
	CML         uint8  `json:"cml"`
	MfrSpecific uint8  `json:"mfrSpecific"`
}

// Identity holds the manufacturer strings and TI identification words.
type Identity struct {
	MfrID         string `json:"mfrID"`
	MfrModel      string `json:"mfrModel"`
	MfrRevision   string `json:"mfrRevision"`
	TIMfrID       uint16 `json:"tiMfrID"`
	TIMfrModel    uint16 `json:"tiMfrModel"`
	TIMfrRevision uint16 `json:"tiMfrRevision"`
}

// Limits are the warning thresholds. Nil fields are left untouched.
type Limits struct {
	OverCurrent  *float64 `json:"overCurrent,omitempty"  yaml:"overCurrent,omitempty"`  // A
	OverVoltage  *float64 `json:"overVoltage,omitempty"  yaml:"overVoltage,omitempty"`  // V
	UnderVoltage *float64 `json:"underVoltage,omitempty" yaml:"underVoltage,omitempty"` // V
	OverPower    *float64 `json:"overPower,omitempty"    yaml:"overPower,omitempty"`    // W
}
