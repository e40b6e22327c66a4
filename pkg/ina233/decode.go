package ina233

import (
	"github.com/pkg/errors"
)

// Scale multiplies an SI value into the unit a caller wants.
type Scale float64

const (
	Unit  Scale = 1
	Milli Scale = 1e3
	Micro Scale = 1e6
)

// Apply returns v expressed in s.
func (s Scale) Apply(v float64) float64 {
	return v * float64(s)
}

// ToSigned interprets the low bits of val as a two's complement integer.
func ToSigned(val uint64, bits uint) int64 {
	if val&(1<<(bits-1)) != 0 {
		return int64(val) - int64(1)<<bits
	}
	return int64(val)
}

// DecodeCurrent converts a READ_IIN/READ_IOUT word to amps.
func DecodeCurrent(raw uint16, currentLSB float64) float64 {
	return float64(ToSigned(uint64(raw), 16)) * currentLSB
}

// DecodeBusVoltage converts a READ_VIN/READ_VOUT word to volts.
func DecodeBusVoltage(raw uint16) float64 {
	return float64(raw) * BusVoltageLSB
}

// DecodeShuntVoltage converts an MFR_READ_VSHUNT word to millivolts.
func DecodeShuntVoltage(raw uint16) float64 {
	return Milli.Apply(float64(raw) * ShuntVoltageLSB)
}

// DecodePower converts a READ_PIN word to watts.
func DecodePower(raw uint16, powerLSB float64) float64 {
	return float64(raw) * powerLSB
}

// EnergyAccumulatorState is one READ_EIN frame. It is rebuilt from every
// read; no previous frame is kept.
type EnergyAccumulatorState struct {
	Accumulator uint64 `json:"accumulator"` // 24-bit: rollover * 2^16 + accumulator
	SampleCount uint32 `json:"sampleCount"`
}

// DecodeEnergy unpacks a READ_EIN frame: bytes 0-1 hold the accumulator
// (low byte first), byte 2 the rollover count and bytes 3-5 the sample
// count (low byte first).
func DecodeEnergy(raw []byte) (EnergyAccumulatorState, error) {
	if len(raw) < energyFrameLen {
		return EnergyAccumulatorState{}, errors.Wrapf(ErrShortRead, "energy frame has %d bytes, want %d", len(raw), energyFrameLen)
	}

	accumulator := uint64(raw[1])<<8 | uint64(raw[0])
	rollover := uint64(raw[2])
	sampleCount := uint32(raw[5])<<16 | uint32(raw[4])<<8 | uint32(raw[3])

	return EnergyAccumulatorState{
		Accumulator: rollover<<16 + accumulator,
		SampleCount: sampleCount,
	}, nil
}

// AverageRaw returns the mean accumulated power per sample in counts.
func (s EnergyAccumulatorState) AverageRaw() (float64, error) {
	if s.SampleCount == 0 {
		return 0, ErrDivideByZero
	}
	return float64(s.Accumulator) / float64(s.SampleCount), nil
}

// DecodeAveragePower converts a READ_EIN frame to the average input power
// in watts since the accumulator was last cleared.
func DecodeAveragePower(raw []byte, powerLSB float64) (float64, error) {
	s, err := DecodeEnergy(raw)
	if err != nil {
		return 0, err
	}
	avg, err := s.AverageRaw()
	if err != nil {
		return 0, err
	}
	return avg * powerLSB, nil
}
