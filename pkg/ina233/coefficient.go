package ina233

import (
	"math"

	"github.com/pkg/errors"
)

// Coefficient is a PMBus direct-format conversion. A register value Y maps
// to a real-world value X through
//
//	X = (Y * 10^-R - b) / m
//
// and back through Y = (m*X + b) * 10^R.
type Coefficient struct {
	M int16 `json:"m"`
	R int   `json:"R"`
	B int16 `json:"b"`
}

var (
	// BusVoltageCoefficient converts READ_VIN/READ_VOUT and the VIN limits.
	BusVoltageCoefficient = Coefficient{M: 8, R: 2, B: 0}
	// ShuntVoltageCoefficient converts MFR_READ_VSHUNT.
	ShuntVoltageCoefficient = Coefficient{M: 4, R: 5, B: 0}
)

// Decode converts a register value to a real-world value.
func (c Coefficient) Decode(y int64) float64 {
	if c.M == 0 {
		return 0
	}
	return (float64(y)*math.Pow10(-c.R) - float64(c.B)) / float64(c.M)
}

// Encode converts a real-world value to an unsigned register value. Values
// the register cannot hold are rejected with ErrOutOfRange.
func (c Coefficient) Encode(x float64) (uint16, error) {
	y := math.Round((float64(c.M)*x + float64(c.B)) * math.Pow10(c.R))
	if math.IsNaN(y) || y < 0 || y > math.MaxUint16 {
		return 0, errors.Wrapf(ErrOutOfRange, "%g encodes to %g with m=%d R=%d b=%d", x, y, c.M, c.R, c.B)
	}
	return uint16(y), nil
}
