package ina233

import (
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// mantissaLimit bounds the truncated mantissa: -32768 < m < 32768.
	mantissaLimit = 1 << 15
	// maxFitIterations caps each fitting loop.
	maxFitIterations = 64
)

// CalibrationParams describes the shunt the chip measures across.
type CalibrationParams struct {
	ShuntResistance float64 `json:"shuntResistance"` // ohm
	MaxCurrent      float64 `json:"maxCurrent"`      // A
}

// Validate checks that both parameters are positive and finite.
func (p CalibrationParams) Validate() error {
	if !positiveFinite(p.ShuntResistance) {
		return errors.Wrapf(ErrInvalidParams, "shunt resistance must be positive, got %g", p.ShuntResistance)
	}
	if !positiveFinite(p.MaxCurrent) {
		return errors.Wrapf(ErrInvalidParams, "max current must be positive, got %g", p.MaxCurrent)
	}
	return nil
}

// CalibrationResult holds the register value and the scaling derived from
// CalibrationParams. It is read-only once returned.
type CalibrationResult struct {
	Params             CalibrationParams `json:"params"`
	CurrentLSB         float64           `json:"currentLSB"` // A per count
	PowerLSB           float64           `json:"powerLSB"`   // W per count
	Cal                uint16            `json:"cal"`
	CurrentCoefficient Coefficient       `json:"currentCoefficient"`
	PowerCoefficient   Coefficient       `json:"powerCoefficient"`
}

// Calibrate derives the MFR_CALIBRATION value and the current and power
// coefficients without touching the bus.
func Calibrate(p CalibrationParams) (*CalibrationResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	currentLSB := p.MaxCurrent / currentFullScale
	powerLSB := powerToCurrentRatio * currentLSB

	cal := calibrationScale / (p.ShuntResistance * currentLSB)
	if cal > math.MaxUint16 {
		return nil, errors.Wrapf(ErrOutOfRange, "CAL=%.1f exceeds 0xFFFF for shunt %g ohm and max current %g A", cal, p.ShuntResistance, p.MaxCurrent)
	}

	currentCoeff, err := FitCoefficient(1 / currentLSB)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fit current coefficient")
	}
	powerCoeff, err := FitCoefficient(1 / powerLSB)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fit power coefficient")
	}

	return &CalibrationResult{
		Params:             p,
		CurrentLSB:         currentLSB,
		PowerLSB:           powerLSB,
		Cal:                uint16(cal),
		CurrentCoefficient: currentCoeff,
		PowerCoefficient:   powerCoeff,
	}, nil
}

// FitCoefficient fits m into a signed 16-bit mantissa and a decimal
// exponent, keeping as many significant digits as the mantissa can hold.
func FitCoefficient(m float64) (Coefficient, error) {
	if math.IsNaN(m) || math.IsInf(m, 0) {
		return Coefficient{}, errors.Wrapf(ErrNumeric, "mantissa %v", m)
	}

	r := 0
	for i := 0; !inMantissaRange(m); i++ {
		if i == maxFitIterations {
			return Coefficient{}, errors.Wrapf(ErrNumeric, "mantissa still %g after %d divisions", m, i)
		}
		m /= 10
		r++
	}

	for i := 0; math.Trunc(m) != m; i++ {
		if i == maxFitIterations {
			return Coefficient{}, errors.Wrapf(ErrNumeric, "mantissa still fractional (%g) after %d shifts", m, i)
		}
		if !inMantissaRange(m * 10) {
			break
		}
		m *= 10
		r--
	}

	return Coefficient{M: int16(math.Trunc(m)), R: r}, nil
}

// Calibrate computes the calibration for p and writes it to MFR_CALIBRATION.
// Nothing is written when the computation fails.
func (d *Device) Calibrate(p CalibrationParams) (*CalibrationResult, error) {
	res, err := Calibrate(p)
	if err != nil {
		return nil, err
	}

	if res.Cal == 0 {
		logrus.WithFields(logrus.Fields{
			"shuntResistance": p.ShuntResistance,
			"maxCurrent":      p.MaxCurrent,
		}).Warn("calibration value truncates to 0, current and power will read 0")
	}

	if err := d.WriteWord(MfrCalibration, res.Cal); err != nil {
		return nil, errors.Wrap(err, "failed to write calibration register")
	}
	d.setCalibration(res)

	logrus.WithFields(logrus.Fields{
		"cal":        res.Cal,
		"currentLSB": res.CurrentLSB,
		"powerLSB":   res.PowerLSB,
		"mc":         res.CurrentCoefficient.M,
		"Rc":         res.CurrentCoefficient.R,
		"mp":         res.PowerCoefficient.M,
		"Rp":         res.PowerCoefficient.R,
	}).Debug("calibration applied")

	return res, nil
}

// CalibrationRegister reads MFR_CALIBRATION back from the chip.
func (d *Device) CalibrationRegister() (uint16, error) {
	return d.ReadWord(MfrCalibration)
}

func inMantissaRange(v float64) bool {
	t := math.Trunc(v)
	return t > -mantissaLimit && t < mantissaLimit
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
