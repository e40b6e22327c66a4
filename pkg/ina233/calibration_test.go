package ina233

import (
	"errors"
	"math"
	"testing"
)

func TestCalibrate(t *testing.T) {
	tests := []struct {
		name    string
		params  CalibrationParams
		wantCal uint16
		wantMc  int16
		wantRc  int
		wantMp  int16
		wantRp  int
	}{
		{
			name:    "2 mOhm 10 A",
			params:  CalibrationParams{ShuntResistance: 0.002, MaxCurrent: 10},
			wantCal: 8388,
			wantMc:  3276,
			wantRc:  0,
			wantMp:  13107,
			wantRp:  -2,
		},
		{
			name:    "100 mOhm 0.5 A",
			params:  CalibrationParams{ShuntResistance: 0.1, MaxCurrent: 0.5},
			wantCal: 3355,
			wantMc:  6553,
			wantRc:  1,
			wantMp:  26214,
			wantRp:  -1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Calibrate(tt.params)
			if err != nil {
				t.Fatalf("Calibrate() error = %v", err)
			}
			if got.Cal != tt.wantCal {
				t.Errorf("Cal = %d, want %d", got.Cal, tt.wantCal)
			}
			if got.CurrentCoefficient.M != tt.wantMc || got.CurrentCoefficient.R != tt.wantRc {
				t.Errorf("current coefficient = %+v, want m=%d R=%d", got.CurrentCoefficient, tt.wantMc, tt.wantRc)
			}
			if got.PowerCoefficient.M != tt.wantMp || got.PowerCoefficient.R != tt.wantRp {
				t.Errorf("power coefficient = %+v, want m=%d R=%d", got.PowerCoefficient, tt.wantMp, tt.wantRp)
			}
		})
	}
}

func TestCalibrateLSBs(t *testing.T) {
	for _, maxCurrent := range []float64{0.001, 0.5, 1, 3.2, 10, 15.5, 81.92, 400} {
		got, err := Calibrate(CalibrationParams{ShuntResistance: 0.01, MaxCurrent: maxCurrent})
		if err != nil {
			if errors.Is(err, ErrOutOfRange) {
				continue
			}
			t.Fatalf("Calibrate(%g) error = %v", maxCurrent, err)
		}
		if want := maxCurrent / 32768; math.Abs(got.CurrentLSB-want) > want*1e-12 {
			t.Errorf("CurrentLSB(%g) = %g, want %g", maxCurrent, got.CurrentLSB, want)
		}
		if got.PowerLSB != 25*got.CurrentLSB {
			t.Errorf("PowerLSB(%g) = %g, want 25 x %g", maxCurrent, got.PowerLSB, got.CurrentLSB)
		}
		want := math.Floor(0.00512 / (0.01 * got.CurrentLSB))
		if float64(got.Cal) != want {
			t.Errorf("Cal(%g) = %d, want %g", maxCurrent, got.Cal, want)
		}
	}
}

func TestCalibrateOutOfRange(t *testing.T) {
	_, err := Calibrate(CalibrationParams{ShuntResistance: 0.0001, MaxCurrent: 0.5})
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("Calibrate() error = %v, want ErrOutOfRange", err)
	}
}

func TestCalibrateInvalidParams(t *testing.T) {
	tests := []CalibrationParams{
		{ShuntResistance: 0, MaxCurrent: 1},
		{ShuntResistance: -0.1, MaxCurrent: 1},
		{ShuntResistance: 0.1, MaxCurrent: 0},
		{ShuntResistance: math.NaN(), MaxCurrent: 1},
		{ShuntResistance: 0.1, MaxCurrent: math.Inf(1)},
	}
	for _, p := range tests {
		if _, err := Calibrate(p); !errors.Is(err, ErrInvalidParams) {
			t.Errorf("Calibrate(%+v) error = %v, want ErrInvalidParams", p, err)
		}
	}
}

func TestFitCoefficientRange(t *testing.T) {
	inputs := []float64{
		1, 0.5, 3.3, 40.96, 1024, 3276.8, 32767, 32768, 32768000, 65536,
		1.0 / 3, 2.0 / 3, math.Pi, 1e-9, 1e12, 123456.789,
	}
	for _, m := range inputs {
		c, err := FitCoefficient(m)
		if err != nil {
			t.Fatalf("FitCoefficient(%g) error = %v", m, err)
		}
		if c.M <= -32768 {
			t.Errorf("FitCoefficient(%g) mantissa %d out of range", m, c.M)
		}
		got := float64(c.M) * math.Pow10(c.R)
		if math.Abs(got-m) > m*1e-3 {
			t.Errorf("FitCoefficient(%g) = %d x 10^%d = %g, too far from input", m, c.M, c.R, got)
		}
	}
}

func TestFitCoefficientExact(t *testing.T) {
	c, err := FitCoefficient(1024)
	if err != nil {
		t.Fatalf("FitCoefficient() error = %v", err)
	}
	if c.M != 1024 || c.R != 0 {
		t.Errorf("FitCoefficient(1024) = %+v, want m=1024 R=0", c)
	}

	c, err = FitCoefficient(65536)
	if err != nil {
		t.Fatalf("FitCoefficient() error = %v", err)
	}
	if c.M != 6553 || c.R != 1 {
		t.Errorf("FitCoefficient(65536) = %+v, want m=6553 R=1", c)
	}
}

func TestFitCoefficientNonConvergent(t *testing.T) {
	for _, m := range []float64{math.Inf(1), math.NaN(), 1e200, 1e-200} {
		if _, err := FitCoefficient(m); !errors.Is(err, ErrNumeric) {
			t.Errorf("FitCoefficient(%g) error = %v, want ErrNumeric", m, err)
		}
	}
}

func TestDeviceCalibrate(t *testing.T) {
	dev, conn := NewMock(nil)

	res, err := dev.Calibrate(CalibrationParams{ShuntResistance: 0.002, MaxCurrent: 10})
	if err != nil {
		t.Fatalf("Calibrate() error = %v", err)
	}

	writes := conn.Writes()
	if len(writes) != 1 || writes[0].Reg != MfrCalibration || writes[0].Value != res.Cal {
		t.Fatalf("writes = %+v, want one MFR_CALIBRATION write of %d", writes, res.Cal)
	}
	if got := conn.Word(MfrCalibration); got != 8388 {
		t.Errorf("MFR_CALIBRATION = %d, want 8388", got)
	}
	if dev.Calibration() == nil {
		t.Errorf("Calibration() = nil after Calibrate")
	}
}

func TestDeviceCalibrateOutOfRangeWritesNothing(t *testing.T) {
	dev, conn := NewMock(nil)

	_, err := dev.Calibrate(CalibrationParams{ShuntResistance: 0.0001, MaxCurrent: 0.5})
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("Calibrate() error = %v, want ErrOutOfRange", err)
	}
	if writes := conn.Writes(); len(writes) != 0 {
		t.Errorf("writes = %+v, want none", writes)
	}
	if dev.Calibration() != nil {
		t.Errorf("Calibration() = %+v, want nil", dev.Calibration())
	}
}

func TestDeviceCalibrateTransportError(t *testing.T) {
	dev, conn := NewMock(nil)
	conn.WriteErr = errors.New("nack")

	_, err := dev.Calibrate(CalibrationParams{ShuntResistance: 0.002, MaxCurrent: 10})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Calibrate() error = %v, want ErrTransport", err)
	}
	if dev.Calibration() != nil {
		t.Errorf("calibration stored despite failed write")
	}
}
