package ina233

import (
	"errors"
	"math"
	"testing"

	"github.com/inamon/inamon/pkg/types"
)

func newCalibratedMock(t *testing.T) (*Device, *MockConnection) {
	t.Helper()

	dev, conn := NewMock(map[byte][]byte{
		ReadVIN:       {0x80, 0x25}, // 9600 -> 12 V
		ReadVOUT:      {0x40, 0x25}, // 9536 -> 11.92 V
		MfrReadVShunt: {0xA0, 0x0F}, // 4000 -> 10 mV
		ReadIIN:       {0xF6, 0xFF}, // -10 counts
		ReadIOUT:      {0x0A, 0x00}, // 10 counts
		ReadPIN:       {0xE8, 0x03}, // 1000 counts
		ReadEIN:       {0x10, 0x00, 0x01, 0x05, 0x00, 0x00},
	})
	if _, err := dev.Calibrate(CalibrationParams{ShuntResistance: 0.002, MaxCurrent: 10}); err != nil {
		t.Fatalf("Calibrate() error = %v", err)
	}
	return dev, conn
}

func TestDeviceReads(t *testing.T) {
	dev, _ := newCalibratedMock(t)
	lsb := 10.0 / 32768

	tests := []struct {
		name string
		read func() (float64, error)
		want float64
	}{
		{"current in mA", func() (float64, error) { return dev.CurrentIn(Milli) }, -10 * lsb * 1e3},
		{"current in uA", func() (float64, error) { return dev.CurrentIn(Micro) }, -10 * lsb * 1e6},
		{"current out A", func() (float64, error) { return dev.CurrentOut(Unit) }, 10 * lsb},
		{"bus voltage in", dev.BusVoltageIn, 12},
		{"bus voltage out", dev.BusVoltageOut, 11.92},
		{"shunt voltage", dev.ShuntVoltage, 10},
		{"power in W", func() (float64, error) { return dev.PowerIn(Unit) }, 1000 * 25 * lsb},
		{"average power mW", func() (float64, error) { return dev.AveragePower(Milli) }, 65552.0 / 5 * 25 * lsb * 1e3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.read()
			if err != nil {
				t.Fatalf("read error = %v", err)
			}
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	raw, err := dev.RawCurrentIn()
	if err != nil {
		t.Fatalf("RawCurrentIn() error = %v", err)
	}
	if raw != -10 {
		t.Errorf("RawCurrentIn() = %d, want -10", raw)
	}
}

func TestDeviceTelemetry(t *testing.T) {
	dev, conn := newCalibratedMock(t)

	tm, err := dev.Telemetry()
	if err != nil {
		t.Fatalf("Telemetry() error = %v", err)
	}
	if math.Abs(tm.BusVoltageIn-12) > 1e-9 {
		t.Errorf("BusVoltageIn = %v, want 12", tm.BusVoltageIn)
	}
	if tm.CurrentIn >= 0 {
		t.Errorf("CurrentIn = %v, want negative", tm.CurrentIn)
	}
	if tm.AveragePower == nil {
		t.Fatalf("AveragePower = nil, want a value")
	}
	if tm.EnergySampleCount != 5 {
		t.Errorf("EnergySampleCount = %d, want 5", tm.EnergySampleCount)
	}

	// A fresh accumulator has no samples; the snapshot still succeeds.
	if err := dev.ClearEnergy(); err != nil {
		t.Fatalf("ClearEnergy() error = %v", err)
	}
	tm, err = dev.Telemetry()
	if err != nil {
		t.Fatalf("Telemetry() after clear error = %v", err)
	}
	if tm.AveragePower != nil {
		t.Errorf("AveragePower = %v, want nil", *tm.AveragePower)
	}
	if _, err := dev.AveragePower(Milli); !errors.Is(err, ErrDivideByZero) {
		t.Errorf("AveragePower() error = %v, want ErrDivideByZero", err)
	}

	last := conn.Writes()[len(conn.Writes())-1]
	if !last.Send || last.Reg != ClearEIN {
		t.Errorf("last write = %+v, want CLEAR_EIN", last)
	}
}

func TestDeviceNotCalibrated(t *testing.T) {
	dev, _ := NewMock(nil)

	if _, err := dev.CurrentIn(Milli); !errors.Is(err, ErrNotCalibrated) {
		t.Errorf("CurrentIn() error = %v, want ErrNotCalibrated", err)
	}
	if _, err := dev.PowerIn(Milli); !errors.Is(err, ErrNotCalibrated) {
		t.Errorf("PowerIn() error = %v, want ErrNotCalibrated", err)
	}
	if _, err := dev.Telemetry(); !errors.Is(err, ErrNotCalibrated) {
		t.Errorf("Telemetry() error = %v, want ErrNotCalibrated", err)
	}
	if _, err := dev.BusVoltageIn(); err != nil {
		t.Errorf("BusVoltageIn() error = %v, want nil", err)
	}
}

func TestDeviceTransportError(t *testing.T) {
	dev, conn := newCalibratedMock(t)
	cause := errors.New("bus fault")
	conn.ReadErr = cause

	_, err := dev.Telemetry()
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Telemetry() error = %v, want ErrTransport", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Telemetry() error = %v, want cause kept", err)
	}
}

func TestDeviceStatusAndIdentity(t *testing.T) {
	dev, conn := newCalibratedMock(t)
	conn.Set(StatusByte, []byte{0x02})
	conn.SetWord(StatusWord, 0x0802)

	st, err := dev.Status()
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Byte != 0x02 || st.Word != 0x0802 {
		t.Errorf("Status() = %+v", st)
	}

	if err := dev.ClearFaults(); err != nil {
		t.Fatalf("ClearFaults() error = %v", err)
	}
	st, err = dev.Status()
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Byte != 0 || st.Word != 0 {
		t.Errorf("Status() after ClearFaults = %+v, want zero", st)
	}

	id, err := dev.Identity()
	if err != nil {
		t.Fatalf("Identity() error = %v", err)
	}
	if id.MfrID != "TI" || id.MfrModel != "INA233" || id.MfrRevision != "A0" {
		t.Errorf("Identity() = %+v", id)
	}
	if id.TIMfrID != 0x5449 {
		t.Errorf("TIMfrID = 0x%04X, want 0x5449", id.TIMfrID)
	}
}

func TestDeviceRestoreDefaults(t *testing.T) {
	dev, _ := newCalibratedMock(t)

	if err := dev.RestoreDefaults(); err != nil {
		t.Fatalf("RestoreDefaults() error = %v", err)
	}
	if dev.Calibration() != nil {
		t.Errorf("Calibration() survived RestoreDefaults")
	}
}

func TestWarnLimits(t *testing.T) {
	dev, conn := newCalibratedMock(t)
	overCurrent, overVoltage, underVoltage, overPower := 5.0, 14.0, 10.0, 40.0

	err := dev.SetWarnLimits(limitsOf(&overCurrent, &overVoltage, &underVoltage, &overPower))
	if err != nil {
		t.Fatalf("SetWarnLimits() error = %v", err)
	}

	raw := map[byte]uint16{
		IoutOCWarnLimit: 16380,
		VinOVWarnLimit:  11200,
		VinUVWarnLimit:  8000,
		PinOPWarnLimit:  5243,
	}
	for reg, want := range raw {
		if got := conn.Word(reg); got != want {
			t.Errorf("register 0x%02X = %d, want %d", reg, got, want)
		}
	}

	l, err := dev.WarnLimits()
	if err != nil {
		t.Fatalf("WarnLimits() error = %v", err)
	}
	if math.Abs(*l.OverCurrent-5) > 1e-9 || math.Abs(*l.OverVoltage-14) > 1e-9 || math.Abs(*l.UnderVoltage-10) > 1e-9 {
		t.Errorf("WarnLimits() = %v %v %v", *l.OverCurrent, *l.OverVoltage, *l.UnderVoltage)
	}
	if math.Abs(*l.OverPower-40) > 0.01 {
		t.Errorf("OverPower = %v, want ~40", *l.OverPower)
	}
}

func TestWarnLimitsErrors(t *testing.T) {
	dev, _ := NewMock(nil)
	overCurrent, overVoltage := 5.0, 14.0

	if err := dev.SetWarnLimits(limitsOf(nil, &overVoltage, nil, nil)); err != nil {
		t.Errorf("voltage limit without calibration error = %v", err)
	}
	if err := dev.SetWarnLimits(limitsOf(&overCurrent, nil, nil, nil)); !errors.Is(err, ErrNotCalibrated) {
		t.Errorf("current limit without calibration error = %v, want ErrNotCalibrated", err)
	}

	dev, _ = newCalibratedMock(t)
	tooHigh := 25.0
	if err := dev.SetWarnLimits(limitsOf(&tooHigh, nil, nil, nil)); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("25 A limit error = %v, want ErrOutOfRange", err)
	}
}

func TestWarnLimitsWriteNothingOnError(t *testing.T) {
	overCurrent, overVoltage, overPower := 5.0, 14.0, 1000.0

	uncalibrated, uncalibratedConn := NewMock(nil)
	calibrated, calibratedConn := newCalibratedMock(t)

	tests := []struct {
		name   string
		dev    *Device
		conn   *MockConnection
		limits types.Limits
		want   error
	}{
		{"power limit out of range", calibrated, calibratedConn, limitsOf(&overCurrent, &overVoltage, nil, &overPower), ErrOutOfRange},
		{"power limit without calibration", uncalibrated, uncalibratedConn, limitsOf(nil, &overVoltage, nil, &overPower), ErrNotCalibrated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := tt.conn
			before := len(conn.Writes())
			if err := tt.dev.SetWarnLimits(tt.limits); !errors.Is(err, tt.want) {
				t.Fatalf("SetWarnLimits() error = %v, want %v", err, tt.want)
			}
			if got := conn.Writes()[before:]; len(got) != 0 {
				t.Errorf("SetWarnLimits() wrote %v before failing", got)
			}
		})
	}
}
