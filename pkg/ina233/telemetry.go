package ina233

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/inamon/inamon/pkg/types"
)

// RawCurrentIn returns READ_IIN as a signed count.
func (d *Device) RawCurrentIn() (int64, error) {
	raw, err := d.ReadWord(ReadIIN)
	if err != nil {
		return 0, err
	}
	return ToSigned(uint64(raw), 16), nil
}

// CurrentIn returns the input current in the requested scale of amps.
func (d *Device) CurrentIn(s Scale) (float64, error) {
	return d.current(ReadIIN, s)
}

// CurrentOut returns the output current in the requested scale of amps.
func (d *Device) CurrentOut(s Scale) (float64, error) {
	return d.current(ReadIOUT, s)
}

func (d *Device) current(reg byte, s Scale) (float64, error) {
	cal, err := d.calibration()
	if err != nil {
		return 0, err
	}
	raw, err := d.ReadWord(reg)
	if err != nil {
		return 0, err
	}
	return s.Apply(DecodeCurrent(raw, cal.CurrentLSB)), nil
}

// BusVoltageIn returns VIN in volts.
func (d *Device) BusVoltageIn() (float64, error) {
	raw, err := d.ReadWord(ReadVIN)
	if err != nil {
		return 0, err
	}
	return DecodeBusVoltage(raw), nil
}

// BusVoltageOut returns VOUT in volts.
func (d *Device) BusVoltageOut() (float64, error) {
	raw, err := d.ReadWord(ReadVOUT)
	if err != nil {
		return 0, err
	}
	return DecodeBusVoltage(raw), nil
}

// ShuntVoltage returns the shunt voltage in millivolts.
func (d *Device) ShuntVoltage() (float64, error) {
	raw, err := d.ReadWord(MfrReadVShunt)
	if err != nil {
		return 0, err
	}
	return DecodeShuntVoltage(raw), nil
}

// PowerIn returns the input power in the requested scale of watts.
func (d *Device) PowerIn(s Scale) (float64, error) {
	cal, err := d.calibration()
	if err != nil {
		return 0, err
	}
	raw, err := d.ReadWord(ReadPIN)
	if err != nil {
		return 0, err
	}
	return s.Apply(DecodePower(raw, cal.PowerLSB)), nil
}

// Energy reads a fresh READ_EIN frame.
func (d *Device) Energy() (EnergyAccumulatorState, error) {
	raw, err := d.Read(ReadEIN, energyFrameLen)
	if err != nil {
		return EnergyAccumulatorState{}, err
	}
	return DecodeEnergy(raw)
}

// AveragePower returns the average input power since the last CLEAR_EIN in
// the requested scale of watts. ErrDivideByZero means no samples yet.
func (d *Device) AveragePower(s Scale) (float64, error) {
	cal, err := d.calibration()
	if err != nil {
		return 0, err
	}
	raw, err := d.Read(ReadEIN, energyFrameLen)
	if err != nil {
		return 0, err
	}
	w, err := DecodeAveragePower(raw, cal.PowerLSB)
	if err != nil {
		return 0, err
	}
	return s.Apply(w), nil
}

// Telemetry reads every measurement register once. A zero energy sample
// count leaves AveragePower unset instead of failing the whole snapshot.
func (d *Device) Telemetry() (*types.Telemetry, error) {
	cal, err := d.calibration()
	if err != nil {
		return nil, err
	}

	vin, err := d.BusVoltageIn()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read bus voltage in")
	}
	vout, err := d.BusVoltageOut()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read bus voltage out")
	}
	vshunt, err := d.ShuntVoltage()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read shunt voltage")
	}
	iin, err := d.ReadWord(ReadIIN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read current in")
	}
	iout, err := d.ReadWord(ReadIOUT)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read current out")
	}
	pin, err := d.ReadWord(ReadPIN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read power in")
	}
	energy, err := d.Energy()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read energy accumulator")
	}

	t := &types.Telemetry{
		Timestamp:         time.Now(),
		BusVoltageIn:      vin,
		BusVoltageOut:     vout,
		ShuntVoltage:      vshunt,
		CurrentIn:         Milli.Apply(DecodeCurrent(iin, cal.CurrentLSB)),
		CurrentOut:        Milli.Apply(DecodeCurrent(iout, cal.CurrentLSB)),
		PowerIn:           Milli.Apply(DecodePower(pin, cal.PowerLSB)),
		EnergySampleCount: energy.SampleCount,
	}

	avg, err := energy.AverageRaw()
	switch {
	case err == nil:
		mw := Milli.Apply(avg * cal.PowerLSB)
		t.AveragePower = &mw
	case errors.Is(err, ErrDivideByZero):
		logrus.Debug("energy accumulator has no samples yet")
	default:
		return nil, err
	}

	return t, nil
}
