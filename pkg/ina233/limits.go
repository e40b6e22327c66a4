package ina233

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/inamon/inamon/pkg/types"
)

// SetWarnLimits encodes every non-nil limit with the matching coefficient
// and writes them. Nothing is written unless every limit encodes. Current
// and power limits need a calibration.
func (d *Device) SetWarnLimits(l types.Limits) error {
	limits := []struct {
		name  string
		reg   byte
		value *float64
		coeff func() (Coefficient, error)
	}{
		{"over-current", IoutOCWarnLimit, l.OverCurrent, d.currentCoefficient},
		{"over-voltage", VinOVWarnLimit, l.OverVoltage, busVoltageCoefficient},
		{"under-voltage", VinUVWarnLimit, l.UnderVoltage, busVoltageCoefficient},
		{"over-power", PinOPWarnLimit, l.OverPower, d.powerCoefficient},
	}

	type write struct {
		name  string
		reg   byte
		value float64
		raw   uint16
	}
	writes := make([]write, 0, len(limits))
	for _, lim := range limits {
		if lim.value == nil {
			continue
		}
		c, err := lim.coeff()
		if err != nil {
			return err
		}
		y, err := c.Encode(*lim.value)
		if err != nil {
			return errors.Wrapf(err, "invalid %s limit", lim.name)
		}
		writes = append(writes, write{lim.name, lim.reg, *lim.value, y})
	}

	for _, w := range writes {
		if err := d.WriteWord(w.reg, w.raw); err != nil {
			return errors.Wrapf(err, "failed to write %s limit", w.name)
		}
		logrus.WithFields(logrus.Fields{
			"limit": w.name,
			"value": w.value,
			"raw":   w.raw,
		}).Debug("warn limit written")
	}

	return nil
}

// WarnLimits reads back every warning threshold.
func (d *Device) WarnLimits() (*types.Limits, error) {
	cc, err := d.currentCoefficient()
	if err != nil {
		return nil, err
	}
	pc, err := d.powerCoefficient()
	if err != nil {
		return nil, err
	}

	read := func(reg byte, c Coefficient) (*float64, error) {
		y, err := d.ReadWord(reg)
		if err != nil {
			return nil, err
		}
		v := c.Decode(int64(y))
		return &v, nil
	}

	var l types.Limits
	if l.OverCurrent, err = read(IoutOCWarnLimit, cc); err != nil {
		return nil, err
	}
	if l.OverVoltage, err = read(VinOVWarnLimit, BusVoltageCoefficient); err != nil {
		return nil, err
	}
	if l.UnderVoltage, err = read(VinUVWarnLimit, BusVoltageCoefficient); err != nil {
		return nil, err
	}
	if l.OverPower, err = read(PinOPWarnLimit, pc); err != nil {
		return nil, err
	}
	return &l, nil
}

func (d *Device) currentCoefficient() (Coefficient, error) {
	cal, err := d.calibration()
	if err != nil {
		return Coefficient{}, err
	}
	return cal.CurrentCoefficient, nil
}

func (d *Device) powerCoefficient() (Coefficient, error) {
	cal, err := d.calibration()
	if err != nil {
		return Coefficient{}, err
	}
	return cal.PowerCoefficient, nil
}

func busVoltageCoefficient() (Coefficient, error) {
	return BusVoltageCoefficient, nil
}
