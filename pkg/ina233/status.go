package ina233

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/inamon/inamon/pkg/types"
)

var statusRegisters = []byte{
	StatusByte,
	StatusWord,
	StatusIOUT,
	StatusInput,
	StatusCML,
	StatusMfrSpecific,
}

// blockStringMax is the longest manufacturer string the INA233 returns.
const blockStringMax = 6

// ClearFaults clears every latched status bit.
func (d *Device) ClearFaults() error {
	logrus.Tracef("ClearFaults called")

	return d.Send(ClearFaults)
}

// ClearEnergy resets the energy accumulator and sample count.
func (d *Device) ClearEnergy() error {
	logrus.Tracef("ClearEnergy called")

	return d.Send(ClearEIN)
}

// RestoreDefaults restores every register to its power-on default, which
// also zeroes MFR_CALIBRATION. The device needs Calibrate again afterwards.
func (d *Device) RestoreDefaults() error {
	logrus.Tracef("RestoreDefaults called")

	if err := d.Send(RestoreDefaultAll); err != nil {
		return err
	}
	d.setCalibration(nil)
	return nil
}

// Status reads the PMBus status registers.
func (d *Device) Status() (*types.Status, error) {
	var s types.Status
	var err error

	if s.Byte, err = d.readByte(StatusByte); err != nil {
		return nil, err
	}
	if s.Word, err = d.ReadWord(StatusWord); err != nil {
		return nil, err
	}
	if s.Iout, err = d.readByte(StatusIOUT); err != nil {
		return nil, err
	}
	if s.Input, err = d.readByte(StatusInput); err != nil {
		return nil, err
	}
	if s.CML, err = d.readByte(StatusCML); err != nil {
		return nil, err
	}
	if s.MfrSpecific, err = d.readByte(StatusMfrSpecific); err != nil {
		return nil, err
	}

	return &s, nil
}

// Identity reads the manufacturer strings and TI identification words.
func (d *Device) Identity() (*types.Identity, error) {
	var id types.Identity
	var err error

	if id.MfrID, err = d.readBlockString(MfrID); err != nil {
		return nil, err
	}
	if id.MfrModel, err = d.readBlockString(MfrModel); err != nil {
		return nil, err
	}
	if id.MfrRevision, err = d.readBlockString(MfrRevision); err != nil {
		return nil, err
	}
	if id.TIMfrID, err = d.ReadWord(TIMfrID); err != nil {
		return nil, err
	}
	if id.TIMfrModel, err = d.ReadWord(TIMfrModel); err != nil {
		return nil, err
	}
	if id.TIMfrRevision, err = d.ReadWord(TIMfrRevision); err != nil {
		return nil, err
	}

	return &id, nil
}

// ADCConfig reads MFR_ADC_CONFIG.
func (d *Device) ADCConfig() (uint16, error) {
	return d.ReadWord(MfrADCConfig)
}

// ConfigureADC writes MFR_ADC_CONFIG (averaging, conversion times, mode).
func (d *Device) ConfigureADC(word uint16) error {
	return d.WriteWord(MfrADCConfig, word)
}

func (d *Device) readByte(reg byte) (uint8, error) {
	b, err := d.Read(reg, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// readBlockString performs a PMBus block read: a length byte followed by
// that many characters.
func (d *Device) readBlockString(reg byte) (string, error) {
	b, err := d.Read(reg, blockStringMax+1)
	if err != nil {
		return "", err
	}
	n := int(b[0])
	if n > len(b)-1 {
		return "", errors.Wrapf(ErrShortRead, "register 0x%02X: block length %d exceeds %d", reg, n, len(b)-1)
	}
	return string(b[1 : 1+n]), nil
}
