package ina233

import (
	"encoding/binary"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Device is an INA233 reached through a Connection. The zero calibration
// state only allows raw and fixed-scale reads; Calibrate unlocks the rest.
type Device struct {
	conn Connection
	// mu serializes bus transactions issued by concurrent callers.
	mu  sync.Mutex
	cal *CalibrationResult
}

// New returns a new Device on conn.
func New(conn Connection) *Device {
	return &Device{
		conn: conn,
	}
}

// NewMock returns a Device backed by a MockConnection with prefilled
// register contents.
func NewMock(prefillValues map[byte][]byte) (*Device, *MockConnection) {
	conn := NewMockConnection()

	for reg, value := range prefillValues {
		conn.Set(reg, value)
	}

	return New(conn), conn
}

// Open opens the connection.
func (d *Device) Open() error {
	return d.conn.Open()
}

// Close closes the connection.
func (d *Device) Close() error {
	return d.conn.Close()
}

// Calibration returns a copy of the active calibration, or nil.
func (d *Device) Calibration() *CalibrationResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cal == nil {
		return nil
	}
	c := *d.cal
	return &c
}

// Read reads n raw bytes from reg.
func (d *Device) Read(reg byte, n int) ([]byte, error) {
	logrus.WithFields(logrus.Fields{
		"reg": reg,
		"len": n,
	}).Trace("Trying to read from INA233")

	d.mu.Lock()
	v, err := d.conn.ReadRegister(reg, n)
	d.mu.Unlock()
	if err != nil {
		return nil, wrapTransport("read", reg, err)
	}
	if len(v) < n {
		return nil, errors.Wrapf(ErrShortRead, "register 0x%02X: got %d bytes, want %d", reg, len(v), n)
	}

	logrus.WithFields(logrus.Fields{
		"reg": reg,
		"val": v,
	}).Trace("Read from INA233 succeed")

	return v, nil
}

// ReadWord reads a 16-bit little-endian word from reg.
func (d *Device) ReadWord(reg byte) (uint16, error) {
	b, err := d.Read(reg, wordLen)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// WriteWord writes a 16-bit word to reg.
func (d *Device) WriteWord(reg byte, value uint16) error {
	logrus.WithFields(logrus.Fields{
		"reg": reg,
		"val": value,
	}).Trace("Trying to write to INA233")

	d.mu.Lock()
	err := d.conn.WriteRegister(reg, value)
	d.mu.Unlock()
	if err != nil {
		return wrapTransport("write", reg, err)
	}

	logrus.WithFields(logrus.Fields{
		"reg": reg,
		"val": value,
	}).Trace("Write to INA233 succeed")

	return nil
}

// Send issues a data-less command.
func (d *Device) Send(reg byte) error {
	logrus.WithField("reg", reg).Trace("Trying to send command to INA233")

	d.mu.Lock()
	err := d.conn.SendByte(reg)
	d.mu.Unlock()
	if err != nil {
		return wrapTransport("send", reg, err)
	}

	return nil
}

func (d *Device) calibration() (*CalibrationResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cal == nil {
		return nil, ErrNotCalibrated
	}
	return d.cal, nil
}

func (d *Device) setCalibration(c *CalibrationResult) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cal = c
}
