package ina233

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// PeriphConnection talks to the chip through a periph.io I²C bus.
type PeriphConnection struct {
	busName string
	addr    uint16

	bus i2c.BusCloser
	dev *i2c.Dev
}

var _ Connection = &PeriphConnection{}

// NewPeriphConnection returns a connection that opens busName (e.g.
// "/dev/i2c-1" or "1"; empty selects the first bus) on Open.
func NewPeriphConnection(busName string, addr uint16) *PeriphConnection {
	return &PeriphConnection{
		busName: busName,
		addr:    addr,
	}
}

// NewPeriphConnectionOnBus wraps an already opened bus. Close does not
// close the bus.
func NewPeriphConnectionOnBus(bus i2c.Bus, addr uint16) *PeriphConnection {
	return &PeriphConnection{
		addr: addr,
		dev:  &i2c.Dev{Bus: bus, Addr: addr},
	}
}

func (c *PeriphConnection) Open() error {
	if c.dev != nil {
		return nil
	}

	if _, err := host.Init(); err != nil {
		return errors.Wrap(err, "failed to load periph host drivers")
	}

	bus, err := i2creg.Open(c.busName)
	if err != nil {
		return errors.Wrapf(err, "failed to open I2C bus %q", c.busName)
	}

	logrus.WithFields(logrus.Fields{
		"bus":  bus.String(),
		"addr": c.addr,
	}).Debug("opened I2C bus")

	c.bus = bus
	c.dev = &i2c.Dev{Bus: bus, Addr: c.addr}
	return nil
}

func (c *PeriphConnection) Close() error {
	c.dev = nil
	if c.bus == nil {
		return nil
	}
	err := c.bus.Close()
	c.bus = nil
	return err
}

func (c *PeriphConnection) ReadRegister(reg byte, n int) ([]byte, error) {
	if c.dev == nil {
		return nil, errors.New("I2C bus is not open")
	}
	r := make([]byte, n)
	if err := c.dev.Tx([]byte{reg}, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *PeriphConnection) WriteRegister(reg byte, value uint16) error {
	if c.dev == nil {
		return errors.New("I2C bus is not open")
	}
	w := make([]byte, 1, 1+wordLen)
	w[0] = reg
	w = binary.LittleEndian.AppendUint16(w, value)
	return c.dev.Tx(w, nil)
}

func (c *PeriphConnection) SendByte(reg byte) error {
	if c.dev == nil {
		return errors.New("I2C bus is not open")
	}
	return c.dev.Tx([]byte{reg}, nil)
}
