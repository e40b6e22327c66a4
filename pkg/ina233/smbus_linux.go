package ina233

import (
	"github.com/go-daq/smbus"
	"github.com/pkg/errors"
)

// smbusConn is the subset of *smbus.Conn used by SMBusConnection.
type smbusConn interface {
	WriteByte(b byte) (int, error)
	WriteWord(addr, reg uint8, v uint16) error
	ReadBlockData(addr, reg uint8, buf []byte) error
	Close() error
}

// SMBusConnection talks to the chip through the Linux i2c-dev SMBus ioctls.
type SMBusConnection struct {
	busNum int
	addr   uint8
	conn   smbusConn
}

var _ Connection = &SMBusConnection{}

// NewSMBusConnection returns a connection to /dev/i2c-<busNum>.
func NewSMBusConnection(busNum int, addr uint16) *SMBusConnection {
	return &SMBusConnection{
		busNum: busNum,
		addr:   uint8(addr),
	}
}

func (c *SMBusConnection) Open() error {
	conn, err := smbus.Open(c.busNum, c.addr)
	if err != nil {
		return errors.Wrapf(err, "failed to open SMBus %d", c.busNum)
	}
	if err := conn.SetAddr(c.addr); err != nil {
		_ = conn.Close()
		return errors.Wrapf(err, "failed to select address 0x%02X", c.addr)
	}
	c.conn = conn
	return nil
}

func (c *SMBusConnection) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *SMBusConnection) ReadRegister(reg byte, n int) ([]byte, error) {
	if c.conn == nil {
		return nil, errors.New("SMBus is not open")
	}
	buf := make([]byte, n)
	if err := c.conn.ReadBlockData(c.addr, reg, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (c *SMBusConnection) WriteRegister(reg byte, value uint16) error {
	if c.conn == nil {
		return errors.New("SMBus is not open")
	}
	return c.conn.WriteWord(c.addr, reg, value)
}

// SendByte writes the bare command code to the address selected in Open.
func (c *SMBusConnection) SendByte(reg byte) error {
	if c.conn == nil {
		return errors.New("SMBus is not open")
	}
	_, err := c.conn.WriteByte(reg)
	return err
}
