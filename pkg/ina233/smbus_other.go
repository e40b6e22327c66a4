//go:build !linux

package ina233

import "github.com/pkg/errors"

// SMBusConnection is only available on Linux.
type SMBusConnection struct{}

var _ Connection = &SMBusConnection{}

// NewSMBusConnection returns a connection whose every call fails.
func NewSMBusConnection(int, uint16) *SMBusConnection {
	return &SMBusConnection{}
}

func (c *SMBusConnection) Open() error {
	return errors.Wrap(ErrUnsupported, "smbus requires linux")
}

func (c *SMBusConnection) Close() error { return nil }

func (c *SMBusConnection) ReadRegister(byte, int) ([]byte, error) {
	return nil, errors.Wrap(ErrUnsupported, "smbus requires linux")
}

func (c *SMBusConnection) WriteRegister(byte, uint16) error {
	return errors.Wrap(ErrUnsupported, "smbus requires linux")
}

func (c *SMBusConnection) SendByte(byte) error {
	return errors.Wrap(ErrUnsupported, "smbus requires linux")
}
