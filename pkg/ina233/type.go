package ina233

// Connection is the bus collaborator the device talks through. Words travel
// little-endian, as PMBus specifies.
type Connection interface {
	Open() error
	Close() error
	// ReadRegister reads n bytes starting at reg.
	ReadRegister(reg byte, n int) ([]byte, error)
	// WriteRegister writes a 16-bit word to reg.
	WriteRegister(reg byte, value uint16) error
	// SendByte issues a data-less command such as CLEAR_FAULTS.
	SendByte(reg byte) error
}
