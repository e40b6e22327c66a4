package ina233

import (
	"encoding/binary"
	"sync"

	"github.com/pkg/errors"
)

// Write is one WriteRegister or SendByte call seen by a MockConnection.
// Value is zero for SendByte.
type Write struct {
	Reg   byte
	Value uint16
	Send  bool
}

// MockConnection is an in-memory register file. Reads of unset registers
// fail like a NACK would.
type MockConnection struct {
	mu        sync.Mutex
	registers map[byte][]byte
	writes    []Write
	open      bool

	// ReadErr and WriteErr, when set, are returned by every read or write.
	ReadErr  error
	WriteErr error
}

var _ Connection = &MockConnection{}

// NewMockConnection returns a mock with every word register reading zero.
func NewMockConnection() *MockConnection {
	m := &MockConnection{
		registers: make(map[byte][]byte),
	}
	for _, reg := range wordRegisters {
		m.registers[reg] = make([]byte, wordLen)
	}
	m.registers[ReadEIN] = make([]byte, energyFrameLen)
	for _, reg := range statusRegisters {
		if _, ok := m.registers[reg]; !ok {
			m.registers[reg] = []byte{0}
		}
	}
	m.registers[MfrID] = blockString("TI")
	m.registers[MfrModel] = blockString("INA233")
	m.registers[MfrRevision] = blockString("A0")
	m.registers[TIMfrID] = []byte{'I', 'T'}
	m.registers[TIMfrModel] = []byte{'3', '3'}
	m.registers[TIMfrRevision] = []byte{'0', 'A'}
	return m
}

func (m *MockConnection) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = true
	return nil
}

func (m *MockConnection) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
	return nil
}

func blockString(s string) []byte {
	return append([]byte{byte(len(s))}, s...)
}

// Set replaces the raw contents of reg.
func (m *MockConnection) Set(reg byte, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registers[reg] = append([]byte(nil), value...)
}

// SetWord stores a little-endian word in reg.
func (m *MockConnection) SetWord(reg byte, value uint16) {
	b := make([]byte, wordLen)
	binary.LittleEndian.PutUint16(b, value)
	m.Set(reg, b)
}

// Word returns the word stored in reg.
func (m *MockConnection) Word(reg byte) uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.registers[reg]
	if len(b) < wordLen {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// Writes returns the write log.
func (m *MockConnection) Writes() []Write {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Write(nil), m.writes...)
}

func (m *MockConnection) ReadRegister(reg byte, n int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	v, ok := m.registers[reg]
	if !ok {
		return nil, errors.Errorf("mock: no device response for register 0x%02X", reg)
	}
	out := make([]byte, n)
	copy(out, v)
	return out, nil
}

func (m *MockConnection) WriteRegister(reg byte, value uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.WriteErr != nil {
		return m.WriteErr
	}
	b := make([]byte, wordLen)
	binary.LittleEndian.PutUint16(b, value)
	m.registers[reg] = b
	m.writes = append(m.writes, Write{Reg: reg, Value: value})
	return nil
}

func (m *MockConnection) SendByte(reg byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.WriteErr != nil {
		return m.WriteErr
	}
	switch reg {
	case ClearEIN:
		m.registers[ReadEIN] = make([]byte, energyFrameLen)
	case ClearFaults:
		for _, r := range statusRegisters {
			if v, ok := m.registers[r]; ok {
				m.registers[r] = make([]byte, len(v))
			}
		}
	}
	m.writes = append(m.writes, Write{Reg: reg, Send: true})
	return nil
}

// IsOpen reports whether Open was called without a later Close.
func (m *MockConnection) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}
