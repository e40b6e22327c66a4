package ina233

import (
	"errors"
	"testing"
)

type fakeSMBus struct {
	sent   []byte
	words  map[byte]uint16
	err    error
	closed bool
}

func (f *fakeSMBus) WriteByte(b byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.sent = append(f.sent, b)
	return 1, nil
}

func (f *fakeSMBus) WriteWord(_, reg uint8, v uint16) error {
	if f.words == nil {
		f.words = map[byte]uint16{}
	}
	f.words[reg] = v
	return f.err
}

func (f *fakeSMBus) ReadBlockData(_, _ uint8, buf []byte) error {
	return f.err
}

func (f *fakeSMBus) Close() error {
	f.closed = true
	return nil
}

func TestSMBusSendByteNotOpen(t *testing.T) {
	dev := New(NewSMBusConnection(1, DefaultAddress))
	err := dev.ClearEnergy()
	if err == nil {
		t.Fatal("ClearEnergy() on a closed bus succeeded")
	}
	if errors.Is(err, ErrUnsupported) {
		t.Errorf("ClearEnergy() error = %v, should not be ErrUnsupported", err)
	}
}

func TestSMBusSendByte(t *testing.T) {
	fake := &fakeSMBus{}
	conn := NewSMBusConnection(1, DefaultAddress)
	conn.conn = fake
	dev := New(conn)

	for _, tt := range []struct {
		name string
		fn   func() error
		want byte
	}{
		{"ClearEnergy", dev.ClearEnergy, ClearEIN},
		{"ClearFaults", dev.ClearFaults, ClearFaults},
		{"RestoreDefaults", dev.RestoreDefaults, RestoreDefaultAll},
	} {
		t.Run(tt.name, func(t *testing.T) {
			fake.sent = nil
			if err := tt.fn(); err != nil {
				t.Fatalf("%s() error = %v", tt.name, err)
			}
			if len(fake.sent) != 1 || fake.sent[0] != tt.want {
				t.Errorf("sent %X, want [%02X]", fake.sent, tt.want)
			}
		})
	}

	fake.err = errors.New("remote I/O error")
	if err := dev.ClearEnergy(); !errors.Is(err, ErrTransport) {
		t.Errorf("ClearEnergy() error = %v, want ErrTransport", err)
	}

	if err := conn.Close(); err != nil || !fake.closed {
		t.Errorf("Close() = %v, closed = %v", err, fake.closed)
	}
}
