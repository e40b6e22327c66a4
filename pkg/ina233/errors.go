package ina233

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidParams is returned when the shunt resistance or the maximum
	// current is not a positive finite number.
	ErrInvalidParams = errors.New("invalid calibration parameters")

	// ErrOutOfRange is returned when the calibration value does not fit in
	// the 16-bit MFR_CALIBRATION register. A different shunt or current
	// range is required.
	ErrOutOfRange = errors.New("calibration value out of range")

	// ErrNumeric is returned when a coefficient cannot be fitted into the
	// signed 16-bit mantissa within the iteration budget.
	ErrNumeric = errors.New("coefficient fitting did not converge")

	// ErrDivideByZero is returned when the energy accumulator reports zero
	// samples, e.g. right after power-up or CLEAR_EIN. Retry later.
	ErrDivideByZero = errors.New("energy sample count is zero")

	// ErrShortRead is returned when a register read returns fewer bytes
	// than the register holds.
	ErrShortRead = errors.New("short register read")

	// ErrNotCalibrated is returned by calibrated reads before Calibrate.
	ErrNotCalibrated = errors.New("device is not calibrated")

	// ErrTransport wraps every failure reported by a Connection.
	ErrTransport = errors.New("bus transport error")

	// ErrUnsupported is returned by connections lacking a bus primitive.
	ErrUnsupported = errors.New("operation not supported by connection")
)

// transportError keeps the bus cause while matching ErrTransport.
type transportError struct {
	op    string
	reg   byte
	cause error
}

func (e *transportError) Error() string {
	return fmt.Sprintf("%s register 0x%02X: %v: %v", e.op, e.reg, ErrTransport, e.cause)
}

func (e *transportError) Is(target error) bool { return target == ErrTransport }

func (e *transportError) Unwrap() error { return e.cause }

func wrapTransport(op string, reg byte, err error) error {
	if err == nil {
		return nil
	}
	return &transportError{op: op, reg: reg, cause: err}
}
