package config

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inamon/inamon/pkg/ina233"
	"github.com/inamon/inamon/pkg/types"
)

// Driver names accepted in the config file.
const (
	DriverPeriph = "periph"
	DriverSMBus  = "smbus"
	DriverMock   = "mock"
)

type Config interface {
	CalibrationParams() ina233.CalibrationParams
	Bus() string
	Address() uint16
	Driver() string
	PollInterval() time.Duration
	EnergyResetCron() string
	AllowNonRootAccess() bool
	// Limits returns the configured warn limits, or nil.
	Limits() *types.Limits
	// ADCConfig returns the MFR_ADC_CONFIG word to apply, if one is set.
	ADCConfig() (uint16, bool)

	SetCalibrationParams(ina233.CalibrationParams)
	SetEnergyResetCron(string)
	SetAllowNonRootAccess(bool)
	SetLimits(*types.Limits)

	LogrusFields() logrus.Fields

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
