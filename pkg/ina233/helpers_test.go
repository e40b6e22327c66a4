package ina233

import "github.com/inamon/inamon/pkg/types"

func limitsOf(overCurrent, overVoltage, underVoltage, overPower *float64) types.Limits {
	return types.Limits{
		OverCurrent:  overCurrent,
		OverVoltage:  overVoltage,
		UnderVoltage: underVoltage,
		OverPower:    overPower,
	}
}
