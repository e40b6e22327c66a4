package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inamon/inamon/pkg/ina233"
)

func NewCalibrateCommand() *cobra.Command {
	var (
		params  ina233.CalibrationParams
		offline bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:     "calibrate",
		GroupID: gBasic,
		Short:   "Calibrate the INA233 for a shunt resistor",
		Long: `Calibrate the INA233 for a shunt resistor and the maximum expected current.

The daemon computes MFR_CALIBRATION, writes it and saves the parameters to its
config file. With --offline the values are only computed and printed.`,
		Example: `  inamon calibrate --shunt 0.002 --max-current 10
  inamon calibrate --shunt 0.1 --max-current 0.5 --offline --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				res *ina233.CalibrationResult
				err error
			)
			if offline {
				res, err = ina233.Calibrate(params)
			} else {
				res, err = apiClient.SetCalibration(params)
			}
			if err != nil {
				return fmt.Errorf("failed to calibrate: %w", err)
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), res)
			}

			if !offline {
				logrus.Infof("calibration applied")
			}
			printCalibration(cmd, res)
			return nil
		},
	}

	f := cmd.Flags()
	f.Float64Var(&params.ShuntResistance, "shunt", 0, "shunt resistance in ohm")
	f.Float64Var(&params.MaxCurrent, "max-current", 0, "maximum expected current in A")
	f.BoolVar(&offline, "offline", false, "only compute the values, do not contact the daemon")
	f.BoolVar(&asJSON, "json", false, "print machine-readable JSON")
	_ = cmd.MarkFlagRequired("shunt")
	_ = cmd.MarkFlagRequired("max-current")

	return cmd
}

func printCalibration(cmd *cobra.Command, res *ina233.CalibrationResult) {
	cmd.Printf("MFR_CALIBRATION: %s\n", bold("%d (0x%04X)", res.Cal, res.Cal))
	cmd.Printf("Current LSB: %s\n", bold("%g A", res.CurrentLSB))
	cmd.Printf("Power LSB: %s\n", bold("%g W", res.PowerLSB))
	cmd.Printf("Current coefficient: m=%s R=%s\n", bold("%d", res.CurrentCoefficient.M), bold("%d", res.CurrentCoefficient.R))
	cmd.Printf("Power coefficient: m=%s R=%s\n", bold("%d", res.PowerCoefficient.M), bold("%d", res.PowerCoefficient.R))
}
