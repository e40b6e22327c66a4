package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inamon/inamon/pkg/types"
)

func NewLimitsCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "limits",
		GroupID: gBasic,
		Short:   "Show the warning thresholds",
		Long: `Show the over-current, over-voltage, under-voltage and over-power warning
thresholds as read back from the chip.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := apiClient.GetLimits()
			if err != nil {
				return fmt.Errorf("failed to get limits: %w", err)
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), l)
			}
			printLimits(cmd, l)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print machine-readable JSON")
	cmd.AddCommand(newSetLimitsCommand())

	return cmd
}

func newSetLimitsCommand() *cobra.Command {
	var overCurrent, overVoltage, underVoltage, overPower float64

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set one or more warning thresholds",
		Long: `Set one or more warning thresholds. Only the flags given are written.
Current and power thresholds use the active calibration.`,
		Example: `  inamon limits set --over-voltage 14 --under-voltage 10
  inamon limits set --over-current 8.5`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()
			l := types.Limits{}
			pick := func(name string, v float64) *float64 {
				if !f.Changed(name) {
					return nil
				}
				return &v
			}
			l.OverCurrent = pick("over-current", overCurrent)
			l.OverVoltage = pick("over-voltage", overVoltage)
			l.UnderVoltage = pick("under-voltage", underVoltage)
			l.OverPower = pick("over-power", overPower)

			if l.OverCurrent == nil && l.OverVoltage == nil && l.UnderVoltage == nil && l.OverPower == nil {
				return fmt.Errorf("no limit given")
			}

			readBack, err := apiClient.SetLimits(l)
			if err != nil {
				return fmt.Errorf("failed to set limits: %w", err)
			}

			cmd.Println(bold("Warn limits:"))
			printLimits(cmd, readBack)
			return nil
		},
	}

	f := cmd.Flags()
	f.Float64Var(&overCurrent, "over-current", 0, "IOUT over-current warning in A")
	f.Float64Var(&overVoltage, "over-voltage", 0, "VIN over-voltage warning in V")
	f.Float64Var(&underVoltage, "under-voltage", 0, "VIN under-voltage warning in V")
	f.Float64Var(&overPower, "over-power", 0, "PIN over-power warning in W")

	return cmd
}
