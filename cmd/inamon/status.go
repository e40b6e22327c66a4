package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inamon/inamon/pkg/client"
	"github.com/inamon/inamon/pkg/config"
	"github.com/inamon/inamon/pkg/ina233"
	"github.com/inamon/inamon/pkg/types"
)

type statusData struct {
	Telemetry   *types.Telemetry          `json:"telemetry,omitempty"`
	Calibration *ina233.CalibrationResult `json:"calibration,omitempty"`
	Status      *types.Status             `json:"status"`
	Limits      *types.Limits             `json:"limits,omitempty"`
	Identity    *types.Identity           `json:"identity"`
	ADCConfig   uint16                    `json:"adcConfig"`
	Health      *client.Health            `json:"health"`
	Config      *config.RawFileConfig     `json:"configuration"`
}

// isNoData reports whether err is the daemon saying there is nothing to
// show yet, as opposed to a real failure.
func isNoData(err error) bool {
	var se *client.StatusError
	return errors.As(err, &se) && se.Code == 503
}

// fetchStatusData gathers all data required for the status command from the daemon.
func fetchStatusData() (*statusData, error) {
	var err error
	data := &statusData{}

	data.Health, err = apiClient.GetHealth()
	if err != nil {
		return nil, fmt.Errorf("failed to get daemon health: %w", err)
	}

	data.Telemetry, err = apiClient.GetTelemetry()
	if err != nil && !isNoData(err) {
		return nil, fmt.Errorf("failed to get telemetry: %w", err)
	}

	data.Calibration, err = apiClient.GetCalibration()
	if err != nil && !isNoData(err) {
		return nil, fmt.Errorf("failed to get calibration: %w", err)
	}

	data.Status, err = apiClient.GetStatus()
	if err != nil {
		return nil, fmt.Errorf("failed to get status registers: %w", err)
	}

	data.Limits, err = apiClient.GetLimits()
	if err != nil && !isNoData(err) {
		return nil, fmt.Errorf("failed to get warn limits: %w", err)
	}

	data.Identity, err = apiClient.GetIdentity()
	if err != nil {
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}

	data.ADCConfig, err = apiClient.GetADCConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get ADC config: %w", err)
	}

	data.Config, err = apiClient.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}

	return data, nil
}

func NewStatusCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Get the current readings and state of the INA233",
		Long:    `Get telemetry, calibration, status registers, warn limits and configuration.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := fetchStatusData()
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), data)
			}

			printStatus(cmd, data)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print machine-readable JSON")

	return cmd
}

func printStatus(cmd *cobra.Command, data *statusData) {
	conf := config.NewFileFromConfig(data.Config, "")

	id := data.Identity
	cmd.Printf("%s %s rev %s (MFR_ADC_CONFIG 0x%04X)\n", bold("%s", id.MfrID), bold("%s", id.MfrModel), id.MfrRevision, data.ADCConfig)
	cmd.Println()

	cmd.Println(bold("Measurements:"))
	if t := data.Telemetry; t != nil {
		cmd.Printf("  Bus voltage in: %s\n", bold("%.3f V", t.BusVoltageIn))
		cmd.Printf("  Bus voltage out: %s\n", bold("%.3f V", t.BusVoltageOut))
		cmd.Printf("  Shunt voltage: %s\n", bold("%.4f mV", t.ShuntVoltage))
		cmd.Printf("  Current in: %s\n", bold("%.3f mA", t.CurrentIn))
		cmd.Printf("  Current out: %s\n", bold("%.3f mA", t.CurrentOut))
		cmd.Printf("  Power in: %s\n", bold("%.3f mW", t.PowerIn))
		if t.AveragePower != nil {
			cmd.Printf("  Average power: %s (%d samples)\n", bold("%.3f mW", *t.AveragePower), t.EnergySampleCount)
		} else {
			cmd.Println("  Average power: no samples yet")
		}
	} else {
		cmd.Println("  No data yet, the device is not calibrated.")
	}
	cmd.Println()

	cmd.Println(bold("Calibration:"))
	if c := data.Calibration; c != nil {
		cmd.Printf("  Shunt: %s, max current: %s\n", bold("%g Ω", c.Params.ShuntResistance), bold("%g A", c.Params.MaxCurrent))
		cmd.Printf("  MFR_CALIBRATION: %s\n", bold("%d (0x%04X)", c.Cal, c.Cal))
		cmd.Printf("  Current LSB: %s, power LSB: %s\n", bold("%g A", c.CurrentLSB), bold("%g W", c.PowerLSB))
		cmd.Printf("  Current coefficient: m=%d R=%d\n", c.CurrentCoefficient.M, c.CurrentCoefficient.R)
		cmd.Printf("  Power coefficient: m=%d R=%d\n", c.PowerCoefficient.M, c.PowerCoefficient.R)
	} else {
		cmd.Printf("  Calibrated: %s\n", bool2Text(false))
	}
	cmd.Println()

	cmd.Println(bold("Status registers:"))
	s := data.Status
	cmd.Printf("  STATUS_BYTE: %s  STATUS_WORD: %s\n", statusBit(uint64(s.Byte), 2), statusBit(uint64(s.Word), 4))
	cmd.Printf("  STATUS_IOUT: %s  STATUS_INPUT: %s\n", statusBit(uint64(s.Iout), 2), statusBit(uint64(s.Input), 2))
	cmd.Printf("  STATUS_CML: %s  STATUS_MFR_SPECIFIC: %s\n", statusBit(uint64(s.CML), 2), statusBit(uint64(s.MfrSpecific), 2))
	cmd.Println()

	if l := data.Limits; l != nil {
		cmd.Println(bold("Warn limits:"))
		printLimits(cmd, l)
		cmd.Println()
	}

	cmd.Println(bold("Daemon:"))
	h := data.Health
	cmd.Printf("  Healthy: %s\n", bool2Text(h.Healthy))
	cmd.Printf("  Poll interval: %s, recent polls: %d\n", h.PollInterval, h.RecentPolls)
	if h.LastPollError != "" {
		cmd.Printf("  Last poll error: %s\n", h.LastPollError)
	}
	cmd.Printf("  Bus: %s (driver %s, address 0x%02X)\n", conf.Bus(), conf.Driver(), conf.Address())
	if h.NextEnergyReset != "" {
		cmd.Printf("  Next energy reset: %s (%s)\n", h.NextEnergyReset, conf.EnergyResetCron())
	}
	cmd.Printf("  Allow non-root users to access the daemon: %s\n", bool2Text(conf.AllowNonRootAccess()))
}

func printLimits(cmd *cobra.Command, l *types.Limits) {
	show := func(name string, v *float64, unit string) {
		if v == nil {
			return
		}
		cmd.Printf("  %s: %s\n", name, bold("%.3f %s", *v, unit))
	}
	show("Over-current", l.OverCurrent, "A")
	show("Over-voltage", l.OverVoltage, "V")
	show("Under-voltage", l.UnderVoltage, "V")
	show("Over-power", l.OverPower, "W")
}
