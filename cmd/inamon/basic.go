package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inamon/inamon/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version",
		Annotations: map[string]string{"offline": "true"},
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
			if _, daemonVersion, err := getVersion(); err == nil {
				cmd.Printf("daemon: %s\n", daemonVersion)
			}
		},
	}
}

func NewClearEnergyCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "clear-energy",
		Short:   "Reset the energy accumulator and sample count",
		GroupID: gAdvanced,
		RunE: func(_ *cobra.Command, _ []string) error {
			if _, err := apiClient.ClearEnergy(); err != nil {
				return fmt.Errorf("failed to clear energy accumulator: %w", err)
			}
			logrus.Infof("energy accumulator cleared")
			return nil
		},
	}
}

func NewClearFaultsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "clear-faults",
		Short:   "Clear latched status bits",
		GroupID: gAdvanced,
		RunE: func(_ *cobra.Command, _ []string) error {
			if _, err := apiClient.ClearFaults(); err != nil {
				return fmt.Errorf("failed to clear faults: %w", err)
			}
			logrus.Infof("faults cleared")
			return nil
		},
	}
}

func NewRestoreDefaultsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "restore-defaults",
		Short:   "Restore power-on register defaults and re-apply the configured settings",
		GroupID: gAdvanced,
		RunE: func(_ *cobra.Command, _ []string) error {
			if _, err := apiClient.RestoreDefaults(); err != nil {
				return fmt.Errorf("failed to restore defaults: %w", err)
			}
			logrus.Infof("defaults restored, calibration and limits re-applied")
			return nil
		},
	}
}

func NewEventsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "events",
		Short:   "Follow daemon events until interrupted",
		GroupID: gAdvanced,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ch, err := apiClient.SubscribeEvents(ctx)
			if err != nil {
				return err
			}

			for ev := range ch {
				if ev.Name == "ping" {
					continue
				}
				cmd.Printf("%s %s %s\n", time.Now().Format(time.TimeOnly), color.CyanString(ev.Name), string(ev.Data))
			}
			return nil
		},
	}
}
