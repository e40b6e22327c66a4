package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/inamon/inamon/pkg/client"
	"github.com/inamon/inamon/pkg/version"
)

var (
	logLevel       = "info"
	unixSocketPath = "/var/run/inamon.sock"
	configPath     = "/etc/inamon.json"
)

var (
	gBasic        = "Basic:"
	gAdvanced     = "Advanced:"
	commandGroups = []string{
		gBasic,
		gAdvanced,
	}
)

var apiClient *client.Client

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func handleCmdError(err error) {
	var se *client.StatusError
	switch {
	case errors.Is(err, client.ErrDaemonNotRunning):
		fmt.Fprintln(os.Stderr, "\nError: inamon daemon is not running")
		fmt.Fprintln(os.Stderr, "Is the daemon running? Check the --daemon-socket path.")
	case errors.Is(err, client.ErrPermissionDenied):
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - Try running the command again with 'sudo'")
		fmt.Fprintln(os.Stderr, "  - Or start the daemon with '--always-allow-non-root-access' to grant permissions to your user")
	case errors.As(err, &se) && se.Code == 422:
		fmt.Fprintln(os.Stderr, "\nThe requested value cannot be represented by the chip registers.")
	case errors.As(err, &se) && se.Code == 503:
		fmt.Fprintln(os.Stderr, "\nNo data yet. The chip may be uncalibrated or has not accumulated any samples.")
	}
}

// getVersion returns the client and daemon versions.
func getVersion() (string, string, error) {
	daemonVersion, err := apiClient.GetVersion()
	if err != nil {
		return version.Version, "", err
	}
	return version.Version, daemonVersion, nil
}

func main() {
	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inamon",
		Short: "inamon calibrates and monitors an INA233 power monitor",
		Long: `inamon calibrates and monitors an INA233 current/power monitor over I2C.

The daemon owns the bus, keeps the chip calibrated and serves telemetry on a
unix socket. Every other command talks to the daemon, except "calibrate
--offline" which only computes the register values.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			err := setupLogger()
			if err != nil {
				return err
			}

			apiClient = client.NewClient(unixSocketPath)

			// The daemon and offline commands do not need a running daemon.
			if cmd.Annotations["offline"] == "true" {
				return nil
			}
			if f := cmd.Flags().Lookup("offline"); f != nil && f.Value.String() == "true" {
				return nil
			}

			if clientVersion, daemonVersion, err := getVersion(); err == nil {
				if daemonVersion != clientVersion {
					logrus.WithFields(logrus.Fields{
						"clientVersion": clientVersion,
						"daemonVersion": daemonVersion,
					}).Warn("Version mismatch between client and daemon. inamon may not work as expected.")
				}
			} else if errors.Is(err, client.ErrNotFound) {
				logrus.Error("inamon daemon is too old to report its version.")
			}

			return nil
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "config file path (.json, .yaml or .yml)")
	globalFlags.StringVar(&unixSocketPath, "daemon-socket", unixSocketPath, "inamon daemon unix socket path")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewDaemonCommand(),
		NewVersionCommand(),
		NewStatusCommand(),
		NewCalibrateCommand(),
		NewLimitsCommand(),
		NewClearEnergyCommand(),
		NewClearFaultsCommand(),
		NewRestoreDefaultsCommand(),
		NewEventsCommand(),
		NewInstallCommand(),
		NewUninstallCommand(),
	)

	return cmd
}
