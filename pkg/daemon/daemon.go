package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/inamon/inamon/pkg/config"
	"github.com/inamon/inamon/pkg/events"
	"github.com/inamon/inamon/pkg/ina233"
)

var (
	dev             *ina233.Device
	conf            config.Config
	sseHub          *events.Hub
	energyScheduler *Scheduler
)

// Options are the command-line overrides for Run.
type Options struct {
	ConfigPath     string
	UnixSocketPath string
	AllowNonRoot   bool
	// Mock forces the in-memory driver regardless of the config file.
	Mock bool
}

func setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/telemetry", getTelemetry)
	router.GET("/calibration", getCalibration)
	router.PUT("/calibration", setCalibration)
	router.GET("/status", getStatus)
	router.GET("/identity", getIdentity)
	router.GET("/limits", getLimits)
	router.PUT("/limits", setLimits)
	router.POST("/energy/clear", clearEnergy)
	router.POST("/faults/clear", clearFaults)
	router.POST("/defaults/restore", restoreDefaults)
	router.GET("/adc-config", getADCConfig)
	router.GET("/config", getConfig)
	router.GET("/health", getHealth)
	router.GET("/events", streamEvents)
	router.GET("/version", getVersion)

	return router
}

// newConnection picks the bus implementation named by the config.
func newConnection(c config.Config) (ina233.Connection, error) {
	switch c.Driver() {
	case config.DriverPeriph:
		return ina233.NewPeriphConnection(c.Bus(), c.Address()), nil
	case config.DriverSMBus:
		busNum, err := smbusNumber(c.Bus())
		if err != nil {
			return nil, err
		}
		return ina233.NewSMBusConnection(busNum, c.Address()), nil
	case config.DriverMock:
		return ina233.NewMockConnection(), nil
	default:
		return nil, pkgerrors.Errorf("unknown driver %q", c.Driver())
	}
}

// smbusNumber accepts "1", "i2c-1" or "/dev/i2c-1".
func smbusNumber(bus string) (int, error) {
	s := strings.TrimPrefix(filepath.Base(bus), "i2c-")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "cannot derive smbus number from %q", bus)
	}
	return n, nil
}

// setupDevice applies the configured ADC settings, calibration and warn
// limits to d.
func setupDevice(d *ina233.Device, c config.Config) error {
	if word, ok := c.ADCConfig(); ok {
		if err := d.ConfigureADC(word); err != nil {
			return pkgerrors.Wrap(err, "failed to configure ADC")
		}
	}
	if _, err := d.Calibrate(c.CalibrationParams()); err != nil {
		return pkgerrors.Wrap(err, "failed to calibrate")
	}
	if l := c.Limits(); l != nil {
		if err := d.SetWarnLimits(*l); err != nil {
			return pkgerrors.Wrap(err, "failed to apply warn limits")
		}
	}
	return nil
}

// reload re-reads the config file and re-applies calibration, limits and
// the energy reset schedule.
func reload() error {
	if err := conf.Load(); err != nil {
		return pkgerrors.Wrap(err, "failed to reload config")
	}
	if err := setupDevice(dev, conf); err != nil {
		return err
	}
	if err := energyScheduler.Schedule(conf.EnergyResetCron()); err != nil {
		return pkgerrors.Wrap(err, "failed to reschedule energy reset")
	}
	setPollInterval(conf.PollInterval())
	return nil
}

func Run(opts Options) error {
	router := setupRoutes()

	var err error
	conf, err = config.NewFile(opts.ConfigPath)
	if err != nil {
		logrus.Fatalf("failed to parse config during startup: %v", err)
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	var conn ina233.Connection
	if opts.Mock {
		logrus.Warn("using mock connection, no hardware will be accessed")
		conn = ina233.NewMockConnection()
	} else {
		conn, err = newConnection(conf)
		if err != nil {
			return err
		}
	}

	dev = ina233.New(conn)
	if err := dev.Open(); err != nil {
		return pkgerrors.Wrap(err, "failed to open INA233")
	}
	if err := setupDevice(dev, conf); err != nil {
		_ = dev.Close()
		return err
	}

	sseHub = events.NewHub()
	setPollInterval(conf.PollInterval())

	energyScheduler = NewScheduler(func() error {
		return clearEnergyAccumulator("schedule")
	}, nil, func(err error) {
		logrus.WithError(err).Error("scheduled energy reset failed")
	})
	if err := energyScheduler.Schedule(conf.EnergyResetCron()); err != nil {
		_ = dev.Close()
		return pkgerrors.Wrapf(err, "invalid energy reset schedule %q", conf.EnergyResetCron())
	}
	energyScheduler.Start()

	// Receive SIGHUP to reload config
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			if err := reload(); err != nil {
				logrus.Errorf("failed to reload: %v", err)
				continue
			}
			logrus.Infof("config reloaded")
		}
	}()

	// Cancelling ctx stops the poll loop and ends open event streams.
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	srv := &http.Server{
		Handler:     router,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	// Remove a stale socket left by an unclean exit.
	if err := os.Remove(opts.UnixSocketPath); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("failed to remove stale socket %s: %v", opts.UnixSocketPath, err)
	}

	// Create the socket to listen on:
	l, err := net.Listen("unix", opts.UnixSocketPath)
	if err != nil {
		logrus.Fatal(err)
	}

	if conf.AllowNonRootAccess() || opts.AllowNonRoot {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", opts.UnixSocketPath)
		err = os.Chmod(opts.UnixSocketPath, 0777)
		if err != nil {
			logrus.Fatal(err)
		}
	}

	// Serve HTTP on unix socket
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	go func() {
		logrus.Debugln("poll loop starts")

		pollLoop(ctx)

		logrus.Debugln("poll loop exited")
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	// Wait for a SIGINT or SIGTERM:
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	stop()
	energyScheduler.Stop()

	logrus.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = srv.Shutdown(shutdownCtx)
	if err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	cancel()

	logrus.Info("closing INA233 connection")
	err = dev.Close()
	if err != nil {
		logrus.Errorf("failed to close INA233 connection: %v", err)
	}

	logrus.Info("exiting")
	return nil
}
