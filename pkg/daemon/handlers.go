package daemon

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/inamon/inamon/pkg/config"
	"github.com/inamon/inamon/pkg/events"
	"github.com/inamon/inamon/pkg/ina233"
	"github.com/inamon/inamon/pkg/types"
	"github.com/inamon/inamon/pkg/version"
)

// errorStatus maps device errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, ina233.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, ina233.ErrOutOfRange):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ina233.ErrDivideByZero), errors.Is(err, ina233.ErrNotCalibrated):
		return http.StatusServiceUnavailable
	case errors.Is(err, ina233.ErrUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, status int, err error) {
	c.IndentedJSON(status, err.Error())
	_ = c.AbortWithError(status, err)
}

func getTelemetry(c *gin.Context) {
	t, err := dev.Telemetry()
	if err != nil {
		logrus.Errorf("getTelemetry failed: %v", err)
		abortWithError(c, errorStatus(err), err)
		return
	}

	c.IndentedJSON(http.StatusOK, t)
}

func getCalibration(c *gin.Context) {
	cal := dev.Calibration()
	if cal == nil {
		abortWithError(c, errorStatus(ina233.ErrNotCalibrated), ina233.ErrNotCalibrated)
		return
	}

	c.IndentedJSON(http.StatusOK, cal)
}

func setCalibration(c *gin.Context) {
	var p ina233.CalibrationParams
	if err := c.ShouldBindJSON(&p); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	cal, err := dev.Calibrate(p)
	if err != nil {
		logrus.Errorf("setCalibration failed: %v", err)
		abortWithError(c, errorStatus(err), err)
		return
	}

	// Current and power limits are encoded with the new coefficients.
	if l := conf.Limits(); l != nil {
		if err := dev.SetWarnLimits(*l); err != nil {
			logrus.Warnf("failed to re-apply warn limits after calibration: %v", err)
		}
	}

	// CAL is already on the device; a failed save only loses persistence.
	conf.SetCalibrationParams(p)
	if err := conf.Save(); err != nil {
		logrus.Errorf("saveConfig failed, calibration applied but not persisted: %v", err)
	}

	logrus.WithFields(logrus.Fields{
		"shuntResistance": p.ShuntResistance,
		"maxCurrent":      p.MaxCurrent,
		"cal":             cal.Cal,
	}).Info("calibration applied")

	sseHub.Publish(events.CalibrationApplied, events.CalibrationAppliedEvent{
		ShuntResistance: p.ShuntResistance,
		MaxCurrent:      p.MaxCurrent,
		Cal:             cal.Cal,
		Ts:              time.Now().Unix(),
	})

	c.IndentedJSON(http.StatusCreated, cal)
}

func getStatus(c *gin.Context) {
	s, err := dev.Status()
	if err != nil {
		logrus.Errorf("getStatus failed: %v", err)
		abortWithError(c, errorStatus(err), err)
		return
	}

	c.IndentedJSON(http.StatusOK, s)
}

func getIdentity(c *gin.Context) {
	id, err := dev.Identity()
	if err != nil {
		logrus.Errorf("getIdentity failed: %v", err)
		abortWithError(c, errorStatus(err), err)
		return
	}

	c.IndentedJSON(http.StatusOK, id)
}

func getLimits(c *gin.Context) {
	l, err := dev.WarnLimits()
	if err != nil {
		logrus.Errorf("getLimits failed: %v", err)
		abortWithError(c, errorStatus(err), err)
		return
	}

	c.IndentedJSON(http.StatusOK, l)
}

// mergeLimits overlays the non-nil fields of update onto base.
func mergeLimits(base *types.Limits, update types.Limits) *types.Limits {
	merged := types.Limits{}
	if base != nil {
		merged = *base
	}
	if update.OverCurrent != nil {
		merged.OverCurrent = update.OverCurrent
	}
	if update.OverVoltage != nil {
		merged.OverVoltage = update.OverVoltage
	}
	if update.UnderVoltage != nil {
		merged.UnderVoltage = update.UnderVoltage
	}
	if update.OverPower != nil {
		merged.OverPower = update.OverPower
	}
	return &merged
}

func setLimits(c *gin.Context) {
	var l types.Limits
	if err := c.ShouldBindJSON(&l); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	if err := dev.SetWarnLimits(l); err != nil {
		logrus.Errorf("setLimits failed: %v", err)
		abortWithError(c, errorStatus(err), err)
		return
	}

	conf.SetLimits(mergeLimits(conf.Limits(), l))
	if err := conf.Save(); err != nil {
		logrus.Errorf("saveConfig failed, limits applied but not persisted: %v", err)
	}

	readBack, err := dev.WarnLimits()
	if err != nil {
		abortWithError(c, errorStatus(err), err)
		return
	}

	sseHub.Publish(events.LimitsUpdated, readBack)

	c.IndentedJSON(http.StatusCreated, readBack)
}

// clearEnergyAccumulator issues CLEAR_EIN and announces it.
func clearEnergyAccumulator(source string) error {
	if err := dev.ClearEnergy(); err != nil {
		return err
	}

	logrus.WithField("source", source).Info("energy accumulator cleared")
	sseHub.Publish(events.EnergyCleared, events.EnergyClearedEvent{
		Source: source,
		Ts:     time.Now().Unix(),
	})
	return nil
}

func clearEnergy(c *gin.Context) {
	if err := clearEnergyAccumulator("api"); err != nil {
		logrus.Errorf("clearEnergy failed: %v", err)
		abortWithError(c, errorStatus(err), err)
		return
	}

	c.IndentedJSON(http.StatusCreated, "ok")
}

func clearFaults(c *gin.Context) {
	if err := dev.ClearFaults(); err != nil {
		logrus.Errorf("clearFaults failed: %v", err)
		abortWithError(c, errorStatus(err), err)
		return
	}

	logrus.Info("faults cleared")
	sseHub.Publish(events.FaultsCleared, map[string]int64{"ts": time.Now().Unix()})

	c.IndentedJSON(http.StatusCreated, "ok")
}

// restoreDefaults resets every register to its power-on value, then
// re-applies the configured ADC settings, calibration and limits.
func restoreDefaults(c *gin.Context) {
	if err := dev.RestoreDefaults(); err != nil {
		logrus.Errorf("restoreDefaults failed: %v", err)
		abortWithError(c, errorStatus(err), err)
		return
	}
	if err := setupDevice(dev, conf); err != nil {
		logrus.Errorf("failed to re-apply settings after restoring defaults: %v", err)
		abortWithError(c, errorStatus(err), err)
		return
	}

	logrus.Info("defaults restored and settings re-applied")
	c.IndentedJSON(http.StatusCreated, "ok")
}

// ADCConfig is the response of GET /adc-config.
type ADCConfig struct {
	Word uint16 `json:"word"`
}

func getADCConfig(c *gin.Context) {
	w, err := dev.ADCConfig()
	if err != nil {
		logrus.Errorf("getADCConfig failed: %v", err)
		abortWithError(c, errorStatus(err), err)
		return
	}

	c.IndentedJSON(http.StatusOK, ADCConfig{Word: w})
}

func getConfig(c *gin.Context) {
	fc, err := config.NewRawFileConfigFromConfig(conf)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, fc)
}

// Health is the response of GET /health.
type Health struct {
	Healthy         bool       `json:"healthy"`
	Calibrated      bool       `json:"calibrated"`
	PollInterval    string     `json:"pollInterval"`
	RecentPolls     int        `json:"recentPolls"`
	LastPoll        *time.Time `json:"lastPoll,omitempty"`
	LastPollError   string     `json:"lastPollError,omitempty"`
	NextEnergyReset *time.Time `json:"nextEnergyReset,omitempty"`
}

func getHealth(c *gin.Context) {
	h := Health{
		Calibrated:   dev.Calibration() != nil,
		PollInterval: pollInterval().String(),
		RecentPolls:  pollRecorder.GetRecordsIn(healthWindow),
	}
	if records := pollRecorder.GetRecords(); len(records) > 0 {
		last := records[len(records)-1]
		h.LastPoll = &last
	}
	if err := lastPollError(); err != nil {
		h.LastPollError = err.Error()
	}
	if energyScheduler != nil {
		if next, _ := energyScheduler.Status(); !next.IsZero() {
			h.NextEnergyReset = &next
		}
	}
	h.Healthy = h.Calibrated && h.RecentPolls > 0 && h.LastPollError == ""

	c.IndentedJSON(http.StatusOK, h)
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}
