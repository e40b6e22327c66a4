package client

import (
	"encoding/json"

	pkgerrors "github.com/pkg/errors"

	"github.com/inamon/inamon/pkg/config"
	"github.com/inamon/inamon/pkg/ina233"
	"github.com/inamon/inamon/pkg/types"
)

// getJSON GETs path and decodes the response into T.
func getJSON[T any](c *Client, path, what string) (*T, error) {
	ret, err := c.Get(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get %s", what)
	}

	var v T
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal %s", what)
	}
	return &v, nil
}

func (c *Client) GetTelemetry() (*types.Telemetry, error) {
	return getJSON[types.Telemetry](c, "/telemetry", "telemetry")
}

func (c *Client) GetCalibration() (*ina233.CalibrationResult, error) {
	return getJSON[ina233.CalibrationResult](c, "/calibration", "calibration")
}

// SetCalibration asks the daemon to calibrate with p and returns the
// applied result.
func (c *Client) SetCalibration(p ina233.CalibrationParams) (*ina233.CalibrationResult, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	ret, err := c.Put("/calibration", string(payload))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to set calibration")
	}

	var cal ina233.CalibrationResult
	if err := json.Unmarshal([]byte(ret), &cal); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal calibration")
	}
	return &cal, nil
}

func (c *Client) GetStatus() (*types.Status, error) {
	return getJSON[types.Status](c, "/status", "status")
}

func (c *Client) GetIdentity() (*types.Identity, error) {
	return getJSON[types.Identity](c, "/identity", "identity")
}

func (c *Client) GetLimits() (*types.Limits, error) {
	return getJSON[types.Limits](c, "/limits", "warn limits")
}

// SetLimits writes the non-nil limits and returns the read-back values.
func (c *Client) SetLimits(l types.Limits) (*types.Limits, error) {
	payload, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	ret, err := c.Put("/limits", string(payload))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to set warn limits")
	}

	var readBack types.Limits
	if err := json.Unmarshal([]byte(ret), &readBack); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal warn limits")
	}
	return &readBack, nil
}

func (c *Client) ClearEnergy() (string, error) {
	return c.Post("/energy/clear", "")
}

func (c *Client) ClearFaults() (string, error) {
	return c.Post("/faults/clear", "")
}

func (c *Client) RestoreDefaults() (string, error) {
	return c.Post("/defaults/restore", "")
}

// GetADCConfig returns the MFR_ADC_CONFIG word.
func (c *Client) GetADCConfig() (uint16, error) {
	v, err := getJSON[struct {
		Word uint16 `json:"word"`
	}](c, "/adc-config", "ADC config")
	if err != nil {
		return 0, err
	}
	return v.Word, nil
}

func (c *Client) GetConfig() (*config.RawFileConfig, error) {
	return getJSON[config.RawFileConfig](c, "/config", "config")
}

// Health mirrors the daemon's GET /health response.
type Health struct {
	Healthy         bool   `json:"healthy"`
	Calibrated      bool   `json:"calibrated"`
	PollInterval    string `json:"pollInterval"`
	RecentPolls     int    `json:"recentPolls"`
	LastPoll        string `json:"lastPoll,omitempty"`
	LastPollError   string `json:"lastPollError,omitempty"`
	NextEnergyReset string `json:"nextEnergyReset,omitempty"`
}

func (c *Client) GetHealth() (*Health, error) {
	return getJSON[Health](c, "/health", "health")
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}

	var v string
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return "", pkgerrors.Wrapf(err, "failed to unmarshal version")
	}
	return v, nil
}
