package config

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/inamon/inamon/pkg/ina233"
	"github.com/inamon/inamon/pkg/types"
	"github.com/inamon/inamon/pkg/utils/ptr"
)

var (
	defaultFileConfig = &RawFileConfig{
		ShuntResistance:     ptr.To(0.002),
		MaxCurrent:          ptr.To(10.0),
		Bus:                 ptr.To("/dev/i2c-1"),
		Address:             ptr.To(int(ina233.DefaultAddress)),
		Driver:              ptr.To(DriverPeriph),
		PollIntervalSeconds: ptr.To(5),
		EnergyResetCron:     ptr.To(""),
		AllowNonRootAccess:  ptr.To(false),
	}
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

type RawFileConfig struct {
	ShuntResistance     *float64      `json:"shuntResistance,omitempty" yaml:"shuntResistance,omitempty"`
	MaxCurrent          *float64      `json:"maxCurrent,omitempty" yaml:"maxCurrent,omitempty"`
	Bus                 *string       `json:"bus,omitempty" yaml:"bus,omitempty"`
	Address             *int          `json:"address,omitempty" yaml:"address,omitempty"`
	Driver              *string       `json:"driver,omitempty" yaml:"driver,omitempty"`
	PollIntervalSeconds *int          `json:"pollIntervalSeconds,omitempty" yaml:"pollIntervalSeconds,omitempty"`
	EnergyResetCron     *string       `json:"energyResetCron,omitempty" yaml:"energyResetCron,omitempty"`
	AllowNonRootAccess  *bool         `json:"allowNonRootAccess,omitempty" yaml:"allowNonRootAccess,omitempty"`
	Limits              *types.Limits `json:"limits,omitempty" yaml:"limits,omitempty"`
	ADCConfig           *int          `json:"adcConfig,omitempty" yaml:"adcConfig,omitempty"`
}

func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	p := c.CalibrationParams()
	rawConfig := &RawFileConfig{
		ShuntResistance:     ptr.To(p.ShuntResistance),
		MaxCurrent:          ptr.To(p.MaxCurrent),
		Bus:                 ptr.To(c.Bus()),
		Address:             ptr.To(int(c.Address())),
		Driver:              ptr.To(c.Driver()),
		PollIntervalSeconds: ptr.To(int(c.PollInterval() / time.Second)),
		EnergyResetCron:     ptr.To(c.EnergyResetCron()),
		AllowNonRootAccess:  ptr.To(c.AllowNonRootAccess()),
		Limits:              c.Limits(),
	}
	if word, ok := c.ADCConfig(); ok {
		rawConfig.ADCConfig = ptr.To(int(word))
	}

	return rawConfig, nil
}

// orDefault returns *v, or *def when v is nil.
func orDefault[T any](v, def *T) T {
	if v != nil {
		return *v
	}
	return *def
}

func (f *File) CalibrationParams() ina233.CalibrationParams {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ina233.CalibrationParams{
		ShuntResistance: orDefault(f.c.ShuntResistance, defaultFileConfig.ShuntResistance),
		MaxCurrent:      orDefault(f.c.MaxCurrent, defaultFileConfig.MaxCurrent),
	}
}

func (f *File) Bus() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return orDefault(f.c.Bus, defaultFileConfig.Bus)
}

func (f *File) Address() uint16 {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return uint16(orDefault(f.c.Address, defaultFileConfig.Address))
}

func (f *File) Driver() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return orDefault(f.c.Driver, defaultFileConfig.Driver)
}

func (f *File) PollInterval() time.Duration {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	seconds := orDefault(f.c.PollIntervalSeconds, defaultFileConfig.PollIntervalSeconds)
	if seconds <= 0 {
		seconds = *defaultFileConfig.PollIntervalSeconds
	}
	return time.Duration(seconds) * time.Second
}

func (f *File) EnergyResetCron() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return orDefault(f.c.EnergyResetCron, defaultFileConfig.EnergyResetCron)
}

func (f *File) AllowNonRootAccess() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return orDefault(f.c.AllowNonRootAccess, defaultFileConfig.AllowNonRootAccess)
}

func (f *File) Limits() *types.Limits {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.Limits == nil {
		return nil
	}
	l := *f.c.Limits
	return &l
}

func (f *File) ADCConfig() (uint16, bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.ADCConfig == nil {
		return 0, false
	}
	return uint16(*f.c.ADCConfig), true
}

func (f *File) SetCalibrationParams(p ina233.CalibrationParams) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.ShuntResistance = &p.ShuntResistance
	f.c.MaxCurrent = &p.MaxCurrent
}

func (f *File) SetEnergyResetCron(s string) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.EnergyResetCron = &s
}

func (f *File) SetAllowNonRootAccess(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.AllowNonRootAccess = &b
}

func (f *File) SetLimits(l *types.Limits) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.Limits = l
}

func (f *File) isYAML() bool {
	switch strings.ToLower(filepath.Ext(f.filepath)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// Since we want to tell if the file is empty, using a decoder will
	// not work.
	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	if f.isYAML() {
		err = yaml.Unmarshal(b, &conf)
	} else {
		err = json.Unmarshal(b, &conf)
	}
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	if f.isYAML() {
		enc := yaml.NewEncoder(fp)
		enc.SetIndent(2)
		err = enc.Encode(f.c)
		if err == nil {
			err = enc.Close()
		}
	} else {
		enc := json.NewEncoder(fp)
		enc.SetIndent("", "  ")
		err = enc.Encode(f.c)
	}
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	if f.c == nil {
		panic("config is nil")
	}

	p := f.CalibrationParams()
	return logrus.Fields{
		"shuntResistance":    p.ShuntResistance,
		"maxCurrent":         p.MaxCurrent,
		"bus":                f.Bus(),
		"address":            f.Address(),
		"driver":             f.Driver(),
		"pollInterval":       f.PollInterval(),
		"energyResetCron":    f.EnergyResetCron(),
		"allowNonRootAccess": f.AllowNonRootAccess(),
	}
}
