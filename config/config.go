// Package config loads run settings from YAML or TOML files and KEYRATE_*
// environment variables.
package config

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/meenmo/keyrate/curve"
	"github.com/meenmo/keyrate/stochastic"
	"github.com/meenmo/keyrate/utils"
)

// ErrInvalid reports a configuration value that cannot be used.
var ErrInvalid = errors.New("config: invalid value")

// Config holds curve conventions, simulation and solver parameters, output
// formatting and logging.
type Config struct {
	Curve       CurveConfig       `yaml:"curve" toml:"curve"`
	Stochastic  StochasticConfig  `yaml:"stochastic" toml:"stochastic"`
	Calibration CalibrationConfig `yaml:"calibration" toml:"calibration"`
	Output      OutputConfig      `yaml:"output" toml:"output"`
	Logging     LoggingConfig     `yaml:"logging" toml:"logging"`
}

// CurveConfig holds the defaults applied to curves that do not name their own
// conventions.
type CurveConfig struct {
	// Method is the interpolation tag (linear, log-linear, cubic, pchip, akima).
	Method string `yaml:"method" toml:"method"`
	// Compounding is "continuous" or a number of periods per year.
	Compounding string `yaml:"compounding" toml:"compounding"`
	// DayCount converts dated cashflows to year fractions.
	DayCount string `yaml:"day_count" toml:"day_count"`
}

// StochasticConfig sets up Monte Carlo valuations.
type StochasticConfig struct {
	Scenarios  int     `yaml:"scenarios" toml:"scenarios"`
	TimeStep   float64 `yaml:"time_step" toml:"time_step"`
	Horizon    float64 `yaml:"horizon" toml:"horizon"`
	Volatility float64 `yaml:"volatility" toml:"volatility"`
	Seed       uint64  `yaml:"seed" toml:"seed"`
	// Workers bounds simulation goroutines; 0 means GOMAXPROCS.
	Workers int `yaml:"workers" toml:"workers"`
}

// CalibrationConfig controls the Newton drift fit of the short-rate model.
type CalibrationConfig struct {
	Tolerance     float64 `yaml:"tolerance" toml:"tolerance"`
	MaxIterations int     `yaml:"max_iterations" toml:"max_iterations"`
}

// OutputConfig controls how results are rendered.
type OutputConfig struct {
	// Decimals rounds every reported number.
	Decimals int32 `yaml:"decimals" toml:"decimals"`
}

type LoggingConfig struct {
	Level       string `yaml:"level" toml:"level"`
	Development bool   `yaml:"development" toml:"development"`
}

// DefaultConfig provides the values used when no file or environment
// variable overrides them.
var DefaultConfig = Config{
	Curve: CurveConfig{
		Method:      string(curve.Linear),
		Compounding: "annual",
		DayCount:    string(utils.Act365F),
	},
	Stochastic: StochasticConfig{
		Scenarios:  10000,
		TimeStep:   0.25,
		Horizon:    30,
		Volatility: 0.01,
		Seed:       42,
	},
	Calibration: CalibrationConfig{
		Tolerance:     1e-12,
		MaxIterations: 50,
	},
	Output: OutputConfig{
		Decimals: 6,
	},
	Logging: LoggingConfig{
		Level: "info",
	},
}

// Validate checks every section.
func (c Config) Validate() error {
	if _, err := c.Method(); err != nil {
		return err
	}
	if _, err := c.Compounding(); err != nil {
		return err
	}
	if _, err := c.DayCount(); err != nil {
		return err
	}
	if _, err := c.Simulation().Validate(); err != nil {
		return err
	}
	if c.Output.Decimals < 0 || c.Output.Decimals > 16 {
		return fmt.Errorf("%w: output decimals %d", ErrInvalid, c.Output.Decimals)
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: log level %q", ErrInvalid, c.Logging.Level)
	}
	return nil
}

func (c Config) Method() (curve.Method, error) {
	return curve.ParseMethod(c.Curve.Method)
}

func (c Config) Compounding() (curve.Compounding, error) {
	return curve.ParseCompounding(c.Curve.Compounding)
}

func (c Config) DayCount() (utils.DayCount, error) {
	return utils.ParseDayCount(c.Curve.DayCount)
}

// Simulation returns the stochastic adapter configuration.
func (c Config) Simulation() stochastic.Config {
	return stochastic.Config{
		Scenarios:     c.Stochastic.Scenarios,
		TimeStep:      c.Stochastic.TimeStep,
		Horizon:       c.Stochastic.Horizon,
		Volatility:    c.Stochastic.Volatility,
		Workers:       c.Stochastic.Workers,
		Tolerance:     c.Calibration.Tolerance,
		MaxIterations: c.Calibration.MaxIterations,
	}
}

// NewLogger builds a zap logger for the logging section.
func NewLogger(c LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: log level %q", ErrInvalid, c.Level)
	}
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
