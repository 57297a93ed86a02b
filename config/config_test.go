package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/keyrate/config"
	"github.com/meenmo/keyrate/curve"
	"github.com/meenmo/keyrate/utils"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig, cfg)

	m, err := cfg.Method()
	require.NoError(t, err)
	assert.Equal(t, curve.Linear, m)
	comp, err := cfg.Compounding()
	require.NoError(t, err)
	assert.Equal(t, curve.Annual, comp)
	dc, err := cfg.DayCount()
	require.NoError(t, err)
	assert.Equal(t, utils.Act365F, dc)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "keyrate.yaml", `
curve:
  method: pchip
  compounding: continuous
stochastic:
  scenarios: 500
  time_step: 0.5
  horizon: 10
  seed: 7
calibration:
  max_iterations: 20
logging:
  level: debug
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "pchip", cfg.Curve.Method)
	assert.Equal(t, string(utils.Act365F), cfg.Curve.DayCount, "unset keys keep defaults")
	assert.Equal(t, uint64(7), cfg.Stochastic.Seed)
	assert.Equal(t, 0.01, cfg.Stochastic.Volatility)

	sim := cfg.Simulation()
	assert.Equal(t, 500, sim.Scenarios)
	assert.Equal(t, 0.5, sim.TimeStep)
	assert.Equal(t, 20, sim.MaxIterations)
	assert.Equal(t, 1e-12, sim.Tolerance)
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "keyrate.toml", `
[curve]
method = "akima"
day_count = "ACT/360"

[output]
decimals = 4
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "akima", cfg.Curve.Method)
	assert.Equal(t, int32(4), cfg.Output.Decimals)
	dc, err := cfg.DayCount()
	require.NoError(t, err)
	assert.Equal(t, utils.Act360, dc)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("KEYRATE_CURVE_METHOD", "cubic")
	t.Setenv("KEYRATE_MC_SCENARIOS", "1234")
	t.Setenv("KEYRATE_MC_SEED", "99")
	t.Setenv("KEYRATE_MC_VOLATILITY", "0.02")
	t.Setenv("KEYRATE_OUTPUT_DECIMALS", "3")
	t.Setenv("KEYRATE_LOG_DEVELOPMENT", "true")
	t.Setenv("KEYRATE_MC_WORKERS", "not-a-number")

	path := writeFile(t, "keyrate.yaml", "curve:\n  method: akima\n")
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "cubic", cfg.Curve.Method, "environment wins over the file")
	assert.Equal(t, 1234, cfg.Stochastic.Scenarios)
	assert.Equal(t, uint64(99), cfg.Stochastic.Seed)
	assert.Equal(t, 0.02, cfg.Stochastic.Volatility)
	assert.Equal(t, int32(3), cfg.Output.Decimals)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 0, cfg.Stochastic.Workers, "unparsable values are ignored")
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load(writeFile(t, "keyrate.json", "{}"))
	assert.ErrorIs(t, err, config.ErrInvalid)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = config.Load(writeFile(t, "bad.yaml", "curve:\n  method: quintic\n"))
	assert.ErrorIs(t, err, curve.ErrUnknownMethod)

	_, err = config.Load(writeFile(t, "bad.toml", "[stochastic]\nhorizon = 1.1\n"))
	assert.Error(t, err)

	_, err = config.Load(writeFile(t, "bad-level.yaml", "logging:\n  level: chatty\n"))
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestNewLogger(t *testing.T) {
	logger, err := config.NewLogger(config.LoggingConfig{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))
	assert.True(t, logger.Core().Enabled(1))

	_, err = config.NewLogger(config.LoggingConfig{Level: "loud"})
	assert.ErrorIs(t, err, config.ErrInvalid)
}
