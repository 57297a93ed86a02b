package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load merges the file at path (YAML or TOML by extension; empty path for
// none) over DefaultConfig, then applies KEYRATE_* environment overrides,
// reading a .env file first when one exists. The result is validated.
func Load(path string) (Config, error) {
	cfg := DefaultConfig

	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("config.Load: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return fmt.Errorf("config.Load: %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("config.Load: %s: %w", path, err)
		}
	default:
		return fmt.Errorf("config.Load: %w: unsupported file type %q", ErrInvalid, filepath.Ext(path))
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Curve.Method, "KEYRATE_CURVE_METHOD")
	setStr(&cfg.Curve.Compounding, "KEYRATE_CURVE_COMPOUNDING")
	setStr(&cfg.Curve.DayCount, "KEYRATE_CURVE_DAY_COUNT")

	setInt(&cfg.Stochastic.Scenarios, "KEYRATE_MC_SCENARIOS")
	setFloat64(&cfg.Stochastic.TimeStep, "KEYRATE_MC_TIME_STEP")
	setFloat64(&cfg.Stochastic.Horizon, "KEYRATE_MC_HORIZON")
	setFloat64(&cfg.Stochastic.Volatility, "KEYRATE_MC_VOLATILITY")
	setUint64(&cfg.Stochastic.Seed, "KEYRATE_MC_SEED")
	setInt(&cfg.Stochastic.Workers, "KEYRATE_MC_WORKERS")

	setFloat64(&cfg.Calibration.Tolerance, "KEYRATE_CALIBRATION_TOLERANCE")
	setInt(&cfg.Calibration.MaxIterations, "KEYRATE_CALIBRATION_MAX_ITERATIONS")

	if v := os.Getenv("KEYRATE_OUTPUT_DECIMALS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			cfg.Output.Decimals = int32(n)
		}
	}

	setStr(&cfg.Logging.Level, "KEYRATE_LOG_LEVEL")
	setBool(&cfg.Logging.Development, "KEYRATE_LOG_DEVELOPMENT")
}

// Each helper only mutates the target when the variable is set and parses.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
