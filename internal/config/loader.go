package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the proctor
// gate service.
type Config struct {
	HTTPPort            int
	SQLiteDSN           string
	HeartbeatInterval   time.Duration
	StalenessMultiplier float64
	MaxViolations       int
	SweepInterval       time.Duration
	SignalRatePerMinute int
	SignalBurst         int
	EventBuffer         int
}

// Load parses configuration values from the current process environment.
//
// Every field has a sensible default; values that are present but malformed
// are reported together so operators see all problems at once.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:            8080,
		SQLiteDSN:           "file:proctor.db?_foreign_keys=on",
		HeartbeatInterval:   30 * time.Second,
		StalenessMultiplier: 2.5,
		MaxViolations:       3,
		SweepInterval:       time.Second,
		SignalRatePerMinute: 60,
		SignalBurst:         10,
		EventBuffer:         64,
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("PROCTOR_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "PROCTOR_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("PROCTOR_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if intervalValue := strings.TrimSpace(os.Getenv("PROCTOR_HEARTBEAT_INTERVAL")); intervalValue != "" {
		interval, err := time.ParseDuration(intervalValue)
		if err != nil || interval <= 0 {
			invalid = append(invalid, "PROCTOR_HEARTBEAT_INTERVAL")
		} else {
			cfg.HeartbeatInterval = interval
		}
	}

	if multValue := strings.TrimSpace(os.Getenv("PROCTOR_STALENESS_MULTIPLIER")); multValue != "" {
		mult, err := strconv.ParseFloat(multValue, 64)
		if err != nil || mult <= 1 {
			invalid = append(invalid, "PROCTOR_STALENESS_MULTIPLIER")
		} else {
			cfg.StalenessMultiplier = mult
		}
	}

	if maxValue := strings.TrimSpace(os.Getenv("PROCTOR_MAX_VIOLATIONS")); maxValue != "" {
		max, err := strconv.Atoi(maxValue)
		if err != nil || max <= 0 {
			invalid = append(invalid, "PROCTOR_MAX_VIOLATIONS")
		} else {
			cfg.MaxViolations = max
		}
	}

	if sweepValue := strings.TrimSpace(os.Getenv("PROCTOR_SWEEP_INTERVAL")); sweepValue != "" {
		sweep, err := time.ParseDuration(sweepValue)
		if err != nil || sweep <= 0 {
			invalid = append(invalid, "PROCTOR_SWEEP_INTERVAL")
		} else {
			cfg.SweepInterval = sweep
		}
	}

	if rateValue := strings.TrimSpace(os.Getenv("PROCTOR_SIGNAL_RATE_PER_MINUTE")); rateValue != "" {
		rate, err := strconv.Atoi(rateValue)
		if err != nil || rate <= 0 {
			invalid = append(invalid, "PROCTOR_SIGNAL_RATE_PER_MINUTE")
		} else {
			cfg.SignalRatePerMinute = rate
		}
	}

	if burstValue := strings.TrimSpace(os.Getenv("PROCTOR_SIGNAL_BURST")); burstValue != "" {
		burst, err := strconv.Atoi(burstValue)
		if err != nil || burst <= 0 {
			invalid = append(invalid, "PROCTOR_SIGNAL_BURST")
		} else {
			cfg.SignalBurst = burst
		}
	}

	if bufferValue := strings.TrimSpace(os.Getenv("PROCTOR_EVENT_BUFFER")); bufferValue != "" {
		buffer, err := strconv.Atoi(bufferValue)
		if err != nil || buffer <= 0 {
			invalid = append(invalid, "PROCTOR_EVENT_BUFFER")
		} else {
			cfg.EventBuffer = buffer
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
