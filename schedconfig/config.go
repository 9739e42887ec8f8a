// Package schedconfig holds the scheduler's runtime configuration: the
// socket path, debug logging, and the monitor sampling interval. Values
// come from environment variables first, with the CLI able to override
// them, following the envconfig pattern used elsewhere in this codebase.
package schedconfig

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultMonitorInterval = time.Second
	defaultMetricsAddr     = ""
)

// Config is the scheduler process's full set of runtime knobs.
type Config struct {
	// SocketPath is the unixgram path the Transport binds. Required.
	SocketPath string

	// Debug enables verbose slog output.
	Debug bool

	// MonitorInterval is how often the System Monitor samples CPU/GPU
	// utilization.
	MonitorInterval time.Duration

	// MetricsAddr, if non-empty, serves Prometheus metrics over HTTP at
	// /metrics on this address. Empty disables the listener.
	MetricsAddr string
}

// clean trims quotes and surrounding whitespace from an environment
// variable, mirroring envconfig.clean.
func clean(key string) string {
	return strings.Trim(os.Getenv(key), "\"' ")
}

// FromEnvironment builds a Config from SCHED_* environment variables,
// applying defaults for anything unset. socketPath is required and
// normally comes from a CLI positional argument rather than the
// environment.
func FromEnvironment(socketPath string) (*Config, error) {
	if socketPath == "" {
		return nil, fmt.Errorf("schedconfig: socket path is required")
	}

	cfg := &Config{
		SocketPath:      socketPath,
		MonitorInterval: defaultMonitorInterval,
		MetricsAddr:     defaultMetricsAddr,
	}

	if debug := clean("SCHED_DEBUG"); debug != "" {
		d, err := strconv.ParseBool(debug)
		if err != nil {
			slog.Error("invalid setting, ignoring", "SCHED_DEBUG", debug, "error", err)
		} else {
			cfg.Debug = d
		}
	}

	if interval := clean("SCHED_MONITOR_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil || d <= 0 {
			slog.Error("invalid setting, ignoring", "SCHED_MONITOR_INTERVAL", interval, "error", err)
		} else {
			cfg.MonitorInterval = d
		}
	}

	cfg.MetricsAddr = clean("SCHED_METRICS_ADDR")

	return cfg, nil
}
