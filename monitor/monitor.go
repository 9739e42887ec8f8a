// Package monitor samples CPU and GPU utilization in the background and
// publishes the latest readings to lock-free cells any component may read.
// Nothing here feeds back into the Arbiter's decisions yet; the values
// exist to seed future scheduling policy, per the reference design.
package monitor

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/edge-infer/scheduler/telemetry"
)

// Sampler reports the instantaneous utilization of a device, in the range
// [0, 1]. Monitor calls it periodically from its own goroutine.
type Sampler interface {
	Sample() (float64, error)
}

// Monitor owns two utilization cells, CPU and GPU, each written by exactly
// one background goroutine and safe to read from anywhere without
// coordination.
type Monitor struct {
	interval time.Duration
	cpu      Sampler
	gpu      Sampler

	// Stored as math.Float64bits so reads never tear, matching the
	// single-writer/many-reader contract the design calls for.
	cpuBits atomic.Uint64
	gpuBits atomic.Uint64
}

// New returns a Monitor that samples cpu and gpu every interval once Run is
// called. A nil sampler reads as permanently unavailable (-1).
func New(interval time.Duration, cpu, gpu Sampler) *Monitor {
	m := &Monitor{interval: interval, cpu: cpu, gpu: gpu}
	m.cpuBits.Store(math.Float64bits(-1))
	m.gpuBits.Store(math.Float64bits(-1))
	return m
}

// Run samples CPU and GPU utilization every interval until ctx is done. It
// is meant to run in its own goroutine alongside the lifecycle controller's
// event loop; it never touches the registry or the arbiter.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sampleOnce()
		}
	}
}

func (m *Monitor) sampleOnce() {
	if m.cpu != nil {
		if v, err := m.cpu.Sample(); err != nil {
			slog.Warn("cpu utilization sample failed", "error", err)
		} else {
			m.cpuBits.Store(math.Float64bits(v))
			cpuGauge.Set(v)
		}
	}
	if m.gpu != nil {
		if v, err := m.gpu.Sample(); err != nil {
			slog.Warn("gpu utilization sample failed", "error", err)
		} else {
			m.gpuBits.Store(math.Float64bits(v))
			gpuGauge.Set(v)
		}
	}
}

// CPUUtilization returns the most recent CPU reading, or -1 if none has
// been taken yet.
func (m *Monitor) CPUUtilization() float64 {
	return math.Float64frombits(m.cpuBits.Load())
}

// GPUUtilization returns the most recent GPU reading, or -1 if none has
// been taken yet.
func (m *Monitor) GPUUtilization() float64 {
	return math.Float64frombits(m.gpuBits.Load())
}

var (
	cpuGauge = telemetry.NewGaugeVec("monitor", "device_utilization", "Most recent sampled device utilization, in [0,1].", "device").WithLabelValues("cpu")
	gpuGauge = telemetry.NewGaugeVec("monitor", "device_utilization", "Most recent sampled device utilization, in [0,1].", "device").WithLabelValues("gpu")
)

// ProcStatCPUSampler samples overall CPU utilization from /proc/stat,
// reporting the fraction of time spent outside the idle bucket since the
// previous sample.
type ProcStatCPUSampler struct {
	prevIdle, prevTotal uint64
}

func (s *ProcStatCPUSampler) Sample() (float64, error) {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return 0, fmt.Errorf("monitor: open /proc/stat: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		return 0, fmt.Errorf("monitor: /proc/stat is empty")
	}
	fields := strings.Fields(sc.Text())
	if len(fields) < 5 || fields[0] != "cpu" {
		return 0, fmt.Errorf("monitor: unexpected /proc/stat format %q", sc.Text())
	}

	var total, idle uint64
	for i, field := range fields[1:] {
		v, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("monitor: parse /proc/stat field %d: %w", i, err)
		}
		total += v
		if i == 3 || i == 4 { // idle, iowait
			idle += v
		}
	}

	deltaTotal := total - s.prevTotal
	deltaIdle := idle - s.prevIdle
	s.prevTotal, s.prevIdle = total, idle

	if deltaTotal == 0 {
		return 0, nil
	}
	return 1 - float64(deltaIdle)/float64(deltaTotal), nil
}

// UnavailableGPUSampler reports that no GPU utilization source is wired up.
// Reading live GPU occupancy requires a vendor driver binding, which is
// explicitly out of scope here; this sampler keeps the Monitor's interface
// uniform without pretending to have a number it doesn't.
type UnavailableGPUSampler struct{}

func (UnavailableGPUSampler) Sample() (float64, error) {
	return 0, fmt.Errorf("monitor: no GPU utilization source configured")
}
