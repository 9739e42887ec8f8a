// Package telemetry holds the Prometheus collectors the scheduler exposes
// for its own internal state: arbitration outcomes and sampled device
// utilization. None of this feeds back into scheduling decisions; it exists
// so an operator can see what the scheduler is doing.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "edgesched"

// NewCounterVec registers and returns a CounterVec under the scheduler's
// namespace. Callers own the returned vector and are responsible for
// incrementing it with the right label values. Registering the same
// subsystem/name twice (as happens when tests construct a component
// repeatedly) returns the already-registered vector instead of panicking.
func NewCounterVec(subsystem, name, help string, labelNames ...string) *prometheus.CounterVec {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, labelNames)

	if err := prometheus.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec)
		}
		panic(err)
	}
	return vec
}

// NewGaugeVec registers and returns a GaugeVec under the scheduler's
// namespace, reusing an already-registered vector on repeat calls.
func NewGaugeVec(subsystem, name, help string, labelNames ...string) *prometheus.GaugeVec {
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, labelNames)

	if err := prometheus.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.GaugeVec)
		}
		panic(err)
	}
	return vec
}
