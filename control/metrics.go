// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus collectors for selector, socket and channel activity.

package control

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hioload"

// Metrics holds the collectors shared by one engine instance.
type Metrics struct {
	selectorWaits         prometheus.Counter
	selectorWakeups       prometheus.Counter
	selectorCancellations prometheus.Counter
	selectorSpurious      prometheus.Counter
	registrations         prometheus.Gauge

	accepted      prometheus.Counter
	acceptErrors  *prometheus.CounterVec
	bytesRead     prometheus.Counter
	bytesWritten  prometheus.Counter
	activeConns   prometheus.Gauge
	chanSuspended *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which is handy in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		selectorWaits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "selector", Name: "waits_total",
			Help: "Operations parked on the selector after a would-block result.",
		}),
		selectorWakeups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "selector", Name: "wakeups_total",
			Help: "Parked operations resumed by a readiness notification.",
		}),
		selectorCancellations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "selector", Name: "cancellations_total",
			Help: "Parked operations woken by cancel or close instead of readiness.",
		}),
		selectorSpurious: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "selector", Name: "spurious_polls_total",
			Help: "Poll returns with an empty ready set.",
		}),
		registrations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "selector", Name: "registrations",
			Help: "Descriptors currently registered for readiness.",
		}),
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "tcp", Name: "accepted_total",
			Help: "Connections accepted by listeners.",
		}),
		acceptErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "tcp", Name: "accept_errors_total",
			Help: "Accept failures by error code.",
		}, []string{"code"}),
		bytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "tcp", Name: "read_bytes_total",
			Help: "Bytes read from sockets.",
		}),
		bytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "tcp", Name: "written_bytes_total",
			Help: "Bytes written to sockets.",
		}),
		activeConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "tcp", Name: "active_connections",
			Help: "Open connection sockets.",
		}),
		chanSuspended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "channel", Name: "suspensions_total",
			Help: "Channel operations that suspended on a full or empty buffer.",
		}, []string{"direction"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.selectorWaits, m.selectorWakeups, m.selectorCancellations, m.selectorSpurious,
			m.registrations, m.accepted, m.acceptErrors, m.bytesRead, m.bytesWritten,
			m.activeConns, m.chanSuspended,
		)
	}
	return m
}

func (m *Metrics) SelectorWait() {
	if m != nil {
		m.selectorWaits.Inc()
	}
}

func (m *Metrics) SelectorWakeup() {
	if m != nil {
		m.selectorWakeups.Inc()
	}
}

func (m *Metrics) SelectorCancelled(n int) {
	if m != nil && n > 0 {
		m.selectorCancellations.Add(float64(n))
	}
}

func (m *Metrics) SpuriousPoll() {
	if m != nil {
		m.selectorSpurious.Inc()
	}
}

// AddRegistrations moves the registration gauge by delta. Selectors sharing
// one Metrics report deltas so the gauge holds their sum.
func (m *Metrics) AddRegistrations(delta int) {
	if m != nil && delta != 0 {
		m.registrations.Add(float64(delta))
	}
}

func (m *Metrics) Accepted() {
	if m != nil {
		m.accepted.Inc()
	}
}

// AcceptError counts a failed accept under its taxonomy code name.
func (m *Metrics) AcceptError(code string) {
	if m != nil {
		m.acceptErrors.WithLabelValues(code).Inc()
	}
}

func (m *Metrics) BytesRead(n int) {
	if m != nil && n > 0 {
		m.bytesRead.Add(float64(n))
	}
}

func (m *Metrics) BytesWritten(n int) {
	if m != nil && n > 0 {
		m.bytesWritten.Add(float64(n))
	}
}

func (m *Metrics) ConnOpened() {
	if m != nil {
		m.activeConns.Inc()
	}
}

func (m *Metrics) ConnClosed() {
	if m != nil {
		m.activeConns.Dec()
	}
}

// ChannelSuspended counts a suspension; direction is "read" or "write".
func (m *Metrics) ChannelSuspended(direction string) {
	if m != nil {
		m.chanSuspended.WithLabelValues(direction).Inc()
	}
}
