// Package metrics wires the core's accounting (messages sent/received,
// acks, retries, open ports) into Prometheus, replacing the hand-rolled
// RWMutex-guarded Stats struct the teacher used for its own transfer
// accounting with the real client library the teacher already depended on.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	portsOpen = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "protoflow",
		Name:      "ports_open",
		Help:      "Number of ports currently open or connected, by transport.",
	}, []string{"transport"})

	connectionsActive = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "protoflow",
		Name:      "connections_active",
		Help:      "Number of established connections, by transport.",
	}, []string{"transport"})

	messagesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "protoflow",
		Name:      "messages_sent_total",
		Help:      "Messages accepted by send, by transport.",
	}, []string{"transport"})

	messagesReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "protoflow",
		Name:      "messages_received_total",
		Help:      "Messages returned by recv, by transport.",
	}, []string{"transport"})

	bytesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "protoflow",
		Name:      "bytes_sent_total",
		Help:      "Payload bytes accepted by send, by transport.",
	}, []string{"transport"})

	bytesReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "protoflow",
		Name:      "bytes_received_total",
		Help:      "Payload bytes returned by recv, by transport.",
	}, []string{"transport"})

	retriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "protoflow",
		Name:      "retries_total",
		Help:      "Unacknowledged-event retries, by transport.",
	}, []string{"transport"})

	blocksRunning = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "protoflow",
		Name:      "blocks_running",
		Help:      "Number of blocks currently executing.",
	}, []string{"system"})
)

func init() {
	prometheus.MustRegister(
		portsOpen, connectionsActive, messagesSent, messagesReceived,
		bytesSent, bytesReceived, retriesTotal, blocksRunning,
	)
}

// Transport accumulates the Prometheus series for one transport instance,
// labeled by its kind ("inprocess" or "pubsub").
type Transport struct {
	kind string
}

// NewTransport returns a Transport accounting handle labeled kind.
func NewTransport(kind string) *Transport {
	return &Transport{kind: kind}
}

// PortOpened increments the open-ports gauge.
func (t *Transport) PortOpened() { portsOpen.WithLabelValues(t.kind).Inc() }

// PortClosed decrements the open-ports gauge.
func (t *Transport) PortClosed() { portsOpen.WithLabelValues(t.kind).Dec() }

// Connected increments the active-connections gauge.
func (t *Transport) Connected() { connectionsActive.WithLabelValues(t.kind).Inc() }

// Disconnected decrements the active-connections gauge.
func (t *Transport) Disconnected() { connectionsActive.WithLabelValues(t.kind).Dec() }

// MessageSent records one accepted send of n payload bytes.
func (t *Transport) MessageSent(n int) {
	messagesSent.WithLabelValues(t.kind).Inc()
	bytesSent.WithLabelValues(t.kind).Add(float64(n))
}

// MessageReceived records one delivered recv of n payload bytes.
func (t *Transport) MessageReceived(n int) {
	messagesReceived.WithLabelValues(t.kind).Inc()
	bytesReceived.WithLabelValues(t.kind).Add(float64(n))
}

// Retry records one ack-timeout retry.
func (t *Transport) Retry() { retriesTotal.WithLabelValues(t.kind).Inc() }

// Scheduler accumulates the Prometheus series for one running system.
type Scheduler struct {
	system string
}

// NewScheduler returns a Scheduler accounting handle labeled by system name.
func NewScheduler(system string) *Scheduler {
	return &Scheduler{system: system}
}

// BlockStarted increments the running-blocks gauge.
func (s *Scheduler) BlockStarted() { blocksRunning.WithLabelValues(s.system).Inc() }

// BlockStopped decrements the running-blocks gauge.
func (s *Scheduler) BlockStopped() { blocksRunning.WithLabelValues(s.system).Dec() }
