package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// FramesTransmitted counts synthesized frames handed to the radio,
	// by band and frame type.
	FramesTransmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ghostwalk",
			Name:      "frames_transmitted_total",
			Help:      "Total number of synthesized frames transmitted",
		},
		[]string{"band", "type"},
	)

	// NoiseFrames counts silence-filler probes separately from swarm traffic.
	NoiseFrames = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ghostwalk",
			Name:      "noise_frames_total",
			Help:      "Total number of noise filler probes transmitted",
		},
	)

	// QueueDrops counts records discarded at the RX boundary because a
	// bounded queue was full.
	QueueDrops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ghostwalk",
			Name:      "queue_drops_total",
			Help:      "Total number of RX records dropped on full queues",
		},
		[]string{"queue"},
	)

	// LearnedSSIDs counts SSIDs accepted into the store from the sniffer.
	LearnedSSIDs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ghostwalk",
			Name:      "learned_ssids_total",
			Help:      "Total number of SSIDs learned from observed probe requests",
		},
	)

	// Interactions counts completed auth/assoc/data handshake simulations.
	Interactions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ghostwalk",
			Name:      "interactions_total",
			Help:      "Total number of simulated connection interactions",
		},
	)

	// MeshRebroadcasts counts cached mesh frames replayed verbatim.
	MeshRebroadcasts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ghostwalk",
			Name:      "mesh_rebroadcasts_total",
			Help:      "Total number of mesh frames rebroadcast",
		},
	)

	// ActiveDevices and DormantDevices track pool sizes.
	ActiveDevices = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ghostwalk",
			Name:      "active_devices",
			Help:      "Current active swarm size",
		},
	)
	DormantDevices = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ghostwalk",
			Name:      "dormant_devices",
			Help:      "Current dormant swarm size",
		},
	)

	// LowMemory is 1 while the governor is pruning.
	LowMemory = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ghostwalk",
			Name:      "low_memory",
			Help:      "Whether the resource governor is in low-memory mode",
		},
	)

	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry.
// Idempotent; safe to call from tests and main alike.
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.Register(FramesTransmitted)
		prometheus.DefaultRegisterer.Register(NoiseFrames)
		prometheus.DefaultRegisterer.Register(QueueDrops)
		prometheus.DefaultRegisterer.Register(LearnedSSIDs)
		prometheus.DefaultRegisterer.Register(Interactions)
		prometheus.DefaultRegisterer.Register(MeshRebroadcasts)
		prometheus.DefaultRegisterer.Register(ActiveDevices)
		prometheus.DefaultRegisterer.Register(DormantDevices)
		prometheus.DefaultRegisterer.Register(LowMemory)
	})
}
