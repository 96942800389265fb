package governor

import (
	"runtime"

	"github.com/emperornerd/GhostWalk/internal/core/domain"
	"github.com/emperornerd/GhostWalk/internal/core/services/swarm"
	"github.com/emperornerd/GhostWalk/internal/telemetry"
)

// Governor watches free-heap headroom and prunes the pools to keep the
// process inside its memory envelope. Heap pressure is absorbed
// structurally here and never propagates as an error.
type Governor struct {
	freeHeap func() uint64

	lowMemory       bool
	learningAllowed bool
}

// New builds a governor around an injected free-heap reader.
func New(freeHeap func() uint64) *Governor {
	return &Governor{freeHeap: freeHeap, learningAllowed: true}
}

// EnvelopeReader derives a free-byte figure from the Go runtime: the
// configured envelope minus live heap, clamped at zero. The firmware
// asked its allocator directly; this is the closest host equivalent.
func EnvelopeReader(envelope uint64) func() uint64 {
	return func() uint64 {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		if ms.HeapInuse >= envelope {
			return 0
		}
		return envelope - ms.HeapInuse
	}
}

// Tick samples the heap and prunes if needed. Dormant devices go first
// (least valuable); the active pool is only cut under critical
// pressure, which also freezes SSID learning.
func (g *Governor) Tick(pools *swarm.Pools) {
	free := g.freeHeap()

	if free < domain.LowHeapWatermark {
		g.lowMemory = true
		pools.PruneDormantFront(0.30)

		if free < domain.CriticalHeapWatermark {
			pools.PruneActiveFront(0.15)
			g.learningAllowed = false
		}
	} else {
		g.lowMemory = false
		g.learningAllowed = true
	}

	if g.lowMemory {
		telemetry.LowMemory.Set(1)
	} else {
		telemetry.LowMemory.Set(0)
	}
}

// LowMemory reports whether rotation must stop growing the pools.
func (g *Governor) LowMemory() bool { return g.lowMemory }

// LearningAllowed reports whether new SSIDs may still be accepted.
func (g *Governor) LearningAllowed() bool { return g.learningAllowed }

// FreeHeap exposes the current reading for the metrics panel.
func (g *Governor) FreeHeap() uint64 { return g.freeHeap() }
