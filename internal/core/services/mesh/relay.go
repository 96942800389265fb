package mesh

import (
	"bytes"
	"math/rand"
	"time"

	"github.com/emperornerd/GhostWalk/internal/core/domain"
	"github.com/emperornerd/GhostWalk/internal/core/ports"
)

// CacheEntry is one deduplicated mesh frame awaiting rebroadcast.
type CacheEntry struct {
	Payload  []byte
	LastSeen time.Time
}

// Relay caches vendor action frames from a cooperating mesh protocol
// and offers them back for opportunistic verbatim rebroadcast. All
// state is owned by the scheduler task.
type Relay struct {
	cache  []CacheEntry
	recent map[[6]byte]time.Time

	detected   bool
	lastPacket time.Time

	localMAC [6]byte
	clock    ports.Clock
	rng      *rand.Rand
}

func NewRelay(localMAC [6]byte, clock ports.Clock, rng *rand.Rand) *Relay {
	return &Relay{
		cache:    make([]CacheEntry, 0, domain.MeshCacheCapacity),
		recent:   make(map[[6]byte]time.Time),
		localMAC: localMAC,
		clock:    clock,
		rng:      rng,
	}
}

// Observe processes one frame drained from the mesh queue during a
// listen window. Self-echoes are dropped; duplicates refresh their
// last-seen stamp; new frames enter the FIFO, evicting the oldest at
// capacity. Returns true when the frame was accepted.
func (r *Relay) Observe(frame []byte) bool {
	if len(frame) < 16 {
		return false
	}

	var src [6]byte
	copy(src[:], frame[10:16])
	if src == r.localMAC {
		return false
	}

	now := r.clock.Now()
	r.recent[src] = now

	for i := range r.cache {
		if bytes.Equal(r.cache[i].Payload, frame) {
			r.cache[i].LastSeen = now
			r.markDetected(now)
			return true
		}
	}

	if len(r.cache) >= domain.MeshCacheCapacity {
		r.cache = append(r.cache[:0], r.cache[1:]...)
	}
	entry := CacheEntry{Payload: append([]byte(nil), frame...), LastSeen: now}
	r.cache = append(r.cache, entry)
	r.markDetected(now)
	return true
}

func (r *Relay) markDetected(now time.Time) {
	r.detected = true
	r.lastPacket = now
}

// DecayTick clears detection and empties the cache once the mesh has
// been silent past the decay timeout.
func (r *Relay) DecayTick() {
	if r.detected && r.clock.Now().Sub(r.lastPacket) > domain.MeshDecayTimeout {
		r.detected = false
		r.cache = r.cache[:0]
	}
}

// PruneTick expires stale senders and over-age cache entries.
func (r *Relay) PruneTick() {
	now := r.clock.Now()
	for mac, seen := range r.recent {
		if now.Sub(seen) > domain.RecentSenderWindow {
			delete(r.recent, mac)
		}
	}

	kept := r.cache[:0]
	for _, e := range r.cache {
		if now.Sub(e.LastSeen) <= domain.MeshDecayTimeout {
			kept = append(kept, e)
		}
	}
	r.cache = kept
}

// CheckInterval is the dynamic listen cadence: tight while nothing is
// heard, relaxed once a mesh is confirmed nearby.
func (r *Relay) CheckInterval() time.Duration {
	if r.detected {
		return domain.MeshActiveInterval
	}
	return domain.MeshStandbyInterval
}

// RandomCached returns a uniformly drawn cached frame, or nil.
func (r *Relay) RandomCached() []byte {
	if len(r.cache) == 0 {
		return nil
	}
	return r.cache[r.rng.Intn(len(r.cache))].Payload
}

// Detected reports whether a cooperating mesh is currently nearby.
func (r *Relay) Detected() bool { return r.detected }

// CacheSize returns the number of cached frames.
func (r *Relay) CacheSize() int { return len(r.cache) }

// RecentSenderCount returns the size of the recent-sender window.
func (r *Relay) RecentSenderCount() int { return len(r.recent) }

// HasRecentSender reports whether mac sits in the sender window.
func (r *Relay) HasRecentSender(mac [6]byte) bool {
	_, ok := r.recent[mac]
	return ok
}
