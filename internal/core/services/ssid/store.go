package ssid

import (
	"math/rand"
	"time"

	"github.com/emperornerd/GhostWalk/internal/core/ports"
)

// SeedSSIDs are realistic public network names present from boot and
// never evicted. Learned names append after them.
var SeedSSIDs = []string{
	"xfinitywifi", "Starbucks WiFi", "attwifi", "Google Starbucks",
	"iPhone", "AndroidAP", "Guest", "linksys", "netgear",
	"Free Public WiFi", "T-Mobile", "Home", "Office",
	"Spectrum", "optimumwifi", "CoxWiFi", "Lowe's Wi-Fi",
	"Target Guest Wi-Fi", "McDonalds Free WiFi", "BURGER KING FREE WIFI",
	"Subway WiFi", "PaneraBread_WiFi", "Airport_Free_WiFi",
	"Marriott_Guest", "Hilton_Honors", "Walmart_WiFi",
	"DIRECTV_WIFI", "HP-Print-B2-LaserJet", "Roku-829", "Sonos_WiFi",
}

// Store is the ordered SSID set the swarm draws probe targets from.
// It is mutated only by the scheduler task.
type Store struct {
	entries   []string
	seedCount int

	maxLearned    int
	learnInterval time.Duration
	lastInsert    time.Time

	clock ports.Clock
	rng   *rand.Rand

	lastLearned  string
	learnedTotal uint64
}

// NewStore seeds the store and configures the learning caps.
func NewStore(maxLearned int, learnInterval time.Duration, clock ports.Clock, rng *rand.Rand) *Store {
	entries := make([]string, 0, len(SeedSSIDs)+maxLearned)
	entries = append(entries, SeedSSIDs...)
	return &Store{
		entries:       entries,
		seedCount:     len(SeedSSIDs),
		maxLearned:    maxLearned,
		learnInterval: learnInterval,
		clock:         clock,
		rng:           rng,
	}
}

func (s *Store) Len() int { return len(s.entries) }

// Get returns the SSID at i. Indices go stale when the cycling policy
// replaces slots; callers treat ok=false as "no preference".
func (s *Store) Get(i int) (string, bool) {
	if i < 0 || i >= len(s.entries) {
		return "", false
	}
	return s.entries[i], true
}

// Random returns a uniformly drawn entry. The store is never empty.
func (s *Store) Random() string {
	return s.entries[s.rng.Intn(len(s.entries))]
}

// RandomIndex returns a uniformly drawn index.
func (s *Store) RandomIndex() int {
	return s.rng.Intn(len(s.entries))
}

// Contains is a linear scan; the store is small by construction.
func (s *Store) Contains(name string) bool {
	for _, e := range s.entries {
		if e == name {
			return true
		}
	}
	return false
}

// Offer inserts a learned SSID. Below the cap it appends; at the cap a
// time-gated cycling policy replaces a uniformly random non-seed slot.
// Names of invalid length and duplicates are silently rejected.
func (s *Store) Offer(name string) bool {
	if len(name) == 0 || len(name) > 32 {
		return false
	}
	if s.Contains(name) {
		return false
	}

	if len(s.entries)-s.seedCount < s.maxLearned {
		s.entries = append(s.entries, name)
		s.accepted(name)
		return true
	}

	// At capacity: cycle at most once per learn interval, and only
	// ever into a non-seed slot.
	if s.clock.Now().Sub(s.lastInsert) < s.learnInterval {
		return false
	}
	idx := s.seedCount + s.rng.Intn(len(s.entries)-s.seedCount)
	s.entries[idx] = name
	s.accepted(name)
	return true
}

func (s *Store) accepted(name string) {
	s.lastInsert = s.clock.Now()
	s.lastLearned = name
	s.learnedTotal++
}

// AtCapacity reports whether learning has filled the non-seed slots.
func (s *Store) AtCapacity() bool {
	return len(s.entries)-s.seedCount >= s.maxLearned
}

// LastLearned returns the most recently accepted SSID, or "" if none.
func (s *Store) LastLearned() string { return s.lastLearned }

// LearnedCount returns how many SSIDs have ever been accepted.
func (s *Store) LearnedCount() uint64 { return s.learnedTotal }
