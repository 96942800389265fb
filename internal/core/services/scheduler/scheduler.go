package scheduler

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/emperornerd/GhostWalk/internal/adapters/sniffer"
	"github.com/emperornerd/GhostWalk/internal/config"
	"github.com/emperornerd/GhostWalk/internal/core/domain"
	"github.com/emperornerd/GhostWalk/internal/core/ports"
	"github.com/emperornerd/GhostWalk/internal/core/services/governor"
	"github.com/emperornerd/GhostWalk/internal/core/services/mesh"
	"github.com/emperornerd/GhostWalk/internal/core/services/ssid"
	"github.com/emperornerd/GhostWalk/internal/core/services/swarm"
	"github.com/emperornerd/GhostWalk/internal/core/services/synth"
	"github.com/emperornerd/GhostWalk/internal/telemetry"
)

// Scheduler drives the whole emitter: channel hops, packet pacing,
// lifecycle churn, noise fill, the governor and the mesh relay. It is
// the single owner of all mutable traffic state; Run executes on one
// goroutine and nothing else ever touches the pools or the store.
type Scheduler struct {
	cfg   *config.Config
	radio ports.Radio
	clock ports.Clock
	rng   *rand.Rand

	pools *swarm.Pools
	store *ssid.Store
	gov   *governor.Governor
	relay *mesh.Relay
	sniff *sniffer.Sniffer

	// Band walk state.
	channel    int
	is5GHz     bool
	idx2G      int
	idx5G      int
	nextHopIs5 bool

	// Deadlines against the monotonic clock.
	nextHopAt       time.Time
	nextLifecycleAt time.Time
	nextMeshCheck   time.Time
	nextUIAt        time.Time

	startedAt time.Time

	mu    sync.Mutex
	stats stats
}

type stats struct {
	totalPackets     uint64
	junkPackets      uint64
	packets2G        uint64
	packets5G        uint64
	interactions     uint64
	meshRebroadcasts uint64
}

// Snapshot is the point-in-time metrics view consumed by the display
// surfaces and the session report.
type Snapshot struct {
	FreeHeap  uint64 `json:"free_heap"`
	LowMemory bool   `json:"low_memory"`

	Active  int `json:"active"`
	Dormant int `json:"dormant"`

	TotalPackets     uint64 `json:"total_packets"`
	JunkPackets      uint64 `json:"junk_packets"`
	Packets2G        uint64 `json:"packets_2g"`
	Packets5G        uint64 `json:"packets_5g"`
	Interactions     uint64 `json:"interactions"`
	MeshRebroadcasts uint64 `json:"mesh_rebroadcasts"`

	LearnedSSIDs    uint64 `json:"learned_ssids"`
	LastLearnedSSID string `json:"last_learned_ssid"`

	Channel      int  `json:"channel"`
	Is5GHz       bool `json:"is_5ghz"`
	MeshDetected bool `json:"mesh_detected"`

	Uptime time.Duration `json:"uptime"`
}

// New wires a scheduler. relay may be nil when the mesh feature is off.
func New(cfg *config.Config, radio ports.Radio, clock ports.Clock, rng *rand.Rand,
	pools *swarm.Pools, store *ssid.Store, gov *governor.Governor,
	relay *mesh.Relay, sniff *sniffer.Sniffer) *Scheduler {

	s := &Scheduler{
		cfg:        cfg,
		radio:      radio,
		clock:      clock,
		rng:        rng,
		pools:      pools,
		store:      store,
		gov:        gov,
		relay:      relay,
		sniff:      sniff,
		channel:    domain.Channels2G[0],
		nextHopIs5: cfg.DualBand,
	}

	now := clock.Now()
	s.startedAt = now
	s.nextHopAt = now
	s.nextLifecycleAt = now.Add(s.between(domain.MinLifecycle, domain.MaxLifecycle))
	s.nextUIAt = now
	if relay != nil {
		s.nextMeshCheck = now.Add(relay.CheckInterval())
	}
	return s
}

// Run executes the cooperative loop until ctx is done. The loop runs
// to completion between iterations; the only other execution context
// in the system is the radio's RX callback feeding the two queues.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.Info("scheduler starting",
		"active", len(s.pools.Active),
		"dormant", len(s.pools.Dormant),
		"dual_band", s.cfg.DualBand)

	if s.cfg.EnablePassiveScan {
		s.radio.SetPromiscuous(true)
		s.radio.SetPromiscuousRxCallback(s.sniff.ProbeFilter)
	}
	s.radio.SetMaxTxPower(domain.PowerLevels[4])

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopping")
			return ctx.Err()
		default:
		}
		s.Step()
		s.clock.Sleep(time.Millisecond)
	}
}

// Step runs one scheduler iteration: drain learned SSIDs, governor,
// mesh tick, lifecycle tick, channel hop, UI tick. Exported so tests
// can single-step simulated time.
func (s *Scheduler) Step() {
	now := s.clock.Now()

	s.drainLearnedSSIDs()
	s.gov.Tick(s.pools)
	s.meshTick(now)

	if now.After(s.nextLifecycleAt) {
		s.nextLifecycleAt = now.Add(s.between(domain.MinLifecycle, domain.MaxLifecycle))
		rotations := 3 + s.rng.Intn(5)
		for i := 0; i < rotations; i++ {
			s.pools.RotateOnce(s.gov.LowMemory())
		}
	}

	if now.After(s.nextHopAt) {
		s.nextHopAt = now.Add(s.between(domain.MinChannelHop, domain.MaxChannelHop))
		s.hop()
	}

	if now.After(s.nextUIAt) {
		s.nextUIAt = now.Add(domain.UIInterval)
		s.publishGauges()
	}
}

// drainLearnedSSIDs moves queued sniffer records into the store. The
// queue is the only bridge from the RX context; draining happens here
// so every store mutation stays on the scheduler task.
func (s *Scheduler) drainLearnedSSIDs() {
	for {
		select {
		case rec := <-s.sniff.SSIDQueue:
			if !s.cfg.EnableSSIDReplication || !s.gov.LearningAllowed() {
				continue
			}
			if s.store.Offer(rec.Name()) {
				telemetry.LearnedSSIDs.Inc()
			}
		default:
			return
		}
	}
}

// hop advances the channel walk and emits one burst.
func (s *Scheduler) hop() {
	if s.cfg.DualBand && s.nextHopIs5 {
		s.is5GHz = true
		s.channel = domain.Channels5G[s.idx5G]
		s.idx5G = (s.idx5G + 1) % len(domain.Channels5G)
		s.nextHopIs5 = false
	} else {
		s.is5GHz = false
		s.channel = domain.Channels2G[s.idx2G]
		s.idx2G = (s.idx2G + 1) % len(domain.Channels2G)
		s.nextHopIs5 = s.cfg.DualBand
	}

	if err := s.radio.SetChannel(s.channel); err != nil {
		// Next hop tries a different channel anyway.
		return
	}

	packetsThisHop := domain.MinPacketsPerHop + s.rng.Intn(domain.MaxPacketsPerHop-domain.MinPacketsPerHop)
	for i := 0; i < packetsThisHop; i++ {
		s.packetSlot()
		s.fillNoise(time.Duration(1500+s.rng.Intn(3500)) * time.Microsecond)
	}
}

// packetSlot emits the traffic for one slot of the current hop.
func (s *Scheduler) packetSlot() {
	// Opportunistic mesh rebroadcast, only on the mesh home channel.
	if s.relay != nil && !s.is5GHz && s.channel == s.cfg.MeshChannel && s.rng.Intn(100) < 5 {
		if frame := s.relay.RandomCached(); frame != nil {
			s.radio.SetMaxTxPower(domain.MaxTxPower)
			if err := s.radio.Transmit(frame); err == nil {
				s.mu.Lock()
				s.stats.meshRebroadcasts++
				s.mu.Unlock()
				telemetry.MeshRebroadcasts.Inc()
			}
		}
	}

	if d := s.pools.RandomActive(); d != nil {
		// Legacy silicon does not exist on 5 GHz; skip the whole
		// slot rather than betray the era model.
		if s.is5GHz && d.Generation == domain.GenLegacy {
			return
		}

		s.radio.SetMaxTxPower(d.TxPower)

		preferred, havePreferred := s.store.Get(d.PreferredSSID)
		if s.cfg.EnableInteractionSim && havePreferred && s.rng.Intn(100) < 2 {
			s.runInteraction(d, preferred)
		} else {
			frame := synth.ProbeRequest(d, synth.ChooseProbeSSID(d, s.store, s.rng), s.channel, s.is5GHz)
			if err := s.radio.Transmit(frame); err == nil {
				s.countFrame("probe")
			}
			step := 1
			if s.cfg.EnableSequenceGaps && s.rng.Intn(100) < 20 {
				step = 2 + s.rng.Intn(6)
			}
			d.BumpSequence(step)
		}
	}

	s.emitBeaconMaybe()
}

// runInteraction fakes a full join: Auth, AssocReq, then an encrypted
// data burst, with believable inter-frame gaps filled by noise. The
// association never completes; nothing here answers.
func (s *Scheduler) runInteraction(d *domain.VirtualDevice, targetSSID string) {
	d.HasConnected = true

	if err := s.radio.Transmit(synth.Authentication(d)); err == nil {
		s.countFrame("auth")
	}
	d.BumpSequence(1)
	s.fillNoise(s.between(7*time.Millisecond, 20*time.Millisecond))

	if err := s.radio.Transmit(synth.AssociationRequest(d, targetSSID, s.is5GHz)); err == nil {
		s.countFrame("assoc")
	}
	d.BumpSequence(1)
	s.fillNoise(s.between(22*time.Millisecond, 50*time.Millisecond))

	burst := 3 + s.rng.Intn(9)
	for b := 0; b < burst; b++ {
		if err := s.radio.Transmit(synth.EncryptedData(d, s.rng)); err == nil {
			s.countFrame("data")
		}
		d.BumpSequence(1)
		s.fillNoise(s.between(4*time.Millisecond, 10*time.Millisecond))
	}

	s.mu.Lock()
	s.stats.interactions++
	s.mu.Unlock()
	telemetry.Interactions.Inc()
}

// emitBeaconMaybe occasionally plays a router announcing one of the
// store's networks. The odds rise once the store has gone fully local
// (at learning capacity), making the fake BSS set track the venue.
func (s *Scheduler) emitBeaconMaybe() {
	if !s.cfg.EnableBeaconEmulation {
		return
	}
	chance := 2
	if s.store.AtCapacity() {
		chance = 5
	}
	if s.rng.Intn(100) >= chance {
		return
	}

	apMAC := [6]byte{0x02, 0x11, 0x22,
		byte(s.rng.Intn(255)), byte(s.rng.Intn(255)), byte(s.rng.Intn(255))}

	s.radio.SetMaxTxPower(domain.MaxTxPower)
	frame := synth.Beacon(apMAC, s.store.Random(), s.channel, s.is5GHz, uint16(s.rng.Intn(4096)))
	if err := s.radio.Transmit(frame); err == nil {
		s.countFrame("beacon")
	}
}

// fillNoise lowers TX power to the noise floor and emits back-to-back
// anonymous probes until the deadline passes, yielding each iteration.
func (s *Scheduler) fillNoise(d time.Duration) {
	deadline := s.clock.Now().Add(d)
	s.radio.SetMaxTxPower(int8(domain.NoisePowerBase + s.rng.Intn(domain.NoisePowerSpread)))

	for s.clock.Now().Before(deadline) {
		if err := s.radio.Transmit(synth.NoiseProbe(s.rng, s.is5GHz)); err == nil {
			s.mu.Lock()
			s.stats.totalPackets++
			s.stats.junkPackets++
			s.mu.Unlock()
			telemetry.NoiseFrames.Inc()
		}
		s.clock.Yield()
	}
}

// meshTick runs relay decay/prune and, when a check is due, the listen
// window: swap to the mesh filter, park on the mesh channel, drain the
// queue for the check duration, then restore the probe filter and the
// broadcast channel. This window is the only time the radio sits on a
// channel the swarm is not currently painting.
func (s *Scheduler) meshTick(now time.Time) {
	if s.relay == nil {
		return
	}

	s.relay.DecayTick()
	s.relay.PruneTick()

	if now.Before(s.nextMeshCheck) {
		return
	}

	s.radio.SetPromiscuousRxCallback(s.sniff.MeshFilter)
	prevChannel := s.channel
	s.radio.SetChannel(s.cfg.MeshChannel)

	deadline := s.clock.Now().Add(domain.MeshCheckDuration)
	for s.clock.Now().Before(deadline) {
		s.drainMeshQueue()
		s.clock.Sleep(5 * time.Millisecond)
	}
	s.drainMeshQueue()

	if s.cfg.EnablePassiveScan {
		s.radio.SetPromiscuousRxCallback(s.sniff.ProbeFilter)
	}
	s.radio.SetChannel(prevChannel)

	s.nextMeshCheck = s.clock.Now().Add(s.relay.CheckInterval())
}

func (s *Scheduler) drainMeshQueue() {
	for {
		select {
		case rec := <-s.sniff.MeshQueue:
			s.relay.Observe(rec.Frame())
		default:
			return
		}
	}
}

func (s *Scheduler) countFrame(frameType string) {
	s.mu.Lock()
	s.stats.totalPackets++
	if s.is5GHz {
		s.stats.packets5G++
	} else {
		s.stats.packets2G++
	}
	s.mu.Unlock()

	band := "2.4"
	if s.is5GHz {
		band = "5"
	}
	telemetry.FramesTransmitted.WithLabelValues(band, frameType).Inc()
}

func (s *Scheduler) publishGauges() {
	telemetry.ActiveDevices.Set(float64(len(s.pools.Active)))
	telemetry.DormantDevices.Set(float64(len(s.pools.Dormant)))
}

// Snapshot returns the current metrics view. Safe to call from other
// goroutines; pool sizes are read without synchronization and may be
// one rotation stale, which the display surfaces tolerate.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	st := s.stats
	s.mu.Unlock()

	snap := Snapshot{
		FreeHeap:         s.gov.FreeHeap(),
		LowMemory:        s.gov.LowMemory(),
		Active:           len(s.pools.Active),
		Dormant:          len(s.pools.Dormant),
		TotalPackets:     st.totalPackets,
		JunkPackets:      st.junkPackets,
		Packets2G:        st.packets2G,
		Packets5G:        st.packets5G,
		Interactions:     st.interactions,
		MeshRebroadcasts: st.meshRebroadcasts,
		LearnedSSIDs:     s.store.LearnedCount(),
		LastLearnedSSID:  s.store.LastLearned(),
		Channel:          s.channel,
		Is5GHz:           s.is5GHz,
		Uptime:           s.clock.Now().Sub(s.startedAt),
	}
	if s.relay != nil {
		snap.MeshDetected = s.relay.Detected()
	}
	return snap
}

func (s *Scheduler) between(min, max time.Duration) time.Duration {
	return min + time.Duration(s.rng.Int63n(int64(max-min)))
}
