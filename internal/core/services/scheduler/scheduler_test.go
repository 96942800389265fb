package scheduler

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emperornerd/GhostWalk/internal/adapters/radio"
	"github.com/emperornerd/GhostWalk/internal/adapters/sniffer"
	"github.com/emperornerd/GhostWalk/internal/config"
	"github.com/emperornerd/GhostWalk/internal/core/domain"
	"github.com/emperornerd/GhostWalk/internal/core/ports"
	"github.com/emperornerd/GhostWalk/internal/core/services/governor"
	"github.com/emperornerd/GhostWalk/internal/core/services/identity"
	"github.com/emperornerd/GhostWalk/internal/core/services/mesh"
	"github.com/emperornerd/GhostWalk/internal/core/services/ssid"
	"github.com/emperornerd/GhostWalk/internal/core/services/swarm"
	"github.com/emperornerd/GhostWalk/internal/telemetry"
)

func TestMain(m *testing.M) {
	telemetry.InitMetrics()
	m.Run()
}

type harness struct {
	sched *Scheduler
	radio *radio.MockRadio
	clock *radio.FakeClock
	pools *swarm.Pools
	store *ssid.Store
	relay *mesh.Relay
	sniff *sniffer.Sniffer
	cfg   *config.Config
}

var testLocalMAC = [6]byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x01}

func newHarness(t *testing.T, seed int64, mod func(cfg *config.Config)) *harness {
	t.Helper()

	cfg := config.Default()
	cfg.MockMode = true
	cfg.TargetActivePool = 40
	cfg.TargetDormantPool = 80
	if mod != nil {
		mod(cfg)
	}

	rng := rand.New(rand.NewSource(seed))
	clock := radio.NewFakeClock()
	store := ssid.NewStore(cfg.MaxLearnedSSIDs, cfg.LearnInterval, clock, rng)
	gen := identity.NewGenerator(rng, store)
	pools := swarm.New(gen, rng, cfg.TargetActivePool, cfg.TargetDormantPool, cfg.EnableLifecycleSim)
	pools.Initialize(func() uint64 { return 1 << 30 })
	gov := governor.New(func() uint64 { return 1 << 30 })

	var relay *mesh.Relay
	if cfg.EnableMeshRelay {
		relay = mesh.NewRelay(testLocalMAC, clock, rng)
	}

	mock := radio.NewMockRadio()
	sniff := sniffer.New()
	sched := New(cfg, mock, clock, rng, pools, store, gov, relay, sniff)

	return &harness{sched: sched, radio: mock, clock: clock,
		pools: pools, store: store, relay: relay, sniff: sniff, cfg: cfg}
}

// srcMAC pulls Addr2 from a raw frame.
func srcMAC(frame []byte) [6]byte {
	var m [6]byte
	copy(m[:], frame[10:16])
	return m
}

func TestHopAlternatesBands(t *testing.T) {
	h := newHarness(t, 1, nil)

	var bands []bool
	var channels []int
	for i := 0; i < 6; i++ {
		h.sched.hop()
		bands = append(bands, h.sched.is5GHz)
		channels = append(channels, h.sched.channel)
	}

	assert.Equal(t, []bool{true, false, true, false, true, false}, bands)
	assert.Equal(t, []int{36, 1, 149, 6, 40, 11}, channels,
		"round-robin through both channel plans")
}

func TestSingleBandWalk(t *testing.T) {
	h := newHarness(t, 1, func(cfg *config.Config) { cfg.DualBand = false })

	var channels []int
	for i := 0; i < len(domain.Channels2G); i++ {
		h.sched.hop()
		assert.False(t, h.sched.is5GHz)
		channels = append(channels, h.sched.channel)
	}
	assert.Equal(t, domain.Channels2G, channels)
}

func TestNoLegacyDeviceOn5GHz(t *testing.T) {
	h := newHarness(t, 2, func(cfg *config.Config) {
		cfg.TargetActivePool = 200
		cfg.EnableLifecycleSim = false
		cfg.EnableInteractionSim = false
	})

	legacyMACs := map[[6]byte]bool{}
	for _, d := range h.pools.Active {
		if d.Generation == domain.GenLegacy {
			legacyMACs[d.MAC] = true
		}
	}
	require.NotEmpty(t, legacyMACs, "seed must produce some legacy devices")

	for i := 0; i < 30; i++ {
		h.sched.hop()
	}

	for _, f := range h.radio.Frames() {
		if f.Channel >= 36 {
			assert.False(t, legacyMACs[srcMAC(f.Data)],
				"legacy station transmitted on 5 GHz channel %d", f.Channel)
		}
	}
}

func TestStickyPowerPerDevice(t *testing.T) {
	h := newHarness(t, 3, func(cfg *config.Config) {
		cfg.EnableLifecycleSim = false
		cfg.EnableInteractionSim = false
		cfg.EnableBeaconEmulation = false
	})

	power := map[[6]byte]int8{}
	for _, d := range h.pools.Active {
		power[d.MAC] = d.TxPower
	}

	for i := 0; i < 20; i++ {
		h.sched.hop()
	}

	for _, f := range h.radio.Frames() {
		if want, ok := power[srcMAC(f.Data)]; ok {
			assert.Equal(t, want, f.Power, "swarm frames carry the device's sticky power")
		}
	}
}

func TestInteractionSequence(t *testing.T) {
	h := newHarness(t, 4, nil)

	d := &h.pools.Active[0]
	d.Generation = domain.GenModern
	d.Platform = domain.PlatformIOS
	startSeq := d.SequenceNumber

	h.sched.runInteraction(d, "Starbucks WiFi")

	var own [][]byte
	for _, f := range h.radio.Frames() {
		if srcMAC(f.Data) == d.MAC {
			own = append(own, f.Data)
		}
	}

	require.GreaterOrEqual(t, len(own), 2+3)
	require.LessOrEqual(t, len(own), 2+11)

	// Auth -> AssocReq -> data burst, in order.
	assert.Equal(t, byte(0xB0), own[0][0])
	assert.Equal(t, byte(0x00), own[1][0])
	for _, f := range own[2:] {
		assert.Equal(t, []byte{0x88, 0x41}, f[0:2])
	}

	// Sequence numbers strictly +1 across the whole exchange.
	for i, f := range own {
		want := (startSeq + uint16(i)) % 4096
		assert.Equal(t, byte(want&0xFF), f[22])
		assert.Equal(t, byte((want>>8)&0xF0), f[23])
	}

	assert.True(t, d.HasConnected)
	assert.EqualValues(t, 1, h.sched.Snapshot().Interactions)
}

func TestProbeSequenceGaps(t *testing.T) {
	h := newHarness(t, 5, func(cfg *config.Config) {
		cfg.DualBand = false
		cfg.EnableLifecycleSim = false
		cfg.EnableInteractionSim = false
		cfg.EnableBeaconEmulation = false
	})

	// Shrink to a single station so successive probes are its own.
	h.pools.Active = h.pools.Active[:1]
	mac := h.pools.Active[0].MAC

	for i := 0; i < 40; i++ {
		h.sched.hop()
	}

	var seqs []uint16
	for _, f := range h.radio.Frames() {
		if f.Data[0] == 0x40 && srcMAC(f.Data) == mac {
			seqs = append(seqs, uint16(f.Data[22]))
		}
	}
	require.Greater(t, len(seqs), 100)

	gaps := 0
	for i := 1; i < len(seqs); i++ {
		// Only the low byte is recoverable from the wire encoding;
		// deltas still expose the step distribution.
		delta := int((seqs[i] - seqs[i-1]) & 0xFF)
		assert.GreaterOrEqual(t, delta, 1)
		assert.LessOrEqual(t, delta, 7, "steps are 1 or a short forward gap")
		if delta > 1 {
			gaps++
		}
	}
	assert.Greater(t, gaps, len(seqs)/10, "roughly a fifth of probes jump")
}

func TestBeaconEmission(t *testing.T) {
	h := newHarness(t, 6, func(cfg *config.Config) {
		cfg.DualBand = false
		cfg.EnableInteractionSim = false
	})

	for i := 0; i < 30; i++ {
		h.sched.hop()
	}

	beacons := 0
	for _, f := range h.radio.Frames() {
		if f.Data[0] == 0x80 {
			beacons++
			mac := srcMAC(f.Data)
			assert.Equal(t, [3]byte{0x02, 0x11, 0x22}, [3]byte{mac[0], mac[1], mac[2]})
			assert.Equal(t, domain.MaxTxPower, f.Power, "beacons go out at max power")
		}
	}
	assert.Greater(t, beacons, 0, "some fake AP traffic expected")
}

func TestDrainLearnedSSIDs(t *testing.T) {
	h := newHarness(t, 7, nil)

	frame := make([]byte, 24, 64)
	frame[0] = 0x40
	frame = append(frame, 0x00, 7)
	frame = append(frame, []byte("CafeNet")...)
	h.sniff.ProbeFilter(&ports.RxPacket{Payload: frame, Type: ports.RxTypeMgmt})

	h.sched.Step()

	assert.True(t, h.store.Contains("CafeNet"))
	assert.Equal(t, "CafeNet", h.sched.Snapshot().LastLearnedSSID)
}

func TestLifecycleTickChurn(t *testing.T) {
	h := newHarness(t, 8, func(cfg *config.Config) {
		cfg.EnableInteractionSim = false
	})

	before := map[[6]byte]bool{}
	for _, d := range h.pools.Active {
		before[d.MAC] = true
	}
	size := len(h.pools.Active)

	h.clock.Advance(domain.MaxLifecycle + time.Second)
	h.sched.Step()

	assert.Equal(t, size, len(h.pools.Active), "size preserved outside low-memory")

	changed := 0
	for _, d := range h.pools.Active {
		if !before[d.MAC] {
			changed++
		}
	}
	// 3..7 rotations; a revival from the (initially empty) dormant
	// pool can return a departed identity, so changed is a floor.
	assert.GreaterOrEqual(t, changed, 1)
	assert.LessOrEqual(t, changed, 7)
}

func TestMeshListenWindow(t *testing.T) {
	h := newHarness(t, 9, func(cfg *config.Config) {
		cfg.EnableMeshRelay = true
	})

	// A mesh frame waiting in the queue, as if heard mid-window.
	frame := make([]byte, 48)
	frame[0] = 0xD0
	copy(frame[10:16], []byte{0x18, 0xFE, 0x34, 1, 2, 3})
	frame[24] = 127
	frame[25], frame[26], frame[27] = 0x18, 0xFE, 0x34
	h.sniff.MeshFilter(&ports.RxPacket{Payload: frame, Type: ports.RxTypeMgmt})

	h.clock.Advance(domain.MeshStandbyInterval + time.Second)
	h.sched.Step()

	assert.True(t, h.relay.Detected(), "queued mesh frame observed during the window")

	// The probe filter is back after the window: injected probe
	// requests land in the SSID queue again.
	probe := make([]byte, 24, 40)
	probe[0] = 0x40
	probe = append(probe, 0x00, 4)
	probe = append(probe, []byte("test")...)
	cb := h.radio.CurrentCallback()
	require.NotNil(t, cb, "a filter must be installed after the window")
	cb(&ports.RxPacket{Payload: probe, Type: ports.RxTypeMgmt})
	assert.Len(t, h.sniff.SSIDQueue, 1, "probe filter restored after mesh window")

	// The broadcast channel is restored too.
	assert.Equal(t, h.sched.channel, h.radio.Channel())
}

func TestMeshRebroadcast(t *testing.T) {
	h := newHarness(t, 10, func(cfg *config.Config) {
		cfg.DualBand = false
		cfg.EnableInteractionSim = false
		cfg.EnableMeshRelay = true
	})

	cached := make([]byte, 48)
	cached[0] = 0xD0
	copy(cached[10:16], []byte{0x18, 0xFE, 0x34, 9, 9, 9})
	cached[24] = 127
	cached[25], cached[26], cached[27] = 0x18, 0xFE, 0x34
	require.True(t, h.relay.Observe(cached))

	// Park the walk so every hop lands on the mesh channel.
	for i := 0; i < 40; i++ {
		h.sched.idx2G = 0
		h.sched.hop()
		require.Equal(t, 1, h.sched.channel)
	}

	found := false
	for _, f := range h.radio.Frames() {
		if f.Data[0] == 0xD0 {
			assert.Equal(t, cached, f.Data, "mesh frames are rebroadcast verbatim")
			assert.Equal(t, domain.MaxTxPower, f.Power)
			found = true
		}
	}
	assert.True(t, found, "expected at least one rebroadcast across 40 hops")
}

func TestTxFailuresAreAbsorbed(t *testing.T) {
	h := newHarness(t, 11, nil)
	h.radio.FailTX = true

	for i := 0; i < 5; i++ {
		h.sched.hop()
	}

	snap := h.sched.Snapshot()
	assert.Zero(t, snap.TotalPackets, "failed transmissions are not counted")
	assert.Empty(t, h.radio.Frames())
}

func TestSnapshot(t *testing.T) {
	h := newHarness(t, 12, nil)

	h.sched.hop()
	h.clock.Advance(3 * time.Second)

	snap := h.sched.Snapshot()
	assert.Equal(t, len(h.pools.Active), snap.Active)
	assert.Greater(t, snap.TotalPackets, uint64(0))
	assert.Greater(t, snap.Uptime, 2*time.Second)
	assert.NotZero(t, snap.Channel)
	assert.Greater(t, snap.FreeHeap, uint64(0))
}
