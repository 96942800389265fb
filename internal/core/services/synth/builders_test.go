package synth

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emperornerd/GhostWalk/internal/core/domain"
)

type fakeStore struct {
	entries []string
}

func (f fakeStore) Len() int { return len(f.entries) }
func (f fakeStore) Get(i int) (string, bool) {
	if i < 0 || i >= len(f.entries) {
		return "", false
	}
	return f.entries[i], true
}
func (f fakeStore) Random() string { return f.entries[0] }

type ie struct {
	id      byte
	payload []byte
}

// parseIEs walks the tag/length/value chain starting at offset.
func parseIEs(t *testing.T, data []byte, offset int) []ie {
	t.Helper()
	var out []ie
	for offset < len(data) {
		require.GreaterOrEqual(t, len(data), offset+2, "truncated IE header")
		id := data[offset]
		l := int(data[offset+1])
		require.GreaterOrEqual(t, len(data), offset+2+l, "truncated IE payload")
		out = append(out, ie{id: id, payload: data[offset+2 : offset+2+l]})
		offset += 2 + l
	}
	return out
}

func findIEs(ies []ie, id byte) []ie {
	var out []ie
	for _, e := range ies {
		if e.id == id {
			out = append(out, e)
		}
	}
	return out
}

func legacyIoTDevice() *domain.VirtualDevice {
	return &domain.VirtualDevice{
		MAC:            [6]byte{0x00, 0x14, 0x38, 0xAA, 0xBB, 0xCC},
		BSSIDTarget:    [6]byte{0x00, 0x11, 0x32, 0x01, 0x02, 0x03},
		SequenceNumber: 100,
		PreferredSSID:  -1,
		Generation:     domain.GenLegacy,
		Platform:       domain.PlatformOther,
		TxPower:        74,
	}
}

func modernAppleDevice() *domain.VirtualDevice {
	return &domain.VirtualDevice{
		MAC:            [6]byte{0xDA, 0x51, 0x7B, 0x10, 0x20, 0x30},
		BSSIDTarget:    [6]byte{0x00, 0x11, 0x32, 0x04, 0x05, 0x06},
		SequenceNumber: 2049,
		PreferredSSID:  0,
		Generation:     domain.GenModern,
		Platform:       domain.PlatformIOS,
		TxPower:        78,
	}
}

func commonAndroidDevice() *domain.VirtualDevice {
	return &domain.VirtualDevice{
		MAC:            [6]byte{0x24, 0xFC, 0xE5, 0x44, 0x55, 0x66},
		BSSIDTarget:    [6]byte{0x00, 0x11, 0x32, 0x07, 0x08, 0x09},
		SequenceNumber: 7,
		PreferredSSID:  -1,
		Generation:     domain.GenCommon,
		Platform:       domain.PlatformAndroid,
		TxPower:        76,
	}
}

func TestProbeRequestLegacyIoT(t *testing.T) {
	d := legacyIoTDevice()
	frame := ProbeRequest(d, "Home", 6, false)

	// MAC header.
	require.GreaterOrEqual(t, len(frame), 24)
	assert.Equal(t, []byte{0x40, 0x00, 0x00, 0x00}, frame[0:4])
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, 6), frame[4:10])
	assert.Equal(t, d.MAC[:], frame[10:16])
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, 6), frame[16:22])
	assert.Equal(t, []byte{0x64, 0x00}, frame[22:24])

	ies := parseIEs(t, frame, 24)
	require.GreaterOrEqual(t, len(ies), 4)
	assert.Equal(t, ie{0, []byte("Home")}, ies[0])
	assert.Equal(t, ie{1, []byte{0x82, 0x84, 0x8B, 0x96}}, ies[1])
	assert.Equal(t, ie{3, []byte{0x06}}, ies[2])
	assert.Equal(t, byte(45), ies[3].id)
	assert.Equal(t, htCapsPayload, ies[3].payload)

	// Era enforcement: no VHT, no HE, no vendor tag beyond WFA.
	assert.Empty(t, findIEs(ies, 191))
	assert.Empty(t, findIEs(ies, 255))
	vendors := findIEs(ies, 221)
	require.Len(t, vendors, 1)
	assert.Equal(t, wfaVendorPayload, vendors[0].payload)

	assert.LessOrEqual(t, len(frame), 90)
}

func TestProbeRequestModernApple5G(t *testing.T) {
	d := modernAppleDevice()
	frame := ProbeRequest(d, "Starbucks WiFi", 36, true)

	ies := parseIEs(t, frame, 24)

	// Strict tag order is the fingerprint.
	var order []byte
	for _, e := range ies {
		order = append(order, e.id)
	}
	assert.Equal(t, []byte{0, 1, 3, 127, 45, 191, 255, 221, 221}, order)

	assert.Equal(t, []byte("Starbucks WiFi"), ies[0].payload)
	assert.Equal(t, []byte{0x0C, 0x12, 0x18, 0x24, 0x30, 0x48, 0x60, 0x6C}, ies[1].payload)
	assert.Equal(t, []byte{0x24}, ies[2].payload, "DS param carries channel 36")
	assert.Equal(t, extCapsApple, ies[3].payload)
	assert.Equal(t, htCapsPayload, ies[4].payload)
	assert.Equal(t, vhtCapsPayload, ies[5].payload)

	// HE rides in an Element ID Extension.
	require.NotEmpty(t, ies[6].payload)
	assert.Equal(t, byte(35), ies[6].payload[0])
	assert.Equal(t, heCapsPayload, ies[6].payload[1:])

	// WFA vendor IE first, Apple vendor IE after it.
	assert.Equal(t, wfaVendorPayload, ies[7].payload)
	assert.Equal(t, appleVendorPayload, ies[8].payload)

	// No wildcard SSID for an iPhone in public.
	assert.NotEmpty(t, ies[0].payload)
}

func TestProbeRequestCommonAndroid(t *testing.T) {
	d := commonAndroidDevice()
	frame := ProbeRequest(d, "netgear", 11, false)

	ies := parseIEs(t, frame, 24)
	var order []byte
	for _, e := range ies {
		order = append(order, e.id)
	}
	// Non-Apple ExtCaps comes after VHT; no HE for WiFi 5 silicon.
	assert.Equal(t, []byte{0, 1, 3, 45, 191, 127, 221}, order)
	assert.Equal(t, []byte{0x02, 0x04, 0x0B, 0x16, 0x0C, 0x12, 0x18, 0x24}, ies[1].payload)
	assert.Equal(t, extCapsOther, ies[5].payload)
	assert.Equal(t, wfaVendorPayload, ies[6].payload)
}

func TestGenerationCapabilityBounds(t *testing.T) {
	cases := []struct {
		name    string
		dev     *domain.VirtualDevice
		wantVHT bool
		wantHE  bool
	}{
		{"legacy", legacyIoTDevice(), false, false},
		{"common", commonAndroidDevice(), true, false},
		{"modern", modernAppleDevice(), true, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, frame := range [][]byte{
				ProbeRequest(tc.dev, "Guest", 1, false),
				AssociationRequest(tc.dev, "Guest", false),
			} {
				ies := parseIEs(t, frame[ieOffset(frame):], 0)
				assert.Equal(t, tc.wantVHT, len(findIEs(ies, 191)) > 0, "VHT presence")

				he := false
				for _, e := range findIEs(ies, 255) {
					if len(e.payload) > 0 && e.payload[0] == 35 {
						he = true
					}
				}
				assert.Equal(t, tc.wantHE, he, "HE presence")
			}
		})
	}
}

// ieOffset returns where the tagged parameters start for a frame.
func ieOffset(frame []byte) int {
	switch frame[0] {
	case fcAssocRequest:
		return 24 + 4 // Cap Info + Listen Interval
	case fcBeacon:
		return 24 + 12 // Timestamp + interval + Cap Info
	default:
		return 24
	}
}

func TestSequenceControlEncoding(t *testing.T) {
	d := legacyIoTDevice()
	for _, seq := range []uint16{0, 1, 100, 255, 256, 2048, 4095} {
		d.SequenceNumber = seq
		frame := ProbeRequest(d, "Home", 1, false)
		assert.Equal(t, byte(seq&0xFF), frame[22])
		assert.Zero(t, frame[23]&0x0F, "fragment bits must be zero")
		assert.Equal(t, byte((seq>>8)&0xF0), frame[23])
	}
}

func TestAuthenticationFrame(t *testing.T) {
	d := modernAppleDevice()
	frame := Authentication(d)

	require.Len(t, frame, 30)
	assert.Equal(t, []byte{0xB0, 0x00}, frame[0:2])
	assert.Equal(t, d.BSSIDTarget[:], frame[4:10])
	assert.Equal(t, d.MAC[:], frame[10:16])
	assert.Equal(t, d.BSSIDTarget[:], frame[16:22])
	// Open system, transaction 1, status success.
	assert.Equal(t, []byte{0x00, 0x00, 0x01, 0x00, 0x00, 0x00}, frame[24:30])
}

func TestAssociationRequest(t *testing.T) {
	d := commonAndroidDevice()
	frame := AssociationRequest(d, "Guest", false)

	assert.Equal(t, []byte{0x00, 0x00}, frame[0:2])
	assert.Equal(t, []byte{0x31, 0x04}, frame[24:26], "Cap Info")
	assert.Equal(t, []byte{0x0A, 0x00}, frame[26:28], "Listen Interval")

	ies := parseIEs(t, frame, 28)
	var order []byte
	for _, e := range ies {
		order = append(order, e.id)
	}
	assert.Equal(t, []byte{0, 1, 48, 45, 191}, order)

	rsn := findIEs(ies, 48)
	require.Len(t, rsn, 1)
	assert.Equal(t, rsnPayload, rsn[0].payload)
	assert.Len(t, rsn[0].payload, 20)
}

func TestBeacon(t *testing.T) {
	apMAC := [6]byte{0x02, 0x11, 0x22, 0x01, 0x02, 0x03}

	t.Run("2.4GHz", func(t *testing.T) {
		frame := Beacon(apMAC, "linksys", 6, false, 1234)

		assert.Equal(t, []byte{0x80, 0x00}, frame[0:2])
		assert.Equal(t, bytes.Repeat([]byte{0xFF}, 6), frame[4:10])
		assert.Equal(t, apMAC[:], frame[10:16])
		assert.Equal(t, apMAC[:], frame[16:22])
		assert.Equal(t, bytes.Repeat([]byte{0x00}, 8), frame[24:32], "zero timestamp")
		assert.Equal(t, []byte{0x64, 0x00}, frame[32:34], "beacon interval")
		assert.Equal(t, []byte{0x31, 0x04}, frame[34:36], "cap info")

		ies := parseIEs(t, frame, 36)
		assert.Equal(t, []byte("linksys"), ies[0].payload)
		assert.Equal(t, ratesLegacy2G, ies[1].payload)
		assert.Equal(t, []byte{0x06}, ies[2].payload)

		htOp := findIEs(ies, 61)
		require.Len(t, htOp, 1)
		assert.Len(t, htOp[0].payload, 22)
		assert.Equal(t, byte(6), htOp[0].payload[0])

		assert.Empty(t, findIEs(ies, 192), "no VHT operation on 2.4 GHz")
	})

	t.Run("5GHz", func(t *testing.T) {
		frame := Beacon(apMAC, "linksys", 149, true, 1234)
		ies := parseIEs(t, frame, 36)
		assert.Equal(t, rates5G, ies[1].payload)

		vhtOp := findIEs(ies, 192)
		require.Len(t, vhtOp, 1)
		assert.Len(t, vhtOp[0].payload, 5)
	})
}

func TestEncryptedData(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	d := modernAppleDevice()

	for i := 0; i < 200; i++ {
		frame := EncryptedData(d, rng)

		assert.Equal(t, []byte{0x88, 0x41}, frame[0:2], "protected QoS data")
		assert.Equal(t, d.BSSIDTarget[:], frame[4:10])
		assert.Equal(t, d.MAC[:], frame[10:16])
		assert.Less(t, frame[24], byte(8), "synthetic CCMP header")
		assert.Equal(t, byte(0x00), frame[25])

		payload := len(frame) - 26
		assert.GreaterOrEqual(t, payload, 64)
		assert.Less(t, payload, 512)
		assert.LessOrEqual(t, len(frame), domain.MaxFrameSize)
	}
}

func TestNoiseProbe(t *testing.T) {
	rng := rand.New(rand.NewSource(9))

	sawHidden, sawWildcard := false, false
	for i := 0; i < 300; i++ {
		frame := NoiseProbe(rng, false)

		assert.Equal(t, byte(0x40), frame[0])
		mac := frame[10:16]
		assert.NotZero(t, mac[0]&0x02, "noise MACs are locally administered")
		assert.Zero(t, mac[0]&0x01, "noise MACs are unicast")

		ies := parseIEs(t, frame, 24)
		require.Len(t, ies, 2, "SSID and rates only")
		switch l := len(ies[0].payload); {
		case l == 0:
			sawWildcard = true
		default:
			sawHidden = true
			assert.GreaterOrEqual(t, l, 5)
			assert.LessOrEqual(t, l, 11)
			for _, c := range ies[0].payload {
				assert.GreaterOrEqual(t, c, byte('a'))
				assert.LessOrEqual(t, c, byte('z'))
			}
		}
		assert.LessOrEqual(t, len(frame), 64)
	}
	assert.True(t, sawHidden, "expected hidden-network style noise")
	assert.True(t, sawWildcard, "expected wildcard noise")
}

func TestChooseProbeSSID(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	store := fakeStore{entries: []string{"alpha", "beta", "gamma"}}

	t.Run("preferred wins", func(t *testing.T) {
		d := modernAppleDevice()
		d.PreferredSSID = 1
		for i := 0; i < 50; i++ {
			assert.Equal(t, "beta", ChooseProbeSSID(d, store, rng))
		}
	})

	t.Run("stale index falls back to store", func(t *testing.T) {
		d := modernAppleDevice()
		d.PreferredSSID = 99
		got := ChooseProbeSSID(d, store, rng)
		assert.Contains(t, store.entries, got)
	})

	t.Run("phones never wildcard", func(t *testing.T) {
		d := modernAppleDevice()
		d.PreferredSSID = -1
		for i := 0; i < 500; i++ {
			assert.NotEmpty(t, ChooseProbeSSID(d, store, rng))
		}
	})

	t.Run("legacy wildcards sometimes", func(t *testing.T) {
		d := legacyIoTDevice()
		wildcards := 0
		for i := 0; i < 1000; i++ {
			if ChooseProbeSSID(d, store, rng) == "" {
				wildcards++
			}
		}
		assert.Greater(t, wildcards, 250)
		assert.Less(t, wildcards, 550)
	})

	t.Run("empty store yields hidden-style name", func(t *testing.T) {
		d := modernAppleDevice()
		d.PreferredSSID = -1
		got := ChooseProbeSSID(d, fakeStore{}, rng)
		assert.Len(t, got, 7)
	})
}

// TestProbeRoundTrip feeds a synthesized probe through gopacket's IE
// decoder, the same parser any off-the-shelf DPI stack builds on.
func TestProbeRoundTrip(t *testing.T) {
	d := modernAppleDevice()
	frame := ProbeRequest(d, "Google Starbucks", 36, true)

	packet := gopacket.NewPacket(frame[24:], layers.LayerTypeDot11InformationElement, gopacket.Default)
	require.Nil(t, packet.ErrorLayer(), "decoder must accept the IE chain")

	var decoded []*layers.Dot11InformationElement
	for _, l := range packet.Layers() {
		if e, ok := l.(*layers.Dot11InformationElement); ok {
			decoded = append(decoded, e)
		}
	}
	require.NotEmpty(t, decoded)

	assert.Equal(t, layers.Dot11InformationElementIDSSID, decoded[0].ID)
	assert.Equal(t, []byte("Google Starbucks"), decoded[0].Info)

	assert.Equal(t, layers.Dot11InformationElementIDRates, decoded[1].ID)
	assert.Equal(t, rates5G, decoded[1].Info)

	var ht, vht int
	for _, e := range decoded {
		switch e.ID {
		case layers.Dot11InformationElementID(45):
			ht++
			assert.Equal(t, htCapsPayload, e.Info)
		case layers.Dot11InformationElementID(191):
			vht++
			assert.Equal(t, vhtCapsPayload, e.Info)
		}
	}
	assert.Equal(t, 1, ht)
	assert.Equal(t, 1, vht)
}

func TestFrameSizeBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	devices := []*domain.VirtualDevice{legacyIoTDevice(), commonAndroidDevice(), modernAppleDevice()}
	longSSID := "a-network-name-right-at-limit-32"

	for i := 0; i < 500; i++ {
		d := devices[i%len(devices)]
		for _, frame := range [][]byte{
			ProbeRequest(d, longSSID, 11, false),
			AssociationRequest(d, longSSID, true),
			Authentication(d),
			EncryptedData(d, rng),
			Beacon([6]byte{0x02, 0x11, 0x22, 1, 2, 3}, longSSID, 161, true, 4095),
			NoiseProbe(rng, true),
		} {
			assert.LessOrEqual(t, len(frame), domain.MaxFrameSize)
		}
	}
}
