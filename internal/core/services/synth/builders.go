package synth

import (
	"math/rand"

	"github.com/emperornerd/GhostWalk/internal/core/domain"
)

// Frame Control constants (byte 0 of the MAC header).
const (
	fcProbeRequest = 0x40
	fcBeacon       = 0x80
	fcAuth         = 0xB0
	fcAssocRequest = 0x00
	fcDataQoS      = 0x88
)

// ssidSource is the read surface the builders need from the SSID store.
type ssidSource interface {
	Len() int
	Get(i int) (string, bool)
	Random() string
}

// header writes the standard 3-address management/data MAC header. The
// sequence control bytes are seq&0xFF and (seq>>8)&0xF0; for a 12-bit
// counter the second byte is always zero, so only the low 8 bits of the
// counter reach the wire and the fragment nibble is zero.
func header(buf []byte, fc0, fc1, dur0, dur1 byte, a1, a2, a3 [6]byte, seq uint16) []byte {
	buf = append(buf, fc0, fc1, dur0, dur1)
	buf = append(buf, a1[:]...)
	buf = append(buf, a2[:]...)
	buf = append(buf, a3[:]...)
	buf = append(buf, byte(seq&0xFF), byte((seq>>8)&0xF0))
	return buf
}

// rates2G picks the 2.4 GHz rate set a device of this era would claim.
func rates2G(gen domain.Generation) []byte {
	if gen == domain.GenLegacy {
		return ratesLegacy2G
	}
	return ratesModern2G
}

func bandRates(gen domain.Generation, is5GHz bool) []byte {
	if is5GHz {
		return rates5G
	}
	return rates2G(gen)
}

// ChooseProbeSSID resolves the SSID element for a directed probe.
// Legacy and non-phone hardware wildcards 40% of the time; phones
// essentially never do in public. "" means wildcard (length 0).
func ChooseProbeSSID(d *domain.VirtualDevice, ssids ssidSource, rng *rand.Rand) string {
	if d.Generation == domain.GenLegacy || d.Platform == domain.PlatformOther {
		if rng.Intn(100) < 40 {
			return ""
		}
	}
	if name, ok := ssids.Get(d.PreferredSSID); ok {
		return name
	}
	if ssids.Len() > 0 {
		return ssids.Random()
	}
	return randomLowercase(rng, 7)
}

func randomLowercase(rng *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('a' + rng.Intn(25))
	}
	return string(b)
}

// ProbeRequest builds a directed probe request. The IE order is strict:
// the tag sequence is itself a fingerprint and must match the claimed
// platform and era exactly.
func ProbeRequest(d *domain.VirtualDevice, ssid string, channel int, is5GHz bool) []byte {
	buf := make([]byte, 0, domain.MaxFrameSize)
	buf = header(buf, fcProbeRequest, 0x00, 0x00, 0x00,
		domain.BroadcastAddr, d.MAC, domain.BroadcastAddr, d.SequenceNumber)

	buf = appendIE(buf, ieSSID, []byte(ssid))
	buf = appendIE(buf, ieRates, bandRates(d.Generation, is5GHz))
	buf = appendIE(buf, ieDSParam, []byte{byte(channel)})

	isApple := d.Platform == domain.PlatformIOS
	if isApple {
		buf = appendIE(buf, ieExtCaps, extCapsApple)
	}

	buf = appendIE(buf, ieHTCaps, htCapsPayload)

	if d.Generation != domain.GenLegacy {
		buf = appendIE(buf, ieVHTCaps, vhtCapsPayload)
	}
	if !isApple && d.Generation != domain.GenLegacy {
		buf = appendIE(buf, ieExtCaps, extCapsOther)
	}
	if d.Generation == domain.GenModern {
		buf = appendExtIE(buf, extIDHECaps, heCapsPayload)
	}

	buf = appendIE(buf, ieVendor, wfaVendorPayload)
	if isApple {
		buf = appendIE(buf, ieVendor, appleVendorPayload)
	}
	return buf
}

// Authentication builds an open-system authentication request toward
// the device's target BSSID.
func Authentication(d *domain.VirtualDevice) []byte {
	buf := make([]byte, 0, 32)
	buf = header(buf, fcAuth, 0x00, 0x00, 0x01,
		d.BSSIDTarget, d.MAC, d.BSSIDTarget, d.SequenceNumber)
	// Algorithm: open (0), transaction seq 1, status 0.
	buf = append(buf, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00)
	return buf
}

// AssociationRequest builds the follow-up association request. The
// association never completes; only the request ever airs.
func AssociationRequest(d *domain.VirtualDevice, ssid string, is5GHz bool) []byte {
	buf := make([]byte, 0, domain.MaxFrameSize)
	buf = header(buf, fcAssocRequest, 0x00, 0x00, 0x00,
		d.BSSIDTarget, d.MAC, d.BSSIDTarget, d.SequenceNumber)

	buf = append(buf, 0x31, 0x04) // Cap Info
	buf = append(buf, 0x0A, 0x00) // Listen Interval
	buf = appendIE(buf, ieSSID, []byte(ssid))
	buf = appendIE(buf, ieRates, bandRates(d.Generation, is5GHz))
	buf = appendIE(buf, ieRSN, rsnPayload)
	buf = appendIE(buf, ieHTCaps, htCapsPayload)
	if d.Generation != domain.GenLegacy {
		buf = appendIE(buf, ieVHTCaps, vhtCapsPayload)
	}
	if d.Generation == domain.GenModern {
		buf = appendExtIE(buf, extIDHECaps, heCapsPayload)
	}
	return buf
}

// EncryptedData builds a protected QoS data frame carrying a synthetic
// CCMP header and random ciphertext. Nothing ever parses the payload;
// only the outer header matters to an observer.
func EncryptedData(d *domain.VirtualDevice, rng *rand.Rand) []byte {
	buf := make([]byte, 0, domain.MaxFrameSize)
	buf = header(buf, fcDataQoS, 0x41, 0x00, 0x00,
		d.BSSIDTarget, d.MAC, d.BSSIDTarget, d.SequenceNumber)

	buf = append(buf, byte(rng.Intn(8)), 0x00)
	payloadLen := 64 + rng.Intn(448)
	for i := 0; i < payloadLen; i++ {
		buf = append(buf, byte(rng.Intn(256)))
	}
	return buf
}

// Beacon builds a fake AP announcement. HT Operation always rides
// along so 2.4 GHz beacons read as 802.11n rather than bare 11g; VHT
// Operation is added on 5 GHz only.
func Beacon(apMAC [6]byte, ssid string, channel int, is5GHz bool, seq uint16) []byte {
	buf := make([]byte, 0, domain.MaxFrameSize)
	buf = header(buf, fcBeacon, 0x00, 0x00, 0x00,
		domain.BroadcastAddr, apMAC, apMAC, seq)

	buf = append(buf, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00) // Timestamp
	buf = append(buf, 0x64, 0x00)                                     // Beacon interval
	buf = append(buf, 0x31, 0x04)                                     // Cap Info
	buf = appendIE(buf, ieSSID, []byte(ssid))
	if is5GHz {
		buf = appendIE(buf, ieRates, rates5G)
	} else {
		buf = appendIE(buf, ieRates, ratesLegacy2G)
	}
	buf = appendIE(buf, ieDSParam, []byte{byte(channel)})

	htOp := make([]byte, 22)
	htOp[0] = byte(channel)
	buf = appendIE(buf, ieHTOper, htOp)

	if is5GHz {
		buf = appendIE(buf, ieVHTOper, []byte{0x00, 0x00, 0x00, 0x00, 0x00})
	}
	return buf
}

// NoiseProbe builds a minimal anonymous probe used to fill silence.
// Source addresses are fresh locally administered randoms so the noise
// floor reads as background MAC randomization, not as swarm members.
func NoiseProbe(rng *rand.Rand, is5GHz bool) []byte {
	var mac [6]byte
	mac[0] = byte(rng.Intn(256))&0xFE | 0x02
	for i := 1; i < 6; i++ {
		mac[i] = byte(rng.Intn(256))
	}

	buf := make([]byte, 0, 64)
	buf = header(buf, fcProbeRequest, 0x00, 0x00, 0x00,
		domain.BroadcastAddr, mac, domain.BroadcastAddr, uint16(rng.Intn(4096)))

	// Hidden-network style checks 40% of the time, wildcard otherwise.
	if rng.Intn(100) < 40 {
		buf = appendIE(buf, ieSSID, []byte(randomLowercase(rng, 5+rng.Intn(7))))
	} else {
		buf = appendIE(buf, ieSSID, nil)
	}

	if is5GHz {
		buf = appendIE(buf, ieRates, rates5G)
	} else {
		buf = appendIE(buf, ieRates, ratesLegacy2G)
	}
	return buf
}
