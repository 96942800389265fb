package identity

import (
	"math/rand"

	"github.com/google/uuid"

	"github.com/emperornerd/GhostWalk/internal/core/domain"
)

// Vendor OUI pools. The pools and the 40/35/7/18 split below are the
// forensic model's crowd demographics; both are contracts, not tuning.
var ouiApple = [][3]byte{
	{0xFC, 0xFC, 0x48}, {0xBC, 0xD0, 0x74}, {0xAC, 0x1F, 0x0F}, {0xF0, 0xD4, 0x15},
	{0xF0, 0x98, 0x9D}, {0x34, 0x14, 0x5F}, {0xDC, 0xA9, 0x04}, {0x28, 0xCF, 0xE9},
	{0xAC, 0xBC, 0x32}, {0xE4, 0xCE, 0x8F}, {0xBC, 0x9F, 0xEF}, {0x48, 0x4B, 0xAA},
	{0x88, 0x66, 0x5A}, {0x1C, 0x91, 0x48}, {0x60, 0xFA, 0xCD},
}

var ouiSamsung = [][3]byte{
	{0x24, 0xFC, 0xE5}, {0x8C, 0x96, 0xD4}, {0x5C, 0xCB, 0x99}, {0x34, 0x21, 0x09},
	{0x84, 0x25, 0xDB}, {0x00, 0xE0, 0x64}, {0x80, 0xEA, 0x96}, {0x38, 0x01, 0x95},
	{0xB0, 0xC0, 0x90}, {0xFC, 0xC2, 0xDE},
}

var ouiLegacyIoT = [][3]byte{
	{0x00, 0x14, 0x38}, {0x00, 0x0D, 0x93}, {0x00, 0x1F, 0x32}, {0x00, 0x16, 0x35},
	{0x00, 0x04, 0xBD}, {0x00, 0x17, 0xE0}, {0x00, 0x1B, 0x7A},
}

var ouiModernGeneric = [][3]byte{
	{0x3C, 0x5C, 0x48}, {0x8C, 0xF5, 0xA3}, {0x74, 0xC6, 0x3B}, {0xFC, 0xA6, 0x67},
	{0xE8, 0x6A, 0x64}, {0x60, 0x55, 0xF9}, {0xDC, 0x8C, 0x90}, {0x40, 0x9F, 0x38},
}

// Cumulative category thresholds for the single uniform roll in [0,100).
const (
	thresholdApple   = 40
	thresholdSamsung = 75
	thresholdIoT     = 82
)

// ssidSource is the slice of the SSID store the generator needs.
type ssidSource interface {
	Len() int
	RandomIndex() int
}

// Generator draws weighted virtual device identities.
type Generator struct {
	rng   *rand.Rand
	ssids ssidSource
}

func NewGenerator(rng *rand.Rand, ssids ssidSource) *Generator {
	return &Generator{rng: rng, ssids: ssids}
}

// Generate produces a fresh station whose vendor, generation, platform,
// addressing and TX power are mutually consistent.
func (g *Generator) Generate() domain.VirtualDevice {
	roll := g.rng.Intn(100)

	var oui [3]byte
	var gen domain.Generation
	var plat domain.Platform

	switch {
	case roll < thresholdApple:
		oui = ouiApple[g.rng.Intn(len(ouiApple))]
		if g.rng.Intn(100) < 80 {
			gen = domain.GenCommon
		} else {
			gen = domain.GenModern
		}
		plat = domain.PlatformIOS
	case roll < thresholdSamsung:
		oui = ouiSamsung[g.rng.Intn(len(ouiSamsung))]
		if g.rng.Intn(100) < 70 {
			gen = domain.GenCommon
		} else {
			gen = domain.GenModern
		}
		plat = domain.PlatformAndroid
	case roll < thresholdIoT:
		oui = ouiLegacyIoT[g.rng.Intn(len(ouiLegacyIoT))]
		gen = domain.GenLegacy
		plat = domain.PlatformOther
	default:
		oui = ouiModernGeneric[g.rng.Intn(len(ouiModernGeneric))]
		gen = domain.GenModern
		plat = domain.PlatformAndroid
	}

	d := domain.VirtualDevice{
		ID:            uuid.New(),
		Generation:    gen,
		Platform:      plat,
		PreferredSSID: -1,
		TxPower:       domain.PowerLevels[g.rng.Intn(len(domain.PowerLevels))],
	}

	// Modern and Common devices favor locally administered randomized
	// addresses the way real iOS/Android privacy modes do. Legacy
	// hardware predates randomization entirely.
	usePrivate := (gen == domain.GenModern && g.rng.Intn(100) < 85) ||
		(gen == domain.GenCommon && g.rng.Intn(100) < 50)

	if usePrivate {
		d.MAC[0] = byte(g.rng.Intn(256))&0xFE | 0x02
		d.MAC[1] = byte(g.rng.Intn(256))
		d.MAC[2] = byte(g.rng.Intn(256))
	} else {
		d.MAC[0], d.MAC[1], d.MAC[2] = oui[0], oui[1], oui[2]
	}
	d.MAC[3] = byte(g.rng.Intn(256))
	d.MAC[4] = byte(g.rng.Intn(256))
	d.MAC[5] = byte(g.rng.Intn(256))

	// Fixed synthetic prefix; the suffix varies per device so each
	// phantom appears to chase its own AP.
	d.BSSIDTarget = [6]byte{0x00, 0x11, 0x32,
		byte(g.rng.Intn(256)), byte(g.rng.Intn(256)), byte(g.rng.Intn(256))}

	d.SequenceNumber = uint16(g.rng.Intn(4096))

	probeChance := 60
	if gen == domain.GenLegacy {
		probeChance = 90
	}
	if g.rng.Intn(100) < probeChance && g.ssids.Len() > 0 {
		d.PreferredSSID = g.ssids.RandomIndex()
	}

	return d
}
