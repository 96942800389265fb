package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Generation is the WiFi hardware era a virtual station claims.
// The generation strictly bounds which capability elements a device
// may ever transmit.
type Generation int

const (
	GenLegacy Generation = iota // 802.11n (WiFi 4)
	GenCommon                   // 802.11ac (WiFi 5)
	GenModern                   // 802.11ax (WiFi 6)
)

func (g Generation) String() string {
	switch g {
	case GenLegacy:
		return "legacy"
	case GenCommon:
		return "common"
	case GenModern:
		return "modern"
	}
	return "unknown"
}

// Platform is the OS family a station imitates. It drives vendor IE
// selection and the wildcard-probe rules.
type Platform int

const (
	PlatformIOS Platform = iota
	PlatformAndroid
	PlatformOther
)

func (p Platform) String() string {
	switch p {
	case PlatformIOS:
		return "ios"
	case PlatformAndroid:
		return "android"
	case PlatformOther:
		return "other"
	}
	return "unknown"
}

// VirtualDevice is one simulated station. Devices are owned and mutated
// exclusively by the scheduler task; everything else sees copies.
type VirtualDevice struct {
	ID             uuid.UUID
	MAC            [6]byte
	BSSIDTarget    [6]byte
	SequenceNumber uint16 // 12-bit, mod 4096
	PreferredSSID  int    // index into the SSID store, -1 = no preference
	Generation     Generation
	Platform       Platform
	HasConnected   bool
	TxPower        int8 // sticky, quarter-dBm units
}

// BumpSequence advances the 12-bit sequence counter. Steps above 1
// simulate frames the observer never saw.
func (d *VirtualDevice) BumpSequence(step int) {
	d.SequenceNumber = uint16((int(d.SequenceNumber) + step) % 4096)
}

// MACString renders the station address in colon form.
func (d *VirtualDevice) MACString() string {
	m := d.MAC
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// IsPrivateMAC reports whether the station uses a locally administered
// (randomized) address.
func (d *VirtualDevice) IsPrivateMAC() bool {
	return d.MAC[0]&0x02 != 0
}
