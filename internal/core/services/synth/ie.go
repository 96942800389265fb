package synth

// Information element IDs used by the builders.
const (
	ieSSID      = 0
	ieRates     = 1
	ieDSParam   = 3
	ieHTCaps    = 45
	ieRSN       = 48
	ieHTOper    = 61
	ieExtCaps   = 127
	ieVHTCaps   = 191
	ieVHTOper   = 192
	ieVendor    = 221
	ieExtension = 255

	extIDHECaps = 35
)

// Canonical capability payloads. These byte sequences are what DPI
// tools key on; they are reproduced verbatim and must never be
// adjusted to match what any physical radio can actually do.
var (
	htCapsPayload = []byte{
		0xEF, 0x01, 0x1B, 0xFF, 0xFF, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}

	vhtCapsPayload = []byte{
		0x91, 0x59, 0x82, 0x0F, 0xEA, 0xFF, 0x00, 0x00, 0xEA, 0xFF, 0x00, 0x00,
	}

	heCapsPayload = []byte{
		0x23, 0x09, 0x01, 0x00, 0x02, 0x40, 0x00, 0x04, 0x70, 0x0C,
		0x89, 0x7F, 0x03, 0x80, 0x04, 0x00, 0x00, 0x00, 0xAA, 0xAA,
		0xAA, 0xAA,
	}

	appleVendorPayload = []byte{0x00, 0x17, 0xF2, 0x0A, 0x00, 0x01, 0x04}
	wfaVendorPayload   = []byte{0x00, 0x10, 0x18, 0x02, 0x00, 0x00, 0x1C, 0x00, 0x00}

	// CCMP pairwise/group cipher, PSK AKM.
	rsnPayload = []byte{
		0x01, 0x00, 0x00, 0x0F, 0xAC, 0x04, 0x01, 0x00, 0x00, 0x0F,
		0xAC, 0x04, 0x01, 0x00, 0x00, 0x0F, 0xAC, 0x02, 0x00, 0x00,
	}

	// Extended Capabilities variants. Byte 0 is the only difference
	// (0x00 Apple, 0x04 otherwise); both are canonical.
	extCapsApple = []byte{0x00, 0x00, 0x08, 0x00, 0x00, 0x00, 0x00, 0x40}
	extCapsOther = []byte{0x04, 0x00, 0x08, 0x00, 0x00, 0x00, 0x00, 0x40}
)

// Rate tables.
var (
	ratesLegacy2G = []byte{0x82, 0x84, 0x8B, 0x96}
	ratesModern2G = []byte{0x02, 0x04, 0x0B, 0x16, 0x0C, 0x12, 0x18, 0x24}
	rates5G       = []byte{0x0C, 0x12, 0x18, 0x24, 0x30, 0x48, 0x60, 0x6C}
)

// appendIE appends a {tag, length, payload} element.
func appendIE(buf []byte, id byte, payload []byte) []byte {
	buf = append(buf, id, byte(len(payload)))
	return append(buf, payload...)
}

// appendExtIE appends an Element ID Extension element:
// {255, payload_len + 1, ext_id, payload}.
func appendExtIE(buf []byte, extID byte, payload []byte) []byte {
	buf = append(buf, ieExtension, byte(len(payload)+1), extID)
	return append(buf, payload...)
}
