package sniffer

import (
	"github.com/emperornerd/GhostWalk/internal/core/domain"
	"github.com/emperornerd/GhostWalk/internal/core/ports"
	"github.com/emperornerd/GhostWalk/internal/telemetry"
)

// SSIDRecord is the fixed-size record the probe filter hands to the
// main task. Fixed size keeps the RX path allocation-free.
type SSIDRecord struct {
	Len  uint8
	Data [32]byte
}

// Name returns the SSID as a string. Called on the main task only.
func (r SSIDRecord) Name() string {
	return string(r.Data[:r.Len])
}

// MeshRecord is a verbatim copy of an accepted mesh action frame.
type MeshRecord struct {
	Len  uint16
	Data [domain.MaxFrameSize]byte
}

// Frame returns the frame bytes. Called on the main task only.
func (r *MeshRecord) Frame() []byte {
	return r.Data[:r.Len]
}

// Records travel by value so the receive path never allocates; the
// channel buffer is the queue storage.

// Sniffer holds the two RX filters and their bounded queues. The
// filters run in the radio driver's receive context and may do nothing
// but inspect the frame and attempt a non-blocking enqueue; everything
// else (draining, store updates) happens on the scheduler task.
type Sniffer struct {
	SSIDQueue chan SSIDRecord
	MeshQueue chan MeshRecord
}

func New() *Sniffer {
	return &Sniffer{
		SSIDQueue: make(chan SSIDRecord, domain.SSIDQueueCapacity),
		MeshQueue: make(chan MeshRecord, domain.MeshQueueCapacity),
	}
}

// ProbeFilter accepts only probe requests and extracts the first SSID
// element. Offsets follow the bare 802.11 MAC header: IEs start at 24.
func (s *Sniffer) ProbeFilter(pkt *ports.RxPacket) {
	if pkt.Type != ports.RxTypeMgmt {
		return
	}
	frame := pkt.Payload
	if len(frame) < 26 || frame[0] != 0x40 {
		return
	}
	if frame[24] != 0x00 {
		return
	}
	l := int(frame[25])
	if l <= 1 || l >= 32 || len(frame) < 26+l {
		return
	}

	var rec SSIDRecord
	rec.Len = uint8(l)
	copy(rec.Data[:], frame[26:26+l])

	select {
	case s.SSIDQueue <- rec:
	default:
		telemetry.QueueDrops.WithLabelValues("ssid").Inc()
	}
}

// MeshFilter accepts only vendor-specific action frames carrying the
// cooperating mesh protocol's OUI (18:FE:34) and copies them whole.
// Any other OUI is dropped here so the relay can never amplify
// unrelated traffic.
func (s *Sniffer) MeshFilter(pkt *ports.RxPacket) {
	if pkt.Type != ports.RxTypeMgmt {
		return
	}
	frame := pkt.Payload
	if len(frame) < 40 || len(frame) > domain.MaxFrameSize {
		return
	}
	if frame[0] != 0xD0 {
		return
	}
	if frame[24] != 127 {
		return
	}
	if frame[25] != 0x18 || frame[26] != 0xFE || frame[27] != 0x34 {
		return
	}

	var rec MeshRecord
	rec.Len = uint16(len(frame))
	copy(rec.Data[:], frame)

	select {
	case s.MeshQueue <- rec:
	default:
		telemetry.QueueDrops.WithLabelValues("mesh").Inc()
	}
}
