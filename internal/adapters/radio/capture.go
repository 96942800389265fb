package radio

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/emperornerd/GhostWalk/internal/core/ports"
)

// CaptureRadio tees every transmitted frame into a pcap file (bare
// 802.11 link type, no radiotap) before forwarding to the real radio.
// Useful for validating the emitted stream against offline DPI tools.
type CaptureRadio struct {
	ports.Radio

	clock ports.Clock

	mu sync.Mutex
	f  *os.File
	w  *pcapgo.Writer
}

// NewCaptureRadio wraps inner, writing frames to path.
func NewCaptureRadio(inner ports.Radio, clock ports.Clock, path string) (*CaptureRadio, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create capture file: %w", err)
	}
	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65536, layers.LinkTypeIEEE802_11); err != nil {
		f.Close()
		return nil, fmt.Errorf("write pcap header: %w", err)
	}
	return &CaptureRadio{Radio: inner, clock: clock, f: f, w: w}, nil
}

func (c *CaptureRadio) Transmit(frame []byte) error {
	c.mu.Lock()
	ci := gopacket.CaptureInfo{
		Timestamp:     c.clock.Now(),
		CaptureLength: len(frame),
		Length:        len(frame),
	}
	// Capture failures never block transmission.
	_ = c.w.WritePacket(ci, frame)
	c.mu.Unlock()

	return c.Radio.Transmit(frame)
}

func (c *CaptureRadio) Close() error {
	c.mu.Lock()
	if c.f != nil {
		c.f.Close()
		c.f = nil
	}
	c.mu.Unlock()
	return c.Radio.Close()
}
