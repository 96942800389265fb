package radio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/emperornerd/GhostWalk/internal/core/ports"
)

var errTxFailed = errors.New("radio: tx failed")

// PcapRadio drives a real monitor-mode interface through libpcap.
// Channel and power control go through `iw`; frames go out with a
// minimal radiotap header the driver rewrites anyway.
type PcapRadio struct {
	iface  string
	handle *pcap.Handle

	mu sync.Mutex
	cb ports.RxCallback

	done chan struct{}
	wg   sync.WaitGroup
}

// NewPcapRadio opens iface for injection and promiscuous capture.
// The interface must already be in monitor mode.
func NewPcapRadio(iface string) (*PcapRadio, error) {
	handle, err := pcap.OpenLive(iface, 65536, true, pcap.BlockForever)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", iface, err)
	}

	r := &PcapRadio{
		iface:  iface,
		handle: handle,
		done:   make(chan struct{}),
	}
	r.wg.Add(1)
	go r.rxLoop()
	return r, nil
}

func (r *PcapRadio) SetChannel(ch int) error {
	return SetInterfaceChannel(r.iface, ch)
}

// SetMaxTxPower converts quarter-dBm units to the mBm `iw` expects.
func (r *PcapRadio) SetMaxTxPower(units int8) error {
	return SetInterfaceTxPower(r.iface, int(units)*25)
}

// Transmit prepends a minimal radiotap header and injects the raw
// 802.11 frame.
func (r *PcapRadio) Transmit(frame []byte) error {
	radiotap := &layers.RadioTap{
		Present: layers.RadioTapPresentRate,
		Rate:    5,
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, radiotap, gopacket.Payload(frame)); err != nil {
		return fmt.Errorf("serialize: %w", err)
	}
	if err := r.handle.WritePacketData(buf.Bytes()); err != nil {
		return fmt.Errorf("%w: %v", errTxFailed, err)
	}
	return nil
}

// SetPromiscuous is satisfied by monitor mode itself.
func (r *PcapRadio) SetPromiscuous(enable bool) error { return nil }

func (r *PcapRadio) SetPromiscuousRxCallback(cb ports.RxCallback) {
	r.mu.Lock()
	r.cb = cb
	r.mu.Unlock()
}

func (r *PcapRadio) Close() error {
	close(r.done)
	r.handle.Close()
	r.wg.Wait()
	return nil
}

// rxLoop strips radiotap framing, classifies the frame, and hands it
// to whichever filter is installed.
func (r *PcapRadio) rxLoop() {
	defer r.wg.Done()

	linkType := r.handle.LinkType()
	source := gopacket.NewPacketSource(r.handle, linkType)
	packets := source.Packets()

	for {
		select {
		case <-r.done:
			return
		case packet, ok := <-packets:
			if !ok {
				return
			}
			data := packet.Data()
			frame := stripRadiotap(data, linkType)
			if len(frame) < 24 {
				continue
			}

			pkt := ports.RxPacket{
				Payload: frame,
				SigLen:  len(frame),
				Type:    classify(frame[0]),
			}

			r.mu.Lock()
			cb := r.cb
			r.mu.Unlock()
			if cb != nil {
				cb(&pkt)
			}
		}
	}
}

// stripRadiotap removes the variable-length radiotap header when the
// link type carries one. The header length sits at bytes 2..3, LE.
func stripRadiotap(data []byte, linkType layers.LinkType) []byte {
	if linkType != layers.LinkTypeIEEE80211Radio {
		return data
	}
	if len(data) < 4 {
		return nil
	}
	rtLen := int(binary.LittleEndian.Uint16(data[2:4]))
	if rtLen <= 0 || rtLen > len(data) {
		return nil
	}
	return data[rtLen:]
}

// classify maps frame control type bits onto the driver's coarse
// packet classes.
func classify(fc0 byte) ports.RxPacketType {
	switch (fc0 >> 2) & 0x03 {
	case 0:
		return ports.RxTypeMgmt
	case 1:
		return ports.RxTypeCtrl
	default:
		return ports.RxTypeData
	}
}

// LocalMAC returns the interface's hardware address, or zeroes when it
// cannot be read (monitor-mode vifs sometimes hide it).
func LocalMAC(iface string) [6]byte {
	var mac [6]byte
	hw, err := interfaceHardwareAddr(iface)
	if err != nil {
		log.Printf("Warning: could not read MAC of %s: %v", iface, err)
		return mac
	}
	copy(mac[:], hw)
	return mac
}
