package radio

import (
	"sync"

	"github.com/emperornerd/GhostWalk/internal/core/ports"
)

// TxFrame records one transmitted frame together with the radio state
// it went out under.
type TxFrame struct {
	Data    []byte
	Channel int
	Power   int8
}

// MockRadio is an in-memory driver used in mock mode and tests. It
// records every transmitted frame and lets tests inject RX traffic
// into whichever filter is currently installed.
type MockRadio struct {
	mu sync.Mutex

	frames  []TxFrame
	channel int
	power   int8
	promisc bool
	cb      ports.RxCallback

	// FailTX makes Transmit return an error without recording, for
	// exercising the ignore-TX-failure contract.
	FailTX bool
}

func NewMockRadio() *MockRadio {
	return &MockRadio{channel: 1}
}

func (m *MockRadio) SetChannel(ch int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channel = ch
	return nil
}

func (m *MockRadio) SetMaxTxPower(units int8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.power = units
	return nil
}

func (m *MockRadio) Transmit(frame []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailTX {
		return errTxFailed
	}
	m.frames = append(m.frames, TxFrame{
		Data:    append([]byte(nil), frame...),
		Channel: m.channel,
		Power:   m.power,
	})
	return nil
}

func (m *MockRadio) SetPromiscuous(enable bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promisc = enable
	return nil
}

func (m *MockRadio) SetPromiscuousRxCallback(cb ports.RxCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cb = cb
}

func (m *MockRadio) Close() error { return nil }

// InjectRx delivers a packet to the currently installed filter, the
// way the driver would from its receive context.
func (m *MockRadio) InjectRx(pkt ports.RxPacket) {
	m.mu.Lock()
	cb := m.cb
	m.mu.Unlock()
	if cb != nil {
		cb(&pkt)
	}
}

// Frames returns a copy of everything transmitted so far.
func (m *MockRadio) Frames() []TxFrame {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TxFrame, len(m.frames))
	copy(out, m.frames)
	return out
}

// Reset clears the TX record.
func (m *MockRadio) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = m.frames[:0]
}

// Channel returns the currently tuned channel.
func (m *MockRadio) Channel() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.channel
}

// CurrentCallback returns the installed RX callback, or nil if none is
// installed.
func (m *MockRadio) CurrentCallback() ports.RxCallback {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cb
}
