package ports

import "time"

// RxPacketType mirrors the driver's coarse frame classification.
type RxPacketType int

const (
	RxTypeMgmt RxPacketType = iota
	RxTypeCtrl
	RxTypeData
)

// RxPacket is what the promiscuous callback receives from the driver.
// Payload is the raw 802.11 MAC frame without radiotap framing; it is
// only valid for the duration of the callback.
type RxPacket struct {
	Payload []byte
	SigLen  int
	RSSI    int8
	Type    RxPacketType
}

// RxCallback runs in the driver's receive context. It must not block,
// allocate, or touch shared mutable state; the only legal side effect
// is a non-blocking enqueue onto a bounded queue.
type RxCallback func(pkt *RxPacket)

// Radio is the raw 802.11 driver surface the emitter consumes. All
// methods are called from the scheduler task only, except that the
// installed RxCallback fires from the driver's own context.
type Radio interface {
	// SetChannel switches immediately. 5 GHz channels are accepted
	// only on dual-band hardware; failures are non-fatal.
	SetChannel(ch int) error

	// SetMaxTxPower takes quarter-dBm units.
	SetMaxTxPower(units int8) error

	// Transmit sends one raw MAC frame. The return value is advisory;
	// the caller ignores TX failures by contract.
	Transmit(frame []byte) error

	SetPromiscuous(enable bool) error

	// SetPromiscuousRxCallback installs cb as the active RX filter.
	// Only the scheduler task may swap the callback.
	SetPromiscuousRxCallback(cb RxCallback)

	Close() error
}

// Clock abstracts the monotonic millisecond clock so the scheduler can
// run against simulated time in tests.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)

	// Yield is the cooperative suspension point inside tight TX loops.
	Yield()
}
