package domain

import "time"

// Channel plans. Order matters: the scheduler walks these round-robin,
// and the scrambled 2.4 GHz order is part of the traffic texture.
var (
	Channels2G = []int{1, 6, 11, 2, 7, 3, 8, 4, 9, 5, 10}
	Channels5G = []int{36, 149, 40, 153, 44, 157, 48, 161, 165}
)

// TX power ladder, quarter-dBm units. A device draws one rung at birth
// and keeps it; re-arrivals may shift it by one rung.
var PowerLevels = []int8{72, 74, 76, 78, 80, 82}

const (
	MinTxPower int8 = 72
	MaxTxPower int8 = 82

	// Noise floor band used while filling silence.
	NoisePowerBase   = 68
	NoisePowerSpread = 6
)

// Traffic timing.
const (
	MinPacketsPerHop = 20
	MaxPacketsPerHop = 45

	MinChannelHop = 120 * time.Millisecond
	MaxChannelHop = 300 * time.Millisecond

	MinLifecycle = 2000 * time.Millisecond
	MaxLifecycle = 4000 * time.Millisecond

	UIInterval = 2 * time.Second
)

// Frame construction bound. Every builder stays well under this by
// construction; exceeding it is a programming error.
const MaxFrameSize = 1024

// Heap governor watermarks, in free bytes of the simulated envelope.
const (
	LowHeapWatermark      = 25000
	CriticalHeapWatermark = 15000
	InitHeapFloor         = 20000

	// In low-memory mode rotation stops replenishing the active pool
	// above this size.
	LowMemoryActiveFloor = 800
)

// Mesh relay parameters.
const (
	MeshCacheCapacity   = 40
	MeshCheckDuration   = 100 * time.Millisecond
	MeshActiveInterval  = 600 * time.Second
	MeshStandbyInterval = 20 * time.Second
	MeshDecayTimeout    = 600 * time.Second
	RecentSenderWindow  = 300 * time.Second
)

// Bounded cross-context queues.
const (
	SSIDQueueCapacity = 20
	MeshQueueCapacity = 5
)

// BroadcastAddr is the all-ones receiver address.
var BroadcastAddr = [6]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
