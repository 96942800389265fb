package swarm

import (
	"math/rand"

	"github.com/emperornerd/GhostWalk/internal/core/domain"
	"github.com/emperornerd/GhostWalk/internal/core/services/identity"
)

// Pools holds the two-tier device population. Active devices transmit;
// dormant devices wait offstage to "re-arrive" later with the same
// identity. A device is always in exactly one pool.
type Pools struct {
	Active  []domain.VirtualDevice
	Dormant []domain.VirtualDevice

	targetActive  int
	targetDormant int

	lifecycleSim bool

	gen *identity.Generator
	rng *rand.Rand
}

func New(gen *identity.Generator, rng *rand.Rand, targetActive, targetDormant int, lifecycleSim bool) *Pools {
	return &Pools{
		Active:        make([]domain.VirtualDevice, 0, targetActive),
		Dormant:       make([]domain.VirtualDevice, 0, targetDormant),
		targetActive:  targetActive,
		targetDormant: targetDormant,
		lifecycleSim:  lifecycleSim,
		gen:           gen,
		rng:           rng,
	}
}

// Initialize populates the active pool up to target. freeHeap guards
// against over-allocation on constrained hosts: population stops early
// once the reported free bytes dip under the init floor.
func (p *Pools) Initialize(freeHeap func() uint64) int {
	for i := 0; i < p.targetActive; i++ {
		p.Active = append(p.Active, p.gen.Generate())
		if freeHeap() < domain.InitHeapFloor {
			break
		}
	}
	return len(p.Active)
}

// RotateOnce performs one arrival/departure swap:
// a random active device leaves (into dormant if there is room and
// memory allows), and either a dormant device re-arrives perturbed or
// a brand new identity is synthesized. In low-memory mode the pool is
// allowed to shrink instead of replenishing.
func (p *Pools) RotateOnce(lowMemory bool) {
	if len(p.Active) > 0 {
		idx := p.rng.Intn(len(p.Active))
		leaving := p.Active[idx]
		if len(p.Dormant) < p.targetDormant && !lowMemory {
			p.Dormant = append(p.Dormant, leaving)
		}
		p.Active = append(p.Active[:idx], p.Active[idx+1:]...)
	}

	if lowMemory && len(p.Active) > domain.LowMemoryActiveFloor {
		return
	}

	var arriving domain.VirtualDevice
	if p.lifecycleSim && len(p.Dormant) > 0 && p.rng.Intn(100) < 50 {
		idx := p.rng.Intn(len(p.Dormant))
		arriving = p.Dormant[idx]
		p.Dormant = append(p.Dormant[:idx], p.Dormant[idx+1:]...)

		// A re-arrival looks like a device that kept transmitting
		// elsewhere: the sequence counter jumped, the radio may sit
		// one power rung away, and any session state is gone.
		arriving.BumpSequence(50 + p.rng.Intn(450))
		if p.rng.Intn(100) < 30 {
			arriving.TxPower += int8((p.rng.Intn(3) - 1) * 2)
		}
		arriving.HasConnected = false
	} else {
		arriving = p.gen.Generate()
	}

	if arriving.TxPower < domain.MinTxPower {
		arriving.TxPower = domain.MinTxPower
	}
	if arriving.TxPower > domain.MaxTxPower {
		arriving.TxPower = domain.MaxTxPower
	}

	p.Active = append(p.Active, arriving)
}

// RandomActive returns a pointer into the active pool, valid until the
// next rotation or prune. Returns nil when the pool is empty.
func (p *Pools) RandomActive() *domain.VirtualDevice {
	if len(p.Active) == 0 {
		return nil
	}
	return &p.Active[p.rng.Intn(len(p.Active))]
}

// PruneDormantFront drops the given fraction of the dormant pool from
// the front (its oldest entries) and returns how many went.
func (p *Pools) PruneDormantFront(frac float64) int {
	n := int(float64(len(p.Dormant)) * frac)
	if n <= 0 {
		return 0
	}
	p.Dormant = append(p.Dormant[:0], p.Dormant[n:]...)
	return n
}

// PruneActiveFront drops the given fraction of the active pool from
// the front and returns how many went.
func (p *Pools) PruneActiveFront(frac float64) int {
	n := int(float64(len(p.Active)) * frac)
	if n <= 0 {
		return 0
	}
	p.Active = append(p.Active[:0], p.Active[n:]...)
	return n
}
