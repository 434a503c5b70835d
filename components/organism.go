package components

import (
	"github.com/mlange-42/ark/ecs"
)

// Plant is carried by the root cell and owns the plant-wide energy pool.
type Plant struct {
	ID     uint32
	Energy float64
	Delta  float64 // Net energy change over the last tick
	Age    int32

	Dead       bool
	DeathCause DeathCause

	// Cells lists every cell of the plant, root first.
	Cells []ecs.Entity
}

// Withdraw takes x from the pool if enough is available.
func (p *Plant) Withdraw(x float64) bool {
	if p.Dead || p.Energy < x {
		return false
	}
	p.Energy -= x
	return true
}

// WithdrawUpTo takes as much of x as is available and returns the amount.
func (p *Plant) WithdrawUpTo(x float64) float64 {
	if p.Dead || p.Energy <= 0 {
		return 0
	}
	if x > p.Energy {
		x = p.Energy
	}
	p.Energy -= x
	return x
}

// Kill marks the plant dead. The first cause sticks.
func (p *Plant) Kill(cause DeathCause) {
	if p.Dead {
		return
	}
	p.Dead = true
	p.DeathCause = cause
}
