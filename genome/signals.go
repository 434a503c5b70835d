// Package genome defines the signal alphabet, gene rules and genome encoding.
package genome

import "fmt"

// Signal is one symbol of the fixed signal alphabet.
type Signal uint8

// NumSignals is the size of the alphabet.
const NumSignals = 26

const (
	// Materials
	MatActive Signal = 'a' - 'a' // Soft, growing tissue
	MatBase   Signal = 'b' - 'a' // Hard, woody tissue

	// Metabolism and lifecycle
	Chloroplast Signal = 'c' - 'a' // Photosynthesis, diminishing returns
	Diff        Signal = 'd' - 'a' // Division counter
	Flower      Signal = 'f' - 'a' // Seed production
	Invert      Signal = 'i' - 'a' // Flips a gene's running probability
	Remover     Signal = 'r' - 'a' // Removes a weighted random signal per unit

	// Transporters
	TransUp   Signal = 't' - 'a'
	TransDown Signal = 'u' - 'a'

	// Rotation intent for the next division
	RotX Signal = 'v' - 'a'
	RotZ Signal = 'w' - 'a'

	// Growth deltas, consumed each tick
	GrowX Signal = 'x' - 'a'
	GrowY Signal = 'y' - 'a'
	GrowZ Signal = 'z' - 'a'
)

var intrinsic = [NumSignals]bool{
	MatActive:   true,
	MatBase:     true,
	Chloroplast: true,
	Diff:        true,
	Flower:      true,
	Invert:      true,
	Remover:     true,
	TransUp:     true,
	TransDown:   true,
	RotX:        true,
	RotZ:        true,
	GrowX:       true,
	GrowY:       true,
	GrowZ:       true,
}

var signalNames = [NumSignals]string{
	MatActive:   "mat_active",
	MatBase:     "mat_base",
	Chloroplast: "chloroplast",
	Diff:        "diff",
	Flower:      "flower",
	Invert:      "invert",
	Remover:     "remover",
	TransUp:     "trans_up",
	TransDown:   "trans_down",
	RotX:        "rot_x",
	RotZ:        "rot_z",
	GrowX:       "grow_x",
	GrowY:       "grow_y",
	GrowZ:       "grow_z",
}

// Byte returns the character used for s in encoded genomes.
func (s Signal) Byte() byte {
	return 'a' + byte(s)
}

// Intrinsic reports whether s carries a built-in effect.
func (s Signal) Intrinsic() bool {
	return int(s) < NumSignals && intrinsic[s]
}

// Valid reports whether s belongs to the alphabet.
func (s Signal) Valid() bool {
	return int(s) < NumSignals
}

func (s Signal) String() string {
	if !s.Valid() {
		return fmt.Sprintf("signal(%d)", uint8(s))
	}
	if name := signalNames[s]; name != "" {
		return name
	}
	return string(s.Byte())
}

// ParseSignal maps an encoded character back to its signal.
func ParseSignal(c byte) (Signal, bool) {
	if c < 'a' || c > 'z' {
		return 0, false
	}
	return Signal(c - 'a'), true
}

// Rand is the random source used by mutation and expression.
// *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// RandomSignal draws a signal uniformly from the full alphabet.
func RandomSignal(rng Rand) Signal {
	return Signal(rng.Intn(NumSignals))
}
