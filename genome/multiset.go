package genome

import "strings"

// Multiset holds a count per signal. Counts never go below zero.
type Multiset [NumSignals]int32

// Count returns how many copies of s are present.
func (m *Multiset) Count(s Signal) int {
	return int(m[s])
}

// Add increments s by n.
func (m *Multiset) Add(s Signal, n int) {
	m[s] += int32(n)
	if m[s] < 0 {
		m[s] = 0
	}
}

// Remove decrements s by n, dropping it entirely at zero.
func (m *Multiset) Remove(s Signal, n int) {
	m.Add(s, -n)
}

// Clear drops s entirely and returns its previous count.
func (m *Multiset) Clear(s Signal) int {
	n := int(m[s])
	m[s] = 0
	return n
}

// Total returns the number of signal copies across the alphabet.
func (m *Multiset) Total() int {
	total := 0
	for _, c := range m {
		total += int(c)
	}
	return total
}

// Each calls fn for every present signal in alphabet order.
func (m *Multiset) Each(fn func(s Signal, n int)) {
	for i, c := range m {
		if c > 0 {
			fn(Signal(i), int(c))
		}
	}
}

// RemoveWeighted removes one copy of a signal chosen with probability
// proportional to its count. It reports false on an empty set.
func (m *Multiset) RemoveWeighted(rng Rand) (Signal, bool) {
	total := m.Total()
	if total == 0 {
		return 0, false
	}
	pick := rng.Intn(total)
	for i, c := range m {
		if pick < int(c) {
			s := Signal(i)
			m.Remove(s, 1)
			return s, true
		}
		pick -= int(c)
	}
	return 0, false
}

// Map returns the counts keyed by encoded character.
func (m *Multiset) Map() map[string]int {
	out := make(map[string]int)
	m.Each(func(s Signal, n int) {
		out[string(s.Byte())] = n
	})
	return out
}

// String renders the multiset as repeated characters, e.g. "ccdx".
func (m *Multiset) String() string {
	var b strings.Builder
	m.Each(func(s Signal, n int) {
		for i := 0; i < n; i++ {
			b.WriteByte(s.Byte())
		}
	})
	return b.String()
}
