// Package history records the action/observation sequence of an episode
// and derives the belief hash that identifies its information state.
//
// Two histories with equal belief hash are treated as the same information
// state. The hash is 64-bit xxhash; collisions silently merge states and are
// accepted as negligible rather than checked.
package history

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// NoObservation is reported by LastObservation for an empty history.
const NoObservation = -1

// WholeHistory as a memory size hashes every entry.
const WholeHistory = -1

type Entry struct {
	Action      int
	Observation int
	Reward      float64
}

type History struct {
	entries    []Entry
	prefix     []uint64
	memorySize int
}

// New returns an empty history. A negative memorySize hashes the whole
// history, otherwise only the last memorySize entries.
func New(memorySize int) *History {
	return &History{memorySize: memorySize}
}

var emptyHash = xxhash.Sum64(nil)

func chain(h uint64, action, observation int) uint64 {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:], h)
	binary.LittleEndian.PutUint64(buf[8:], uint64(action))
	binary.LittleEndian.PutUint64(buf[16:], uint64(observation))
	return xxhash.Sum64(buf[:])
}

// Combine folds values into seed. It is the hash used for information
// states that are not backed by a History.
func Combine(seed uint64, values ...int) uint64 {
	var buf [16]byte
	h := seed
	for _, v := range values {
		binary.LittleEndian.PutUint64(buf[0:], h)
		binary.LittleEndian.PutUint64(buf[8:], uint64(v))
		h = xxhash.Sum64(buf[:])
	}
	return h
}

func (h *History) Add(action, observation int, reward float64) {
	prev := emptyHash
	if n := len(h.prefix); n > 0 {
		prev = h.prefix[n-1]
	}
	h.entries = append(h.entries, Entry{Action: action, Observation: observation, Reward: reward})
	h.prefix = append(h.prefix, chain(prev, action, observation))
}

func (h *History) Pop() {
	h.Truncate(len(h.entries) - 1)
}

// Truncate keeps the first n entries.
func (h *History) Truncate(n int) {
	if n < 0 || n > len(h.entries) {
		panic(fmt.Sprintf("BUG: truncate history of length %d to %d", len(h.entries), n))
	}
	h.entries = h.entries[:n]
	h.prefix = h.prefix[:n]
}

func (h *History) Clear() {
	h.Truncate(0)
}

func (h *History) Len() int {
	return len(h.entries)
}

func (h *History) MemorySize() int {
	return h.memorySize
}

func (h *History) At(i int) Entry {
	return h.entries[i]
}

func (h *History) Back() Entry {
	if len(h.entries) == 0 {
		panic("BUG: Back on an empty history")
	}
	return h.entries[len(h.entries)-1]
}

func (h *History) LastObservation() int {
	if len(h.entries) == 0 {
		return NoObservation
	}
	return h.entries[len(h.entries)-1].Observation
}

// Windowed reports whether the belief hash of h ignores older entries,
// which is when transposition lookups across different paths make sense.
func (h *History) Windowed() bool {
	return h.memorySize >= 0 && len(h.entries) >= h.memorySize
}

// BeliefHash is a pure function of the hashed window of entries.
func (h *History) BeliefHash() uint64 {
	n := len(h.entries)
	if h.memorySize < 0 || n <= h.memorySize {
		if n == 0 {
			return emptyHash
		}
		return h.prefix[n-1]
	}

	v := emptyHash
	for _, e := range h.entries[n-h.memorySize:] {
		v = chain(v, e.Action, e.Observation)
	}
	return v
}

func (h *History) Clone() *History {
	return &History{
		entries:    append([]Entry(nil), h.entries...),
		prefix:     append([]uint64(nil), h.prefix...),
		memorySize: h.memorySize,
	}
}

func (h *History) String() string {
	var b strings.Builder
	for i, e := range h.entries {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "(%d,%d)", e.Action, e.Observation)
	}
	return b.String()
}
