package flat

import (
	"fmt"

	"github.com/sw965/pomcp/belief"
)

// Handle addresses a decision node in a Tree. A handle outlives the node it
// names only as a stale value: the slot's generation moves on when the node
// is freed, and Get refuses stale handles.
type Handle struct {
	index      int32
	generation uint32
}

var NilHandle = Handle{index: -1}

func (h Handle) Valid() bool {
	return h.index >= 0
}

type slot[S any] struct {
	generation uint32
	alive      bool
	node       VNode[S]
}

// Tree is the arena owning every decision node of a search, plus the index
// from belief hash to node used for transposition lookups.
type Tree[S any] struct {
	numActions int
	slots      []*slot[S]
	free       []int32
	index      map[uint64]Handle
	live       int
}

func NewTree[S any](numActions int) *Tree[S] {
	return &Tree[S]{numActions: numActions, index: map[uint64]Handle{}}
}

// Create allocates an empty decision node keyed by hash.
func (t *Tree[S]) Create(hash uint64) Handle {
	if old, ok := t.index[hash]; ok && t.alive(old) {
		panic(fmt.Sprintf("BUG: belief hash %#x is already in the tree", hash))
	}

	var idx int32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		idx = int32(len(t.slots))
		t.slots = append(t.slots, &slot[S]{})
	}

	s := t.slots[idx]
	s.alive = true
	s.node.reset(hash, t.numActions)
	h := Handle{index: idx, generation: s.generation}
	t.index[hash] = h
	t.live += 1
	return h
}

func (t *Tree[S]) alive(h Handle) bool {
	if !h.Valid() || int(h.index) >= len(t.slots) {
		return false
	}
	s := t.slots[h.index]
	return s.alive && s.generation == h.generation
}

// Alive reports whether h still names a live node.
func (t *Tree[S]) Alive(h Handle) bool {
	return t.alive(h)
}

func (t *Tree[S]) Get(h Handle) *VNode[S] {
	if !t.alive(h) {
		panic(fmt.Sprintf("BUG: stale or nil node handle %+v", h))
	}
	return &t.slots[h.index].node
}

// Lookup finds a live node by belief hash.
func (t *Tree[S]) Lookup(hash uint64) (Handle, bool) {
	h, ok := t.index[hash]
	if !ok || !t.alive(h) {
		return NilHandle, false
	}
	return h, true
}

// NumAllocated is the number of live decision nodes.
func (t *Tree[S]) NumAllocated() int {
	return t.live
}

// reachable returns every live node reachable from root. Transpositions
// turn the tree into a graph, so nodes are visited at most once.
func (t *Tree[S]) reachable(root Handle) map[Handle]struct{} {
	seen := map[Handle]struct{}{}
	if !t.alive(root) {
		return seen
	}
	stack := []Handle{root}
	seen[root] = struct{}{}
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		v := t.Get(h)
		for a := range v.children {
			v.children[a].Children(func(_ int, c Handle) {
				if _, ok := seen[c]; ok || !t.alive(c) {
					return
				}
				seen[c] = struct{}{}
				stack = append(stack, c)
			})
		}
	}
	return seen
}

// Free releases root and everything below it except the nodes reachable
// from ignore, which survive as a detached tree.
func (t *Tree[S]) Free(root, ignore Handle, c belief.Copier[S]) {
	keep := t.reachable(ignore)
	for h := range t.reachable(root) {
		if _, ok := keep[h]; ok {
			continue
		}
		t.release(h, c)
	}
}

// FreeAll releases every live node.
func (t *Tree[S]) FreeAll(c belief.Copier[S]) {
	for i, s := range t.slots {
		if s.alive {
			t.release(Handle{index: int32(i), generation: s.generation}, c)
		}
	}
}

func (t *Tree[S]) release(h Handle, c belief.Copier[S]) {
	s := t.slots[h.index]
	s.node.Belief.Free(c)
	if cur, ok := t.index[s.node.hash]; ok && cur == h {
		delete(t.index, s.node.hash)
	}
	s.alive = false
	s.generation += 1
	t.free = append(t.free, h.index)
	t.live -= 1
}
