package flat_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw965/pomcp/domain/testsim"
	"github.com/sw965/pomcp/mcts/flat"
)

func TestTreeCreateAndLookup(t *testing.T) {
	tree := flat.NewTree[*testsim.State](2)
	h := tree.Create(42)
	require.True(t, tree.Alive(h))
	assert.Equal(t, uint64(42), tree.Get(h).BeliefHash())
	assert.Equal(t, 2, tree.Get(h).NumChildren())

	found, ok := tree.Lookup(42)
	require.True(t, ok)
	assert.Equal(t, h, found)

	_, ok = tree.Lookup(7)
	assert.False(t, ok)
	assert.Panics(t, func() { tree.Create(42) })
}

func TestTreeDetectsStaleHandles(t *testing.T) {
	sim := testsim.New(2, 2, 3, rand.New(rand.NewPCG(1, 1)))
	tree := flat.NewTree[*testsim.State](2)
	old := tree.Create(1)
	tree.FreeAll(sim)
	assert.Equal(t, 0, tree.NumAllocated())

	// the slot is reused under a new generation
	h := tree.Create(2)
	assert.True(t, tree.Alive(h))
	assert.False(t, tree.Alive(old))
	assert.Panics(t, func() { tree.Get(old) })
	assert.Panics(t, func() { tree.Get(flat.NilHandle) })

	_, ok := tree.Lookup(1)
	assert.False(t, ok)
}

func TestTreeFreeKeepsIgnoredSubtree(t *testing.T) {
	sim := testsim.New(2, 2, 3, rand.New(rand.NewPCG(1, 1)))
	tree := flat.NewTree[*testsim.State](2)

	root := tree.Create(1)
	left := tree.Create(2)
	right := tree.Create(3)
	grandchild := tree.Create(4)
	tree.Get(root).Child(0).SetChild(0, left)
	tree.Get(root).Child(1).SetChild(0, right)
	tree.Get(right).Child(0).SetChild(1, grandchild)
	// transposition: left also reaches the grandchild
	tree.Get(left).Child(1).SetChild(1, grandchild)

	for _, h := range []flat.Handle{root, left, right, grandchild} {
		tree.Get(h).Belief.AddSample(sim.CreateStartState())
	}
	require.Equal(t, 4, tree.NumAllocated())
	require.Equal(t, 4, sim.Live())

	tree.Free(root, right, sim)
	assert.Equal(t, 2, tree.NumAllocated())
	assert.False(t, tree.Alive(root))
	assert.False(t, tree.Alive(left))
	assert.True(t, tree.Alive(right))
	assert.True(t, tree.Alive(grandchild))
	assert.Equal(t, 2, sim.Live())

	assert.Panics(t, func() { tree.Get(root) })
	_, ok := tree.Lookup(1)
	assert.False(t, ok)

	// a recycled slot must not revive the stale handle
	fresh := tree.Create(5)
	assert.True(t, tree.Alive(fresh))
	assert.False(t, tree.Alive(root))
	assert.False(t, tree.Alive(left))

	tree.FreeAll(sim)
	assert.Equal(t, 0, tree.NumAllocated())
	assert.Equal(t, 0, sim.Live())
}

func TestTreeFreeHandlesCycles(t *testing.T) {
	sim := testsim.New(1, 1, 1, rand.New(rand.NewPCG(1, 1)))
	tree := flat.NewTree[*testsim.State](1)
	a := tree.Create(1)
	b := tree.Create(2)
	tree.Get(a).Child(0).SetChild(0, b)
	tree.Get(b).Child(0).SetChild(0, a)

	tree.Free(a, flat.NilHandle, sim)
	assert.Equal(t, 0, tree.NumAllocated())
}
