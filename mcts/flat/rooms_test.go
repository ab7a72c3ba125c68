package flat_test

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw965/pomcp/domain/grid"
	"github.com/sw965/pomcp/domain/rooms"
	"github.com/sw965/pomcp/mcts"
	"github.com/sw965/pomcp/mcts/flat"
)

const square = `size 3 2
rooms 2
start 0 0
goal 2 0
aab
aab
`

func TestSearchFindsShortestPathInRooms(t *testing.T) {
	l, err := rooms.ParseLayout(strings.NewReader(square))
	require.NoError(t, err)
	config := rooms.DefaultConfig()
	config.NumActions = 4
	config.FailProbability = 0
	config.StepRewardMin = -1
	config.StepRewardMax = -1
	config.RewardRange = 1

	sim, err := rooms.New(l, config, rand.New(rand.NewPCG(5, 5)))
	require.NoError(t, err)

	params := mcts.DefaultParams()
	params.MaxDepth = 2
	params.NumSimulations = 10000
	params.NumStartStates = 10
	e, err := flat.New[*rooms.State](sim, params, mcts.DefaultKnowledge(),
		mcts.WithRand(rand.New(rand.NewPCG(6, 7))),
	)
	require.NoError(t, err)

	action := e.SelectAction()
	assert.Equal(t, int(grid.East), action)
	assert.InDelta(t, -1+0.98*10, e.Value(), 0.1)

	// The world is fully observable, so the new root holds the real state only.
	s := sim.CreateStartState()
	obs, _, terminal := sim.Step(s, action)
	require.False(t, terminal)
	require.True(t, e.Update(action, obs, s))
	root := e.Tree().Get(e.Root())
	require.Equal(t, 1, root.Belief.Len())
	assert.Equal(t, s.Pos, root.Belief.Sample(0).Pos)
	sim.FreeState(s)

	assert.Equal(t, int(grid.East), e.SelectAction())

	e.Close()
	assert.Equal(t, 0, sim.Live())
}
