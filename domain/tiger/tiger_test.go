package tiger_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sw965/pomcp/domain/tiger"
)

func TestListenAccuracy(t *testing.T) {
	sim := tiger.New(rand.New(rand.NewPCG(1, 2)))
	s := &tiger.State{Tiger: tiger.Left}

	const n = 10000
	correct := 0
	for range n {
		obs, reward, terminal := sim.Step(s, tiger.Listen)
		assert.Equal(t, tiger.ListenReward, reward)
		assert.False(t, terminal)
		if obs == tiger.HearLeft {
			correct += 1
		}
	}
	assert.InDelta(t, tiger.ListenAccuracy, float64(correct)/n, 0.02)
}

func TestOpen(t *testing.T) {
	sim := tiger.New(rand.New(rand.NewPCG(1, 2)))
	tests := []struct {
		name   string
		tiger  tiger.Door
		action int
		reward float64
	}{
		{"tiger left, open left", tiger.Left, tiger.OpenLeft, tiger.TigerReward},
		{"tiger left, open right", tiger.Left, tiger.OpenRight, tiger.TreasureReward},
		{"tiger right, open left", tiger.Right, tiger.OpenLeft, tiger.TreasureReward},
		{"tiger right, open right", tiger.Right, tiger.OpenRight, tiger.TigerReward},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			obs, reward, terminal := sim.Step(&tiger.State{Tiger: tc.tiger}, tc.action)
			assert.Equal(t, tiger.Opened, obs)
			assert.Equal(t, tc.reward, reward)
			assert.True(t, terminal)
		})
	}
}

func TestStartStates(t *testing.T) {
	sim := tiger.New(rand.New(rand.NewPCG(3, 4)))
	left := 0
	for range 1000 {
		s := sim.CreateStartState()
		if s.Tiger == tiger.Left {
			left += 1
		}
		sim.FreeState(s)
	}
	assert.InDelta(t, 500, left, 60)
	assert.Equal(t, 0, sim.Live())
	assert.False(t, sim.Properties().FullyObservable)
	assert.Equal(t, 110.0, sim.RewardRange())
}
