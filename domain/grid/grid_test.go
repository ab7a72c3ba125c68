package grid_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw965/pomcp/domain/grid"
)

func TestDistances(t *testing.T) {
	a := grid.Coord{X: 0, Y: 0}
	b := grid.Coord{X: 3, Y: 4}
	assert.Equal(t, 7, grid.ManhattanDistance(a, b))
	assert.InDelta(t, 5.0, grid.EuclideanDistance(a, b), 1e-12)
}

func TestDirections(t *testing.T) {
	assert.Equal(t, grid.South, grid.North.Opposite())
	assert.Equal(t, grid.West, grid.East.Opposite())
	assert.Equal(t, grid.East, grid.North.Clockwise())
	assert.Equal(t, grid.West, grid.North.Anticlockwise())
	assert.Equal(t, "NE", grid.NorthEast.String())

	for d, offset := range grid.Compass {
		assert.LessOrEqual(t, grid.ManhattanDistance(grid.Coord{}, offset), 2, grid.Direction(d).String())
	}
}

func TestMoveTo(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	tests := []struct {
		name       string
		pos        grid.Coord
		target     grid.Coord
		numActions int
		want       []grid.Direction
	}{
		{"east", grid.Coord{X: 0, Y: 0}, grid.Coord{X: 3, Y: 0}, 4, []grid.Direction{grid.East}},
		{"south", grid.Coord{X: 2, Y: 2}, grid.Coord{X: 2, Y: 0}, 8, []grid.Direction{grid.South}},
		{"north east 4", grid.Coord{X: 0, Y: 0}, grid.Coord{X: 1, Y: 1}, 4, []grid.Direction{grid.East, grid.North}},
		{"north east 8", grid.Coord{X: 0, Y: 0}, grid.Coord{X: 1, Y: 1}, 8, []grid.Direction{grid.East, grid.North, grid.NorthEast}},
		{"south west 8", grid.Coord{X: 2, Y: 2}, grid.Coord{X: 0, Y: 0}, 8, []grid.Direction{grid.West, grid.South, grid.SouthWest}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seen := map[grid.Direction]bool{}
			for range 200 {
				a := grid.Direction(grid.MoveTo(tc.pos, tc.target, tc.numActions, rng))
				assert.Contains(t, tc.want, a)
				seen[a] = true

				next := tc.pos.Add(grid.Compass[a])
				assert.Less(t, grid.EuclideanDistance(next, tc.target), grid.EuclideanDistance(tc.pos, tc.target))
			}
			assert.Len(t, seen, len(tc.want))
		})
	}
}

func TestMoveToAtTarget(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for range 100 {
		a := grid.MoveTo(grid.Coord{X: 1, Y: 1}, grid.Coord{X: 1, Y: 1}, 8, rng)
		assert.GreaterOrEqual(t, a, 0)
		assert.Less(t, a, 8)
	}
}

func TestGrid(t *testing.T) {
	_, err := grid.New[byte](0, 3)
	require.Error(t, err)

	g, err := grid.New[byte](4, 3)
	require.NoError(t, err)
	assert.Equal(t, 12, g.Len())

	c := grid.Coord{X: 3, Y: 2}
	assert.True(t, g.Inside(c))
	assert.False(t, g.Inside(grid.Coord{X: 4, Y: 0}))
	assert.False(t, g.Inside(grid.Coord{X: 0, Y: -1}))

	g.Set(c, 'x')
	assert.Equal(t, byte('x'), g.At(c))
	assert.Equal(t, 11, g.Index(c))
	assert.Equal(t, c, g.Coord(g.Index(c)))
	assert.Panics(t, func() { g.At(grid.Coord{X: -1, Y: 0}) })
}
