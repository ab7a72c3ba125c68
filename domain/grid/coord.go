// Package grid provides integer coordinates, the eight compass moves and a
// generic rectangular grid shared by the grid-world domains.
package grid

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/sw965/omw/mathx/randx"
)

type Coord struct {
	X, Y int
}

func (c Coord) Add(o Coord) Coord {
	return Coord{X: c.X + o.X, Y: c.Y + o.Y}
}

func (c Coord) Valid() bool {
	return c.X >= 0 && c.Y >= 0
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d, %d)", c.X, c.Y)
}

type Direction int

const (
	North Direction = iota
	East
	South
	West
	NorthEast
	SouthEast
	SouthWest
	NorthWest
)

// Compass maps a Direction to its unit offset.
var Compass = [8]Coord{
	North:     {0, 1},
	East:      {1, 0},
	South:     {0, -1},
	West:      {-1, 0},
	NorthEast: {1, 1},
	SouthEast: {1, -1},
	SouthWest: {-1, -1},
	NorthWest: {-1, 1},
}

var directionNames = [8]string{"N", "E", "S", "W", "NE", "SE", "SW", "NW"}

func (d Direction) String() string {
	if d < 0 || int(d) >= len(directionNames) {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionNames[d]
}

// Opposite is defined for the four cardinal directions.
func (d Direction) Opposite() Direction {
	return (d + 2) % 4
}

func (d Direction) Clockwise() Direction {
	return (d + 1) % 4
}

func (d Direction) Anticlockwise() Direction {
	return (d + 3) % 4
}

func ManhattanDistance(a, b Coord) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func EuclideanDistance(a, b Coord) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// MoveTo returns a random action among those that bring pos closer to
// target. With eight actions the diagonal toward target is a candidate
// too. At the target any action is returned.
func MoveTo(pos, target Coord, numActions int, rng *rand.Rand) int {
	if pos == target {
		return rng.IntN(numActions)
	}

	actions := make([]Direction, 0, 3)
	dx := target.X - pos.X
	dy := target.Y - pos.Y
	switch {
	case dx > 0:
		actions = append(actions, East)
	case dx < 0:
		actions = append(actions, West)
	}
	switch {
	case dy > 0:
		actions = append(actions, North)
	case dy < 0:
		actions = append(actions, South)
	}

	if numActions == 8 && len(actions) == 2 {
		if actions[0] == East {
			if actions[1] == North {
				actions = append(actions, NorthEast)
			} else {
				actions = append(actions, SouthEast)
			}
		} else {
			if actions[1] == North {
				actions = append(actions, NorthWest)
			} else {
				actions = append(actions, SouthWest)
			}
		}
	}

	d, err := randx.Choice(actions, rng)
	if err != nil {
		panic("BUG: " + err.Error())
	}
	return int(d)
}
