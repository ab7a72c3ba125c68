package mcts

import (
	"math"
	"time"
)

// Run calls imp NumSimulations times, or in anytime mode until
// TimeOutPerAction has elapsed. The clock is only read between two calls,
// so a simulation in progress is never cut short. It returns the number
// of calls made.
func Run(p Params, imp func()) int {
	if p.TimeOutPerAction > 0 {
		start := time.Now()
		n := 0
		for {
			imp()
			n += 1
			if time.Since(start) >= p.TimeOutPerAction {
				return n
			}
		}
	}

	for range p.NumSimulations {
		imp()
	}
	return p.NumSimulations
}

// Horizon is the search depth after which discounted rewards fall below
// accuracy. Undiscounted problems use undiscountedHorizon.
func Horizon(discount, accuracy float64, undiscountedHorizon int) int {
	if discount >= 1.0 {
		return undiscountedHorizon
	}
	return int(math.Log(accuracy) / math.Log(discount))
}
