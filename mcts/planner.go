package mcts

import (
	"github.com/sw965/pomcp/history"
)

// Planner is what an episode driver needs from an engine. Update returns
// false on particle deprivation; the driver must then stop using the
// planner for the rest of the episode.
type Planner[S State] interface {
	SelectAction() int
	Update(action, observation int, state S) bool
	History() *history.History
	TreeSize() int
	TreeDepth() int
	Close()
}
