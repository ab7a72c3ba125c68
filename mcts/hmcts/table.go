package hmcts

import (
	"github.com/sw965/pomcp/statistic"
)

const (
	// GlobalChannel accumulates the return of the problem.
	GlobalChannel = 0
	// LocalChannel adds the local completion penalty on top of it.
	LocalChannel = 1
)

// Channel is the statistics of one option at one information state.
type Channel struct {
	Value   statistic.Running
	qvalues map[Option]*statistic.Running
}

// QValue returns the statistic of sub-option o, creating it on first use.
func (c *Channel) QValue(o Option) *statistic.Running {
	if q, ok := c.qvalues[o]; ok {
		return q
	}
	if c.qvalues == nil {
		c.qvalues = map[Option]*statistic.Running{}
	}
	q := &statistic.Running{}
	c.qvalues[o] = q
	return q
}

func (c *Channel) Lookup(o Option) (*statistic.Running, bool) {
	q, ok := c.qvalues[o]
	return q, ok
}

type Entry struct {
	V [2]Channel
}

type tableKey struct {
	option Option
	hash   uint64
}

// Input identifies the information state an option is executed from.
type Input struct {
	Hash            uint64
	LastObservation int
}

// Result is the outcome of executing an option: its discounted return,
// the number of ground steps taken, whether the problem ended, and where
// execution left the agent.
type Result struct {
	Reward   float64
	Steps    int
	Terminal bool
	Output   Input
}

// Combine composes a sub-task result with the completion that followed it:
// reward = sub.Reward + discount^sub.Steps * completion.Reward.
func Combine(sub, completion Result, discount float64) Result {
	return Result{
		Reward:   sub.Reward + pow(discount, sub.Steps)*completion.Reward,
		Steps:    sub.Steps + completion.Steps,
		Terminal: sub.Terminal || completion.Terminal,
		Output:   completion.Output,
	}
}

func pow(x float64, n int) float64 {
	y := 1.0
	for range n {
		y *= x
	}
	return y
}
