package mcts

import (
	"math"
)

// UCBTable caches the UCB1 exploration term sqrt(log(N+1)/n) for small
// (N, n). Lookups outside the table use the same closed form, so a value
// never depends on whether it was cached. A table is immutable once built
// and can be shared between engines.
type UCBTable struct {
	maxN   int
	maxn   int
	values []float64
}

func ucbTerm(N, n int) float64 {
	return math.Sqrt(math.Log(float64(N+1)) / float64(n))
}

func NewUCBTable(maxN, maxn int) *UCBTable {
	t := &UCBTable{maxN: maxN, maxn: maxn, values: make([]float64, maxN*maxn)}
	for N := range maxN {
		for n := range maxn {
			if n == 0 {
				t.values[N*maxn] = math.Inf(1)
				continue
			}
			t.values[N*maxn+n] = ucbTerm(N, n)
		}
	}
	return t
}

// Term returns sqrt(log(N+1)/n), +Inf for an unvisited action.
func (t *UCBTable) Term(N, n int) float64 {
	if n == 0 {
		return math.Inf(1)
	}
	if t != nil && N < t.maxN && n < t.maxn {
		return t.values[N*t.maxn+n]
	}
	return ucbTerm(N, n)
}

// Bonus scales the exploration term by c. An unvisited action keeps an
// infinite bonus whatever c is.
func (t *UCBTable) Bonus(N, n int, c float64) float64 {
	if n == 0 {
		return math.Inf(1)
	}
	return c * t.Term(N, n)
}

// UCBFunc scores an action from its mean value v, the parent visit count N
// and its own visit count n.
type UCBFunc func(v float64, N, n int) float64

// UpperConfidenceBound1 is v + c*sqrt(log(N+1)/n) backed by the table.
func (t *UCBTable) UpperConfidenceBound1(c float64) UCBFunc {
	return func(v float64, N, n int) float64 {
		return v + t.Bonus(N, n, c)
	}
}

// Greedy scores by the mean alone.
func Greedy(v float64, _, _ int) float64 {
	return v
}

// Func returns UpperConfidenceBound1(c) while exploring and Greedy
// otherwise.
func (t *UCBTable) Func(c float64, explore bool) UCBFunc {
	if explore {
		return t.UpperConfidenceBound1(c)
	}
	return Greedy
}
