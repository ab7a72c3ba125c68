package statistic

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distmv"
)

// Dirichlet is the posterior over a categorical distribution whose support
// grows as new outcomes are observed. Keys keep first-seen order so that a
// seeded search is reproducible.
type Dirichlet[K comparable] struct {
	keys  []K
	alpha map[K]float64
}

func NewDirichlet[K comparable]() Dirichlet[K] {
	return Dirichlet[K]{alpha: map[K]float64{}}
}

func (d *Dirichlet[K]) Add(k K) {
	if d.alpha == nil {
		d.alpha = map[K]float64{}
	}
	if _, ok := d.alpha[k]; !ok {
		d.keys = append(d.keys, k)
	}
	d.alpha[k] += 1.0
}

// Set clears the posterior and adds k count times.
func (d *Dirichlet[K]) Set(count int, k K) {
	d.Clear()
	for range count {
		d.Add(k)
	}
}

func (d *Dirichlet[K]) Clear() {
	d.keys = d.keys[:0]
	clear(d.alpha)
}

func (d *Dirichlet[K]) Len() int {
	return len(d.keys)
}

func (d *Dirichlet[K]) Keys() []K {
	return d.keys
}

func (d *Dirichlet[K]) Alpha(k K) float64 {
	return d.alpha[k]
}

// Probabilities returns one probability per key of Keys(). With sampling
// the vector is a single draw from the posterior, otherwise its mean.
func (d *Dirichlet[K]) Probabilities(sampling bool, rng *rand.Rand) []float64 {
	n := len(d.keys)
	if n == 0 {
		return nil
	}

	alpha := make([]float64, n)
	for i, k := range d.keys {
		alpha[i] = d.alpha[k]
	}

	if sampling {
		return distmv.NewDirichlet(alpha, rng).Rand(nil)
	}

	sum := 0.0
	for _, a := range alpha {
		sum += a
	}
	for i := range alpha {
		alpha[i] /= sum
	}
	return alpha
}
