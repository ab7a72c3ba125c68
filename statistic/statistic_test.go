package statistic_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw965/pomcp/statistic"
	"gonum.org/v1/gonum/stat"
)

func TestRunning(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
	}{
		{name: "single", xs: []float64{3.0}},
		{name: "constant", xs: []float64{2.0, 2.0, 2.0, 2.0}},
		{name: "mixed sign", xs: []float64{-1.5, 4.0, 0.25, 9.0, -3.0}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var r statistic.Running
			for _, x := range tc.xs {
				r.Add(x)
			}
			mean, variance := stat.MeanVariance(tc.xs, nil)
			require.Equal(t, len(tc.xs), r.Count())
			assert.InDelta(t, mean, r.Mean(), 1e-12)
			if len(tc.xs) > 1 {
				assert.InDelta(t, variance, r.Variance(), 1e-12)
			}
			assert.Equal(t, minOf(tc.xs), r.Min())
			assert.Equal(t, maxOf(tc.xs), r.Max())
		})
	}
}

func TestRunningMerge(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 8))
	xs := make([]float64, 100)
	for i := range xs {
		xs[i] = rng.NormFloat64()*3 + 1
	}

	var a, b, empty statistic.Running
	for _, x := range xs[:37] {
		a.Add(x)
	}
	for _, x := range xs[37:] {
		b.Add(x)
	}
	a.Merge(b)
	a.Merge(empty)

	mean, variance := stat.MeanVariance(xs, nil)
	assert.Equal(t, len(xs), a.Count())
	assert.InDelta(t, mean, a.Mean(), 1e-12)
	assert.InDelta(t, variance, a.Variance(), 1e-9)
	assert.Equal(t, minOf(xs), a.Min())
	assert.Equal(t, maxOf(xs), a.Max())

	empty.Merge(b)
	assert.Equal(t, b, empty)
}

func TestRunningEmptyIsNeutral(t *testing.T) {
	var r statistic.Running
	assert.Equal(t, 0.0, r.Mean())
	assert.False(t, math.IsNaN(r.Mean()))
	assert.True(t, math.IsInf(r.StdErr(), 1))
}

func TestRunningSet(t *testing.T) {
	var r statistic.Running
	r.Set(10, 1.0)
	assert.Equal(t, 10, r.Count())
	assert.Equal(t, 1.0, r.Mean())

	r.Add(12.0)
	assert.InDelta(t, 22.0/11.0, r.Mean(), 1e-12)

	r.Set(0, 0)
	assert.Equal(t, 0, r.Count())
	assert.Equal(t, 0.0, r.Mean())

	r.Set(1<<30, math.Inf(-1))
	assert.True(t, math.IsInf(r.Mean(), -1))
}

func TestNormalGamma(t *testing.T) {
	g := statistic.NewNormalGamma()
	rng := rand.New(rand.NewPCG(1, 2))

	// 観測なしでも事後分布からサンプリングできる
	for range 100 {
		x := g.Sample(rng)
		require.False(t, math.IsNaN(x))
	}

	for range 200 {
		g.Add(5.0)
	}
	assert.InDelta(t, 5.0, g.Mean(), 1e-9)
	assert.Equal(t, 200.0, g.Count())

	var r statistic.Running
	for range 2000 {
		r.Add(g.Sample(rng))
	}
	assert.InDelta(t, 5.0, r.Mean(), 0.1)
	assert.Equal(t, 5.0, g.ThompsonSampling(false, rng))
}

func TestNormalGammaSet(t *testing.T) {
	g := statistic.NewNormalGamma()
	g.Add(3.0)
	g.Set(4, -1.0)
	assert.Equal(t, -1.0, g.Mean())
	assert.Equal(t, 4.0, g.Count())
	assert.Equal(t, statistic.PriorAlpha, g.Alpha)
	assert.Equal(t, statistic.PriorBeta, g.Beta)
}

func TestDirichlet(t *testing.T) {
	d := statistic.NewDirichlet[int]()
	assert.Nil(t, d.Probabilities(false, nil))

	d.Add(7)
	d.Add(3)
	d.Add(7)
	d.Add(7)

	require.Equal(t, []int{7, 3}, d.Keys())
	assert.Equal(t, []float64{0.75, 0.25}, d.Probabilities(false, nil))

	rng := rand.New(rand.NewPCG(3, 4))
	for range 50 {
		ps := d.Probabilities(true, rng)
		require.Len(t, ps, 2)
		assert.InDelta(t, 1.0, ps[0]+ps[1], 1e-9)
	}

	d.Set(10, 1)
	assert.Equal(t, []int{1}, d.Keys())
	assert.Equal(t, 10.0, d.Alpha(1))
	assert.Equal(t, 0.0, d.Alpha(7))
}

func minOf(xs []float64) float64 {
	m := math.Inf(1)
	for _, x := range xs {
		m = math.Min(m, x)
	}
	return m
}

func maxOf(xs []float64) float64 {
	m := math.Inf(-1)
	for _, x := range xs {
		m = math.Max(m, x)
	}
	return m
}
