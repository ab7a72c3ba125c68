package statistic

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Prior hyper-parameters of a fresh NormalGamma. They keep the posterior
// proper (Alpha, Beta > 0) before any observation arrives.
const (
	PriorAlpha = 0.01
	PriorBeta  = 10.0
)

const minPrecision = 1e-6

// NormalGamma is the conjugate posterior over the mean and precision of a
// normally distributed return.
type NormalGamma struct {
	Mu     float64
	Lambda float64
	Alpha  float64
	Beta   float64
}

func NewNormalGamma() NormalGamma {
	return NormalGamma{Alpha: PriorAlpha, Beta: PriorBeta}
}

func (g *NormalGamma) Add(x float64) {
	mu := (g.Lambda*g.Mu + x) / (g.Lambda + 1)
	beta := g.Beta + 0.5*(g.Lambda/(g.Lambda+1))*(x-g.Mu)*(x-g.Mu)
	g.Mu = mu
	g.Lambda += 1
	g.Alpha += 0.5
	g.Beta = beta
}

// Set replaces the posterior by count pseudo-observations of value.
func (g *NormalGamma) Set(count int, value float64) {
	g.Mu = value
	g.Lambda = float64(count)
	g.Alpha = PriorAlpha
	g.Beta = PriorBeta
}

// Count is the number of observations absorbed so far.
func (g *NormalGamma) Count() float64 {
	return g.Lambda
}

func (g *NormalGamma) Mean() float64 {
	return g.Mu
}

// Sample draws a mean from the posterior: a precision t from
// Gamma(Alpha, rate Beta), then Normal(Mu, 1/sqrt(Lambda*t)).
func (g *NormalGamma) Sample(rng *rand.Rand) float64 {
	t := distuv.Gamma{Alpha: g.Alpha, Beta: g.Beta, Src: rng}.Rand()
	p := math.Max(g.Lambda*t, minPrecision)
	return distuv.Normal{Mu: g.Mu, Sigma: math.Sqrt(1.0 / p), Src: rng}.Rand()
}

// ThompsonSampling returns a posterior draw when sampling is true, the
// posterior mean otherwise.
func (g *NormalGamma) ThompsonSampling(sampling bool, rng *rand.Rand) float64 {
	if sampling {
		return g.Sample(rng)
	}
	return g.Mu
}
