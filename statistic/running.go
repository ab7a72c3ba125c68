// Package statistic provides the accumulators used by the planners:
// a running mean/variance statistic and the conjugate posteriors
// (Normal-Gamma, Dirichlet) behind Thompson sampling.
//
// Package statistic はプランナーが使う統計量を提供します。
// 逐次平均・分散の Running と、Thompson sampling 用の共役事後分布
// (Normal-Gamma, Dirichlet) を含みます。
package statistic

import (
	"fmt"
	"math"
)

// Running is an incremental mean/variance accumulator (Welford).
// The zero value is an empty statistic ready to use.
type Running struct {
	count int
	total float64
	mean  float64
	m2    float64
	min   float64
	max   float64
}

func (r *Running) Add(x float64) {
	r.count += 1
	r.total += x
	delta := x - r.mean
	r.mean += delta / float64(r.count)
	r.m2 += delta * (x - r.mean)

	if r.count == 1 {
		r.min = x
		r.max = x
		return
	}
	r.min = math.Min(r.min, x)
	r.max = math.Max(r.max, x)
}

// Set overwrites the statistic with count pseudo-observations of value.
// It is how domain knowledge injects a prior into a node.
func (r *Running) Set(count int, value float64) {
	r.count = count
	r.total = float64(count) * value
	r.mean = value
	r.m2 = 0
	r.min = value
	r.max = value
	if count == 0 {
		r.total = 0
	}
}

// Merge folds o into r as if every observation of o had been added to r.
func (r *Running) Merge(o Running) {
	if o.count == 0 {
		return
	}
	if r.count == 0 {
		*r = o
		return
	}
	n := float64(r.count + o.count)
	delta := o.mean - r.mean
	r.m2 += o.m2 + delta*delta*float64(r.count)*float64(o.count)/n
	r.mean += delta * float64(o.count) / n
	r.count += o.count
	r.total += o.total
	r.min = math.Min(r.min, o.min)
	r.max = math.Max(r.max, o.max)
}

func (r *Running) Clear() {
	*r = Running{}
}

func (r *Running) Count() int {
	return r.count
}

func (r *Running) Total() float64 {
	return r.total
}

// Mean returns Total while the statistic is empty, so an unvisited node
// reads as a neutral zero instead of NaN.
func (r *Running) Mean() float64 {
	if r.count == 0 {
		return r.total
	}
	return r.mean
}

func (r *Running) Variance() float64 {
	if r.count < 2 {
		return 0
	}
	return r.m2 / float64(r.count-1)
}

func (r *Running) StdDev() float64 {
	return math.Sqrt(r.Variance())
}

// StdErr is +Inf for an empty statistic.
func (r *Running) StdErr() float64 {
	if r.count == 0 {
		return math.Inf(1)
	}
	return math.Sqrt(r.Variance() / float64(r.count))
}

func (r *Running) Min() float64 {
	return r.min
}

func (r *Running) Max() float64 {
	return r.max
}

func (r Running) String() string {
	return fmt.Sprintf("%.4g (n=%d, stderr=%.4g)", r.Mean(), r.count, r.StdErr())
}
