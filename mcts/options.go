package mcts

import (
	"math/rand/v2"

	"github.com/rs/zerolog"
	"github.com/sw965/omw/mathx/randx"
)

// Options carries the collaborators an engine is built with.
type Options struct {
	Rand    *rand.Rand
	Logger  zerolog.Logger
	Metrics *Metrics
	UCB     *UCBTable
}

type Option func(*Options)

func WithRand(rng *rand.Rand) Option {
	return func(o *Options) { o.Rand = rng }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(o *Options) { o.Metrics = m }
}

// WithUCBTable shares a prebuilt table between engines.
func WithUCBTable(t *UCBTable) Option {
	return func(o *Options) { o.UCB = t }
}

func NewOptions(p Params, opts ...Option) Options {
	o := Options{Logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Rand == nil {
		o.Rand = randx.NewPCGFromGlobalSeed()
	}
	if o.UCB == nil {
		o.UCB = NewUCBTable(p.UCBTableN, p.UCBTablen)
	}
	return o
}
