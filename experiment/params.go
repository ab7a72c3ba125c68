package experiment

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidParams = errors.New("invalid experiment params")

type Params struct {
	NumRuns  int `yaml:"num_runs" validate:"gte=1"`
	NumSteps int `yaml:"num_steps" validate:"gte=1"`
	// TimeOut bounds a single episode and, across runs, the whole
	// MultiRun. Zero disables it.
	TimeOut time.Duration `yaml:"timeout" validate:"gte=0"`

	Accuracy            float64 `yaml:"accuracy" validate:"gt=0,lt=1"`
	UndiscountedHorizon int     `yaml:"undiscounted_horizon" validate:"gte=1"`

	MinDoubles        int `yaml:"min_doubles" validate:"gte=0"`
	MaxDoubles        int `yaml:"max_doubles" validate:"gtefield=MinDoubles,lte=30"`
	TransformDoubles  int `yaml:"transform_doubles"`
	TransformAttempts int `yaml:"transform_attempts" validate:"gte=0"`

	Parallelism int `yaml:"parallelism" validate:"gte=1"`
	// Seed makes runs reproducible; zero draws a fresh seed.
	Seed uint64 `yaml:"seed"`
}

func DefaultParams() Params {
	return Params{
		NumRuns:             1000,
		NumSteps:            100000,
		TimeOut:             time.Hour,
		Accuracy:            0.001,
		UndiscountedHorizon: 1000,
		MinDoubles:          0,
		MaxDoubles:          20,
		TransformDoubles:    -4,
		TransformAttempts:   1000,
		Parallelism:         1,
	}
}

func (p Params) Validate() error {
	switch {
	case p.NumRuns < 1:
		return fmt.Errorf("%w: NumRuns=%d < 1", ErrInvalidParams, p.NumRuns)
	case p.NumSteps < 1:
		return fmt.Errorf("%w: NumSteps=%d < 1", ErrInvalidParams, p.NumSteps)
	case p.TimeOut < 0:
		return fmt.Errorf("%w: TimeOut=%v", ErrInvalidParams, p.TimeOut)
	case p.Accuracy <= 0 || p.Accuracy >= 1:
		return fmt.Errorf("%w: Accuracy=%g outside (0, 1)", ErrInvalidParams, p.Accuracy)
	case p.UndiscountedHorizon < 1:
		return fmt.Errorf("%w: UndiscountedHorizon=%d < 1", ErrInvalidParams, p.UndiscountedHorizon)
	case p.MinDoubles < 0 || p.MaxDoubles < p.MinDoubles || p.MaxDoubles > 30:
		return fmt.Errorf("%w: doubles [%d, %d]", ErrInvalidParams, p.MinDoubles, p.MaxDoubles)
	case p.TransformAttempts < 0:
		return fmt.Errorf("%w: TransformAttempts=%d", ErrInvalidParams, p.TransformAttempts)
	case p.Parallelism < 1:
		return fmt.Errorf("%w: Parallelism=%d < 1", ErrInvalidParams, p.Parallelism)
	}
	return nil
}
